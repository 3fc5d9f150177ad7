package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration options for the crawler. It is built
// once at startup and passed by reference into each component; nothing
// mutates it after Load returns.
type Config struct {
	// Platform-level request settings
	Platform PlatformConfig `yaml:"platform" json:"platform"`

	// Crawl behavior (keywords, limits, comment fetching)
	Crawl CrawlConfig `yaml:"crawl" json:"crawl"`

	// Credential source settings
	Accounts AccountsConfig `yaml:"accounts" json:"accounts"`

	// Proxy pool settings
	Proxy ProxyConfig `yaml:"proxy" json:"proxy"`

	// Signing gateway settings
	Sign SignConfig `yaml:"sign" json:"sign"`

	// Checkpoint persistence settings
	Checkpoint CheckpointConfig `yaml:"checkpoint" json:"checkpoint"`

	// Output sink settings
	Storage StorageConfig `yaml:"storage" json:"storage"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// PlatformConfig holds settings for talking to the platform API.
type PlatformConfig struct {
	Name              string        `yaml:"name" json:"name"`
	BaseURL           string        `yaml:"base_url" json:"base_url"`
	UserAgent         string        `yaml:"user_agent" json:"user_agent"`
	RequestTimeout    time.Duration `yaml:"request_timeout" json:"request_timeout"`
	RetryAttempts     int           `yaml:"retry_attempts" json:"retry_attempts"`
	RetryDelay        time.Duration `yaml:"retry_delay" json:"retry_delay"`
	RateLimitSleep    time.Duration `yaml:"rate_limit_sleep" json:"rate_limit_sleep"`
	RequestsPerSecond float64       `yaml:"requests_per_second" json:"requests_per_second"`
	MaxBindAttempts   int           `yaml:"max_bind_attempts" json:"max_bind_attempts"`
	MsToken           string        `yaml:"ms_token" json:"ms_token"`
}

// CrawlConfig holds crawl behavior settings.
type CrawlConfig struct {
	Keywords           string        `yaml:"keywords" json:"keywords"`
	MaxItems           int           `yaml:"max_items" json:"max_items"`
	StartPage          int           `yaml:"start_page" json:"start_page"`
	PageInterval       time.Duration `yaml:"page_interval" json:"page_interval"`
	MaxItemWorkers     int           `yaml:"max_item_workers" json:"max_item_workers"`
	MaxCommentWorkers  int           `yaml:"max_comment_workers" json:"max_comment_workers"`
	FetchComments      bool          `yaml:"fetch_comments" json:"fetch_comments"`
	FetchSubComments   bool          `yaml:"fetch_sub_comments" json:"fetch_sub_comments"`
	MaxCommentsPerItem int           `yaml:"max_comments_per_item" json:"max_comments_per_item"`
	SearchSort         string        `yaml:"search_sort" json:"search_sort"`
	SearchPublishTime  string        `yaml:"search_publish_time" json:"search_publish_time"`
}

// AccountsConfig selects where credentials are loaded from.
type AccountsConfig struct {
	// Source is one of "file", "keyring", "env", "encrypted".
	Source string `yaml:"source" json:"source"`
	// File is the credential file path: a CSV for the "file" source,
	// an encrypted blob for the "encrypted" source.
	File string `yaml:"file" json:"file"`
	// Service is the keyring service name used when Source is "keyring".
	Service string `yaml:"service" json:"service"`
}

// ProxyConfig holds proxy pool settings.
type ProxyConfig struct {
	Enabled     bool          `yaml:"enabled" json:"enabled"`
	ProviderURL string        `yaml:"provider_url" json:"provider_url"`
	PoolCount   int           `yaml:"pool_count" json:"pool_count"`
	Validate    bool          `yaml:"validate" json:"validate"`
	ProbeURL    string        `yaml:"probe_url" json:"probe_url"`
	Timeout     time.Duration `yaml:"timeout" json:"timeout"`
}

// SignConfig holds signing gateway settings.
type SignConfig struct {
	Endpoint string        `yaml:"endpoint" json:"endpoint"`
	Timeout  time.Duration `yaml:"timeout" json:"timeout"`
}

// CheckpointConfig holds checkpoint persistence settings.
type CheckpointConfig struct {
	Enabled bool `yaml:"enabled" json:"enabled"`
	// Backend is "file" or "sqlite".
	Backend string `yaml:"backend" json:"backend"`
	// Dir is the directory for the file backend; empty means the
	// per-OS data directory.
	Dir string `yaml:"dir" json:"dir"`
	// Path is the database file for the sqlite backend.
	Path string `yaml:"path" json:"path"`
}

// StorageConfig holds output sink settings.
type StorageConfig struct {
	// Format is "json" or "csv".
	Format string `yaml:"format" json:"format"`
	Dir    string `yaml:"dir" json:"dir"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// DefaultConfig returns a Config instance with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Platform: PlatformConfig{
			Name:              "douyin",
			BaseURL:           "https://www.douyin.com",
			UserAgent:         "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/125.0.0.0 Safari/537.36",
			RequestTimeout:    30 * time.Second,
			RetryAttempts:     5,
			RetryDelay:        1 * time.Second,
			RateLimitSleep:    10 * time.Second,
			RequestsPerSecond: 2,
			MaxBindAttempts:   10,
		},
		Crawl: CrawlConfig{
			Keywords:           "",
			MaxItems:           40,
			StartPage:          0,
			PageInterval:       1 * time.Second,
			MaxItemWorkers:     1,
			MaxCommentWorkers:  1,
			FetchComments:      true,
			FetchSubComments:   false,
			MaxCommentsPerItem: 0, // 0 means no limit
			SearchSort:         "general",
			SearchPublishTime:  "unlimited",
		},
		Accounts: AccountsConfig{
			Source:  "file",
			File:    "accounts.csv",
			Service: "dycrawler",
		},
		Proxy: ProxyConfig{
			Enabled:   false,
			PoolCount: 5,
			Validate:  true,
			ProbeURL:  "https://httpbin.org/ip",
			Timeout:   10 * time.Second,
		},
		Sign: SignConfig{
			Endpoint: "http://localhost:8989",
			Timeout:  10 * time.Second,
		},
		Checkpoint: CheckpointConfig{
			Enabled: true,
			Backend: "file",
			Dir:     "",
			Path:    "checkpoints.db",
		},
		Storage: StorageConfig{
			Format: "json",
			Dir:    "./data",
		},
		Logging: LoggingConfig{
			Level: "info",
			File:  "",
		},
	}
}

// LoadFromEnv loads configuration from environment variables.
func (c *Config) LoadFromEnv() error {
	if keywords := os.Getenv("DYCRAWLER_KEYWORDS"); keywords != "" {
		c.Crawl.Keywords = keywords
	}
	if maxItems := os.Getenv("DYCRAWLER_MAX_ITEMS"); maxItems != "" {
		var val int
		fmt.Sscanf(maxItems, "%d", &val)
		if val > 0 {
			c.Crawl.MaxItems = val
		}
	}
	if workers := os.Getenv("DYCRAWLER_MAX_ITEM_WORKERS"); workers != "" {
		var val int
		fmt.Sscanf(workers, "%d", &val)
		if val > 0 {
			c.Crawl.MaxItemWorkers = val
		}
	}
	if workers := os.Getenv("DYCRAWLER_MAX_COMMENT_WORKERS"); workers != "" {
		var val int
		fmt.Sscanf(workers, "%d", &val)
		if val > 0 {
			c.Crawl.MaxCommentWorkers = val
		}
	}
	if msToken := os.Getenv("DYCRAWLER_MS_TOKEN"); msToken != "" {
		c.Platform.MsToken = msToken
	}
	if userAgent := os.Getenv("DYCRAWLER_USER_AGENT"); userAgent != "" {
		c.Platform.UserAgent = userAgent
	}
	if endpoint := os.Getenv("DYCRAWLER_SIGN_ENDPOINT"); endpoint != "" {
		c.Sign.Endpoint = endpoint
	}
	if providerURL := os.Getenv("DYCRAWLER_PROXY_PROVIDER_URL"); providerURL != "" {
		c.Proxy.ProviderURL = providerURL
	}
	if proxyEnabled := os.Getenv("DYCRAWLER_PROXY_ENABLED"); proxyEnabled != "" {
		c.Proxy.Enabled = strings.ToLower(proxyEnabled) == "true"
	}
	if accountsFile := os.Getenv("DYCRAWLER_ACCOUNTS_FILE"); accountsFile != "" {
		c.Accounts.File = accountsFile
	}
	if storageDir := os.Getenv("DYCRAWLER_STORAGE_DIR"); storageDir != "" {
		c.Storage.Dir = storageDir
	}
	if logLevel := os.Getenv("DYCRAWLER_LOG_LEVEL"); logLevel != "" {
		c.Logging.Level = logLevel
	}
	return nil
}

// LoadFromFile loads configuration from a YAML file.
func (c *Config) LoadFromFile(path string) error {
	// If path is empty, try default locations
	if path == "" {
		path = c.findConfigFile()
		if path == "" {
			return nil // No config file found, not an error
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// findConfigFile searches for config file in standard locations.
func (c *Config) findConfigFile() string {
	locations := []string{
		".dycrawler.yaml",
		".dycrawler.yml",
		filepath.Join(os.Getenv("HOME"), ".config", "dycrawler", "config.yaml"),
		filepath.Join(os.Getenv("HOME"), ".config", "dycrawler", "config.yml"),
		filepath.Join(os.Getenv("HOME"), ".dycrawler.yaml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	var errs []error

	if c.Platform.BaseURL == "" {
		errs = append(errs, errors.New("platform base URL is required"))
	}
	if c.Platform.UserAgent == "" {
		errs = append(errs, errors.New("user agent is required"))
	}
	if c.Platform.RetryAttempts <= 0 {
		errs = append(errs, errors.New("retry attempts must be positive"))
	}
	if c.Platform.MaxBindAttempts <= 0 {
		errs = append(errs, errors.New("max bind attempts must be positive"))
	}

	if c.Crawl.MaxItems <= 0 {
		errs = append(errs, errors.New("max items must be positive"))
	}
	if c.Crawl.MaxItemWorkers <= 0 {
		errs = append(errs, errors.New("max item workers must be positive"))
	}
	if c.Crawl.MaxCommentWorkers <= 0 {
		errs = append(errs, errors.New("max comment workers must be positive"))
	}
	if c.Crawl.MaxCommentsPerItem < 0 {
		errs = append(errs, errors.New("max comments per item cannot be negative"))
	}

	validSources := map[string]bool{"file": true, "keyring": true, "env": true, "encrypted": true}
	if !validSources[c.Accounts.Source] {
		errs = append(errs, fmt.Errorf("invalid accounts source: %s", c.Accounts.Source))
	}
	if (c.Accounts.Source == "file" || c.Accounts.Source == "encrypted") && c.Accounts.File == "" {
		errs = append(errs, errors.New("accounts file is required for the file and encrypted sources"))
	}

	if c.Proxy.Enabled {
		if c.Proxy.ProviderURL == "" {
			errs = append(errs, errors.New("proxy provider URL is required when proxying is enabled"))
		}
		if c.Proxy.PoolCount <= 0 {
			errs = append(errs, errors.New("proxy pool count must be positive"))
		}
	}

	if c.Sign.Endpoint == "" {
		errs = append(errs, errors.New("sign endpoint is required"))
	}

	validBackends := map[string]bool{"file": true, "sqlite": true}
	if !validBackends[c.Checkpoint.Backend] {
		errs = append(errs, fmt.Errorf("invalid checkpoint backend: %s", c.Checkpoint.Backend))
	}
	if c.Checkpoint.Backend == "sqlite" && c.Checkpoint.Path == "" {
		errs = append(errs, errors.New("checkpoint path is required for the sqlite backend"))
	}

	validFormats := map[string]bool{"json": true, "csv": true}
	if !validFormats[c.Storage.Format] {
		errs = append(errs, fmt.Errorf("invalid storage format: %s", c.Storage.Format))
	}
	if c.Storage.Dir == "" {
		errs = append(errs, errors.New("storage directory is required"))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// Save saves the configuration to a file.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// MergeCommandLineFlags merges command line flags into the configuration.
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if keywords, ok := flags["keywords"].(string); ok && keywords != "" {
		c.Crawl.Keywords = keywords
	}
	if maxItems, ok := flags["max-items"].(int); ok && maxItems > 0 {
		c.Crawl.MaxItems = maxItems
	}
	if enabled, ok := flags["enable-checkpoint"].(bool); ok {
		c.Checkpoint.Enabled = enabled
	}
	if storageDir, ok := flags["storage-dir"].(string); ok && storageDir != "" {
		c.Storage.Dir = storageDir
	}
	if format, ok := flags["storage-format"].(string); ok && format != "" {
		c.Storage.Format = format
	}
	if logLevel, ok := flags["log-level"].(string); ok && logLevel != "" {
		c.Logging.Level = logLevel
	}
}

// Load loads configuration from all sources with proper precedence.
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	// Try to load .env files (don't fail if they don't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".dycrawler.env"))

	// Start with defaults
	config := DefaultConfig()

	// Load from config file
	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	// Override with environment variables (includes values from .env)
	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	// Override with command line flags
	config.MergeCommandLineFlags(flags)

	// Validate final configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}
