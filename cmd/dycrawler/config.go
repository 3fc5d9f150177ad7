package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"dycrawler/pkg/config"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration files",
	Long: `Manage dycrawler configuration files.

Configuration can be loaded from:
  - Command line flags (highest priority)
  - Environment variables (DYCRAWLER_*)
  - A .env file
  - A YAML configuration file
  - Default values (lowest priority)`,
}

// configInitCmd represents the config init command
var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create an example configuration file",
	Long: `Create an example configuration file with all available options.

The file is created as '.dycrawler.yaml' in the current directory unless
a different path is given with --config.`,
	RunE: runConfigInit,
}

// configShowCmd represents the config show command
var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Long: `Show the configuration after merging every source: flags,
environment variables, the configuration file and defaults.`,
	RunE: runConfigShow,
}

// configValidateCmd represents the config validate command
var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration",
	RunE:  runConfigValidate,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configValidateCmd)
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	configPath := configFile
	if configPath == "" {
		configPath = ".dycrawler.yaml"
	}

	if _, err := os.Stat(configPath); err == nil {
		return fmt.Errorf("configuration file already exists: %s", configPath)
	}

	exampleConfig := `# dycrawler configuration file
#
# Every option can also be set with environment variables prefixed
# with DYCRAWLER_, for example DYCRAWLER_MS_TOKEN or
# DYCRAWLER_SIGN_ENDPOINT.

# Platform request settings
platform:
  name: "douyin"
  base_url: "https://www.douyin.com"
  # Transport retries per call and the spacing between them
  retry_attempts: 5
  retry_delay: 1s
  # Sleep after the platform throttles a request
  rate_limit_sleep: 10s
  requests_per_second: 2
  # Identity acquisitions before a binding attempt gives up
  max_bind_attempts: 10
  # msToken captured from a browser session; generated when empty
  ms_token: ""

# Crawl behavior
crawl:
  # Comma-separated search keywords for search mode
  keywords: ""
  # Stop after this many items per keyword / creator / feed
  max_items: 40
  # Pause between result pages
  page_interval: 1s
  # Concurrent item and comment workers
  max_item_workers: 1
  max_comment_workers: 1
  fetch_comments: true
  fetch_sub_comments: false
  # 0 means no limit
  max_comments_per_item: 0
  # general, most_liked or latest
  search_sort: "general"
  # unlimited, one_day, one_week or six_months
  search_publish_time: "unlimited"

# Credential source: file, keyring, env or encrypted.
# The encrypted source keeps credentials in an AES-encrypted blob;
# the key comes from DYCRAWLER_PASSPHRASE or an interactive prompt.
accounts:
  source: "file"
  file: "accounts.csv"
  service: "dycrawler"

# Proxy pool (optional)
proxy:
  enabled: false
  provider_url: ""
  pool_count: 5
  validate: true
  probe_url: "https://httpbin.org/ip"
  timeout: 10s

# Signing gateway
sign:
  endpoint: "http://localhost:8989"
  timeout: 10s

# Checkpoint persistence: file or sqlite backend
checkpoint:
  enabled: true
  backend: "file"
  dir: ""
  path: "checkpoints.db"

# Output sink: json (JSON lines) or csv
storage:
  format: "json"
  dir: "./data"

# Logging
logging:
  # debug, info, warn or error
  level: "info"
  # Log file path; empty logs to the console only
  file: ""
`

	if err := os.WriteFile(configPath, []byte(exampleConfig), 0644); err != nil {
		return fmt.Errorf("failed to create configuration file: %w", err)
	}

	fmt.Printf("Configuration file created: %s\n", configPath)
	fmt.Println("\nNext steps:")
	fmt.Println("1. Store a credential with 'dycrawler accounts add'")
	fmt.Println("2. Point sign.endpoint at your signing gateway")
	fmt.Println("3. Start crawling with 'dycrawler crawl --type search --keywords ...'")
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile, nil)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// msToken is a session secret; mask it for display.
	displayCfg := *cfg
	if len(displayCfg.Platform.MsToken) > 8 {
		displayCfg.Platform.MsToken = displayCfg.Platform.MsToken[:4] + "..." + displayCfg.Platform.MsToken[len(displayCfg.Platform.MsToken)-4:]
	} else if displayCfg.Platform.MsToken != "" {
		displayCfg.Platform.MsToken = "***"
	}

	data, err := yaml.Marshal(&displayCfg)
	if err != nil {
		return fmt.Errorf("failed to format configuration: %w", err)
	}
	fmt.Print(string(data))

	fmt.Println("\nConfiguration sources (in order of priority):")
	fmt.Println("1. Command line flags")
	fmt.Println("2. Environment variables (DYCRAWLER_*)")
	if configFile != "" {
		fmt.Printf("3. Configuration file: %s\n", configFile)
	} else {
		fmt.Println("3. Configuration file: (auto-detected)")
	}
	fmt.Println("4. Default values")
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile, nil)
	if err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	fmt.Println("Configuration is valid.")
	fmt.Println("\nSummary:")
	fmt.Printf("  Accounts source:   %s\n", cfg.Accounts.Source)
	fmt.Printf("  Proxying:          %t\n", cfg.Proxy.Enabled)
	fmt.Printf("  Sign endpoint:     %s\n", cfg.Sign.Endpoint)
	fmt.Printf("  Checkpoints:       %t (%s)\n", cfg.Checkpoint.Enabled, cfg.Checkpoint.Backend)
	fmt.Printf("  Output:            %s files under %s\n", cfg.Storage.Format, cfg.Storage.Dir)
	fmt.Printf("  Item workers:      %d\n", cfg.Crawl.MaxItemWorkers)
	fmt.Printf("  Comment workers:   %d\n", cfg.Crawl.MaxCommentWorkers)
	return nil
}
