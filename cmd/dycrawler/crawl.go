package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"dycrawler/pkg/account"
	"dycrawler/pkg/checkpoint"
	"dycrawler/pkg/config"
	"dycrawler/pkg/crawler"
	"dycrawler/pkg/douyin"
	"dycrawler/pkg/logger"
	"dycrawler/pkg/proxy"
	"dycrawler/pkg/sign"
	"dycrawler/pkg/storage"
)

var (
	// Crawl command flags
	crawlType        string
	keywords         string
	detailIDs        []string
	creatorIDs       []string
	feedTag          string
	maxItems         int
	storageDir       string
	storageFormat    string
	enableCheckpoint bool
	checkpointID     string
)

// crawlCmd represents the crawl command
var crawlCmd = &cobra.Command{
	Use:   "crawl",
	Short: "Run a crawl in one of the four modes",
	Long: `Run a crawl against the platform API.

The mode selects what gets crawled:
  search    keyword search results (requires --keywords or config)
  detail    specific items by id (requires --detail-ids)
  creator   creator profiles and their post timelines (requires --creator-ids)
  homefeed  the recommendation feed (optionally filtered by --feed-tag)

Every run needs at least one stored credential (see 'dycrawler accounts add')
and a reachable signing gateway. With checkpointing enabled an interrupted
run resumes from where it stopped; already-harvested items are skipped.`,
	Example: `  # Search two keywords, stop after 100 items per keyword
  dycrawler crawl --type search --keywords "city travel,street food" --max-items 100

  # Fetch three specific items with their comment threads
  dycrawler crawl --type detail --detail-ids 7100000000000000001,7100000000000000002

  # Crawl a creator's timeline into CSV files
  dycrawler crawl --type creator --creator-ids MS4wLjABAAAA... --storage-format csv

  # Resume a specific interrupted run
  dycrawler crawl --type search --keywords "city travel" --checkpoint-id 7b0b...`,
	RunE: runCrawl,
}

func init() {
	rootCmd.AddCommand(crawlCmd)

	crawlCmd.Flags().StringVarP(&crawlType, "type", "t", "search", "crawl mode: search, detail, creator, homefeed")
	crawlCmd.Flags().StringVarP(&keywords, "keywords", "k", "", "comma-separated search keywords")
	crawlCmd.Flags().StringSliceVar(&detailIDs, "detail-ids", nil, "item ids for detail mode")
	crawlCmd.Flags().StringSliceVar(&creatorIDs, "creator-ids", nil, "creator sec_user_ids for creator mode")
	crawlCmd.Flags().StringVar(&feedTag, "feed-tag", "", "homefeed category (knowledge, sports, game, food, ...)")
	crawlCmd.Flags().IntVar(&maxItems, "max-items", 0, "stop after this many items per crawl unit")
	crawlCmd.Flags().StringVar(&storageDir, "storage-dir", "", "output directory")
	crawlCmd.Flags().StringVar(&storageFormat, "storage-format", "", "output format: json or csv")
	crawlCmd.Flags().BoolVar(&enableCheckpoint, "enable-checkpoint", true, "persist progress for resumable runs")
	crawlCmd.Flags().StringVar(&checkpointID, "checkpoint-id", "", "resume a specific checkpoint instead of the latest")
}

func runCrawl(cmd *cobra.Command, args []string) error {
	flags := make(map[string]interface{})
	if keywords != "" {
		flags["keywords"] = keywords
	}
	if maxItems > 0 {
		flags["max-items"] = maxItems
	}
	if storageDir != "" {
		flags["storage-dir"] = storageDir
	}
	if storageFormat != "" {
		flags["storage-format"] = storageFormat
	}
	if cmd.Flags().Changed("enable-checkpoint") {
		flags["enable-checkpoint"] = enableCheckpoint
	}
	if logLevel != "info" {
		flags["log-level"] = logLevel
	}

	cfg, err := config.Load(configFile, flags)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := logger.Initialize(&cfg.Logging); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	log := logger.GetLogger()
	log.WithField("version", version).Info("dycrawler starting")

	mode := checkpoint.Mode(crawlType)
	switch mode {
	case checkpoint.ModeSearch, checkpoint.ModeDetail, checkpoint.ModeCreator, checkpoint.ModeHomefeed:
	default:
		return fmt.Errorf("unknown crawl type %q", crawlType)
	}

	credStore, err := credentialStore(cfg)
	if err != nil {
		return err
	}
	accounts := account.NewPool(credStore, cfg.Platform.Name, log)
	if err := accounts.Load(); err != nil {
		return fmt.Errorf("failed to load credentials: %w", err)
	}
	if accounts.Size() == 0 {
		fmt.Fprintln(os.Stderr, "No credentials found. Store one first:")
		fmt.Fprintln(os.Stderr, "  dycrawler accounts add <name>")
		return fmt.Errorf("no credentials available")
	}

	var proxies *proxy.Pool
	if cfg.Proxy.Enabled {
		provider := proxy.NewHTTPProvider(cfg.Proxy.ProviderURL, cfg.Proxy.Timeout, log)
		proxies = proxy.NewPool(provider, proxy.PoolConfig{
			Count:        cfg.Proxy.PoolCount,
			Validate:     cfg.Proxy.Validate,
			ProbeURL:     cfg.Proxy.ProbeURL,
			ProbeTimeout: cfg.Proxy.Timeout,
		}, log)
	}

	signer := sign.NewGatewayClient(cfg.Sign.Endpoint, cfg.Sign.Timeout, log)
	verify := douyin.NewVerifyParams(cfg.Platform.MsToken)

	client := douyin.NewClient(douyin.ClientConfig{
		BaseURL:           cfg.Platform.BaseURL,
		UserAgent:         cfg.Platform.UserAgent,
		Timeout:           cfg.Platform.RequestTimeout,
		RetryAttempts:     cfg.Platform.RetryAttempts,
		RetryDelay:        cfg.Platform.RetryDelay,
		RateLimitSleep:    cfg.Platform.RateLimitSleep,
		RequestsPerSecond: cfg.Platform.RequestsPerSecond,
		MaxBindAttempts:   cfg.Platform.MaxBindAttempts,
	}, accounts, proxies, signer, verify, log)

	sink, err := storage.New(cfg.Storage.Format, cfg.Storage.Dir)
	if err != nil {
		return fmt.Errorf("failed to open output sink: %w", err)
	}

	var store checkpoint.Store
	if cfg.Checkpoint.Enabled {
		store, err = checkpointStore(cfg, log)
		if err != nil {
			return fmt.Errorf("failed to open checkpoint store: %w", err)
		}
		defer store.Close()
	}

	opts := crawler.Options{
		Mode:         mode,
		Keywords:     splitList(cfg.Crawl.Keywords),
		DetailIDs:    detailIDs,
		CreatorIDs:   creatorIDs,
		FeedTag:      douyin.ParseFeedTag(feedTag),
		CheckpointID: checkpointID,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c := crawler.New(cfg, client, sink, store, log)
	runErr := c.Run(ctx, opts)

	if err := sink.Close(); err != nil {
		log.WithError(err).Warn("failed to close output sink cleanly")
	}

	snapshot := c.ProgressSnapshot()
	fmt.Println()
	fmt.Printf("Items saved:    %v\n", snapshot["items_saved"])
	fmt.Printf("Comments saved: %v\n", snapshot["comments_saved"])
	fmt.Printf("Creators saved: %v\n", snapshot["creators_saved"])
	fmt.Printf("Items skipped:  %v\n", snapshot["items_skipped"])

	if runErr != nil {
		// Returning lets the deferred checkpoint store close before
		// the process exits non-zero.
		log.WithError(runErr).Error("crawl failed")
		return fmt.Errorf("crawl failed: %w", runErr)
	}
	log.Info("crawl completed")
	return nil
}

// credentialStore selects the credential backend from configuration.
func credentialStore(cfg *config.Config) (account.Store, error) {
	switch cfg.Accounts.Source {
	case "file":
		return account.NewCSVStore(cfg.Accounts.File), nil
	case "keyring":
		return account.NewKeyringStoreWithService(cfg.Accounts.Service)
	case "env":
		return account.NewEnvironmentStore(), nil
	case "encrypted":
		return encryptedCredentialStore(cfg.Accounts.File)
	default:
		return nil, fmt.Errorf("unknown accounts source %q", cfg.Accounts.Source)
	}
}

// encryptedCredentialStore opens the encrypted credential file. The
// key comes from DYCRAWLER_PASSPHRASE when set; otherwise an
// interactive run prompts for one, and a headless run falls back to
// the generated passphrase kept in the config directory.
func encryptedCredentialStore(path string) (account.Store, error) {
	if os.Getenv("DYCRAWLER_PASSPHRASE") == "" && term.IsTerminal(int(syscall.Stdin)) {
		fmt.Fprint(os.Stderr, "Credential passphrase (empty to use the machine one): ")
		raw, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return nil, fmt.Errorf("failed to read passphrase: %w", err)
		}
		if pass := strings.TrimSpace(string(raw)); pass != "" {
			return account.NewEncryptedFileStoreWithPassphrase(path, pass)
		}
	}
	return account.NewEncryptedFileStore(path)
}

// checkpointStore selects the checkpoint backend from configuration.
func checkpointStore(cfg *config.Config, log logger.Logger) (checkpoint.Store, error) {
	switch cfg.Checkpoint.Backend {
	case "sqlite":
		return checkpoint.NewSQLiteStore(cfg.Checkpoint.Path, log)
	default:
		return checkpoint.NewFileStore(cfg.Checkpoint.Dir, log)
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
