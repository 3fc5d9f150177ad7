package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"
)

var (
	// Version information
	version   = "1.0.0"
	gitCommit = "unknown"
	buildDate = "unknown"

	// Global flags
	configFile string
	logLevel   string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "dycrawler",
	Short: "A resilient content crawler for the douyin web API",
	Long: `dycrawler harvests posts, comments and creator profiles through the
douyin web API while surviving the platform's countermeasures.

Features:
  - Keyword search, detail, creator and homefeed crawl modes
  - Credential pool with automatic rotation on bans
  - Optional proxy pool with expiry-aware replacement
  - External signing gateway for request tokens
  - Resumable checkpoints so interrupted runs pick up where they left off
  - JSON-lines or CSV output with cross-run deduplication`,
	Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
	// Execute prints returned errors itself; a failed crawl should not
	// dump usage text on top of the real failure.
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default is .dycrawler.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")

	rootCmd.SetVersionTemplate(`dycrawler {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}
