package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"dycrawler/pkg/account"
	"dycrawler/pkg/config"
)

// accountsCmd represents the accounts command
var accountsCmd = &cobra.Command{
	Use:   "accounts",
	Short: "Manage platform credentials",
	Long: `Manage the credential pool the crawler rotates through.

Credentials are cookie sets captured from a logged-in browser session.
Depending on configuration they are stored in:
  - A CSV file (default, accounts.file)
  - The system keyring
  - Environment variables (read-only)

Never share your cookies or account files!`,
}

// accountsAddCmd represents the accounts add command
var accountsAddCmd = &cobra.Command{
	Use:   "add [name]",
	Short: "Store a credential",
	Long: `Store one platform credential under a name.

You will be prompted for the cookie string. To get it:
1. Log into the platform in your browser
2. Open Developer Tools (F12) and go to the Network tab
3. Reload the page and pick any request to the platform
4. Copy the whole Cookie request header value`,
	Example: `  # Interactive add
  dycrawler accounts add

  # Add under a name
  dycrawler accounts add burner-01`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAccountsAdd,
}

// accountsListCmd represents the accounts list command
var accountsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored credentials",
	Long:  `List all stored credentials with their cookie values masked.`,
	RunE:  runAccountsList,
}

// accountsRemoveCmd represents the accounts remove command
var accountsRemoveCmd = &cobra.Command{
	Use:   "remove <name>",
	Short: "Remove a stored credential",
	Args:  cobra.ExactArgs(1),
	RunE:  runAccountsRemove,
}

func init() {
	rootCmd.AddCommand(accountsCmd)
	accountsCmd.AddCommand(accountsAddCmd)
	accountsCmd.AddCommand(accountsListCmd)
	accountsCmd.AddCommand(accountsRemoveCmd)
}

func accountsStore() (account.Store, *config.Config, error) {
	cfg, err := config.Load(configFile, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	store, err := credentialStore(cfg)
	if err != nil {
		return nil, nil, err
	}
	return store, cfg, nil
}

func runAccountsAdd(cmd *cobra.Command, args []string) error {
	store, cfg, err := accountsStore()
	if err != nil {
		return err
	}

	var name string
	if len(args) > 0 {
		name = args[0]
	}

	reader := bufio.NewReader(os.Stdin)
	if name == "" {
		fmt.Print("Account name: ")
		input, err := reader.ReadString('\n')
		if err != nil {
			return fmt.Errorf("failed to read account name: %w", err)
		}
		name = strings.TrimSpace(input)
	}
	if name == "" {
		return fmt.Errorf("account name is required")
	}

	if store.Exists(name) {
		fmt.Printf("Account %q already exists. Overwrite? (y/N): ", name)
		answer, _ := reader.ReadString('\n')
		if strings.ToLower(strings.TrimSpace(answer)) != "y" {
			fmt.Println("Cancelled.")
			return nil
		}
	}

	// Cookies are a secret; read them without echo when on a terminal.
	fmt.Print("Cookie string (input hidden): ")
	var cookies string
	if term.IsTerminal(int(syscall.Stdin)) {
		raw, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Println()
		if err != nil {
			return fmt.Errorf("failed to read cookies: %w", err)
		}
		cookies = strings.TrimSpace(string(raw))
	} else {
		input, err := reader.ReadString('\n')
		if err != nil {
			return fmt.Errorf("failed to read cookies: %w", err)
		}
		cookies = strings.TrimSpace(input)
	}
	if cookies == "" {
		return fmt.Errorf("cookie string is required")
	}

	cred := &account.Credential{
		Name:         name,
		Cookies:      cookies,
		Platform:     cfg.Platform.Name,
		LastModified: time.Now(),
	}
	if err := store.Store(cred); err != nil {
		return fmt.Errorf("failed to store credential: %w", err)
	}

	fmt.Printf("Credential %q stored.\n", name)
	return nil
}

func runAccountsList(cmd *cobra.Command, args []string) error {
	store, _, err := accountsStore()
	if err != nil {
		return err
	}

	creds, err := store.List()
	if err != nil {
		return fmt.Errorf("failed to list credentials: %w", err)
	}
	if len(creds) == 0 {
		fmt.Println("No credentials stored. Add one with 'dycrawler accounts add'.")
		return nil
	}

	fmt.Printf("%-20s %-30s %s\n", "NAME", "COOKIES", "LAST MODIFIED")
	for _, cred := range creds {
		masked := account.SanitizeCredential(cred)
		modified := ""
		if !cred.LastModified.IsZero() {
			modified = cred.LastModified.Format("2006-01-02 15:04")
		}
		fmt.Printf("%-20s %-30s %s\n", masked.Name, masked.Cookies, modified)
	}
	return nil
}

func runAccountsRemove(cmd *cobra.Command, args []string) error {
	store, _, err := accountsStore()
	if err != nil {
		return err
	}

	name := args[0]
	if err := store.Delete(name); err != nil {
		return fmt.Errorf("failed to remove credential %q: %w", name, err)
	}
	fmt.Printf("Credential %q removed.\n", name)
	return nil
}
