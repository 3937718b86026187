package main

import (
	"bufio"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"gcexport/pkg/auth"
	"gcexport/pkg/config"
	"gcexport/pkg/garmin"
	"gcexport/pkg/logger"
	"gcexport/pkg/session"
	"gcexport/pkg/ui"
)

var (
	verifyLogin bool
	logoutAll   bool
)

// authCmd represents the auth command
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage stored Garmin Connect credentials",
	Long: `Manage stored Garmin Connect credentials.

Credentials are stored using:
  - System keychain (when available)
  - Encrypted file with PBKDF2 key derivation (GCEXPORT_PASSPHRASE overrides the generated key)
  - GCEXPORT_USERNAME and GCEXPORT_PASSWORD are read but never written`,
}

// loginCmd represents the auth login command
var loginCmd = &cobra.Command{
	Use:   "login [username]",
	Short: "Store credentials for an account",
	Example: `  # Interactive login
  gcexport auth login

  # Check the password against Garmin Connect before storing it
  gcexport auth login runner@example.com --verify`,
	Args: cobra.MaximumNArgs(1),
	RunE: runLogin,
}

// logoutCmd represents the auth logout command
var logoutCmd = &cobra.Command{
	Use:   "logout [username]",
	Short: "Remove stored credentials",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runLogout,
}

// listCmd represents the auth list command
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored accounts",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(loginCmd)
	authCmd.AddCommand(logoutCmd)
	authCmd.AddCommand(listCmd)

	loginCmd.Flags().BoolVar(&verifyLogin, "verify", false, "log in to Garmin Connect before storing the credentials")
	logoutCmd.Flags().BoolVar(&logoutAll, "all", false, "remove every stored account")
}

func runLogin(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("failed to initialize credential manager: %w", err)
	}

	out := cmd.OutOrStdout()
	terminal := ui.NewTerminal(out, noColor)
	in := bufio.NewReader(cmd.InOrStdin())

	var username string
	if len(args) > 0 {
		username = args[0]
	} else if username, err = promptLine(in, out, "Garmin Connect username: "); err != nil {
		return fmt.Errorf("failed to read username: %w", err)
	}
	if username == "" {
		return fmt.Errorf("username is required")
	}

	if existing, _ := manager.Retrieve(username); existing != nil {
		if !confirm(in, out, fmt.Sprintf("Account '%s' already exists. Update it?", username)) {
			return nil
		}
	}

	password, err := promptPassword(in, out, "Password: ")
	if err != nil {
		return fmt.Errorf("failed to read password: %w", err)
	}
	if password == "" {
		return fmt.Errorf("password is required")
	}

	if verifyLogin {
		if err := verifyCredentials(cmd, username, password); err != nil {
			return err
		}
		terminal.PrintSuccess("Logged in to Garmin Connect.")
	}

	if err := manager.Store(&auth.Account{Username: username, Password: password}); err != nil {
		return err
	}
	terminal.PrintSuccess("Account saved: " + username)
	return nil
}

// verifyCredentials runs the SSO handshake against the configured service
func verifyCredentials(cmd *cobra.Command, username, password string) error {
	cfg, err := config.Load(configFile, changedFlags(cmd.Flags(), "log-level", "no-color"))
	if err != nil {
		return err
	}
	log, err := logger.New(&cfg.Logging)
	if err != nil {
		return err
	}

	client, err := session.NewClient(session.Options{UserAgent: cfg.Service.UserAgent, Timeout: cfg.Service.Timeout}, log)
	if err != nil {
		return err
	}
	protocol, err := garmin.New(cfg.Service.Protocol, garmin.Endpoints{SSO: cfg.Service.SSOURL, Connect: cfg.Service.ConnectURL})
	if err != nil {
		return err
	}
	return garmin.NewAuthenticator(client, protocol, log).Login(cmd.Context(), username, password)
}

func runLogout(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("failed to initialize credential manager: %w", err)
	}

	out := cmd.OutOrStdout()
	terminal := ui.NewTerminal(out, noColor)
	in := bufio.NewReader(cmd.InOrStdin())

	var targets []string
	switch {
	case len(args) > 0:
		targets = args
	case logoutAll:
		accounts, err := manager.List()
		if err != nil {
			return err
		}
		for _, a := range accounts {
			targets = append(targets, a.Username)
		}
		if len(targets) > 0 && !confirm(in, out, fmt.Sprintf("Remove %d stored account(s)?", len(targets))) {
			return nil
		}
	default:
		accounts, err := manager.List()
		if err != nil {
			return err
		}
		if len(accounts) == 1 && confirm(in, out, fmt.Sprintf("Remove account '%s'?", accounts[0].Username)) {
			targets = []string{accounts[0].Username}
		} else if len(accounts) > 1 {
			return fmt.Errorf("several accounts are stored, name one or use --all")
		}
	}

	if len(targets) == 0 {
		terminal.PrintInfo("Accounts", "none removed")
		return nil
	}
	for _, username := range targets {
		if err := manager.Delete(username); err != nil {
			return err
		}
		terminal.PrintSuccess("Account removed: " + username)
	}
	return nil
}

func runList(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("failed to initialize credential manager: %w", err)
	}

	accounts, err := manager.List()
	if err != nil {
		return err
	}

	terminal := ui.NewTerminal(cmd.OutOrStdout(), noColor)
	if len(accounts) == 0 {
		terminal.PrintInfo("Accounts", "none stored, run 'gcexport auth login'")
		return nil
	}
	for _, a := range accounts {
		s := auth.SanitizeAccount(a)
		terminal.PrintInfo(s.Username, fmt.Sprintf("password %s, updated %s", s.Password, s.LastModified.Format(time.DateTime)))
	}
	return nil
}
