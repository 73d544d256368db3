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

	"github.com/thalida/ao3-sync/pkg/auth"
	"github.com/thalida/ao3-sync/pkg/ui"
)

// authCmd represents the auth command
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage AO3 credentials",
	Long: `Manage stored AO3 credentials securely.

Credentials are stored using:
  - System keychain (when available)
  - Encrypted file with PBKDF2 key derivation
  - Environment variables (AO3_USERNAME / AO3_PASSWORD)

Never share your credentials or config files!`,
}

// loginCmd represents the auth login command
var loginCmd = &cobra.Command{
	Use:   "login [username]",
	Short: "Store AO3 credentials securely",
	Long: `Store AO3 credentials securely in the system keychain or an encrypted file.

You will be prompted for:
  - AO3 username (if not provided)
  - AO3 password (hidden as you type)

The password is the same one you use on archiveofourown.org.`,
	Example: `  # Interactive login
  ao3sync auth login

  # Login with username
  ao3sync auth login myusername`,
	Args: cobra.MaximumNArgs(1),
	Run:  runLogin,
}

// logoutCmd represents the auth logout command
var logoutCmd = &cobra.Command{
	Use:   "logout <username>",
	Short: "Remove stored credentials",
	Args:  cobra.ExactArgs(1),
	Run:   runLogout,
}

// statusCmd represents the auth status command
var statusCmd = &cobra.Command{
	Use:   "status [username]",
	Short: "Check whether credentials are stored",
	Args:  cobra.MaximumNArgs(1),
	Run:   runStatus,
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(loginCmd)
	authCmd.AddCommand(logoutCmd)
	authCmd.AddCommand(statusCmd)
}

func runLogin(cmd *cobra.Command, args []string) {
	manager, err := auth.NewManager()
	if err != nil {
		ui.PrintError("Failed to initialize credential manager: %s", err.Error())
		os.Exit(1)
	}

	var username string
	if len(args) > 0 {
		username = args[0]
	}

	reader := bufio.NewReader(os.Stdin)

	if username == "" {
		fmt.Print("AO3 username: ")
		input, err := reader.ReadString('\n')
		if err != nil {
			ui.PrintError("Failed to read username: %s", err.Error())
			os.Exit(1)
		}
		username = strings.TrimSpace(input)
	}
	if username == "" {
		ui.PrintError("Username is required")
		os.Exit(1)
	}

	if manager.Exists(username) {
		fmt.Printf("Account '%s' already exists. Update credentials? (y/N): ", username)
		input, _ := reader.ReadString('\n')
		if !strings.HasPrefix(strings.ToLower(strings.TrimSpace(input)), "y") {
			return
		}
	}

	fmt.Print("AO3 password (hidden): ")
	password, err := readPassword()
	if err != nil {
		ui.PrintError("Failed to read password: %s", err.Error())
		os.Exit(1)
	}
	fmt.Println()
	if password == "" {
		ui.PrintError("Password is required")
		os.Exit(1)
	}

	account := &auth.Account{
		Username:     username,
		Password:     password,
		LastModified: time.Now(),
	}
	if err := manager.Store(account); err != nil {
		ui.PrintError("Failed to store credentials: %s", err.Error())
		os.Exit(1)
	}

	ui.PrintSuccess("Account saved: " + username)
	fmt.Println("\nNext step:")
	fmt.Printf("  ao3sync sync --account %s\n", username)
}

func runLogout(cmd *cobra.Command, args []string) {
	manager, err := auth.NewManager()
	if err != nil {
		ui.PrintError("Failed to initialize credential manager: %s", err.Error())
		os.Exit(1)
	}

	username := args[0]
	if err := manager.Delete(username); err != nil {
		ui.PrintError("Failed to remove account: %s", err.Error())
		os.Exit(1)
	}
	ui.PrintSuccess("Account removed: " + username)
}

func runStatus(cmd *cobra.Command, args []string) {
	manager, err := auth.NewManager()
	if err != nil {
		ui.PrintError("Failed to initialize credential manager: %s", err.Error())
		os.Exit(1)
	}

	var username string
	if len(args) > 0 {
		username = args[0]
	} else {
		username = os.Getenv("AO3_USERNAME")
	}
	if username == "" {
		ui.PrintError("No username given and AO3_USERNAME is not set")
		os.Exit(1)
	}

	if !manager.Exists(username) {
		ui.PrintWarning("No stored credentials for '%s'", username)
		os.Exit(1)
	}
	ui.PrintSuccess("Credentials stored for: " + username)
}

// readPassword reads a line from stdin with echo disabled
func readPassword() (string, error) {
	data, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}
