package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/thalida/ao3-sync/pkg/config"
	"github.com/thalida/ao3-sync/pkg/ui"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration files",
	Long: `Manage ao3sync configuration files.

Configuration is loaded from (highest priority first):
  - Command line flags
  - Environment variables prefixed with AO3_
  - Configuration file
  - Default values`,
}

// configInitCmd represents the config init command
var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create an example configuration file",
	Long: `Create an example configuration file with all available options.

The file is created as '.ao3sync.yaml' in the current directory unless
a different path is given with the --config flag.`,
	Run: runConfigInit,
}

// configShowCmd represents the config show command
var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Long: `Show the configuration after merging all sources.

The password is masked.`,
	Run: runConfigShow,
}

// configValidateCmd represents the config validate command
var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration",
	Run:   runConfigValidate,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configValidateCmd)
}

const exampleConfig = `# ao3sync configuration file
#
# Every option can also be set with an AO3_ environment variable,
# for example AO3_USERNAME or AO3_REQUESTS_DELAY_SECONDS.

# AO3 account credentials. Prefer 'ao3sync auth login' over putting
# the password here in plain text.
auth:
  username: ""
  password: ""

# Request pacing
rate_limit:
  # Minimum spacing between consecutive requests
  request_delay: 4s
  request_timeout: 30s
  # Retry attempts after a rate-limit response (0 = fail fast)
  max_retries: 0
  retry_delay: 5s

# Output locations
output:
  output_dir: "output"
  downloads_dir: "downloads"
  history_file: "history.json"

# Sync behavior
sync:
  start_page: 1
  # 0 means the last available page
  end_page: 0
  sort_column: "created_at"
  # all, or any of: epub, pdf, mobi, html, azw3
  formats: ["all"]
  force_update: false

# Debug mode
debug:
  enabled: false
  use_cache: true
  cache_dir: "debug_cache"

# Logging
logging:
  level: "info"
  file: ""
`

func runConfigInit(cmd *cobra.Command, args []string) {
	configPath := configFile
	if configPath == "" {
		configPath = ".ao3sync.yaml"
	}

	if _, err := os.Stat(configPath); err == nil {
		ui.PrintError("Configuration file already exists: %s", configPath)
		fmt.Println("\nTo overwrite, first remove the existing file:")
		fmt.Printf("  rm %s\n", configPath)
		os.Exit(1)
	}

	if err := os.WriteFile(configPath, []byte(exampleConfig), 0644); err != nil {
		ui.PrintError("Failed to create configuration file: %s", err.Error())
		os.Exit(1)
	}

	ui.PrintSuccess("Configuration file created: " + configPath)
	fmt.Println("\nNext steps:")
	fmt.Println("1. Run 'ao3sync auth login' to store your AO3 credentials")
	fmt.Println("2. Run 'ao3sync config validate' to check the configuration")
	fmt.Println("3. Start syncing with 'ao3sync sync'")
}

func runConfigShow(cmd *cobra.Command, args []string) {
	cfg, err := config.Load(configFile)
	if err != nil {
		ui.PrintError("Failed to load configuration: %s", err.Error())
		os.Exit(1)
	}

	if cfg.Auth.Password != "" {
		cfg.Auth.Password = "********"
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		ui.PrintError("Failed to render configuration: %s", err.Error())
		os.Exit(1)
	}
	fmt.Print(string(data))
}

func runConfigValidate(cmd *cobra.Command, args []string) {
	cfg, err := config.Load(configFile)
	if err != nil {
		ui.PrintError("Failed to load configuration: %s", err.Error())
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		ui.PrintError("Configuration is invalid: %s", err.Error())
		os.Exit(1)
	}
	ui.PrintSuccess("Configuration is valid")
}
