package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/thalida/ao3-sync/pkg/ui"
)

var (
	// Version information
	version   = "1.0.0"
	gitCommit = "unknown"
	buildDate = "unknown"

	// Global flags
	configFile string
	logLevel   string
	quiet      bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "ao3sync",
	Short: "Incrementally sync your AO3 bookmarks to local files",
	Long: `ao3sync downloads the works and series you have bookmarked on
Archive of Our Own, one download format at a time, and remembers the
last bookmark it finished so subsequent runs only fetch what is new.

Features:
  - Secure credential storage using the system keychain
  - Polite request pacing with a fixed delay between requests
  - Incremental sync that resumes from the last finished bookmark
  - Series bookmarks expanded into their member works
  - Selectable download formats (epub, pdf, mobi, html, azw3)`,
	Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if quiet || logLevel == "error" {
			ui.SetQuietMode(true)
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "path to configuration file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress non-error output")
}
