package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/thalida/ao3-sync/internal/runlock"
	"github.com/thalida/ao3-sync/pkg/ao3"
	"github.com/thalida/ao3-sync/pkg/auth"
	"github.com/thalida/ao3-sync/pkg/checkpoint"
	"github.com/thalida/ao3-sync/pkg/config"
	"github.com/thalida/ao3-sync/pkg/debugcache"
	"github.com/thalida/ao3-sync/pkg/logger"
	"github.com/thalida/ao3-sync/pkg/storage"
	"github.com/thalida/ao3-sync/pkg/syncer"
	"github.com/thalida/ao3-sync/pkg/ui"
)

var (
	startPage    int
	endPage      int
	sortColumn   string
	formats      []string
	forceUpdate  bool
	outputDir    string
	downloadsDir string
	accountName  string
	maxRetries   int
	requestDelay int
	debugMode    bool
)

// syncCmd represents the sync command
var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Sync bookmarked works and series to local files",
	Long: `Sync downloads your AO3 bookmarks, oldest first, and records the last
bookmark it finished in a history file. The next run stops scanning as
soon as it sees that bookmark again, so only new bookmarks are fetched.

Bookmarked series are expanded into their member works. Use --formats
to restrict which download formats are saved.`,
	Example: `  # Sync everything new since the last run
  ao3sync sync

  # Only epub files, ignoring the saved history
  ao3sync sync --formats epub --force

  # Scan a bounded page window
  ao3sync sync --start-page 2 --end-page 5`,
	Run: runSync,
}

func init() {
	rootCmd.AddCommand(syncCmd)

	syncCmd.Flags().IntVar(&startPage, "start-page", 1, "first bookmark page to scan")
	syncCmd.Flags().IntVar(&endPage, "end-page", 0, "last bookmark page to scan (0 = last available)")
	syncCmd.Flags().StringVar(&sortColumn, "sort", "created_at", "bookmark sort column")
	syncCmd.Flags().StringSliceVar(&formats, "formats", nil, "download formats to save (all, epub, pdf, mobi, html, azw3)")
	syncCmd.Flags().BoolVar(&forceUpdate, "force", false, "re-sync everything, ignoring the saved history")
	syncCmd.Flags().StringVarP(&outputDir, "output", "o", "", "output directory (default: output)")
	syncCmd.Flags().StringVar(&downloadsDir, "downloads-dir", "", "downloads directory under the output directory")
	syncCmd.Flags().StringVarP(&accountName, "account", "a", "", "use specific stored account")
	syncCmd.Flags().IntVar(&maxRetries, "max-retries", 0, "retry attempts after a rate-limit response (0 = fail fast)")
	syncCmd.Flags().IntVar(&requestDelay, "request-delay", 0, "seconds between requests (0 = configured default)")
	syncCmd.Flags().BoolVar(&debugMode, "debug", false, "enable debug mode with response caching")
}

func runSync(cmd *cobra.Command, args []string) {
	cfg, err := config.Load(configFile)
	if err != nil {
		ui.PrintError("Failed to load configuration: %s", err.Error())
		os.Exit(1)
	}
	applySyncFlags(cmd, cfg)

	if err := logger.Initialize(&cfg.Logging); err != nil {
		ui.PrintError("Failed to initialize logger: %s", err.Error())
		os.Exit(1)
	}
	log := logger.GetLogger()
	log.WithField("version", version).Info("ao3sync starting")

	username, password, err := resolveCredentials(cfg)
	if err != nil {
		ui.PrintError("%s", err.Error())
		ui.PrintInfo("Hint", "run 'ao3sync auth login' to store your credentials")
		os.Exit(1)
	}

	if err := cfg.Validate(); err != nil {
		ui.PrintError("Invalid configuration: %s", err.Error())
		os.Exit(1)
	}

	filter, err := ao3.ParseFormats(cfg.Sync.Formats)
	if err != nil {
		ui.PrintError("Invalid format selection: %s", err.Error())
		os.Exit(1)
	}

	lock, err := runlock.New(cfg.Output.OutputDir)
	if err != nil {
		ui.PrintError("Failed to prepare run lock: %s", err.Error())
		os.Exit(1)
	}
	if err := lock.Acquire(); err != nil {
		ui.PrintError("%s", err.Error())
		os.Exit(1)
	}
	defer lock.Release()

	client := ao3.NewClient(ao3.ClientOptions{
		Username:     username,
		Password:     password,
		RequestDelay: cfg.RateLimit.RequestDelay.Std(),
		Timeout:      cfg.RateLimit.RequestTimeout.Std(),
		Logger:       log,
	})

	var fetcher ao3.Fetcher = client
	if cfg.Debug.Enabled && cfg.Debug.UseCache {
		cache, err := debugcache.New(fetcher, cfg.CachePath(), log)
		if err != nil {
			ui.PrintError("Failed to prepare debug cache: %s", err.Error())
			os.Exit(1)
		}
		fetcher = cache
	}
	if cfg.RateLimit.MaxRetries > 0 {
		fetcher = ao3.NewRetryingFetcher(fetcher, cfg.RateLimit.MaxRetries, cfg.RateLimit.RetryDelay.Std(), log)
	}

	store, err := checkpoint.NewStore(cfg.HistoryPath(), log)
	if err != nil {
		ui.PrintError("Failed to open sync history: %s", err.Error())
		os.Exit(1)
	}

	files, err := storage.NewManager(cfg.DownloadsPath())
	if err != nil {
		ui.PrintError("Failed to prepare downloads directory: %s", err.Error())
		os.Exit(1)
	}

	parser := ao3.NewParser(log)
	downloader := syncer.NewDownloader(fetcher, parser, files, log)
	engine := syncer.New(fetcher, parser, store, downloader, username, log)
	engine.SetProgress(ui.NewConsoleProgress())

	ui.PrintInfo("Account", username)
	started := time.Now()

	result, err := engine.Sync(syncer.Options{
		StartPage:   cfg.Sync.StartPage,
		EndPage:     cfg.Sync.EndPage,
		SortColumn:  cfg.Sync.SortColumn,
		Formats:     filter,
		ForceUpdate: cfg.Sync.ForceUpdate,
	})
	if err != nil {
		log.WithError(err).Error("Sync failed")
		ui.PrintError("Sync failed: %s", err.Error())
		os.Exit(1)
	}

	log.InfoWithFields("Sync finished", map[string]interface{}{
		"discovered": len(result.Discovered),
		"synced":     result.Synced,
		"failed":     result.Failed,
		"duration":   time.Since(started).Round(time.Second).String(),
	})
	if result.Failed > 0 {
		ui.PrintWarning("%s", syncSummary(result))
		os.Exit(1)
	}
	ui.PrintSuccess("Sync complete")
}

// syncSummary renders the one line counts summary for a run that finished
// with failures.
func syncSummary(result *syncer.Result) string {
	return fmt.Sprintf("Synced %d of %d bookmarks (%d failed)",
		result.Synced, len(result.Discovered), result.Failed)
}

// applySyncFlags layers explicitly set command line flags over the loaded
// configuration. Flags the user did not touch leave the config value alone.
func applySyncFlags(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("start-page") {
		cfg.Sync.StartPage = startPage
	}
	if cmd.Flags().Changed("end-page") {
		cfg.Sync.EndPage = endPage
	}
	if cmd.Flags().Changed("sort") {
		cfg.Sync.SortColumn = sortColumn
	}
	if cmd.Flags().Changed("formats") {
		cfg.Sync.Formats = formats
	}
	if cmd.Flags().Changed("force") {
		cfg.Sync.ForceUpdate = forceUpdate
	}
	if cmd.Flags().Changed("output") {
		cfg.Output.OutputDir = outputDir
	}
	if cmd.Flags().Changed("downloads-dir") {
		cfg.Output.DownloadsDir = downloadsDir
	}
	if cmd.Flags().Changed("max-retries") {
		cfg.RateLimit.MaxRetries = maxRetries
	}
	if cmd.Flags().Changed("request-delay") {
		cfg.RateLimit.RequestDelay = config.Duration(time.Duration(requestDelay) * time.Second)
	}
	if cmd.Flags().Changed("debug") {
		cfg.Debug.Enabled = debugMode
	}
	if cmd.Flags().Changed("log-level") {
		cfg.Logging.Level = logLevel
	}
}

// resolveCredentials picks the account to sync: an explicitly named stored
// account wins, then credentials from config or environment, then the stored
// account matching the configured username.
func resolveCredentials(cfg *config.Config) (string, string, error) {
	manager, managerErr := auth.NewManager()

	if accountName != "" {
		if managerErr != nil {
			return "", "", managerErr
		}
		account, err := manager.Retrieve(accountName)
		if err != nil {
			return "", "", err
		}
		return account.Username, account.Password, nil
	}

	if cfg.Auth.Username != "" && cfg.Auth.Password != "" {
		return cfg.Auth.Username, cfg.Auth.Password, nil
	}

	if cfg.Auth.Username != "" && managerErr == nil {
		if account, err := manager.Retrieve(cfg.Auth.Username); err == nil {
			return account.Username, account.Password, nil
		}
	}

	return "", "", auth.ErrCredentialsNotFound
}
