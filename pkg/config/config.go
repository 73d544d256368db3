package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration options for the AO3 sync tool
type Config struct {
	// AO3 account credentials
	Auth AuthConfig `yaml:"auth" json:"auth"`

	// Rate limiting configuration
	RateLimit RateLimitConfig `yaml:"rate_limit" json:"rate_limit"`

	// Output settings
	Output OutputConfig `yaml:"output" json:"output"`

	// Sync settings
	Sync SyncConfig `yaml:"sync" json:"sync"`

	// Debug settings
	Debug DebugConfig `yaml:"debug" json:"debug"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// AuthConfig holds AO3 account credentials
type AuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// Duration is a time.Duration that round-trips through yaml as a string
// like "4s". Bare numbers are read as seconds.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err == nil {
		parsed, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", s, err)
		}
		*d = Duration(parsed)
		return nil
	}

	var seconds float64
	if err := value.Decode(&seconds); err != nil {
		return fmt.Errorf("invalid duration value %q", value.Value)
	}
	*d = Duration(seconds * float64(time.Second))
	return nil
}

// MarshalYAML implements yaml.Marshaler
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Std returns the value as a time.Duration
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// RateLimitConfig holds request pacing configuration
type RateLimitConfig struct {
	// RequestDelay is the minimum spacing between consecutive requests
	RequestDelay Duration `yaml:"request_delay" json:"request_delay"`
	// RequestTimeout bounds a single request at the transport level
	RequestTimeout Duration `yaml:"request_timeout" json:"request_timeout"`
	// MaxRetries > 0 enables the retrying fetch wrapper for rate-limit errors
	MaxRetries int      `yaml:"max_retries" json:"max_retries"`
	RetryDelay Duration `yaml:"retry_delay" json:"retry_delay"`
}

// OutputConfig holds output directory configuration
type OutputConfig struct {
	OutputDir    string `yaml:"output_dir" json:"output_dir"`
	DownloadsDir string `yaml:"downloads_dir" json:"downloads_dir"`
	HistoryFile  string `yaml:"history_file" json:"history_file"`
}

// SyncConfig holds bookmark sync settings
type SyncConfig struct {
	StartPage   int      `yaml:"start_page" json:"start_page"`
	EndPage     int      `yaml:"end_page" json:"end_page"` // 0 means last page
	SortColumn  string   `yaml:"sort_column" json:"sort_column"`
	Formats     []string `yaml:"formats" json:"formats"`
	ForceUpdate bool     `yaml:"force_update" json:"force_update"`
}

// DebugConfig holds debug mode settings
type DebugConfig struct {
	Enabled  bool   `yaml:"enabled" json:"enabled"`
	UseCache bool   `yaml:"use_cache" json:"use_cache"`
	CacheDir string `yaml:"cache_dir" json:"cache_dir"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		RateLimit: RateLimitConfig{
			RequestDelay:   Duration(4 * time.Second),
			RequestTimeout: Duration(30 * time.Second),
			MaxRetries:     0,
			RetryDelay:     Duration(5 * time.Second),
		},
		Output: OutputConfig{
			OutputDir:    "output",
			DownloadsDir: "downloads",
			HistoryFile:  "history.json",
		},
		Sync: SyncConfig{
			StartPage:  1,
			EndPage:    0,
			SortColumn: "created_at",
			Formats:    []string{"all"},
		},
		Debug: DebugConfig{
			Enabled:  false,
			UseCache: true,
			CacheDir: "debug_cache",
		},
		Logging: LoggingConfig{
			Level: "info",
			File:  "",
		},
	}
}

// Load builds the effective configuration: defaults, then the config file,
// then .env, then environment variables. Later sources win.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if err := cfg.LoadFromFile(path); err != nil {
		return nil, err
	}

	// .env is optional; ignore a missing file
	_ = godotenv.Load()

	if err := cfg.LoadFromEnv(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFromEnv loads configuration from AO3_* environment variables
func (c *Config) LoadFromEnv() error {
	if username := os.Getenv("AO3_USERNAME"); username != "" {
		c.Auth.Username = username
	}
	if password := os.Getenv("AO3_PASSWORD"); password != "" {
		c.Auth.Password = password
	}

	if delay := os.Getenv("AO3_REQUESTS_DELAY_SECONDS"); delay != "" {
		if val, err := strconv.ParseFloat(delay, 64); err == nil && val > 0 {
			c.RateLimit.RequestDelay = Duration(val * float64(time.Second))
		}
	}

	if outputDir := os.Getenv("AO3_OUTPUT_DIR"); outputDir != "" {
		c.Output.OutputDir = outputDir
	}
	if downloadsDir := os.Getenv("AO3_DOWNLOADS_DIR"); downloadsDir != "" {
		c.Output.DownloadsDir = downloadsDir
	}

	if debug := os.Getenv("AO3_DEBUG"); debug != "" {
		c.Debug.Enabled = strings.ToLower(debug) == "true"
	}
	if useCache := os.Getenv("AO3_USE_DEBUG_CACHE"); useCache != "" {
		c.Debug.UseCache = strings.ToLower(useCache) == "true"
	}

	if logLevel := os.Getenv("AO3_LOG_LEVEL"); logLevel != "" {
		c.Logging.Level = logLevel
	}

	return nil
}

// LoadFromFile loads configuration from a YAML file
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

// findConfigFile searches for config file in standard locations
func (c *Config) findConfigFile() string {
	locations := []string{
		".ao3sync.yaml",
		".ao3sync.yml",
		filepath.Join(os.Getenv("HOME"), ".config", "ao3sync", "config.yaml"),
		filepath.Join(os.Getenv("HOME"), ".config", "ao3sync", "config.yml"),
		filepath.Join(os.Getenv("HOME"), ".ao3sync.yaml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	if c.RateLimit.RequestDelay <= 0 {
		errs = append(errs, errors.New("request delay must be positive"))
	}
	if c.RateLimit.RequestTimeout <= 0 {
		errs = append(errs, errors.New("request timeout must be positive"))
	}
	if c.RateLimit.MaxRetries < 0 {
		errs = append(errs, errors.New("max retries cannot be negative"))
	}

	if c.Sync.StartPage < 1 {
		errs = append(errs, errors.New("start page must be at least 1"))
	}
	if c.Sync.EndPage != 0 && c.Sync.EndPage < c.Sync.StartPage {
		errs = append(errs, errors.New("end page cannot be before start page"))
	}

	if c.Output.OutputDir == "" {
		errs = append(errs, errors.New("output directory is required"))
	}
	if c.Output.DownloadsDir == "" {
		errs = append(errs, errors.New("downloads directory is required"))
	}
	if c.Output.HistoryFile == "" {
		errs = append(errs, errors.New("history file is required"))
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

// Save saves the configuration to a file
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

// HistoryPath returns the path of the checkpoint file under the output directory.
func (c *Config) HistoryPath() string {
	return filepath.Join(c.Output.OutputDir, c.Output.HistoryFile)
}

// DownloadsPath returns the root of the download tree under the output directory.
func (c *Config) DownloadsPath() string {
	return filepath.Join(c.Output.OutputDir, c.Output.DownloadsDir)
}

// CachePath returns the debug cache directory under the output directory.
func (c *Config) CachePath() string {
	return filepath.Join(c.Output.OutputDir, c.Debug.CacheDir)
}
