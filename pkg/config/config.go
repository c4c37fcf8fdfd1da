package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration options for xarchive
type Config struct {
	// Credentials for the timeline source and destinations
	Credentials CredentialsConfig `yaml:"credentials" json:"credentials"`

	// Harvest settings
	Harvest HarvestConfig `yaml:"harvest" json:"harvest"`

	// Remote archive settings
	Archive ArchiveConfig `yaml:"archive" json:"archive"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// CredentialsConfig holds the raw credential blobs. Each value is the
// serialized form exported from a logged-in browser session (a JSON cookie
// list) except GooglePhotosToken, which is a base64-encoded token file.
type CredentialsConfig struct {
	TwitterCookies    string `yaml:"twitter_cookies" json:"twitter_cookies"`
	Cookies115        string `yaml:"cookies_115" json:"cookies_115"`
	CookiesQuark      string `yaml:"cookies_quark" json:"cookies_quark"`
	GooglePhotosToken string `yaml:"google_photos_token" json:"google_photos_token"`
}

// HarvestConfig holds timeline harvesting configuration
type HarvestConfig struct {
	TimeRange    string `yaml:"time_range" json:"time_range"`
	DownloadRoot string `yaml:"download_root" json:"download_root"`
	CookieFile   string `yaml:"cookie_file" json:"cookie_file"`
	UserAgent    string `yaml:"user_agent" json:"user_agent"`
	Headless     bool   `yaml:"headless" json:"headless"`
}

// ArchiveConfig holds the remote namespace settings
type ArchiveConfig struct {
	RemoteRoot string `yaml:"remote_root" json:"remote_root"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Harvest: HarvestConfig{
			TimeRange:    "1-month",
			DownloadRoot: "downloads",
			CookieFile:   "twitter_cookies.txt",
			UserAgent:    "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			Headless:     true,
		},
		Archive: ArchiveConfig{
			RemoteRoot: "Twitter_Archive",
		},
		Logging: LoggingConfig{
			Level: "info",
			File:  "",
		},
	}
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	if v := os.Getenv("TWITTER_COOKIES"); v != "" {
		c.Credentials.TwitterCookies = v
	}
	if v := os.Getenv("COOKIES_115"); v != "" {
		c.Credentials.Cookies115 = v
	}
	if v := os.Getenv("COOKIES_QUARK"); v != "" {
		c.Credentials.CookiesQuark = v
	}
	if v := os.Getenv("GOOGLE_PHOTOS_TOKEN"); v != "" {
		c.Credentials.GooglePhotosToken = v
	}
	if v := os.Getenv("XARCHIVE_DOWNLOAD_ROOT"); v != "" {
		c.Harvest.DownloadRoot = v
	}
	if v := os.Getenv("XARCHIVE_TIME_RANGE"); v != "" {
		c.Harvest.TimeRange = v
	}
	if v := os.Getenv("XARCHIVE_REMOTE_ROOT"); v != "" {
		c.Archive.RemoteRoot = v
	}
	if v := os.Getenv("XARCHIVE_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
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
		".xarchive.yaml",
		".xarchive.yml",
		filepath.Join(os.Getenv("HOME"), ".config", "xarchive", "config.yaml"),
		filepath.Join(os.Getenv("HOME"), ".xarchive.yaml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// MergeCommandLineFlags merges command line flags into the configuration
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if timeRange, ok := flags["time-range"].(string); ok && timeRange != "" {
		c.Harvest.TimeRange = timeRange
	}
	if downloadRoot, ok := flags["download-root"].(string); ok && downloadRoot != "" {
		c.Harvest.DownloadRoot = downloadRoot
	}
	if remoteRoot, ok := flags["remote-root"].(string); ok && remoteRoot != "" {
		c.Archive.RemoteRoot = remoteRoot
	}
	if logLevel, ok := flags["log-level"].(string); ok && logLevel != "" {
		c.Logging.Level = logLevel
	}
	if headless, ok := flags["headless"].(bool); ok {
		c.Harvest.Headless = headless
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	if c.Harvest.DownloadRoot == "" {
		errs = append(errs, errors.New("download root is required"))
	}
	if c.Archive.RemoteRoot == "" {
		errs = append(errs, errors.New("remote root folder name is required"))
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

// Load loads configuration from all sources with proper precedence
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	// Try to load .env files (don't fail if they don't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".xarchive.env"))

	// Start with defaults
	config := DefaultConfig()

	// Load from config file
	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	// Override with environment variables (includes values from .env)
	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	// Override with command line flags
	config.MergeCommandLineFlags(flags)

	// Validate final configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}
