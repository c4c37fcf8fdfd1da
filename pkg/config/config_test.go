package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "1-month", cfg.Harvest.TimeRange)
	assert.Equal(t, "downloads", cfg.Harvest.DownloadRoot)
	assert.Equal(t, "twitter_cookies.txt", cfg.Harvest.CookieFile)
	assert.Equal(t, "Twitter_Archive", cfg.Archive.RemoteRoot)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.True(t, cfg.Harvest.Headless)
	require.NoError(t, cfg.Validate())
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("TWITTER_COOKIES", `[{"name":"a","value":"1","domain":".x.com"}]`)
	t.Setenv("XARCHIVE_TIME_RANGE", "1-week")
	t.Setenv("XARCHIVE_REMOTE_ROOT", "Backups")
	t.Setenv("XARCHIVE_LOG_LEVEL", "debug")

	cfg := DefaultConfig()
	require.NoError(t, cfg.LoadFromEnv())

	assert.Contains(t, cfg.Credentials.TwitterCookies, "x.com")
	assert.Equal(t, "1-week", cfg.Harvest.TimeRange)
	assert.Equal(t, "Backups", cfg.Archive.RemoteRoot)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
harvest:
  time_range: 1-year
  download_root: /tmp/staging
archive:
  remote_root: MyArchive
logging:
  level: warn
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg := DefaultConfig()
	require.NoError(t, cfg.LoadFromFile(path))

	assert.Equal(t, "1-year", cfg.Harvest.TimeRange)
	assert.Equal(t, "/tmp/staging", cfg.Harvest.DownloadRoot)
	assert.Equal(t, "MyArchive", cfg.Archive.RemoteRoot)
	assert.Equal(t, "warn", cfg.Logging.Level)
	// Untouched values keep their defaults
	assert.Equal(t, "twitter_cookies.txt", cfg.Harvest.CookieFile)
}

func TestLoadFromFileMissing(t *testing.T) {
	cfg := DefaultConfig()
	err := cfg.LoadFromFile(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestMergeCommandLineFlags(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MergeCommandLineFlags(map[string]interface{}{
		"time-range":    "today",
		"download-root": "/tmp/dl",
		"remote-root":   "Other",
		"log-level":     "error",
		"headless":      false,
	})

	assert.Equal(t, "today", cfg.Harvest.TimeRange)
	assert.Equal(t, "/tmp/dl", cfg.Harvest.DownloadRoot)
	assert.Equal(t, "Other", cfg.Archive.RemoteRoot)
	assert.Equal(t, "error", cfg.Logging.Level)
	assert.False(t, cfg.Harvest.Headless)
}

func TestMergeCommandLineFlagsIgnoresEmpty(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MergeCommandLineFlags(map[string]interface{}{
		"time-range": "",
	})
	assert.Equal(t, "1-month", cfg.Harvest.TimeRange)
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Harvest.DownloadRoot = ""
	cfg.Logging.Level = "chatty"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "download root")
	assert.Contains(t, err.Error(), "log level")
}

func TestLoadPrecedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("harvest:\n  time_range: 1-year\n"), 0644))

	t.Setenv("XARCHIVE_TIME_RANGE", "1-week")

	// Flag beats env beats file
	cfg, err := Load(path, map[string]interface{}{"time-range": "today"})
	require.NoError(t, err)
	assert.Equal(t, "today", cfg.Harvest.TimeRange)

	cfg, err = Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, "1-week", cfg.Harvest.TimeRange)
}
