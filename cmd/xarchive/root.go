package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"xarchive/pkg/ui"
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

	// Shared archive flags, registered on every destination command
	usersFlag   string
	timeRange   string
	downloadDir string

	// fullHistory is only registered on the photos command
	fullHistory bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "xarchive",
	Short: "Archive media from X/Twitter timelines into cloud storage",
	Long: `xarchive collects media posts from X/Twitter user timelines and uploads
the downloaded files to a cloud destination.

The pipeline scrolls each user's media timeline in a headless browser,
collects post URLs within the configured time range, downloads the media
behind them with gallery-dl, and pushes the files to the destination
named by the subcommand.

Supported destinations:
  photos    Google Photos (API, one album per user)
  drive115  115 cloud drive (API, dated folders per user)
  quark     Quark drive (web UI automation)

Credentials are read from the system keychain or environment variables;
use 'xarchive auth set' to store them.`,
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
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default is $HOME/.xarchive.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress all output except errors")

	rootCmd.SetVersionTemplate(`xarchive {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// addArchiveFlags registers the flags shared by every destination command
func addArchiveFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&usersFlag, "users", "u", "", "comma-separated usernames to archive (required)")
	cmd.Flags().StringVarP(&timeRange, "time-range", "t", "", "time range preset (today, 3-day, 1-week, 1-month, 1-year, all)")
	cmd.Flags().StringVarP(&downloadDir, "download-dir", "d", "", "staging directory for downloaded media")
	cmd.MarkFlagRequired("users")
}
