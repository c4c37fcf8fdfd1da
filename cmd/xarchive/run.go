package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"xarchive/pkg/archive"
	"xarchive/pkg/auth"
	"xarchive/pkg/browser"
	"xarchive/pkg/config"
	"xarchive/pkg/cookies"
	"xarchive/pkg/fetcher"
	"xarchive/pkg/harvester"
	"xarchive/pkg/logger"
	"xarchive/pkg/ui"
	"xarchive/pkg/uploader"
)

// runEnv carries everything a destination builder may need
type runEnv struct {
	cfg     *config.Config
	mgr     *auth.Manager
	log     logger.Logger
	session *browser.Session
}

// destBuilder constructs the destination for one command
type destBuilder func(ctx context.Context, env *runEnv) (uploader.Destination, error)

// runArchive is the shared body of the destination commands: load config,
// open the browser session with the timeline cookies, build the destination,
// and run the pipeline over the requested users.
func runArchive(cmd *cobra.Command, build destBuilder) error {
	cfg, err := config.Load(configFile, flagOverrides())
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := logger.Initialize(&cfg.Logging); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	log := logger.GetLogger()

	users := splitUsers(usersFlag)
	if len(users) == 0 {
		return fmt.Errorf("no usernames given, pass --users name1,name2")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	mgr := auth.NewManager()
	raw, err := credential(cfg, mgr, auth.CredTwitterCookies)
	if err != nil {
		return err
	}
	records := cookies.Parse(raw, log)
	if len(records) == 0 {
		return fmt.Errorf("no usable cookies in %s, re-export them from the browser", auth.CredTwitterCookies)
	}
	if err := cookies.WriteNetscapeFile(records, cfg.Harvest.CookieFile); err != nil {
		return fmt.Errorf("failed to write cookie file: %w", err)
	}

	// The full history mode never drives a browser: the downloader walks
	// the media page itself, so only the cookie file matters.
	var session *browser.Session
	harvest := func(ctx context.Context, username string) ([]string, error) {
		return []string{harvester.MediaPageURL(username)}, nil
	}
	if !fullHistory {
		session, err = browser.NewSession(ctx, browser.Options{
			UserAgent: cfg.Harvest.UserAgent,
			Headless:  cfg.Harvest.Headless,
		})
		if err != nil {
			return fmt.Errorf("failed to start browser: %w", err)
		}
		defer session.Close()

		if err := session.SetCookies(cookies.CookieParams(records)); err != nil {
			return fmt.Errorf("failed to install timeline cookies: %w", err)
		}
		harvest = func(ctx context.Context, username string) ([]string, error) {
			page, err := session.NewPage()
			if err != nil {
				return nil, err
			}
			return harvester.New(username, cfg.Harvest.TimeRange, log).Harvest(page)
		}
	}

	env := &runEnv{cfg: cfg, mgr: mgr, log: log, session: session}
	dest, err := build(ctx, env)
	if err != nil {
		return err
	}

	pipeline := &archive.Pipeline{
		Harvest:      harvest,
		Fetch:        fetcher.New(log).Fetch,
		Dest:         dest,
		DownloadRoot: cfg.Harvest.DownloadRoot,
		CookieFile:   cfg.Harvest.CookieFile,
		Log:          log,
	}

	results := pipeline.Run(ctx, users)

	failed := 0
	for _, result := range results {
		if result.Err != nil {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d users failed", failed, len(results))
	}
	ui.PrintSuccess("All %d users archived", len(results))
	return nil
}

// flagOverrides collects the command line flags that were actually set
func flagOverrides() map[string]interface{} {
	flags := make(map[string]interface{})
	if timeRange != "" {
		flags["time-range"] = timeRange
	}
	if downloadDir != "" {
		flags["download-root"] = downloadDir
	}
	if remoteRootFlag != "" {
		flags["remote-root"] = remoteRootFlag
	}
	if logLevel != "info" {
		flags["log-level"] = logLevel
	}
	return flags
}

func splitUsers(raw string) []string {
	var users []string
	for _, part := range strings.Split(raw, ",") {
		if name := strings.TrimSpace(strings.TrimPrefix(part, "@")); name != "" {
			users = append(users, name)
		}
	}
	return users
}

// credential resolves a named credential through the keychain and
// environment, falling back to the loaded configuration
func credential(cfg *config.Config, mgr *auth.Manager, name string) (string, error) {
	value := mgr.ResolveOptional(name)
	if value != "" {
		return value, nil
	}

	switch name {
	case auth.CredTwitterCookies:
		value = cfg.Credentials.TwitterCookies
	case auth.CredCookies115:
		value = cfg.Credentials.Cookies115
	case auth.CredCookiesQuark:
		value = cfg.Credentials.CookiesQuark
	case auth.CredGooglePhotosToken:
		value = cfg.Credentials.GooglePhotosToken
	}
	if value == "" {
		return "", fmt.Errorf("credential %s is not set; export it or run 'xarchive auth set %s'", name, name)
	}
	return value, nil
}
