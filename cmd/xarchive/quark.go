package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"xarchive/pkg/auth"
	"xarchive/pkg/cookies"
	"xarchive/pkg/uploader"
	"xarchive/pkg/uploader/quark"
)

// quarkCmd archives into the Quark drive
var quarkCmd = &cobra.Command{
	Use:   "quark",
	Short: "Archive timeline media into the Quark drive",
	Long: `Archive timeline media into the Quark drive by automating its web UI.

The drive exposes no usable upload API, so files go in through the page's
file picker in the same browser session that harvests the timelines.
Authentication uses a browser cookie export stored under COOKIES_QUARK;
the cookies are widened to the .quark.cn parent domain before use.`,
	Example: `  # Archive today's posts for one user
  xarchive quark --users alice --time-range today`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runArchive(cmd, buildQuarkDestination)
	},
}

func buildQuarkDestination(ctx context.Context, env *runEnv) (uploader.Destination, error) {
	raw, err := credential(env.cfg, env.mgr, auth.CredCookiesQuark)
	if err != nil {
		return nil, err
	}
	records := cookies.RewriteQuarkDomains(cookies.Parse(raw, env.log))
	if len(records) == 0 {
		return nil, fmt.Errorf("no usable cookies in %s, re-export them from the browser", auth.CredCookiesQuark)
	}
	if err := env.session.SetCookies(cookies.CookieParams(records)); err != nil {
		return nil, fmt.Errorf("failed to install drive cookies: %w", err)
	}

	newPage := func() (quark.Page, error) {
		page, err := env.session.NewPage()
		if err != nil {
			return nil, err
		}
		return page, nil
	}
	return quark.New(newPage, env.cfg.Archive.RemoteRoot, env.log), nil
}

func init() {
	addArchiveFlags(quarkCmd)
	rootCmd.AddCommand(quarkCmd)
}
