package main

import (
	"context"

	"github.com/spf13/cobra"

	"xarchive/pkg/auth"
	"xarchive/pkg/uploader"
	"xarchive/pkg/uploader/googlephotos"
)

// photosCmd archives into Google Photos
var photosCmd = &cobra.Command{
	Use:   "photos",
	Short: "Archive timeline media into Google Photos",
	Long: `Archive timeline media into Google Photos through its library API.

Each user's files land in an app-created album named X_Archive_<username>,
created on first use and reused afterwards. Authentication uses a
base64-encoded OAuth token blob stored under GOOGLE_PHOTOS_TOKEN.

With --full the browser-driven timeline scan is skipped entirely and the
downloader is pointed at the user's media page instead, pulling everything
it can reach in one pass.`,
	Example: `  # Archive two users with the default one month range
  xarchive photos --users alice,bob

  # Archive everything a user ever posted
  xarchive photos --users alice --time-range all

  # Let the downloader walk the media page itself, no browser involved
  xarchive photos --users alice --full`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runArchive(cmd, buildPhotosDestination)
	},
}

func buildPhotosDestination(ctx context.Context, env *runEnv) (uploader.Destination, error) {
	token, err := credential(env.cfg, env.mgr, auth.CredGooglePhotosToken)
	if err != nil {
		return nil, err
	}
	client, err := googlephotos.New(ctx, token, env.log)
	if err != nil {
		return nil, err
	}
	return client, nil
}

func init() {
	addArchiveFlags(photosCmd)
	photosCmd.Flags().BoolVar(&fullHistory, "full", false,
		"skip the timeline scan and hand the whole media page to the downloader")
	rootCmd.AddCommand(photosCmd)
}
