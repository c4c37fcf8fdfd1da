package main

import (
	"context"

	"github.com/spf13/cobra"

	"xarchive/pkg/auth"
	"xarchive/pkg/uploader"
	"xarchive/pkg/uploader/drive115"
)

var remoteRootFlag string

// drive115Cmd archives into the 115 cloud drive
var drive115Cmd = &cobra.Command{
	Use:   "drive115",
	Short: "Archive timeline media into the 115 cloud drive",
	Long: `Archive timeline media into the 115 cloud drive through its web API.

Files are stored under <remote-root>/<username>/<date>; the folder chain is
created on demand. Authentication uses a browser cookie export stored under
COOKIES_115, validated against the drive before any upload starts.`,
	Example: `  # Archive one user into the default Twitter_Archive root
  xarchive drive115 --users alice

  # Archive the last week into a custom root
  xarchive drive115 --users alice --time-range 1-week --remote-root Backups`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runArchive(cmd, buildDrive115Destination)
	},
}

func buildDrive115Destination(ctx context.Context, env *runEnv) (uploader.Destination, error) {
	raw, err := credential(env.cfg, env.mgr, auth.CredCookies115)
	if err != nil {
		return nil, err
	}
	client, err := drive115.New(ctx, raw, env.cfg.Archive.RemoteRoot, env.log)
	if err != nil {
		return nil, err
	}
	return client, nil
}

func init() {
	addArchiveFlags(drive115Cmd)
	drive115Cmd.Flags().StringVar(&remoteRootFlag, "remote-root", "", "top-level drive folder for the archive")
	rootCmd.AddCommand(drive115Cmd)
}
