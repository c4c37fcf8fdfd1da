// Package archive runs the end-to-end pipeline: harvest post URLs from a
// user's timeline, fetch the media behind them, push the files to a
// destination, and clean the staging area up afterwards.
package archive

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	errs "xarchive/pkg/errors"
	"xarchive/pkg/logger"
	"xarchive/pkg/storage"
	"xarchive/pkg/ui"
	"xarchive/pkg/uploader"
)

// Pipeline wires the three stages together. Harvest and Fetch are plain
// funcs so runs can swap stages without touching the loop.
type Pipeline struct {
	Harvest func(ctx context.Context, username string) ([]string, error)
	Fetch   func(ctx context.Context, urls []string, dir, cookieFile string) error
	Dest    uploader.Destination

	DownloadRoot string
	CookieFile   string
	Log          logger.Logger
}

// Result reports one user's outcome
type Result struct {
	Username string
	Posts    int
	Files    int
	Summary  uploader.Summary
	Err      error
}

// Run archives each user in turn. One user's failure never stops the
// others; every user's staging directory is removed no matter how their
// run ends.
func (p *Pipeline) Run(ctx context.Context, usernames []string) []Result {
	log := p.Log
	if log == nil {
		log = logger.GetLogger()
	}
	log = log.WithField("batch", uuid.New().String()[:8])

	results := make([]Result, 0, len(usernames))
	for _, username := range usernames {
		if err := ctx.Err(); err != nil {
			results = append(results, Result{Username: username, Err: err})
			continue
		}
		results = append(results, p.runUser(ctx, username, log))
	}
	return results
}

func (p *Pipeline) runUser(ctx context.Context, username string, log logger.Logger) Result {
	result := Result{Username: username}
	log = log.WithField("username", username)

	ui.PrintInfo("Archiving", fmt.Sprintf("@%s -> %s", username, p.Dest.Name()))

	staging := storage.NewStaging(p.DownloadRoot, username, log)
	if err := staging.Reset(); err != nil {
		result.Err = fmt.Errorf("failed to prepare staging area: %w", err)
		ui.PrintError("%s", result.Err.Error())
		return result
	}
	defer staging.Remove()

	urls, err := p.Harvest(ctx, username)
	if err != nil {
		result.Err = err
		switch {
		case errs.IsAuth(err):
			ui.PrintError("@%s: timeline requires login, check cookies", username)
		case errs.IsSuspended(err):
			ui.PrintWarning("@%s: account is suspended", username)
		default:
			ui.PrintError("@%s: harvest failed: %v", username, err)
		}
		return result
	}
	result.Posts = len(urls)
	if len(urls) == 0 {
		ui.PrintWarning("@%s: no media posts in range", username)
		return result
	}
	log.InfoWithFields("harvest complete", map[string]interface{}{"posts": len(urls)})

	if err := p.Fetch(ctx, urls, staging.Dir(), p.CookieFile); err != nil {
		result.Err = fmt.Errorf("media fetch failed: %w", err)
		ui.PrintError("%s", result.Err.Error())
		return result
	}
	// The downloader nests its own directory layout, so the staging walk
	// decides what actually landed
	files, err := staging.Files()
	if err != nil {
		result.Err = err
		ui.PrintError("%s", result.Err.Error())
		return result
	}
	result.Files = len(files)
	if len(files) == 0 {
		ui.PrintWarning("@%s: posts found but no media downloaded", username)
		return result
	}

	summary, err := p.Dest.Upload(ctx, files, username)
	result.Summary = summary
	if err != nil {
		result.Err = err
		ui.PrintError("@%s: upload aborted after %d/%d files: %v",
			username, summary.Uploaded, summary.Total(), err)
		return result
	}

	if summary.Failed > 0 {
		ui.PrintWarning("@%s: uploaded %d/%d files (%d failed)",
			username, summary.Uploaded, len(files), summary.Failed)
	} else {
		ui.PrintSuccess("@%s: archived %d files from %d posts",
			username, summary.Uploaded, result.Posts)
	}
	return result
}
