// Package fetcher hands harvested post URLs to the external gallery-dl
// downloader.
package fetcher

import (
	"context"
	"os/exec"

	"xarchive/pkg/logger"
)

const defaultBinary = "gallery-dl"

// Fetcher invokes the external downloader, one process per URL
type Fetcher struct {
	binary string
	log    logger.Logger
}

// New creates a fetcher using the gallery-dl binary on PATH
func New(log logger.Logger) *Fetcher {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Fetcher{binary: defaultBinary, log: log}
}

// Fetch downloads each URL into dir. The downloader is best-effort: a
// failed invocation yields nothing for that URL and the batch continues.
// The caller decides what actually landed by walking the staging area
// afterward.
func (f *Fetcher) Fetch(ctx context.Context, urls []string, dir, cookieFile string) error {
	for _, url := range urls {
		if err := ctx.Err(); err != nil {
			return err
		}
		args := []string{url, "--directory", dir}
		if cookieFile != "" {
			args = append(args, "--cookies", cookieFile)
		}

		f.log.DebugWithFields("invoking downloader", map[string]interface{}{
			"url": url,
		})
		cmd := exec.CommandContext(ctx, f.binary, args...)
		if err := cmd.Run(); err != nil {
			f.log.WarnWithFields("downloader invocation failed", map[string]interface{}{
				"url":   url,
				"error": err.Error(),
			})
		}
	}
	return nil
}
