// Package uploader defines the destination abstraction the archive
// pipeline pushes batches of local files through.
package uploader

import "context"

// Summary aggregates per-file outcomes for one batch. A single file's
// failure never aborts the batch, so both counters can be non-zero.
type Summary struct {
	Uploaded int
	Failed   int
}

// Total returns the number of files the batch attempted
func (s Summary) Total() int {
	return s.Uploaded + s.Failed
}

// Destination pushes a batch of local files into a remote namespace for
// one user. The returned error is reserved for batch-fatal conditions
// (an unusable session, an expired credential); per-file failures are
// reported through the Summary only.
type Destination interface {
	Name() string
	Upload(ctx context.Context, files []string, username string) (Summary, error)
}
