// Package storage manages the per-user staging directory that downloads
// pass through on their way to a remote destination.
package storage

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"xarchive/pkg/logger"
)

// Staging is the exclusive working directory for one user's run. It is
// destroyed and recreated at run start and destroyed again at run end, so
// leftovers from a crashed run never leak into the next batch.
type Staging struct {
	dir string
	log logger.Logger
}

// NewStaging returns the staging area rooted at downloadRoot/username
func NewStaging(downloadRoot, username string, log logger.Logger) *Staging {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Staging{
		dir: filepath.Join(downloadRoot, username),
		log: log,
	}
}

// Dir returns the staging directory path
func (s *Staging) Dir() string {
	return s.dir
}

// Reset wipes the staging directory and recreates it empty
func (s *Staging) Reset() error {
	if err := os.RemoveAll(s.dir); err != nil {
		return fmt.Errorf("failed to clear staging directory: %w", err)
	}
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("failed to create staging directory: %w", err)
	}
	return nil
}

// Files enumerates every plain file under the staging directory
func (s *Staging) Files() ([]string, error) {
	var files []string
	err := filepath.WalkDir(s.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate staging files: %w", err)
	}
	return files, nil
}

// Remove deletes the staging directory. Cleanup is best-effort and runs on
// every exit path, so errors are logged rather than returned.
func (s *Staging) Remove() {
	if err := os.RemoveAll(s.dir); err != nil {
		s.log.WithError(err).WithField("dir", s.dir).Warn("failed to remove staging directory")
		return
	}
	s.log.WithField("dir", s.dir).Debug("staging directory removed")
}
