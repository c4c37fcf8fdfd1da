package storage

import (
	"os"
	"path/filepath"
	"sort"
	"testing"
)

func TestStagingResetClearsLeftovers(t *testing.T) {
	root := t.TempDir()
	staging := NewStaging(root, "alice", nil)

	// Simulate leftovers from an interrupted run
	if err := os.MkdirAll(staging.Dir(), 0755); err != nil {
		t.Fatal(err)
	}
	leftover := filepath.Join(staging.Dir(), "stale.jpg")
	if err := os.WriteFile(leftover, []byte("old"), 0644); err != nil {
		t.Fatal(err)
	}

	if err := staging.Reset(); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}

	if _, err := os.Stat(leftover); !os.IsNotExist(err) {
		t.Error("Expected leftover file to be removed")
	}
	if info, err := os.Stat(staging.Dir()); err != nil || !info.IsDir() {
		t.Error("Expected staging directory to exist after reset")
	}
}

func TestStagingFilesWalksNestedDirs(t *testing.T) {
	root := t.TempDir()
	staging := NewStaging(root, "alice", nil)
	if err := staging.Reset(); err != nil {
		t.Fatal(err)
	}

	// The external downloader nests files under per-site directories
	nested := filepath.Join(staging.Dir(), "twitter", "alice")
	if err := os.MkdirAll(nested, 0755); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"a.jpg", "b.mp4"} {
		if err := os.WriteFile(filepath.Join(nested, name), []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
	}

	files, err := staging.Files()
	if err != nil {
		t.Fatalf("Files failed: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("Expected 2 files, got %d: %v", len(files), files)
	}

	sort.Strings(files)
	if filepath.Base(files[0]) != "a.jpg" || filepath.Base(files[1]) != "b.mp4" {
		t.Errorf("Unexpected files: %v", files)
	}
}

func TestStagingRemoveIsBestEffort(t *testing.T) {
	root := t.TempDir()
	staging := NewStaging(root, "alice", nil)
	if err := staging.Reset(); err != nil {
		t.Fatal(err)
	}

	staging.Remove()
	if _, err := os.Stat(staging.Dir()); !os.IsNotExist(err) {
		t.Error("Expected staging directory to be gone")
	}

	// Removing an already-removed directory must not panic
	staging.Remove()
}
