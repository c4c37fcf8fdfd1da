package fetcher

import (
	"context"
	"testing"
)

func TestFetchToleratesDownloaderFailure(t *testing.T) {
	f := New(nil)
	f.binary = "false" // every invocation exits non-zero

	err := f.Fetch(context.Background(), []string{"https://x.com/alice/status/1"}, t.TempDir(), "")
	if err != nil {
		t.Fatalf("A failed invocation must not fail the batch, got %v", err)
	}
}

func TestFetchRunsOnceSuccessfully(t *testing.T) {
	f := New(nil)
	f.binary = "true" // downloader itself is not under test

	err := f.Fetch(context.Background(), []string{"https://x.com/alice/status/1"}, t.TempDir(), "")
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
}

func TestFetchStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f := New(nil)
	f.binary = "true"

	err := f.Fetch(ctx, []string{"https://x.com/alice/status/1"}, t.TempDir(), "")
	if err == nil {
		t.Fatal("Expected context error")
	}
}
