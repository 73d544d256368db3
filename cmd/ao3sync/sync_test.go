package main

import (
	"testing"

	"github.com/thalida/ao3-sync/pkg/ao3"
	"github.com/thalida/ao3-sync/pkg/syncer"
)

func TestSyncSummaryCountsDiscoveredBookmarks(t *testing.T) {
	result := &syncer.Result{
		Discovered: []ao3.Bookmark{
			{ID: "bookmark_1"},
			{ID: "bookmark_2"},
			{ID: "bookmark_3"},
		},
		Synced: 2,
		Failed: 1,
	}

	got := syncSummary(result)
	want := "Synced 2 of 3 bookmarks (1 failed)"
	if got != want {
		t.Fatalf("Expected summary %q, got %q", want, got)
	}
}

func TestSyncSummaryEmptyRun(t *testing.T) {
	got := syncSummary(&syncer.Result{})
	want := "Synced 0 of 0 bookmarks (0 failed)"
	if got != want {
		t.Fatalf("Expected summary %q, got %q", want, got)
	}
}
