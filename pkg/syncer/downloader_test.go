package syncer

import (
	"testing"

	"github.com/thalida/ao3-sync/pkg/ao3"
	"github.com/thalida/ao3-sync/pkg/logger"
	"github.com/thalida/ao3-sync/pkg/storage"
)

func newTestDownloader(t *testing.T, site *fakeSite) (*Downloader, *storage.Manager) {
	t.Helper()

	files, err := storage.NewManager(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create storage manager: %v", err)
	}
	return NewDownloader(site, site, files, logger.NewTestLogger()), files
}

func TestSyncWorkUnofferedFormatIsComplete(t *testing.T) {
	site := newTestSite(nil)
	site.workLinks["w1"] = []string{"/downloads/w1/w1.pdf"}
	dl, files := newTestDownloader(t, site)

	// A format the work never offers counts as confirmed unavailable
	complete, err := dl.SyncWork("w1", ao3.Formats(ao3.FormatEPUB))
	if err != nil {
		t.Fatalf("SyncWork failed: %v", err)
	}
	if !complete {
		t.Error("Expected unoffered format to leave the work complete")
	}
	if files.HasAsset("w1", "w1.pdf") {
		t.Error("Expected no assets saved")
	}
}

func TestSyncWorkEmptyPayloadIsIncomplete(t *testing.T) {
	site := newTestSite(nil)
	site.workLinks["w1"] = []string{epubLink("w1")}
	site.payloads[epubLink("w1")] = []byte{}
	dl, files := newTestDownloader(t, site)

	complete, err := dl.SyncWork("w1", ao3.AllFormats())
	if err != nil {
		t.Fatalf("SyncWork failed: %v", err)
	}
	if complete {
		t.Error("Expected empty payload to leave the work incomplete")
	}
	if files.HasAsset("w1", "w1.epub") {
		t.Error("Expected no empty file on disk")
	}
}

func TestSyncWorkSiblingFormatsContinue(t *testing.T) {
	site := newTestSite(nil)
	site.workLinks["w1"] = []string{
		"/downloads/w1/w1.epub",
		"/downloads/w1/w1.pdf",
	}
	site.failFetch["/downloads/w1/w1.epub"] = ao3.NewFailedRequest("boom", 500)
	dl, files := newTestDownloader(t, site)

	complete, err := dl.SyncWork("w1", ao3.AllFormats())
	if err != nil {
		t.Fatalf("SyncWork failed: %v", err)
	}
	if complete {
		t.Error("Expected the failed format to mark the work incomplete")
	}

	// The failed epub must not block the pdf
	if !files.HasAsset("w1", "w1.pdf") {
		t.Error("Expected the sibling format to be saved")
	}
}

func TestSyncWorkRateLimitIsFatal(t *testing.T) {
	site := newTestSite(nil)
	site.failFetch[ao3.WorkPath("w1")] = ao3.NewRateLimitError(429)
	dl, _ := newTestDownloader(t, site)

	_, err := dl.SyncWork("w1", ao3.AllFormats())
	if !ao3.IsRateLimit(err) {
		t.Fatalf("Expected the rate-limit error to propagate, got %v", err)
	}
}

func TestSyncWorkOtherFetchFailureIsIsolated(t *testing.T) {
	site := newTestSite(nil)
	site.failFetch[ao3.WorkPath("w1")] = ao3.NewFailedRequest("gone", 404)
	dl, _ := newTestDownloader(t, site)

	complete, err := dl.SyncWork("w1", ao3.AllFormats())
	if err != nil {
		t.Fatalf("Expected a non-fatal failure, got %v", err)
	}
	if complete {
		t.Error("Expected the work to be incomplete")
	}
}

func TestSyncSeriesMemberFailure(t *testing.T) {
	site := newTestSite(nil)
	site.seriesWorks["s1"] = []string{"w1", "w2"}
	site.workLinks["w1"] = []string{epubLink("w1")}
	site.workLinks["w2"] = []string{epubLink("w2")}
	site.failFetch[ao3.WorkPath("w2")] = ao3.NewFailedRequest("gone", 404)
	dl, files := newTestDownloader(t, site)

	complete, err := dl.SyncSeries("s1", ao3.AllFormats())
	if err != nil {
		t.Fatalf("SyncSeries failed: %v", err)
	}
	if complete {
		t.Error("Expected a failed member to mark the series incomplete")
	}
	if !files.HasAsset("w1", "w1.epub") {
		t.Error("Expected the healthy member to still be synced")
	}
}

func TestSyncBookmarkUnknownItemType(t *testing.T) {
	site := newTestSite(nil)
	dl, _ := newTestDownloader(t, site)

	b := ao3.Bookmark{ID: "bookmark_1", Item: ao3.Item{Type: "podfic", ID: "1"}}
	if _, err := dl.SyncBookmark(b, ao3.AllFormats()); err == nil {
		t.Error("Expected an error for an unknown item type")
	}
}
