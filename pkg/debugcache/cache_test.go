package debugcache

import (
	"errors"
	"net/url"
	"testing"

	"github.com/thalida/ao3-sync/pkg/logger"
)

// countingFetcher records every fetch it serves
type countingFetcher struct {
	body  []byte
	err   error
	calls int
}

func (f *countingFetcher) Fetch(path string, query url.Values) ([]byte, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.body, nil
}

func TestCacheMissThenHit(t *testing.T) {
	inner := &countingFetcher{body: []byte("<html>listing</html>")}
	cache, err := New(inner, t.TempDir(), logger.NewTestLogger())
	if err != nil {
		t.Fatalf("Failed to create cache: %v", err)
	}

	query := url.Values{"page": {"1"}}

	// Miss hits the network and stores the body
	body, err := cache.Fetch("/bookmarks", query)
	if err != nil {
		t.Fatalf("Failed to fetch: %v", err)
	}
	if string(body) != "<html>listing</html>" {
		t.Errorf("Unexpected body: %q", body)
	}
	if inner.calls != 1 {
		t.Fatalf("Expected 1 upstream fetch, got %d", inner.calls)
	}

	// Hit serves from disk without touching the network
	body, err = cache.Fetch("/bookmarks", query)
	if err != nil {
		t.Fatalf("Failed to fetch from cache: %v", err)
	}
	if string(body) != "<html>listing</html>" {
		t.Errorf("Unexpected cached body: %q", body)
	}
	if inner.calls != 1 {
		t.Errorf("Expected cached fetch to skip upstream, got %d calls", inner.calls)
	}
}

func TestCacheDoesNotStoreErrors(t *testing.T) {
	inner := &countingFetcher{err: errors.New("boom")}
	cache, err := New(inner, t.TempDir(), logger.NewTestLogger())
	if err != nil {
		t.Fatalf("Failed to create cache: %v", err)
	}

	if _, err := cache.Fetch("/bookmarks", nil); err == nil {
		t.Fatal("Expected fetch error to propagate")
	}

	// The failure was not cached, so the next fetch tries upstream again
	inner.err = nil
	inner.body = []byte("recovered")
	body, err := cache.Fetch("/bookmarks", nil)
	if err != nil {
		t.Fatalf("Failed to fetch after recovery: %v", err)
	}
	if string(body) != "recovered" {
		t.Errorf("Unexpected body: %q", body)
	}
	if inner.calls != 2 {
		t.Errorf("Expected 2 upstream fetches, got %d", inner.calls)
	}
}

func TestFingerprint(t *testing.T) {
	base := Fingerprint("/bookmarks", url.Values{"page": {"1"}, "user_id": {"reader"}})

	// Equivalent requests share a fingerprint regardless of insertion order
	same := Fingerprint("/bookmarks", url.Values{"user_id": {"reader"}, "page": {"1"}})
	if base != same {
		t.Error("Expected identical fingerprints for equivalent queries")
	}

	if Fingerprint("/bookmarks", url.Values{"page": {"2"}, "user_id": {"reader"}}) == base {
		t.Error("Expected different fingerprint for a different page")
	}
	if Fingerprint("/works/412", nil) == Fingerprint("/works/413", nil) {
		t.Error("Expected different fingerprints for different paths")
	}

	// Fingerprints are hex sha1, safe as filenames
	if len(base) != 40 {
		t.Errorf("Expected 40 hex characters, got %d", len(base))
	}
}
