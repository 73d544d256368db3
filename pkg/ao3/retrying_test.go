package ao3

import (
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/thalida/ao3-sync/pkg/logger"
	"github.com/thalida/ao3-sync/pkg/retry"
)

// flakyFetcher fails a set number of times before succeeding
type flakyFetcher struct {
	failures int
	err      error
	calls    int
}

func (f *flakyFetcher) Fetch(path string, query url.Values) ([]byte, error) {
	f.calls++
	if f.calls <= f.failures {
		return nil, f.err
	}
	return []byte("body"), nil
}

func newFastRetrying(inner Fetcher, maxAttempts int) *RetryingFetcher {
	r := NewRetryingFetcher(inner, maxAttempts, 0, logger.NewTestLogger())
	r.backoff = &retry.ConstantBackoff{Delay: time.Millisecond}
	return r
}

func TestRetryingFetcherConfiguredRetryDelay(t *testing.T) {
	r := NewRetryingFetcher(&flakyFetcher{}, 3, 9*time.Second, logger.NewTestLogger())
	backoff, ok := r.backoff.(*retry.ExponentialBackoff)
	if !ok {
		t.Fatalf("Expected exponential backoff, got %T", r.backoff)
	}
	if backoff.BaseDelay != 9*time.Second {
		t.Errorf("Expected base delay 9s, got %v", backoff.BaseDelay)
	}

	r = NewRetryingFetcher(&flakyFetcher{}, 3, 0, logger.NewTestLogger())
	backoff = r.backoff.(*retry.ExponentialBackoff)
	if backoff.BaseDelay != retry.DefaultExponentialBackoff().BaseDelay {
		t.Errorf("Expected default base delay, got %v", backoff.BaseDelay)
	}
}

func TestRetryingFetcherRetriesRateLimit(t *testing.T) {
	inner := &flakyFetcher{failures: 2, err: NewRateLimitError(http.StatusTooManyRequests)}
	r := newFastRetrying(inner, 3)

	body, err := r.Fetch("/bookmarks", nil)
	if err != nil {
		t.Fatalf("Expected success after retries, got %v", err)
	}
	if string(body) != "body" {
		t.Errorf("Unexpected body: %q", body)
	}
	if inner.calls != 3 {
		t.Errorf("Expected 3 attempts, got %d", inner.calls)
	}
}

func TestRetryingFetcherGivesUp(t *testing.T) {
	inner := &flakyFetcher{failures: 10, err: NewRateLimitError(http.StatusServiceUnavailable)}
	r := newFastRetrying(inner, 2)

	_, err := r.Fetch("/bookmarks", nil)
	if err == nil {
		t.Fatal("Expected error after exhausting retries")
	}
	if !IsRateLimit(err) {
		t.Errorf("Expected the rate-limit cause to survive wrapping, got %v", err)
	}
	if inner.calls != 2 {
		t.Errorf("Expected 2 attempts, got %d", inner.calls)
	}
}

func TestRetryingFetcherPassesOtherErrorsThrough(t *testing.T) {
	inner := &flakyFetcher{failures: 10, err: NewFailedRequest("not found", http.StatusNotFound)}
	r := newFastRetrying(inner, 5)

	_, err := r.Fetch("/works/412", nil)
	if !IsErrorType(err, ErrorTypeFailedRequest) {
		t.Fatalf("Expected the failed-request error unchanged, got %v", err)
	}
	if inner.calls != 1 {
		t.Errorf("Expected a single attempt, got %d", inner.calls)
	}
}
