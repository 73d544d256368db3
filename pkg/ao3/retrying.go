package ao3

import (
	"context"
	"net/url"
	"time"

	"github.com/thalida/ao3-sync/pkg/logger"
	"github.com/thalida/ao3-sync/pkg/retry"
)

// RetryingFetcher wraps a Fetcher with bounded exponential backoff on
// rate-limit errors. All other errors pass through on the first attempt, so
// the wrapped client's taxonomy is preserved. Disabled by default; the sync
// command enables it when max retries is configured above zero.
type RetryingFetcher struct {
	inner       Fetcher
	maxAttempts int
	backoff     retry.BackoffStrategy
	logger      logger.Logger
}

// NewRetryingFetcher creates a retrying wrapper around a Fetcher. retryDelay
// sets the initial backoff delay; zero or negative keeps the default.
func NewRetryingFetcher(inner Fetcher, maxAttempts int, retryDelay time.Duration, log logger.Logger) *RetryingFetcher {
	if log == nil {
		log = logger.GetLogger()
	}
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	backoff := retry.DefaultExponentialBackoff()
	if retryDelay > 0 {
		backoff.BaseDelay = retryDelay
	}

	return &RetryingFetcher{
		inner:       inner,
		maxAttempts: maxAttempts,
		backoff:     backoff,
		logger:      log,
	}
}

// Fetch delegates to the wrapped fetcher, retrying rate-limit errors
func (r *RetryingFetcher) Fetch(path string, query url.Values) ([]byte, error) {
	return retry.DoWithResult(func() ([]byte, error) {
		return r.inner.Fetch(path, query)
	}, &retry.Config{
		MaxAttempts: r.maxAttempts,
		Backoff:     r.backoff,
		RetryIf:     IsRateLimit,
		Context:     context.Background(),
		Logger:      r.logger,
	})
}
