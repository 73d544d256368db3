package debugcache

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"github.com/thalida/ao3-sync/pkg/ao3"
	"github.com/thalida/ao3-sync/pkg/logger"
)

// Cache is a read-through response cache wrapped around a fetcher. A hit
// returns the stored body without touching the network; a miss performs the
// real fetch and stores the result. It exists to make repeated dev and test
// runs fast and deterministic, never to alter sync semantics: when disabled,
// construction is skipped entirely and callers use the bare fetcher.
type Cache struct {
	inner  ao3.Fetcher
	dir    string
	logger logger.Logger
}

// New creates a read-through cache storing bodies under dir
func New(inner ao3.Fetcher, dir string, log logger.Logger) (*Cache, error) {
	if log == nil {
		log = logger.GetLogger()
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	return &Cache{inner: inner, dir: dir, logger: log}, nil
}

// Fetch returns the cached body for the request fingerprint, or fetches and
// stores it on a miss.
func (c *Cache) Fetch(path string, query url.Values) ([]byte, error) {
	key := Fingerprint(path, query)

	if body, err := os.ReadFile(c.keyPath(key)); err == nil {
		c.logger.DebugWithFields("debug cache hit", map[string]interface{}{
			"path": path,
			"key":  key,
		})
		return body, nil
	}

	body, err := c.inner.Fetch(path, query)
	if err != nil {
		return nil, err
	}

	if err := os.WriteFile(c.keyPath(key), body, 0644); err != nil {
		// A failed cache write must not fail the fetch
		c.logger.WarnWithFields("failed to write debug cache entry", map[string]interface{}{
			"key":   key,
			"error": err.Error(),
		})
	}

	return body, nil
}

func (c *Cache) keyPath(key string) string {
	return filepath.Join(c.dir, key)
}

// Fingerprint returns the deterministic cache key for a request: the sha1 of
// the URL joined with its canonically sorted query string.
func Fingerprint(path string, query url.Values) string {
	source := path
	if len(query) > 0 {
		// Encode sorts by key, so equivalent requests share a fingerprint
		source += query.Encode()
	}

	sum := sha1.Sum([]byte(source))
	return hex.EncodeToString(sum[:])
}
