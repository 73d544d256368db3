// Package runlock enforces single-instance execution. The checkpoint file
// and the download tree are exclusively owned by one run at a time; a second
// concurrent run would race the checkpoint and corrupt the resume boundary.
package runlock

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// Lock is an advisory file lock over an output directory
type Lock struct {
	path string
	lock *flock.Flock
}

// New creates a lock for the given output directory
func New(outputDir string) (*Lock, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	path := filepath.Join(outputDir, "sync.lock")
	return &Lock{
		path: path,
		lock: flock.New(path),
	}, nil
}

// Acquire takes the lock, failing immediately if another run holds it
func (l *Lock) Acquire() error {
	ok, err := l.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return fmt.Errorf("another sync is already running (lock: %s)", l.path)
	}
	return nil
}

// Release drops the lock
func (l *Lock) Release() error {
	return l.lock.Unlock()
}

// Path returns the lock file location
func (l *Lock) Path() string {
	return l.path
}
