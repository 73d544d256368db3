package checkpoint

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/thalida/ao3-sync/pkg/logger"
)

// Checkpoint is the single durable record of sync progress: the id of the
// most recent bookmark whose assets were all saved. The next run treats this
// id as a hard boundary, so it may only be advanced after an item completes.
type Checkpoint struct {
	LastSyncedBookmarkID string    `json:"last_synced_bookmark_id"`
	UpdatedAt            time.Time `json:"updated_at"`
}

// IsEmpty reports whether no bookmark has ever been synced
func (c *Checkpoint) IsEmpty() bool {
	return c.LastSyncedBookmarkID == ""
}

// Store reads and writes the checkpoint file
type Store struct {
	path   string
	logger logger.Logger
}

// NewStore creates a checkpoint store backed by the given file path
func NewStore(path string, log logger.Logger) (*Store, error) {
	if log == nil {
		log = logger.GetLogger()
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create checkpoint directory: %w", err)
	}

	return &Store{path: path, logger: log}, nil
}

// Load reads the checkpoint. A missing file yields an empty checkpoint; a
// corrupt file does too, since treating it as fatal would brick the sync and
// the worst case of an empty checkpoint is re-downloading.
func (s *Store) Load() (*Checkpoint, error) {
	file, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Checkpoint{}, nil
		}
		return nil, fmt.Errorf("failed to open checkpoint file: %w", err)
	}
	defer file.Close()

	var cp Checkpoint
	if err := json.NewDecoder(file).Decode(&cp); err != nil {
		s.logger.WarnWithFields("checkpoint file is unreadable, starting fresh", map[string]interface{}{
			"path":  s.path,
			"error": err.Error(),
		})
		return &Checkpoint{}, nil
	}

	s.logger.DebugWithFields("checkpoint loaded", map[string]interface{}{
		"last_synced_bookmark_id": cp.LastSyncedBookmarkID,
		"updated_at":              cp.UpdatedAt,
	})

	return &cp, nil
}

// Save writes the checkpoint atomically: temp file, fsync, rename. A crash
// mid-write leaves the previous checkpoint intact.
func (s *Store) Save(cp *Checkpoint) error {
	cp.UpdatedAt = time.Now()

	tempPath := s.path + ".tmp"
	file, err := os.Create(tempPath)
	if err != nil {
		return fmt.Errorf("failed to create temporary checkpoint file: %w", err)
	}

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(cp); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to encode checkpoint: %w", err)
	}

	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to sync checkpoint file: %w", err)
	}

	if err := file.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to close checkpoint file: %w", err)
	}

	if err := os.Rename(tempPath, s.path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to replace checkpoint file: %w", err)
	}

	s.logger.DebugWithFields("checkpoint saved", map[string]interface{}{
		"last_synced_bookmark_id": cp.LastSyncedBookmarkID,
	})

	return nil
}

// Advance records a newly completed bookmark id and persists immediately
func (s *Store) Advance(cp *Checkpoint, bookmarkID string) error {
	cp.LastSyncedBookmarkID = bookmarkID
	return s.Save(cp)
}

// Delete removes the checkpoint file
func (s *Store) Delete() error {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete checkpoint: %w", err)
	}
	return nil
}

// Exists checks if a checkpoint file exists
func (s *Store) Exists() bool {
	_, err := os.Stat(s.path)
	return err == nil
}
