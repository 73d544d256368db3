package storage

import (
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
)

// Manager owns the download tree. Assets are grouped one directory per work
// so same-named files from different works never collide:
//
//	downloads/<work_id>/<filename>
type Manager struct {
	downloadsDir string
}

// NewManager creates a storage manager rooted at downloadsDir
func NewManager(downloadsDir string) (*Manager, error) {
	if err := os.MkdirAll(downloadsDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create downloads directory: %w", err)
	}

	return &Manager{downloadsDir: downloadsDir}, nil
}

// Root returns the download tree root
func (m *Manager) Root() string {
	return m.downloadsDir
}

// AssetPath returns the deterministic local path for a work's asset
func (m *Manager) AssetPath(workID, filename string) string {
	return filepath.Join(m.downloadsDir, workID, filename)
}

// HasAsset reports whether the asset is already saved
func (m *Manager) HasAsset(workID, filename string) bool {
	_, err := os.Stat(m.AssetPath(workID, filename))
	return err == nil
}

// SaveAsset writes an asset atomically under the work's directory
func (m *Manager) SaveAsset(workID, filename string, data []byte) error {
	dir := filepath.Join(m.downloadsDir, workID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create work directory: %w", err)
	}

	target := filepath.Join(dir, filename)
	tempFile := target + ".tmp"

	if err := os.WriteFile(tempFile, data, 0644); err != nil {
		os.Remove(tempFile)
		return fmt.Errorf("failed to write asset data: %w", err)
	}

	if err := os.Rename(tempFile, target); err != nil {
		os.Remove(tempFile)
		return fmt.Errorf("failed to rename temporary file: %w", err)
	}

	return nil
}

// FilenameFromLink derives the local filename from a download link path,
// dropping any query string the link carries.
func FilenameFromLink(link string) (string, error) {
	parsed, err := url.Parse(link)
	if err != nil {
		return "", fmt.Errorf("malformed download link %q: %w", link, err)
	}

	filename := path.Base(parsed.Path)
	if filename == "" || filename == "." || filename == "/" {
		return "", fmt.Errorf("download link %q has no filename", link)
	}

	return filename, nil
}
