package storage

import (
	"os"
	"path/filepath"
	"testing"
)

func TestManagerSaveAsset(t *testing.T) {
	root := t.TempDir()
	mgr, err := NewManager(filepath.Join(root, "downloads"))
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	data := []byte("epub bytes")
	if err := mgr.SaveAsset("412", "Work Title.epub", data); err != nil {
		t.Fatalf("Failed to save asset: %v", err)
	}

	// Assets live one directory per work
	path := mgr.AssetPath("412", "Work Title.epub")
	want := filepath.Join(root, "downloads", "412", "Work Title.epub")
	if path != want {
		t.Errorf("Expected path %q, got %q", want, path)
	}

	saved, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read saved asset: %v", err)
	}
	if string(saved) != string(data) {
		t.Errorf("Saved data mismatch: %q", saved)
	}

	if !mgr.HasAsset("412", "Work Title.epub") {
		t.Error("Expected HasAsset to report the saved file")
	}
	if mgr.HasAsset("413", "Work Title.epub") {
		t.Error("Expected HasAsset to miss for another work")
	}
}

func TestManagerSaveAssetOverwrites(t *testing.T) {
	mgr, err := NewManager(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	if err := mgr.SaveAsset("7", "w.pdf", []byte("old")); err != nil {
		t.Fatalf("Failed to save asset: %v", err)
	}
	if err := mgr.SaveAsset("7", "w.pdf", []byte("new")); err != nil {
		t.Fatalf("Failed to overwrite asset: %v", err)
	}

	saved, err := os.ReadFile(mgr.AssetPath("7", "w.pdf"))
	if err != nil {
		t.Fatalf("Failed to read asset: %v", err)
	}
	if string(saved) != "new" {
		t.Errorf("Expected overwritten content, got %q", saved)
	}
}

func TestFilenameFromLink(t *testing.T) {
	tests := []struct {
		name    string
		link    string
		want    string
		wantErr bool
	}{
		{
			name: "relative link",
			link: "/downloads/412/Work%20Title.epub",
			want: "Work Title.epub",
		},
		{
			name: "query string dropped",
			link: "/downloads/412/work.epub?updated_at=1700000000",
			want: "work.epub",
		},
		{
			name: "absolute link",
			link: "https://download.archiveofourown.org/downloads/412/work.pdf",
			want: "work.pdf",
		},
		{
			name:    "no filename",
			link:    "https://archiveofourown.org/",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FilenameFromLink(tt.link)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Expected error for %q, got %q", tt.link, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, got)
			}
		})
	}
}
