package storage

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/jobrunner/limes/internal/domain"
)

func writeTestFiles(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("failed to create dir: %v", err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("failed to create file: %v", err)
		}
	}
}

func TestLocalStorageList(t *testing.T) {
	tmpDir := t.TempDir()
	writeTestFiles(t, tmpDir, map[string]string{
		"europe.geojson":        "test",
		"asia.JSON":             "test",
		"subdir/nested.geojson": "test",
		"ignored.txt":           "test",
		"also_ignored.shp":      "test",
	})

	storage := NewLocalStorage(tmpDir)
	objects, err := storage.List(context.Background())
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}

	var keys []string
	for _, obj := range objects {
		keys = append(keys, obj.Key)
		if obj.Size != 4 {
			t.Errorf("object %q size = %d, want 4", obj.Key, obj.Size)
		}
		if obj.LastModified == 0 {
			t.Errorf("object %q LastModified should not be 0", obj.Key)
		}
	}
	sort.Strings(keys)

	want := []string{"asia.JSON", "europe.geojson", "subdir/nested.geojson"}
	if len(keys) != len(want) {
		t.Fatalf("keys = %v, want %v", keys, want)
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Errorf("keys = %v, want %v", keys, want)
			break
		}
	}
}

func TestLocalStorageListMissingDir(t *testing.T) {
	storage := NewLocalStorage(filepath.Join(t.TempDir(), "missing"))

	_, err := storage.List(context.Background())
	var serr *domain.StorageError
	if !errors.As(err, &serr) {
		t.Errorf("List() error = %v, want StorageError", err)
	}
}

func TestLocalStorageExists(t *testing.T) {
	tmpDir := t.TempDir()
	writeTestFiles(t, tmpDir, map[string]string{"exists.geojson": "{}"})
	storage := NewLocalStorage(tmpDir)

	tests := []struct {
		name string
		key  string
		want bool
	}{
		{"existing file", "exists.geojson", true},
		{"non-existing file", "nonexistent.geojson", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := storage.Exists(context.Background(), tt.key)
			if err != nil {
				t.Fatalf("Exists() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Exists(%q) = %v, want %v", tt.key, got, tt.want)
			}
		})
	}
}

func TestLocalStorageGetReader(t *testing.T) {
	tmpDir := t.TempDir()
	writeTestFiles(t, tmpDir, map[string]string{"rules.geojson": `{"type":"FeatureCollection"}`})
	storage := NewLocalStorage(tmpDir)

	reader, err := storage.GetReader(context.Background(), "rules.geojson")
	if err != nil {
		t.Fatalf("GetReader() error = %v", err)
	}
	defer func() { _ = reader.Close() }()

	data, err := io.ReadAll(reader)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `{"type":"FeatureCollection"}` {
		t.Errorf("content = %q", data)
	}

	if _, err := storage.GetReader(context.Background(), "nonexistent.geojson"); err == nil {
		t.Error("GetReader() should fail for a missing file")
	}
}

func TestLocalStorageDownload(t *testing.T) {
	srcDir := t.TempDir()
	destDir := t.TempDir()
	writeTestFiles(t, srcDir, map[string]string{"source.geojson": "rule content"})
	storage := NewLocalStorage(srcDir)

	destFile := filepath.Join(destDir, "nested", "deep", "dest.geojson")
	if err := storage.Download(context.Background(), "source.geojson", destFile); err != nil {
		t.Fatalf("Download() error = %v", err)
	}

	data, err := os.ReadFile(destFile)
	if err != nil {
		t.Fatalf("destination file should exist: %v", err)
	}
	if string(data) != "rule content" {
		t.Errorf("content = %q", data)
	}

	// No temporary files are left behind
	entries, _ := os.ReadDir(filepath.Dir(destFile))
	if len(entries) != 1 {
		t.Errorf("destination dir has %d entries, want 1", len(entries))
	}
}

func TestLocalStorageDownloadSameFile(t *testing.T) {
	tmpDir := t.TempDir()
	writeTestFiles(t, tmpDir, map[string]string{"test.geojson": "original"})
	storage := NewLocalStorage(tmpDir)

	if err := storage.Download(context.Background(), "test.geojson", filepath.Join(tmpDir, "test.geojson")); err != nil {
		t.Fatalf("Download() to itself error = %v", err)
	}
	data, _ := os.ReadFile(filepath.Join(tmpDir, "test.geojson"))
	if string(data) != "original" {
		t.Errorf("content = %q, want original", data)
	}
}

func TestLocalStorageDownloadMissing(t *testing.T) {
	storage := NewLocalStorage(t.TempDir())

	err := storage.Download(context.Background(), "nonexistent.geojson", filepath.Join(t.TempDir(), "dest.geojson"))
	if err == nil {
		t.Error("Download() should fail for a missing file")
	}
}

func TestLocalStorageFullPath(t *testing.T) {
	storage := NewLocalStorage("/data/rules")

	tests := []struct {
		key  string
		want string
	}{
		{"test.geojson", "/data/rules/test.geojson"},
		{"subdir/nested.geojson", "/data/rules/subdir/nested.geojson"},
		{"", "/data/rules"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			if got := storage.FullPath(tt.key); got != tt.want {
				t.Errorf("FullPath(%q) = %q, want %q", tt.key, got, tt.want)
			}
		})
	}
}

func TestJoinKey(t *testing.T) {
	tests := []struct {
		prefix, key, want string
	}{
		{"", "a.geojson", "a.geojson"},
		{"rules", "a.geojson", "rules/a.geojson"},
		{"rules/", "a.geojson", "rules/a.geojson"},
		{"rules", "/a.geojson", "rules/a.geojson"},
	}
	for _, tt := range tests {
		if got := joinKey(tt.prefix, tt.key); got != tt.want {
			t.Errorf("joinKey(%q, %q) = %q, want %q", tt.prefix, tt.key, got, tt.want)
		}
		if got := relativeKey(tt.prefix, joinKey(tt.prefix, tt.key)); got != strings.TrimPrefix(tt.key, "/") {
			t.Errorf("relativeKey round trip for %q = %q", tt.key, got)
		}
	}
}
