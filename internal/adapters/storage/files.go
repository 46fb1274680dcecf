// Package storage provides the rule file sources: a local directory, S3,
// Azure Blob Storage and plain HTTP.
package storage

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/jobrunner/limes/internal/domain"
)

// writeFile streams r into dest. The content is written to a temporary file
// next to dest and renamed, so a reader never sees a half-written rule file.
func writeFile(key, dest string, r io.Reader) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o750); err != nil {
		return &domain.StorageError{Operation: "download", Key: key, Err: err}
	}

	tmp, err := os.CreateTemp(filepath.Dir(dest), ".limes-*")
	if err != nil {
		return &domain.StorageError{Operation: "download", Key: key, Err: err}
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := io.Copy(tmp, r); err != nil {
		_ = tmp.Close()
		return &domain.StorageError{Operation: "download", Key: key, Err: err}
	}
	if err := tmp.Close(); err != nil {
		return &domain.StorageError{Operation: "download", Key: key, Err: err}
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		return &domain.StorageError{Operation: "download", Key: key, Err: err}
	}
	return nil
}

// joinKey prefixes key with prefix using exactly one separator.
func joinKey(prefix, key string) string {
	prefix = strings.TrimSuffix(prefix, "/")
	if prefix == "" {
		return key
	}
	return prefix + "/" + strings.TrimPrefix(key, "/")
}

// relativeKey strips prefix from a full object name.
func relativeKey(prefix, name string) string {
	rel := strings.TrimPrefix(name, strings.TrimSuffix(prefix, "/"))
	return strings.TrimPrefix(rel, "/")
}
