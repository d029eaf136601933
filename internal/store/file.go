package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// File keeps the blob in a plain text file.
type File struct {
	path string
}

// NewFile returns a File store at path. The file is created on first save.
func NewFile(path string) *File {
	return &File{path: path}
}

// Path returns the file location.
func (f *File) Path() string { return f.path }

// Load returns the file contents, or "" if the file does not exist yet.
func (f *File) Load(_ context.Context) (string, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("failed to read %s: %w", f.path, err)
	}
	return string(data), nil
}

// Save writes the blob through a temporary file and rename so a crash never
// leaves a truncated file behind.
func (f *File) Save(_ context.Context, blob string) error {
	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	tmpFile, err := os.CreateTemp(dir, ".lifetime-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer func() {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
	}()

	if _, err := tmpFile.WriteString(blob); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, f.path); err != nil {
		return fmt.Errorf("failed to write %s: %w", f.path, err)
	}
	return nil
}

// UpdatedAt returns the modification time of the file. The bool is false
// when nothing has been saved yet.
func (f *File) UpdatedAt(_ context.Context) (time.Time, bool, error) {
	info, err := os.Stat(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return time.Time{}, false, nil
		}
		return time.Time{}, false, fmt.Errorf("failed to stat %s: %w", f.path, err)
	}
	return info.ModTime(), true, nil
}

// Close implements Blob.
func (f *File) Close() error { return nil }
