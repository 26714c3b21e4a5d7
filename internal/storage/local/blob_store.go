// Package local stores downloaded artifacts on the local filesystem.
package local

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Config captures the parameters for the local file store.
type Config struct {
	// BaseDir is the directory files are written to. It is created on first write.
	BaseDir string `mapstructure:"base_dir" yaml:"base_dir"`
}

// Store writes files beneath a single base directory.
type Store struct {
	baseDir string
}

// New creates a Store. The directory is not touched until the first Put.
func New(cfg Config) (*Store, error) {
	if strings.TrimSpace(cfg.BaseDir) == "" {
		return nil, fmt.Errorf("base directory is required")
	}
	info, err := os.Stat(cfg.BaseDir)
	switch {
	case err == nil && !info.IsDir():
		return nil, fmt.Errorf("base directory path is not a directory")
	case err != nil && !errors.Is(err, os.ErrNotExist):
		return nil, fmt.Errorf("failed to stat base directory: %w", err)
	}
	return &Store{baseDir: cfg.BaseDir}, nil
}

// Dir returns the base directory.
func (s *Store) Dir() string {
	return s.baseDir
}

// Put writes data to name under the base directory and returns the file path.
func (s *Store) Put(ctx context.Context, name string, data io.Reader) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", fmt.Errorf("file name is required")
	}
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("put %s: %w", name, err)
	}

	fullPath := filepath.Join(s.baseDir, name)
	cleanBaseDir := filepath.Clean(s.baseDir)
	if !strings.HasPrefix(filepath.Clean(fullPath), cleanBaseDir+string(filepath.Separator)) {
		return "", fmt.Errorf("path traversal detected")
	}
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o750); err != nil {
		return "", fmt.Errorf("failed to create parent directories: %w", err)
	}

	// Concurrent writers of the same name each rename a complete temp file
	// into place, so readers never observe a torn write.
	tmp, err := os.CreateTemp(filepath.Dir(fullPath), ".put-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := io.Copy(tmp, data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return "", fmt.Errorf("failed to write file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return "", fmt.Errorf("failed to close file: %w", err)
	}
	if err := os.Rename(tmpName, fullPath); err != nil {
		_ = os.Remove(tmpName)
		return "", fmt.Errorf("failed to move file into place: %w", err)
	}
	return fullPath, nil
}
