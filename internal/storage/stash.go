package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// FileStash persists uploaded byte streams and returns a retrievable path.
type FileStash interface {
	// Store writes the stream fully before returning. A write failure
	// propagates as an error, never a partially stored file reported as
	// success.
	Store(filename string, r io.Reader) (string, error)
}

// DiskStash is a FileStash that writes uploads to a local directory.
type DiskStash struct {
	dir string
}

// NewDiskStash creates a DiskStash rooted at dir, creating it if needed.
func NewDiskStash(dir string) (*DiskStash, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory %s: %w", dir, err)
	}
	return &DiskStash{dir: dir}, nil
}

// Store copies the stream to a uniquely named file under the stash directory
// and returns its path. A partial file left behind by a failed write or close
// is removed before the error is returned.
func (s *DiskStash) Store(filename string, r io.Reader) (string, error) {
	// Unique prefix so identically named uploads do not clobber each other.
	stored := fmt.Sprintf("%s_%s", uuid.New().String(), filepath.Base(filename))
	path := filepath.Join(s.dir, stored)

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create file %s: %w", path, err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("failed to write file %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("failed to flush file %s: %w", path, err)
	}
	return path, nil
}
