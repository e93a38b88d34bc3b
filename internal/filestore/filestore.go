package filestore

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Store keeps uploaded attachment blobs addressed by content hash.
type Store interface {
	// Save writes the blob under the given hash and returns the number of
	// bytes written. Saving an already present hash is a no-op.
	Save(r io.Reader, hash string) (int64, error)

	// Open returns a reader for the blob with the given hash.
	Open(hash string) (io.ReadCloser, error)
}

// Local is a Store on the local filesystem. Blobs are sharded into
// subdirectories by the first two characters of the hash.
type Local struct {
	root string
}

func NewLocal(root string) (*Local, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create uploads directory: %w", err)
	}
	return &Local{root: root}, nil
}

func (s *Local) path(hash string) string {
	if len(hash) < 2 {
		return filepath.Join(s.root, hash)
	}
	return filepath.Join(s.root, hash[:2], hash)
}

func (s *Local) Save(r io.Reader, hash string) (int64, error) {
	path := s.path(hash)

	if info, err := os.Stat(path); err == nil {
		return info.Size(), nil
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return 0, fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	// Write to a temp file and rename so a partial write never becomes
	// visible under the final hash.
	tmp, err := os.CreateTemp(dir, "upload-*")
	if err != nil {
		return 0, fmt.Errorf("failed to create temp file: %w", err)
	}
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
	}()

	n, err := io.Copy(tmp, r)
	if err != nil {
		return 0, fmt.Errorf("failed to write data: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return 0, fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return 0, fmt.Errorf("failed to rename file: %w", err)
	}

	return n, nil
}

func (s *Local) Open(hash string) (io.ReadCloser, error) {
	f, err := os.Open(s.path(hash))
	if err != nil {
		return nil, fmt.Errorf("failed to open file %s: %w", hash, err)
	}
	return f, nil
}
