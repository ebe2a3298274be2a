// Package storage persists rendered audio blobs on the local filesystem.
package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FileStore writes blobs under a root directory, sharded by the first two
// characters of the blob name to keep directory fan-out bounded. Writes go
// through a temp file and rename, so readers never observe partial audio.
type FileStore struct {
	Root string
}

// NewFileStore creates the root directory if needed.
func NewFileStore(root string) (*FileStore, error) {
	if strings.TrimSpace(root) == "" {
		return nil, fmt.Errorf("storage root must not be empty")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create storage root: %w", err)
	}
	return &FileStore{Root: root}, nil
}

// Save stores data under name and returns the final path and byte size.
// name must be a bare file name; path separators are rejected.
func (s *FileStore) Save(ctx context.Context, name string, data []byte) (string, int64, error) {
	if err := ctx.Err(); err != nil {
		return "", 0, err
	}
	if name == "" || name != filepath.Base(name) || strings.ContainsAny(name, `/\`) {
		return "", 0, fmt.Errorf("invalid blob name %q", name)
	}

	dir := filepath.Join(s.Root, shard(name))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", 0, err
	}

	final := filepath.Join(dir, name)
	tmp, err := os.CreateTemp(dir, name+".tmp-*")
	if err != nil {
		return "", 0, err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", 0, err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return "", 0, err
	}
	if err := os.Rename(tmpName, final); err != nil {
		os.Remove(tmpName)
		return "", 0, err
	}
	return final, int64(len(data)), nil
}

// Open returns a reader for a previously saved blob path. The path must
// resolve inside the store root.
func (s *FileStore) Open(path string) (*os.File, error) {
	absRoot, err := filepath.Abs(s.Root)
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	if abs != absRoot && !strings.HasPrefix(abs, absRoot+string(os.PathSeparator)) {
		return nil, fmt.Errorf("path %q escapes storage root", path)
	}
	return os.Open(abs)
}

// Remove deletes a blob; missing files are not an error.
func (s *FileStore) Remove(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func shard(name string) string {
	if len(name) < 2 {
		return "00"
	}
	return strings.ToLower(name[:2])
}
