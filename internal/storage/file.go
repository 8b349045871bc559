package storage

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	kernelerr "github.com/aegis-kernel/mcpkernel/infrastructure/errors"
)

// FileStore persists one blob per agent as a file under dir, named from the
// agent id. Writes go to a temp file in the same directory and are promoted
// with os.Rename, so a concurrent Load never observes a partial write.
type FileStore struct {
	dir string
}

// NewFileStore creates a FileStore rooted at dir, creating it if necessary.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, kernelerr.StorageError("mkdir", err)
	}
	return &FileStore{dir: dir}, nil
}

func (f *FileStore) path(agentID string) string {
	return filepath.Join(f.dir, agentID+".blob")
}

// Save implements Store.
func (f *FileStore) Save(_ context.Context, agentID string, blob []byte) error {
	tmp, err := os.CreateTemp(f.dir, agentID+".tmp-*")
	if err != nil {
		return kernelerr.StorageError("save", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(blob); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return kernelerr.StorageError("save", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return kernelerr.StorageError("save", err)
	}

	if err := os.Rename(tmpPath, f.path(agentID)); err != nil {
		os.Remove(tmpPath)
		return kernelerr.StorageError("save", err)
	}
	return nil
}

// Load implements Store.
func (f *FileStore) Load(_ context.Context, agentID string) ([]byte, error) {
	blob, err := os.ReadFile(f.path(agentID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, kernelerr.StorageError("load", err)
	}
	return blob, nil
}

// List implements Store.
func (f *FileStore) List(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(f.dir)
	if err != nil {
		return nil, kernelerr.StorageError("list", err)
	}

	ids := make([]string, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".blob") {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, ".blob"))
	}
	sort.Strings(ids)
	return ids, nil
}

// Delete implements Store.
func (f *FileStore) Delete(_ context.Context, agentID string) error {
	if err := os.Remove(f.path(agentID)); err != nil && !os.IsNotExist(err) {
		return kernelerr.StorageError("delete", err)
	}
	return nil
}
