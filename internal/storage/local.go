package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// LocalStore implements RecordStore on the local filesystem, one file per
// key. This is the default for single-node deployments; the write goes
// through a temp file and rename so a crash mid-write leaves the previous
// record intact.
type LocalStore struct {
	basePath string // Root directory for record files
}

// NewLocalStore creates a new local filesystem record store.
// basePath is created if it doesn't exist.
func NewLocalStore(basePath string) (*LocalStore, error) {
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	return &LocalStore{basePath: basePath}, nil
}

// Get retrieves a record from the filesystem.
func (s *LocalStore) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := os.ReadFile(s.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrKeyNotFound
		}
		return nil, fmt.Errorf("failed to read record: %w", err)
	}

	return data, nil
}

// Set stores a record on the filesystem via temp file and rename.
func (s *LocalStore) Set(ctx context.Context, key string, value []byte) error {
	target := s.path(key)

	tmp, err := os.CreateTemp(s.basePath, ".record-*")
	if err != nil {
		return fmt.Errorf("failed to create temp record: %w", err)
	}

	if _, err := tmp.Write(value); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write record: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to close record: %w", err)
	}

	if err := os.Rename(tmp.Name(), target); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to publish record: %w", err)
	}

	return nil
}

// Delete removes a record from the filesystem.
func (s *LocalStore) Delete(ctx context.Context, key string) error {
	err := os.Remove(s.path(key))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete record: %w", err)
	}

	return nil
}

// path maps a storage key to a filename. Keys use ':' as a namespace
// separator, which is not filename-safe everywhere.
func (s *LocalStore) path(key string) string {
	name := strings.ReplaceAll(key, ":", "_") + ".json"
	return filepath.Join(s.basePath, name)
}
