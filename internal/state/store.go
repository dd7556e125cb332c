package state

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/nubesync/nubesync/internal/fsops"
	"github.com/nubesync/nubesync/internal/hash"
)

// Store provides access to the persisted index of one output directory.
type Store interface {
	// Path returns the state file path.
	Path() string

	// ReadRaw returns the state file bytes, whatever their version.
	// Returns ErrNotFound if the file doesn't exist.
	ReadRaw() ([]byte, error)

	// WriteRaw replaces the state file atomically.
	WriteRaw(data []byte) error

	// Load reads and decodes a current-version index.
	Load() (*Index, error)

	// Save encodes and writes idx atomically.
	Save(idx *Index) error

	// Lock takes the store's exclusive lock.
	Lock(ctx context.Context, timeout time.Duration) (*fsops.Lock, error)
}

// FileStore implements Store using a JSON file on disk.
type FileStore struct {
	fs     fsops.FS
	hasher hash.Hasher
	path   string
}

// NewFileStore creates a FileStore for the state file named name inside dir.
func NewFileStore(fs fsops.FS, hasher hash.Hasher, dir, name string) *FileStore {
	if name == "" {
		name = DefaultFileName
	}
	return &FileStore{
		fs:     fs,
		hasher: hasher,
		path:   filepath.Join(dir, name),
	}
}

// Path returns the state file path.
func (s *FileStore) Path() string {
	return s.path
}

// LockPath returns the path of the lock file guarding the store.
func (s *FileStore) LockPath() string {
	return s.path + ".lock"
}

// Hasher returns the hasher used for checksums.
func (s *FileStore) Hasher() hash.Hasher {
	return s.hasher
}

// Exists reports whether the state file exists.
func (s *FileStore) Exists() (bool, error) {
	return s.fs.Exists(s.path)
}

// ReadRaw returns the raw state file content.
func (s *FileStore) ReadRaw() ([]byte, error) {
	data, err := s.fs.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read state: %w", err)
	}
	return data, nil
}

// WriteRaw replaces the state file atomically.
func (s *FileStore) WriteRaw(data []byte) error {
	if err := s.fs.AtomicWrite(s.path, data, 0644); err != nil {
		return fmt.Errorf("failed to write state: %w", err)
	}
	return nil
}

// Load reads and decodes the index.
func (s *FileStore) Load() (*Index, error) {
	raw, err := s.ReadRaw()
	if err != nil {
		return nil, err
	}
	idx, err := Decode(raw, s.hasher)
	if err != nil {
		return nil, fmt.Errorf("failed to load state %s: %w", s.path, err)
	}
	return idx, nil
}

// Save encodes idx and writes it atomically.
func (s *FileStore) Save(idx *Index) error {
	data, err := Encode(idx, s.hasher)
	if err != nil {
		return err
	}
	return s.WriteRaw(data)
}

// Lock takes the exclusive lock guarding the store.
func (s *FileStore) Lock(ctx context.Context, timeout time.Duration) (*fsops.Lock, error) {
	return fsops.AcquireLock(ctx, s.LockPath(), timeout)
}
