// Package persist keeps pre-migration snapshots of the state file.
//
// Before the migrator advances a state file from version N it copies the
// untouched bytes to "<state>.v<N>.bak" next to it. Retrying a migration
// that persisted nothing reuses the identical copy; a copy left over from
// an older state at the same version is replaced.
package persist

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/nubesync/nubesync/internal/fsops"
)

// Snapshot describes one backup copy of the state file.
type Snapshot struct {
	// Path is the snapshot file path
	Path string `json:"path"`

	// Version is the schema version of the saved bytes
	Version int `json:"version"`
}

// SnapshotManager writes, lists and prunes state snapshots.
type SnapshotManager struct {
	fs   fsops.FS
	keep int
}

// NewSnapshotManager creates a SnapshotManager retaining at most keep
// snapshots per state file. keep <= 0 retains all of them.
func NewSnapshotManager(fs fsops.FS, keep int) *SnapshotManager {
	return &SnapshotManager{fs: fs, keep: keep}
}

// SnapshotPath returns the snapshot path for statePath at version.
func SnapshotPath(statePath string, version int) string {
	return fmt.Sprintf("%s.v%d.bak", statePath, version)
}

// Take stores raw as the version snapshot of statePath, then prunes old
// snapshots. It returns the snapshot path.
func (s *SnapshotManager) Take(statePath string, version int, raw []byte) (string, error) {
	path := SnapshotPath(statePath, version)

	existing, err := s.fs.ReadFile(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("failed to read snapshot: %w", err)
	}
	if err != nil || !bytes.Equal(existing, raw) {
		if err := s.fs.AtomicWrite(path, raw, 0600); err != nil {
			return "", fmt.Errorf("failed to write snapshot: %w", err)
		}
	}

	if err := s.Prune(statePath); err != nil {
		return "", err
	}
	return path, nil
}

// List returns the snapshots of statePath ordered by version.
func (s *SnapshotManager) List(statePath string) ([]Snapshot, error) {
	dir := filepath.Dir(statePath)
	prefix := filepath.Base(statePath) + ".v"

	entries, err := s.fs.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot directory: %w", err)
	}

	var snapshots []Snapshot
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, ".bak") {
			continue
		}
		version, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(name, prefix), ".bak"))
		if err != nil || version < 0 {
			continue
		}
		snapshots = append(snapshots, Snapshot{
			Path:    filepath.Join(dir, name),
			Version: version,
		})
	}

	sort.Slice(snapshots, func(i, j int) bool {
		return snapshots[i].Version < snapshots[j].Version
	})
	return snapshots, nil
}

// Prune removes the oldest snapshots beyond the retention limit.
func (s *SnapshotManager) Prune(statePath string) error {
	if s.keep <= 0 {
		return nil
	}

	snapshots, err := s.List(statePath)
	if err != nil {
		return err
	}
	if len(snapshots) <= s.keep {
		return nil
	}

	for _, snap := range snapshots[:len(snapshots)-s.keep] {
		if err := s.fs.Remove(snap.Path); err != nil {
			return fmt.Errorf("failed to remove snapshot %s: %w", snap.Path, err)
		}
	}
	return nil
}
