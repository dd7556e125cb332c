package sync

import (
	"errors"

	"github.com/nubesync/nubesync/internal/state"
)

// Status summarises the index of outDir without locking it. The index must
// be at the current schema version.
func (s *Syncer) Status(outDir string) (*Status, error) {
	store := s.Store(outDir)
	st := &Status{OutDir: outDir, StatePath: store.Path()}

	idx, err := store.Load()
	if errors.Is(err, state.ErrNotFound) {
		return st, nil
	}
	if err != nil {
		return st, err
	}

	st.Exists = true
	st.RemoteRoot = idx.RemoteRoot
	st.Files, st.Dirs = idx.Counts()
	st.UpdatedAt = idx.UpdatedAt
	return st, nil
}
