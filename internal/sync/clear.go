package sync

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/go-git/go-billy/v5/util"

	"github.com/nubesync/nubesync/internal/logging"
	"github.com/nubesync/nubesync/internal/state"
)

// Clear deletes every entry of outDir, the state file included. It refuses
// to touch a directory that has no state file, so a mistyped path cannot
// wipe an unrelated folder. The lock file is kept since Clear holds it.
func (s *Syncer) Clear(ctx context.Context, outDir string) (*ClearResult, error) {
	store := s.Store(outDir)

	exists, err := store.Exists()
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("%s is not a sync directory: %w", outDir, state.ErrNotFound)
	}

	lock, err := store.Lock(ctx, s.lockTimeout)
	if err != nil {
		return nil, fmt.Errorf("failed to lock state: %w", err)
	}
	defer func() {
		if rerr := lock.Release(); rerr != nil {
			s.logger.Warn("Failed to release state lock", logging.Error(rerr))
		}
	}()

	files := s.files(outDir)
	infos, err := files.ReadDir(".")
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", outDir, err)
	}

	lockName := filepath.Base(store.LockPath())
	res := &ClearResult{OutDir: outDir}
	for _, info := range infos {
		name := info.Name()
		if name == lockName {
			continue
		}
		if err := util.RemoveAll(files, name); err != nil {
			return res, fmt.Errorf("failed to remove %s: %w", name, err)
		}
		res.Removed = append(res.Removed, name)
	}
	sort.Strings(res.Removed)

	s.logger.Info("Cleared output directory", logging.Path(outDir), logging.Count(len(res.Removed)))
	return res, nil
}
