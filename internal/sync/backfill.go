package sync

import (
	"context"
	"fmt"

	"github.com/nubesync/nubesync/internal/logging"
)

// Backfill fills unknown modification times of file entries from the
// remote listing, assuming the local copies are current. Entries missing
// on the server keep their unknown time; the next sync removes them.
func (s *Syncer) Backfill(ctx context.Context, outDir, root string) (*BackfillResult, error) {
	store := s.Store(outDir)

	lock, err := store.Lock(ctx, s.lockTimeout)
	if err != nil {
		return nil, fmt.Errorf("failed to lock state: %w", err)
	}
	defer func() {
		if rerr := lock.Release(); rerr != nil {
			s.logger.Warn("Failed to release state lock", logging.Error(rerr))
		}
	}()

	idx, err := s.loadIndex(store, root)
	if err != nil {
		return nil, err
	}

	res := &BackfillResult{}
	pending := 0
	for _, e := range idx.Entries {
		if !e.Dir && e.Modified == nil {
			pending++
		}
	}
	if pending == 0 {
		return res, nil
	}

	entries, err := s.remote.List(ctx, root)
	if err != nil {
		return nil, fmt.Errorf("failed to list remote folder: %w", err)
	}

	for _, remoteEntry := range entries {
		local, ok := idx.Entries[remoteEntry.Key]
		if !ok || local.Dir || local.Modified != nil || remoteEntry.Dir {
			continue
		}
		modified := remoteEntry.Modified.UTC()
		local.Modified = &modified
		if local.Size == 0 {
			local.Size = remoteEntry.Size
		}
		idx.Put(remoteEntry.Key, local)
		res.Filled++
	}
	res.Missing = pending - res.Filled

	if err := store.Save(idx); err != nil {
		return res, err
	}
	s.logger.Info("Backfilled modification times", logging.Path(outDir), logging.Count(res.Filled))
	return res, nil
}
