package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/nubesync/nubesync/internal/clock"
	"github.com/nubesync/nubesync/internal/logging"
	"github.com/nubesync/nubesync/internal/metrics"
	"github.com/nubesync/nubesync/internal/planner"
	"github.com/nubesync/nubesync/internal/state"
)

// Sync mirrors req.Root into req.OutDir while holding the store lock.
// A dry run takes no lock and leaves the file system untouched.
//
// The index must be at the current schema version; an outdated index
// fails with state.ErrOutdated and is left alone. An absent index starts
// empty. When an operation fails the completed work is saved to the index
// before the error is returned.
func (s *Syncer) Sync(ctx context.Context, req Request) (*Result, error) {
	start := s.clock.Now()
	res, err := s.sync(ctx, req)
	elapsed := clock.Since(s.clock, start)
	if res != nil {
		res.Duration = elapsed
	}
	if !req.DryRun {
		s.recorder.ObserveSync(elapsed, syncOutcome(res, err))
	}
	return res, err
}

func syncOutcome(res *Result, err error) metrics.Outcome {
	switch {
	case errors.Is(err, state.ErrOutdated), errors.Is(err, state.ErrTooNew), errors.Is(err, state.ErrRemoteMismatch):
		return metrics.OutcomeRefused
	case err != nil:
		return metrics.OutcomeFailed
	case res.Plan.Empty():
		return metrics.OutcomeNoop
	default:
		return metrics.OutcomeSuccess
	}
}

func (s *Syncer) sync(ctx context.Context, req Request) (*Result, error) {
	log := s.logger.With(logging.Remote(req.Root), logging.Path(req.OutDir))
	store := s.Store(req.OutDir)

	// A dry run only reads the index, which is always replaced by rename.
	if !req.DryRun {
		lock, err := store.Lock(ctx, s.lockTimeout)
		if err != nil {
			return nil, fmt.Errorf("failed to lock state: %w", err)
		}
		defer func() {
			if rerr := lock.Release(); rerr != nil {
				log.Warn("Failed to release state lock", logging.Error(rerr))
			}
		}()
	}

	idx, err := s.loadIndex(store, req.Root)
	if err != nil {
		return nil, err
	}

	entries, err := s.remote.List(ctx, req.Root)
	if err != nil {
		return nil, fmt.Errorf("failed to list remote folder: %w", err)
	}

	plan := planner.Build(idx, entries, planner.Options{
		BlackList: s.blackList,
		Reserved:  s.reserved(),
	})
	for _, c := range plan.Conflicts {
		log.Warn("Skipping remote entry", logging.Key(c.Key), slog.String("reason", c.Reason))
	}

	res := &Result{Plan: plan, DryRun: req.DryRun}
	removes, mkdirs, downloads := plan.Counts()
	log.Debug("Planned sync",
		logging.Count(len(plan.Operations)),
		slog.Int("removes", removes),
		slog.Int("mkdirs", mkdirs),
		slog.Int("downloads", downloads),
		slog.Int("unchanged", plan.Unchanged))

	if req.DryRun {
		return res, nil
	}

	applyErr := s.apply(ctx, s.files(req.OutDir), req.Root, idx, plan, res)

	idx.RemoteRoot = req.Root
	idx.UpdatedAt = s.clock.Now().UTC()
	if err := store.Save(idx); err != nil {
		if applyErr != nil {
			return res, errors.Join(applyErr, err)
		}
		return res, err
	}

	files, dirs := idx.Counts()
	s.recorder.SetTrackedEntries(files, dirs)

	if applyErr != nil {
		return res, applyErr
	}
	log.Info("Synced remote folder",
		slog.Int("removed", res.Removed),
		slog.Int("created", res.Created),
		slog.Int("downloaded", res.Downloaded),
		slog.Int("skipped", res.Skipped()))
	return res, nil
}

// loadIndex returns the current index, or an empty one for root when none
// exists yet. An index bound to another remote folder is refused unless it
// is still empty.
func (s *Syncer) loadIndex(store state.Store, root string) (*state.Index, error) {
	idx, err := store.Load()
	if errors.Is(err, state.ErrNotFound) {
		return state.NewIndex(root), nil
	}
	if err != nil {
		return nil, err
	}
	if idx.RemoteRoot != root {
		if len(idx.Entries) > 0 {
			return nil, fmt.Errorf("%w: %s tracks %q, not %q", state.ErrRemoteMismatch, store.Path(), idx.RemoteRoot, root)
		}
		idx.RemoteRoot = root
	}
	return idx, nil
}
