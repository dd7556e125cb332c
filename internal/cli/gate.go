package cli

import (
	"context"
	"path/filepath"

	"github.com/nubesync/nubesync/internal/config"
	"github.com/nubesync/nubesync/internal/logging"
	"github.com/nubesync/nubesync/internal/migrate"
	"github.com/nubesync/nubesync/internal/persist"
	"github.com/nubesync/nubesync/internal/remote"
	"github.com/nubesync/nubesync/internal/state"
)

// migrator builds the state migrator for outDir. Steps only run when
// allowSteps is set; otherwise an outdated state is refused.
func (a *app) migrator(cfg *config.Config, outDir string, allowSteps, backup bool) *migrate.Migrator {
	store := state.NewFileStore(a.fs, a.hasher, outDir, cfg.State.File)

	opts := []migrate.Option{
		migrate.WithLockTimeout(cfg.State.LockTimeout.Duration),
		migrate.WithStepsEnabled(allowSteps),
		migrate.WithLogger(a.logger),
		migrate.WithRecorder(a.metrics()),
		migrate.WithClock(a.clock),
	}
	if backup && cfg.State.Backup {
		opts = append(opts, migrate.WithSnapshots(persist.NewSnapshotManager(a.fs, cfg.State.KeepBackups)))
	}
	return migrate.New(store, migrate.DefaultRegistry(), opts...)
}

func (a *app) migrationEnv(rem remote.Remote, outDir, root string) migrate.Env {
	return migrate.Env{
		OutDir:     filepath.Clean(outDir),
		RemoteRoot: root,
		RemoteBase: rem.Base(root),
		Hasher:     a.hasher,
	}
}

// gate brings the state of outDir to the current version before a sync.
// It runs once per process, before any sync starts.
func (a *app) gate(ctx context.Context, cfg *config.Config, rem remote.Remote, outDir, root string) (*migrate.Result, error) {
	allow := a.caps.Migration && cfg.Migration.Auto
	res, err := a.migrator(cfg, outDir, allow, true).Run(ctx, a.migrationEnv(rem, outDir, root))
	if err != nil {
		return res, err
	}
	if res.Migrated() {
		a.logger.Info("Migrated state before sync",
			logging.FromVersion(res.From),
			logging.ToVersion(res.To),
			logging.Count(len(res.Applied)))
	}
	return res, nil
}
