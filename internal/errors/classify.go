package errors

import (
	"context"
	stderrors "errors"
	"os"

	"github.com/nubesync/nubesync/internal/config"
	"github.com/nubesync/nubesync/internal/fsops"
	"github.com/nubesync/nubesync/internal/migrate"
	"github.com/nubesync/nubesync/internal/remote"
	"github.com/nubesync/nubesync/internal/state"
)

// Classify returns err as an *Error, deriving the category from the
// package sentinels in its chain. Errors that are already classified are
// returned unchanged.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := As(err); ok {
		return err
	}

	switch {
	case stderrors.Is(err, state.ErrTooNew):
		return Wrap(err, CategoryStateTooNew, "state was written by a newer nubesync").
			WithHint("upgrade nubesync; the state file was left untouched")
	case stderrors.Is(err, migrate.ErrStepsDisabled), stderrors.Is(err, state.ErrOutdated):
		return Wrap(err, CategoryMigrationRequired, "migration required").
			WithHint("run a build with the version_migration feature, or set [migration] enabled = true, then run 'nubesync migrate'")
	case stderrors.Is(err, state.ErrCorrupt):
		return Wrap(err, CategoryCorrupt, "state file is corrupt").
			WithHint("restore a .sync.v<N>.bak snapshot or run 'nubesync clear' and sync again")
	case stderrors.Is(err, fsops.ErrLocked):
		return Wrap(err, CategoryLocked, "output directory is in use by another nubesync process")
	case stderrors.Is(err, migrate.ErrMissingStep),
		stderrors.Is(err, migrate.ErrDowngrade),
		stderrors.Is(err, migrate.ErrBadStepOutput),
		stderrors.Is(err, migrate.ErrIncompleteEnv),
		stderrors.Is(err, migrate.ErrInvalidStep),
		isStepError(err):
		return Wrap(err, CategoryMigration, "state migration failed")
	case stderrors.Is(err, config.ErrNotFound), stderrors.Is(err, config.ErrInvalid):
		return Wrap(err, CategoryConfig, "configuration error")
	case stderrors.Is(err, state.ErrRemoteMismatch):
		return Wrap(err, CategoryUsage, "output directory belongs to another remote folder")
	case stderrors.Is(err, state.ErrNotFound):
		return Wrap(err, CategoryUsage, "not a sync directory")
	case stderrors.Is(err, remote.ErrUnreachable),
		stderrors.Is(err, remote.ErrUnauthorized),
		stderrors.Is(err, remote.ErrNotFound),
		stderrors.Is(err, remote.ErrNotFolder):
		return Wrap(err, CategoryNetwork, "remote operation failed")
	case stderrors.Is(err, os.ErrPermission), stderrors.Is(err, os.ErrNotExist):
		return Wrap(err, CategoryFileSystem, "filesystem error")
	case stderrors.Is(err, context.Canceled):
		return Wrap(err, CategoryInternal, "interrupted")
	default:
		return Wrap(err, CategoryInternal, "unexpected error")
	}
}

func isStepError(err error) bool {
	var stepErr *migrate.StepError
	return stderrors.As(err, &stepErr)
}
