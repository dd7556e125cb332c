package state

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates there is no state file yet.
	ErrNotFound = errors.New("state not found")

	// ErrCorrupt indicates the state file exists but cannot be trusted.
	ErrCorrupt = errors.New("state file is corrupt")

	// ErrTooNew indicates the state was written by a newer release.
	ErrTooNew = errors.New("state is newer than this binary supports")

	// ErrOutdated indicates the state must be migrated before use.
	ErrOutdated = errors.New("state requires migration")

	// ErrRemoteMismatch indicates the output directory mirrors another remote folder.
	ErrRemoteMismatch = errors.New("state tracks a different remote folder")
)

// VersionError reports a state file whose schema version differs from the
// one this binary expects. It unwraps to ErrTooNew or ErrOutdated.
type VersionError struct {
	Found    int
	Expected int
}

func (e *VersionError) Error() string {
	if e.Found > e.Expected {
		return fmt.Sprintf("state schema version %d is newer than supported version %d", e.Found, e.Expected)
	}
	return fmt.Sprintf("state schema version %d must be migrated to version %d", e.Found, e.Expected)
}

func (e *VersionError) Unwrap() error {
	if e.Found > e.Expected {
		return ErrTooNew
	}
	return ErrOutdated
}
