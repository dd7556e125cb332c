package migrate

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingStep indicates the registry cannot bridge two versions.
	ErrMissingStep = errors.New("no migration step registered")

	// ErrDowngrade indicates a plan was requested towards an older version.
	ErrDowngrade = errors.New("cannot migrate state to an older version")

	// ErrInvalidStep indicates a step definition is unusable.
	ErrInvalidStep = errors.New("invalid migration step")

	// ErrBadStepOutput indicates a step produced bytes at the wrong version.
	ErrBadStepOutput = errors.New("migration step produced unexpected output")

	// ErrIncompleteEnv indicates a step needs context the caller did not supply.
	ErrIncompleteEnv = errors.New("migration environment is incomplete")

	// ErrStepsDisabled indicates the state needs steps but the migration
	// capability is not enabled.
	ErrStepsDisabled = errors.New("state migration is not enabled")
)

// StepError reports a failure inside one step.
type StepError struct {
	Step string
	From int
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("migration step %q (v%d -> v%d) failed: %v", e.Step, e.From, e.From+1, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}
