package migrate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nubesync/nubesync/internal/clock"
	"github.com/nubesync/nubesync/internal/logging"
	"github.com/nubesync/nubesync/internal/metrics"
	"github.com/nubesync/nubesync/internal/persist"
	"github.com/nubesync/nubesync/internal/state"
)

// DefaultLockTimeout bounds how long Run waits for the store lock.
const DefaultLockTimeout = 10 * time.Second

// Result describes what a Run did.
type Result struct {
	// From is the version found on disk (the target for fresh states)
	From int

	// To is the version on disk when Run returned
	To int

	// Applied lists the steps that were executed and persisted, in order
	Applied []string

	// Fresh is true when no state existed and a new one was created
	Fresh bool

	// Snapshot is the pre-migration backup path, if one was taken
	Snapshot string

	Duration time.Duration
}

// Migrated reports whether any step ran.
func (r *Result) Migrated() bool {
	return len(r.Applied) > 0
}

// Status is a read-only view of the on-disk state version.
type Status struct {
	Exists  bool
	Version int
	Target  int

	// Pending lists the steps Run would execute
	Pending []string
}

// Initializer produces the bytes of a fresh state at the target version.
type Initializer func(env Env) ([]byte, error)

// Migrator brings a store to its target schema version.
type Migrator struct {
	store       state.Store
	registry    *Registry
	target      int
	lockTimeout time.Duration
	allowSteps  bool
	snapshots   *persist.SnapshotManager
	initialize  Initializer
	afterStep   func(Step) error
	logger      *slog.Logger
	recorder    metrics.Recorder
	clock       clock.Clock
}

// Option configures a Migrator.
type Option func(*Migrator)

// WithTarget overrides the target version (state.CurrentVersion by default).
func WithTarget(v int) Option {
	return func(m *Migrator) { m.target = v }
}

// WithLockTimeout sets how long Run waits for the store lock.
func WithLockTimeout(d time.Duration) Option {
	return func(m *Migrator) { m.lockTimeout = d }
}

// WithStepsEnabled controls whether Run may execute steps. When disabled,
// Run still creates fresh state and accepts state at the target version,
// but an outdated state fails with ErrStepsDisabled.
func WithStepsEnabled(enabled bool) Option {
	return func(m *Migrator) { m.allowSteps = enabled }
}

// WithSnapshots keeps a copy of the original bytes before the first step.
func WithSnapshots(s *persist.SnapshotManager) Option {
	return func(m *Migrator) { m.snapshots = s }
}

// WithInitializer replaces the fresh-state constructor.
func WithInitializer(fn Initializer) Option {
	return func(m *Migrator) { m.initialize = fn }
}

// WithStepHook registers fn to run after each step is persisted. An error
// from fn aborts the run.
func WithStepHook(fn func(Step) error) Option {
	return func(m *Migrator) { m.afterStep = fn }
}

func WithLogger(l *slog.Logger) Option {
	return func(m *Migrator) { m.logger = l }
}

func WithRecorder(r metrics.Recorder) Option {
	return func(m *Migrator) { m.recorder = r }
}

func WithClock(c clock.Clock) Option {
	return func(m *Migrator) { m.clock = c }
}

// New creates a Migrator for store using the steps in registry.
func New(store state.Store, registry *Registry, opts ...Option) *Migrator {
	m := &Migrator{
		store:       store,
		registry:    registry,
		target:      state.CurrentVersion,
		lockTimeout: DefaultLockTimeout,
		allowSteps:  true,
		initialize:  defaultInitializer,
		clock:       clock.RealClock{},
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = logging.OrDefault(m.logger)
	m.recorder = metrics.OrNoop(m.recorder)
	return m
}

func defaultInitializer(env Env) ([]byte, error) {
	return state.Encode(state.NewIndex(env.RemoteRoot), env.hasher())
}

// Target returns the version Run migrates to.
func (m *Migrator) Target() int {
	return m.target
}

// Status inspects the store without locking or writing.
func (m *Migrator) Status() (*Status, error) {
	st := &Status{Target: m.target, Version: m.target}

	raw, err := m.store.ReadRaw()
	if errors.Is(err, state.ErrNotFound) {
		return st, nil
	}
	if err != nil {
		return nil, err
	}
	st.Exists = true

	st.Version, err = state.DetectVersion(raw)
	if err != nil {
		return nil, err
	}
	if st.Version > m.target {
		return st, &state.VersionError{Found: st.Version, Expected: m.target}
	}

	plan, err := m.registry.Plan(st.Version, m.target)
	if err != nil {
		return st, err
	}
	st.Pending = plan.Names()
	return st, nil
}

// Run brings the store to the target version while holding the store lock.
// State newer than the target yields a *state.VersionError and the file is
// left untouched. If a step fails, the state stays at the last persisted
// version and a later Run resumes from there.
func (m *Migrator) Run(ctx context.Context, env Env) (*Result, error) {
	start := m.clock.Now()

	lock, err := m.store.Lock(ctx, m.lockTimeout)
	if err != nil {
		return nil, fmt.Errorf("failed to lock state: %w", err)
	}
	defer func() {
		if rerr := lock.Release(); rerr != nil {
			m.logger.Warn("Failed to release state lock", logging.Error(rerr))
		}
	}()

	res, err := m.run(env)
	if res != nil {
		res.Duration = clock.Since(m.clock, start)
		m.recorder.ObserveMigration(res.From, res.To, res.Duration, outcome(res, err))
	}
	return res, err
}

func outcome(res *Result, err error) metrics.Outcome {
	switch {
	case errors.Is(err, state.ErrTooNew), errors.Is(err, ErrStepsDisabled):
		return metrics.OutcomeRefused
	case err != nil:
		return metrics.OutcomeFailed
	case !res.Migrated() && !res.Fresh:
		return metrics.OutcomeNoop
	default:
		return metrics.OutcomeSuccess
	}
}

func (m *Migrator) run(env Env) (*Result, error) {
	log := m.logger.With(logging.StatePath(m.store.Path()))

	raw, err := m.store.ReadRaw()
	if errors.Is(err, state.ErrNotFound) {
		return m.create(env)
	}
	if err != nil {
		return nil, err
	}

	from, err := state.DetectVersion(raw)
	if err != nil {
		return nil, fmt.Errorf("cannot migrate %s: %w", m.store.Path(), err)
	}
	res := &Result{From: from, To: from}

	if from > m.target {
		return res, &state.VersionError{Found: from, Expected: m.target}
	}
	if from == m.target {
		log.Debug("State is current", logging.ToVersion(from))
		return res, nil
	}

	plan, err := m.registry.Plan(from, m.target)
	if err != nil {
		return res, err
	}
	if !m.allowSteps {
		return res, fmt.Errorf("%w: %w", ErrStepsDisabled, &state.VersionError{Found: from, Expected: m.target})
	}

	if m.snapshots != nil {
		path, err := m.snapshots.Take(m.store.Path(), from, raw)
		if err != nil {
			first := plan.Steps[0]
			return res, &StepError{Step: first.Name, From: first.From, Err: err}
		}
		res.Snapshot = path
		log.Debug("Saved state snapshot", logging.Path(path))
	}

	log.Info("Migrating state", logging.FromVersion(from), logging.ToVersion(m.target), logging.Count(len(plan.Steps)))
	for _, step := range plan.Steps {
		out, applied, err := step.Run(env, raw)
		if err != nil {
			return res, err
		}
		if !applied {
			continue
		}

		if step.To() == m.target {
			if err := m.verify(env, out); err != nil {
				return res, &StepError{Step: step.Name, From: step.From, Err: err}
			}
		}

		if err := m.store.WriteRaw(out); err != nil {
			return res, &StepError{Step: step.Name, From: step.From, Err: fmt.Errorf("failed to persist: %w", err)}
		}
		raw = out
		res.To = step.To()
		res.Applied = append(res.Applied, step.Name)
		log.Info("Applied migration step", logging.Step(step.Name), logging.FromVersion(step.From), logging.ToVersion(step.To()))

		if m.afterStep != nil {
			if err := m.afterStep(step); err != nil {
				return res, err
			}
		}
	}

	return res, nil
}

// verify checks that output at the current version decodes with a valid
// checksum. Other targets only exist in tests with their own formats.
func (m *Migrator) verify(env Env, raw []byte) error {
	if m.target != state.CurrentVersion {
		return nil
	}
	if _, err := state.Decode(raw, env.hasher()); err != nil {
		return fmt.Errorf("%w: %v", ErrBadStepOutput, err)
	}
	return nil
}

func (m *Migrator) create(env Env) (*Result, error) {
	raw, err := m.initialize(env)
	if err != nil {
		return nil, fmt.Errorf("failed to initialise state: %w", err)
	}
	version, err := state.DetectVersion(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to initialise state: %w", err)
	}
	if version != m.target {
		return nil, fmt.Errorf("%w: initial state has version %d, want %d", ErrBadStepOutput, version, m.target)
	}
	if err := m.store.WriteRaw(raw); err != nil {
		return nil, err
	}
	m.logger.Info("Created state", logging.StatePath(m.store.Path()), logging.ToVersion(m.target))
	return &Result{From: m.target, To: m.target, Fresh: true}, nil
}
