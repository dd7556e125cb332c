package migrate

import (
	"fmt"
	"sort"

	"github.com/nubesync/nubesync/internal/hash"
	"github.com/nubesync/nubesync/internal/state"
)

// Env carries the context some steps need beyond the state bytes.
type Env struct {
	// OutDir is the absolute output directory the state belongs to
	OutDir string

	// RemoteRoot is the remote folder the directory mirrors, e.g. "Photos/"
	RemoteRoot string

	// RemoteBase is the URL path of RemoteRoot on the server, e.g.
	// "/remote.php/dav/files/alice/Photos/"
	RemoteBase string

	// Hasher computes state checksums (BLAKE3 when nil)
	Hasher hash.Hasher
}

func (e Env) hasher() hash.Hasher {
	if e.Hasher == nil {
		return hash.NewBlake3Hasher()
	}
	return e.Hasher
}

// ApplyFunc transforms state bytes at version From into version From+1.
type ApplyFunc func(env Env, raw []byte) ([]byte, error)

// Step upgrades the state by exactly one version.
type Step struct {
	From  int
	Name  string
	Apply ApplyFunc
}

// To returns the version the step produces.
func (s Step) To() int {
	return s.From + 1
}

// Run applies the step to raw. Input already at To() or later is returned
// unchanged with applied set to false, which makes steps idempotent.
func (s Step) Run(env Env, raw []byte) (out []byte, applied bool, err error) {
	version, err := state.DetectVersion(raw)
	if err != nil {
		return nil, false, err
	}
	if version >= s.To() {
		return raw, false, nil
	}
	if version != s.From {
		return nil, false, fmt.Errorf("%w: step %q expects version %d, got %d", ErrBadStepOutput, s.Name, s.From, version)
	}

	out, err = s.Apply(env, raw)
	if err != nil {
		return nil, false, &StepError{Step: s.Name, From: s.From, Err: err}
	}

	got, err := state.DetectVersion(out)
	if err != nil {
		return nil, false, &StepError{Step: s.Name, From: s.From, Err: fmt.Errorf("%w: %v", ErrBadStepOutput, err)}
	}
	if got != s.To() {
		return nil, false, &StepError{Step: s.Name, From: s.From, Err: fmt.Errorf("%w: produced version %d", ErrBadStepOutput, got)}
	}
	return out, true, nil
}

// Registry is an ordered set of steps keyed by source version.
type Registry struct {
	steps map[int]Step
}

// NewRegistry builds a registry from steps. Each source version may be
// registered once.
func NewRegistry(steps ...Step) (*Registry, error) {
	r := &Registry{steps: make(map[int]Step, len(steps))}
	for _, s := range steps {
		switch {
		case s.From < 0:
			return nil, fmt.Errorf("%w: step %q has negative source version %d", ErrInvalidStep, s.Name, s.From)
		case s.Name == "":
			return nil, fmt.Errorf("%w: step from version %d has no name", ErrInvalidStep, s.From)
		case s.Apply == nil:
			return nil, fmt.Errorf("%w: step %q has no apply function", ErrInvalidStep, s.Name)
		}
		if prev, dup := r.steps[s.From]; dup {
			return nil, fmt.Errorf("%w: steps %q and %q both start at version %d", ErrInvalidStep, prev.Name, s.Name, s.From)
		}
		r.steps[s.From] = s
	}
	return r, nil
}

// Versions returns the registered source versions in ascending order.
func (r *Registry) Versions() []int {
	versions := make([]int, 0, len(r.steps))
	for v := range r.steps {
		versions = append(versions, v)
	}
	sort.Ints(versions)
	return versions
}

// Validate checks that every version below target can reach it.
func (r *Registry) Validate(target int) error {
	_, err := r.Plan(0, target)
	return err
}

// Plan is the ordered list of steps from one version to another.
type Plan struct {
	From  int
	To    int
	Steps []Step
}

// Empty reports whether the plan has nothing to do.
func (p *Plan) Empty() bool {
	return len(p.Steps) == 0
}

// Names returns the step names in execution order.
func (p *Plan) Names() []string {
	names := make([]string, len(p.Steps))
	for i, s := range p.Steps {
		names[i] = s.Name
	}
	return names
}

// Plan returns the steps that take a state from version from to version to.
func (r *Registry) Plan(from, to int) (*Plan, error) {
	if from > to {
		return nil, fmt.Errorf("%w: from %d to %d", ErrDowngrade, from, to)
	}
	plan := &Plan{From: from, To: to}
	for v := from; v < to; v++ {
		s, ok := r.steps[v]
		if !ok {
			return nil, fmt.Errorf("%w: version %d -> %d", ErrMissingStep, v, v+1)
		}
		plan.Steps = append(plan.Steps, s)
	}
	return plan, nil
}
