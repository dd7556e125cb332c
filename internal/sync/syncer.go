// Package sync mirrors a remote folder into a local output directory.
//
// A Syncer lists the remote tree, builds a plan against the state index and
// applies it to the output directory. Progress is written back to the index
// even when a run fails half way, so the next run only does what is left.
package sync

import (
	"log/slog"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"

	"github.com/nubesync/nubesync/internal/clock"
	"github.com/nubesync/nubesync/internal/fsops"
	"github.com/nubesync/nubesync/internal/hash"
	"github.com/nubesync/nubesync/internal/logging"
	"github.com/nubesync/nubesync/internal/metrics"
	"github.com/nubesync/nubesync/internal/remote"
	"github.com/nubesync/nubesync/internal/state"
)

// DefaultLockTimeout bounds how long a run waits for the store lock.
const DefaultLockTimeout = 10 * time.Second

// FilesystemFunc returns the filesystem rooted at an output directory.
type FilesystemFunc func(outDir string) billy.Filesystem

// Syncer orchestrates sync, clear and backfill runs.
type Syncer struct {
	remote      remote.Remote
	fs          fsops.FS
	files       FilesystemFunc
	hasher      hash.Hasher
	stateFile   string
	lockTimeout time.Duration
	blackList   []string
	logger      *slog.Logger
	recorder    metrics.Recorder
	clock       clock.Clock
}

// Option configures a Syncer.
type Option func(*Syncer)

// WithFilesystem replaces the output directory filesystem (osfs by default).
func WithFilesystem(fn FilesystemFunc) Option {
	return func(s *Syncer) { s.files = fn }
}

// WithStateFile sets the state file name inside the output directory.
func WithStateFile(name string) Option {
	return func(s *Syncer) { s.stateFile = name }
}

func WithLockTimeout(d time.Duration) Option {
	return func(s *Syncer) { s.lockTimeout = d }
}

// WithBlackList sets the patterns of keys that are never created.
func WithBlackList(patterns []string) Option {
	return func(s *Syncer) { s.blackList = patterns }
}

func WithHasher(h hash.Hasher) Option {
	return func(s *Syncer) { s.hasher = h }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Syncer) { s.logger = l }
}

func WithRecorder(r metrics.Recorder) Option {
	return func(s *Syncer) { s.recorder = r }
}

func WithClock(c clock.Clock) Option {
	return func(s *Syncer) { s.clock = c }
}

// New creates a Syncer reading from rem.
func New(rem remote.Remote, opts ...Option) *Syncer {
	s := &Syncer{
		remote:      rem,
		fs:          fsops.NewRealFS(),
		files:       defaultFilesystem,
		hasher:      hash.NewBlake3Hasher(),
		stateFile:   state.DefaultFileName,
		lockTimeout: DefaultLockTimeout,
		clock:       clock.RealClock{},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = logging.OrDefault(s.logger)
	s.recorder = metrics.OrNoop(s.recorder)
	return s
}

func defaultFilesystem(outDir string) billy.Filesystem {
	return osfs.New(outDir, osfs.WithBoundOS())
}

// Store returns the state store of outDir.
func (s *Syncer) Store(outDir string) *state.FileStore {
	return state.NewFileStore(s.fs, s.hasher, outDir, s.stateFile)
}

// reserved lists the top-level names owned by the state store.
func (s *Syncer) reserved() []string {
	return []string{s.stateFile, s.stateFile + ".lock"}
}
