package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	"github.com/nubesync/nubesync/internal/clock"
	"github.com/nubesync/nubesync/internal/config"
	errs "github.com/nubesync/nubesync/internal/errors"
	"github.com/nubesync/nubesync/internal/fsops"
	"github.com/nubesync/nubesync/internal/hash"
	"github.com/nubesync/nubesync/internal/journal"
	"github.com/nubesync/nubesync/internal/logging"
	"github.com/nubesync/nubesync/internal/metrics"
	"github.com/nubesync/nubesync/internal/notify"
	"github.com/nubesync/nubesync/internal/remote"
	"github.com/nubesync/nubesync/internal/retry"
	"github.com/nubesync/nubesync/internal/sync"
)

// app holds the global flags and the services of one invocation.
type app struct {
	build  BuildInfo
	stdout io.Writer
	stderr io.Writer

	// Global flags
	configPath string
	verbose    bool
	jsonOutput bool

	cfg      *config.Config
	caps     config.Capabilities
	logger   *slog.Logger
	runID    string
	recorder *metrics.PrometheusRecorder
	journal  journal.Journal
	notifier notify.Notifier

	// cmdLogger is logger without the run ID
	cmdLogger *slog.Logger

	fs     fsops.FS
	hasher hash.Hasher
	clock  clock.Clock

	// newRemote builds the WebDAV client for cfg
	newRemote func(cfg *config.Config) (remote.Remote, error)
}

func newApp(build BuildInfo, stdout, stderr io.Writer) *app {
	a := &app{
		build:  build,
		stdout: stdout,
		stderr: stderr,
		fs:     fsops.NewRealFS(),
		hasher: hash.NewBlake3Hasher(),
		clock:  clock.RealClock{},
	}
	a.logger = slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	a.newRemote = a.webdavRemote
	return a
}

func (a *app) out() printer {
	return printer{w: a.stdout}
}

// setup loads the configuration and prepares logging and metrics for
// command. Commands that never talk to the server accept a missing
// default configuration file.
func (a *app) setup(command string, requireConfig bool) error {
	cfg, err := config.Load(config.ResolvePath(a.configPath))
	if err != nil {
		if requireConfig || a.configPath != "" || !errors.Is(err, config.ErrNotFound) {
			return err
		}
		cfg = config.Default()
		config.ApplyEnv(cfg)
	}
	a.cfg = cfg
	a.caps = config.ResolveCapabilities(a.build.Features, cfg)

	logger, err := logging.New(a.stderr, cfg.Log.Level, cfg.Log.Format, a.verbose)
	if err != nil {
		return fmt.Errorf("%w: %v", config.ErrInvalid, err)
	}
	a.cmdLogger = logger.With(logging.Command(command))
	a.startRun()

	if cfg.Metrics.Textfile != "" {
		a.recorder = metrics.NewPrometheusRecorder(nil)
	}

	a.logger.Debug("Loaded configuration",
		logging.Path(cfg.Path()),
		slog.Any("features", a.caps.Names()))
	return nil
}

// startRun assigns a new run ID and rebuilds the logger around it.
func (a *app) startRun() {
	a.runID = journal.NewRunID()
	a.logger = a.cmdLogger.With(logging.RunID(a.runID))
}

// metrics returns the active recorder.
func (a *app) metrics() metrics.Recorder {
	if a.recorder == nil {
		return metrics.NoopRecorder{}
	}
	return a.recorder
}

// resolveOutDir picks --out, then out_dir from the configuration.
func (a *app) resolveOutDir(flag string) (string, error) {
	dir := flag
	if dir == "" {
		dir = a.cfg.OutDir
	}
	if dir == "" {
		return "", errs.Usage("no output directory: pass --out or set out_dir in the configuration")
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve output directory: %w", err)
	}
	return abs, nil
}

func (a *app) webdavRemote(cfg *config.Config) (remote.Remote, error) {
	host, err := cfg.HostURL()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", config.ErrInvalid, err)
	}
	return remote.NewWebDAV(remote.Options{
		Host:     host,
		Username: cfg.Username,
		Password: cfg.Password,
		Retry:    retry.FromConfig(cfg.Retry),
		Logger:   a.logger,
		Recorder: a.metrics(),
	}), nil
}

func (a *app) newSyncer(cfg *config.Config, rem remote.Remote) *sync.Syncer {
	return sync.New(rem,
		sync.WithStateFile(cfg.State.File),
		sync.WithLockTimeout(cfg.State.LockTimeout.Duration),
		sync.WithBlackList(cfg.BlackList),
		sync.WithHasher(a.hasher),
		sync.WithLogger(a.logger),
		sync.WithRecorder(a.metrics()),
		sync.WithClock(a.clock),
	)
}

// openJournal opens the run journal once. Failures disable the journal for
// this invocation rather than failing the command.
func (a *app) openJournal() journal.Journal {
	if a.journal != nil {
		return a.journal
	}
	a.journal = journal.Noop{}

	path, err := a.cfg.JournalPath()
	if err != nil {
		a.logger.Warn("Run journal disabled", logging.Error(err))
		return a.journal
	}
	if path == "" {
		return a.journal
	}
	j, err := journal.Open(path)
	if err != nil {
		a.logger.Warn("Run journal disabled", logging.Path(path), logging.Error(err))
		return a.journal
	}
	a.journal = j
	return a.journal
}

func (a *app) openNotifier() notify.Notifier {
	if a.notifier != nil {
		return a.notifier
	}
	a.notifier = notify.Noop{}
	if a.cfg.Notify.NatsURL == "" {
		return a.notifier
	}
	n, err := notify.NewNATSNotifier(a.cfg.Notify.NatsURL, a.cfg.Notify.Subject, a.logger)
	if err != nil {
		a.logger.Warn("Notifications disabled", logging.Error(err))
		return a.notifier
	}
	a.notifier = n
	return a.notifier
}

// finish records run in the journal, publishes its event and flushes the
// metrics textfile. None of these can fail the command.
func (a *app) finish(ctx context.Context, run journal.Run, event notify.Event) {
	ctx = context.WithoutCancel(ctx)

	if err := a.openJournal().Record(ctx, run); err != nil {
		a.logger.Warn("Failed to record run", logging.Error(err))
	}

	event.RunID = run.ID
	event.Remote = run.Remote
	event.OutDir = run.OutDir
	event.Outcome = run.Outcome
	event.Error = run.Error
	event.Timestamp = run.FinishedAt
	if err := a.openNotifier().Notify(ctx, event); err != nil {
		a.logger.Warn("Failed to publish event", logging.Error(err))
	}

	if a.recorder != nil {
		if err := a.recorder.WriteTextfile(a.cfg.Metrics.Textfile); err != nil {
			a.logger.Warn("Failed to write metrics", logging.Error(err))
		}
	}
}

// newRun starts a journal entry for command.
func (a *app) newRun(command, root, outDir string) journal.Run {
	return journal.Run{
		ID:        a.runID,
		Command:   command,
		Remote:    root,
		OutDir:    outDir,
		StartedAt: a.clock.Now(),
	}
}

// complete stamps the end time and outcome of run.
func (a *app) complete(run *journal.Run, err error) {
	run.FinishedAt = a.clock.Now()
	if err != nil {
		run.Outcome = string(errs.GetCategory(err))
		run.Error = err.Error()
		return
	}
	run.Outcome = string(metrics.OutcomeSuccess)
}

func (a *app) close() {
	if a.journal != nil {
		if err := a.journal.Close(); err != nil {
			a.logger.Warn("Failed to close run journal", logging.Error(err))
		}
	}
	if a.notifier != nil {
		a.notifier.Close()
	}
}

// outputJSON writes v as indented JSON to stdout.
func (a *app) outputJSON(v any) error {
	enc := json.NewEncoder(a.stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
