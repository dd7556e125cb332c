// Package daemon runs periodic syncs until it is told to stop.
//
// The startup gate (state version check or migration) runs exactly once
// before the first sync. Syncs are scheduled with gocron in singleton mode,
// so a slow run is never overlapped by the next tick. When a config path is
// given the file is watched and changes are applied without a restart.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/nubesync/nubesync/internal/config"
	"github.com/nubesync/nubesync/internal/logging"
)

// DefaultDebounce is how long the watcher waits for config writes to settle.
const DefaultDebounce = 2 * time.Second

// Options configures a Daemon.
type Options struct {
	// Interval between the starts of two syncs
	Interval time.Duration

	// Gate runs once before scheduling; an error stops the daemon
	Gate func(ctx context.Context) error

	// Sync performs one run. Errors are logged and the schedule continues.
	Sync func(ctx context.Context) error

	// ConfigPath is watched for changes when non-empty
	ConfigPath string

	// Reload applies a changed configuration
	Reload func(ctx context.Context, cfg *config.Config) error

	// Debounce overrides DefaultDebounce
	Debounce time.Duration

	Logger *slog.Logger
}

// Daemon schedules syncs.
type Daemon struct {
	opts   Options
	logger *slog.Logger

	mu        sync.Mutex
	interval  time.Duration
	scheduler gocron.Scheduler
	job       gocron.Job
	ctx       context.Context

	runs     atomic.Int64
	failures atomic.Int64
}

// New validates opts and creates a Daemon.
func New(opts Options) (*Daemon, error) {
	if opts.Sync == nil {
		return nil, errors.New("daemon: sync function is required")
	}
	if opts.Interval <= 0 {
		return nil, fmt.Errorf("daemon: interval must be positive, got %s", opts.Interval)
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	return &Daemon{
		opts:     opts,
		logger:   logging.OrDefault(opts.Logger),
		interval: opts.Interval,
	}, nil
}

// Run executes the gate, then syncs every interval until ctx is done.
func (d *Daemon) Run(ctx context.Context) error {
	if d.opts.Gate != nil {
		if err := d.opts.Gate(ctx); err != nil {
			return err
		}
	}

	scheduler, err := gocron.NewScheduler(
		gocron.WithLogger(d.logger),
		gocron.WithStopTimeout(time.Minute),
	)
	if err != nil {
		return fmt.Errorf("failed to create scheduler: %w", err)
	}

	d.mu.Lock()
	d.scheduler = scheduler
	d.ctx = ctx
	d.job, err = scheduler.NewJob(
		gocron.DurationJob(d.interval),
		gocron.NewTask(d.tick),
		d.jobOptions(ctx, true)...,
	)
	d.mu.Unlock()
	if err != nil {
		_ = scheduler.Shutdown()
		return fmt.Errorf("failed to schedule sync: %w", err)
	}

	var watcher *ConfigWatcher
	if d.opts.ConfigPath != "" {
		watcher, err = NewConfigWatcher(d.opts.ConfigPath, d.opts.Debounce, d.reload, d.logger)
		if err == nil {
			err = watcher.Start(ctx)
		}
		if err != nil {
			_ = scheduler.Shutdown()
			return err
		}
	}

	d.logger.Info("Starting daemon", slog.Duration("interval", d.interval))
	scheduler.Start()

	<-ctx.Done()

	d.logger.Info("Stopping daemon")
	if watcher != nil {
		watcher.Stop()
	}
	if err := scheduler.Shutdown(); err != nil {
		return fmt.Errorf("failed to stop scheduler: %w", err)
	}
	return nil
}

func (d *Daemon) jobOptions(ctx context.Context, immediately bool) []gocron.JobOption {
	opts := []gocron.JobOption{
		gocron.WithName("sync"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithContext(ctx),
	}
	if immediately {
		opts = append(opts, gocron.WithStartAt(gocron.WithStartImmediately()))
	}
	return opts
}

// tick is called by gocron; the context is cancelled on shutdown.
func (d *Daemon) tick(ctx context.Context) {
	n := d.runs.Add(1)
	log := d.logger.With(logging.Count(int(n)))
	log.Debug("Running scheduled sync")

	if err := d.opts.Sync(ctx); err != nil {
		d.failures.Add(1)
		if ctx.Err() != nil {
			log.Info("Scheduled sync interrupted", logging.Error(err))
			return
		}
		log.Error("Scheduled sync failed", logging.Error(err))
	}
}

// SetInterval reschedules the sync job. It only has an effect while Run is
// active.
func (d *Daemon) SetInterval(interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("daemon: interval must be positive, got %s", interval)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if interval == d.interval {
		return nil
	}
	d.interval = interval
	if d.scheduler == nil || d.job == nil {
		return nil
	}

	job, err := d.scheduler.Update(d.job.ID(), gocron.DurationJob(interval), gocron.NewTask(d.tick), d.jobOptions(d.ctx, false)...)
	if err != nil {
		return fmt.Errorf("failed to reschedule sync: %w", err)
	}
	d.job = job
	d.logger.Info("Rescheduled sync", slog.Duration("interval", interval))
	return nil
}

// Interval returns the current sync interval.
func (d *Daemon) Interval() time.Duration {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.interval
}

// Runs returns how many syncs were started.
func (d *Daemon) Runs() int {
	return int(d.runs.Load())
}

// Failures returns how many syncs returned an error.
func (d *Daemon) Failures() int {
	return int(d.failures.Load())
}

// reload applies cfg through the Reload hook and picks up a new interval.
func (d *Daemon) reload(ctx context.Context, cfg *config.Config) error {
	if d.opts.Reload != nil {
		if err := d.opts.Reload(ctx, cfg); err != nil {
			return err
		}
	}
	return d.SetInterval(cfg.Daemon.Interval.Duration)
}
