package cli

import (
	"context"
	"fmt"
	"log/slog"
	stdsync "sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/nubesync/nubesync/internal/config"
	"github.com/nubesync/nubesync/internal/daemon"
	"github.com/nubesync/nubesync/internal/logging"
	"github.com/nubesync/nubesync/internal/remote"
	"github.com/nubesync/nubesync/internal/sync"
)

// daemonTarget is the configuration used by the next sync.
type daemonTarget struct {
	mu  stdsync.Mutex
	cfg *config.Config
}

func (t *daemonTarget) get() *config.Config {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cfg
}

func (t *daemonTarget) set(cfg *config.Config) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cfg = cfg
}

func (a *app) daemonCmd() *cobra.Command {
	var (
		outDir   string
		interval time.Duration
	)

	cmd := &cobra.Command{
		Use:   "daemon <remote>",
		Short: "Keep the output directory in sync until stopped",
		Long: `Keep the output directory in sync until stopped with SIGINT or SIGTERM.

The state version is checked (or migrated, see 'nubesync migrate') once at
startup. A sync then runs immediately and every interval; a run that takes
longer than the interval delays the next one instead of overlapping it.

When [daemon] watch_config is set, changes to the configuration file are
applied without a restart, including a new interval.`,
		Args: usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.setup("daemon", true); err != nil {
				return err
			}
			dir, err := a.resolveOutDir(outDir)
			if err != nil {
				return err
			}
			rem, err := a.newRemote(a.cfg)
			if err != nil {
				return err
			}
			root := remote.NormalizeRoot(args[0])
			if interval <= 0 {
				interval = a.cfg.Daemon.Interval.Duration
			}

			target := &daemonTarget{cfg: a.cfg}

			opts := daemon.Options{
				Interval: interval,
				Logger:   a.cmdLogger.With(logging.Remote(root), logging.Path(dir)),
				Gate: func(ctx context.Context) error {
					migrated, err := a.gate(ctx, target.get(), rem, dir, root)
					if err != nil {
						a.recordSync(ctx, a.newRun("sync", root, dir), nil, migrated, err)
					}
					return err
				},
				Sync: func(ctx context.Context) error {
					a.startRun()
					cfg := target.get()
					// The client logs with the run ID of the tick.
					rem, err := a.newRemote(cfg)
					if err != nil {
						return err
					}
					res, err := a.runSync(ctx, cfg, rem, sync.Request{OutDir: dir, Root: root}, nil)
					if err != nil {
						return fmt.Errorf("run %s: %w", a.runID, err)
					}
					a.logger.With(logging.Remote(root), logging.Path(dir)).Info("Sync finished",
						slog.Int("removed", res.Removed),
						slog.Int("created", res.Created),
						slog.Int("downloaded", res.Downloaded),
						logging.Duration(res.Duration))
					return nil
				},
				Reload: func(_ context.Context, cfg *config.Config) error {
					if _, err := cfg.HostURL(); err != nil {
						return fmt.Errorf("%w: %v", config.ErrInvalid, err)
					}
					target.set(cfg)
					return nil
				},
			}
			if a.cfg.Daemon.WatchConfig && a.cfg.Path() != "" {
				opts.ConfigPath = a.cfg.Path()
			}

			d, err := daemon.New(opts)
			if err != nil {
				return err
			}
			return d.Run(cmd.Context())
		},
	}

	cmd.Flags().StringVarP(&outDir, "out", "o", "", "Output directory (default: out_dir from the configuration)")
	cmd.Flags().DurationVar(&interval, "interval", 0, "Time between syncs (default: daemon.interval from the configuration)")

	return cmd
}
