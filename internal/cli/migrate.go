package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nubesync/nubesync/internal/migrate"
	"github.com/nubesync/nubesync/internal/notify"
	"github.com/nubesync/nubesync/internal/remote"
	"github.com/nubesync/nubesync/internal/sync"
)

type migrateOutput struct {
	OutDir   string   `json:"out_dir"`
	From     int      `json:"from"`
	To       int      `json:"to"`
	Applied  []string `json:"applied"`
	Fresh    bool     `json:"fresh"`
	Snapshot string   `json:"snapshot,omitempty"`
	Filled   int      `json:"backfilled"`
	Missing  int      `json:"missing"`
}

func (a *app) migrateCmd() *cobra.Command {
	var (
		outDir   string
		offline  bool
		noBackup bool
	)

	cmd := &cobra.Command{
		Use:   "migrate <remote>",
		Short: "Upgrade the index of an output directory to the current format",
		Long: `Upgrade the index of an output directory to the current format.

Each step is written to disk before the next one starts, so an interrupted
migration resumes where it stopped. A copy of the original index is kept as
.sync.v<N>.bak unless --no-backup is given or [state] backup is off.

Older indexes do not know when files were modified. Unless --offline is
given, those times are read from the server afterwards so the next sync
does not download everything again.

Migration must be enabled: build with the version_migration feature, set
NUBESYNC_FEATURES=version_migration or set [migration] enabled = true.`,
		Args: usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.setup("migrate", true); err != nil {
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
			ctx := cmd.Context()

			run := a.newRun("migrate", root, dir)
			event := notify.Event{Type: notify.EventMigrate}

			res, err := a.migrator(a.cfg, dir, a.caps.Migration, !noBackup).Run(ctx, a.migrationEnv(rem, dir, root))
			if res != nil {
				run.FromVersion, run.ToVersion, run.Applied = res.From, res.To, res.Applied
				event.FromVersion, event.ToVersion = res.From, res.To
			}

			var filled *sync.BackfillResult
			if err == nil && !offline {
				filled, err = a.newSyncer(a.cfg, rem).Backfill(ctx, dir, root)
			}
			a.complete(&run, err)
			a.finish(ctx, run, event)
			if err != nil {
				return err
			}

			return a.printMigrate(dir, res, filled)
		},
	}

	cmd.Flags().StringVarP(&outDir, "out", "o", "", "Output directory (default: out_dir from the configuration)")
	cmd.Flags().BoolVar(&offline, "offline", false, "Do not contact the server to fill in modification times")
	cmd.Flags().BoolVar(&noBackup, "no-backup", false, "Do not keep a copy of the original index")

	return cmd
}

func (a *app) printMigrate(dir string, res *migrate.Result, filled *sync.BackfillResult) error {
	out := migrateOutput{
		OutDir:   dir,
		From:     res.From,
		To:       res.To,
		Applied:  res.Applied,
		Fresh:    res.Fresh,
		Snapshot: res.Snapshot,
	}
	if out.Applied == nil {
		out.Applied = []string{}
	}
	if filled != nil {
		out.Filled, out.Missing = filled.Filled, filled.Missing
	}

	if a.jsonOutput {
		return a.outputJSON(out)
	}

	p := a.out()
	switch {
	case res.Fresh:
		p.Success(fmt.Sprintf("Created a new index at version %d", res.To))
		return nil
	case !res.Migrated():
		p.Success(fmt.Sprintf("Index is already at version %d", res.To))
		return nil
	}

	p.Success(fmt.Sprintf("Migrated index from version %d to %d", res.From, res.To))
	p.LabelValue("Steps", strings.Join(res.Applied, ", "))
	if res.Snapshot != "" {
		p.LabelValue("Backup", res.Snapshot)
	}
	if filled != nil {
		p.LabelValue("Modification times", fmt.Sprintf("%d filled, %d missing on the server", filled.Filled, filled.Missing))
	}
	return nil
}
