package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nubesync/nubesync/internal/config"
	"github.com/nubesync/nubesync/internal/journal"
	"github.com/nubesync/nubesync/internal/migrate"
	"github.com/nubesync/nubesync/internal/notify"
	"github.com/nubesync/nubesync/internal/remote"
	"github.com/nubesync/nubesync/internal/sync"
)

// syncOutput is the JSON form of a sync run.
type syncOutput struct {
	Remote     string         `json:"remote"`
	OutDir     string         `json:"out_dir"`
	DryRun     bool           `json:"dry_run"`
	Removed    int            `json:"removed"`
	Created    int            `json:"created"`
	Downloaded int            `json:"downloaded"`
	Bytes      int64          `json:"bytes"`
	Unchanged  int            `json:"unchanged"`
	Skipped    []string       `json:"skipped,omitempty"`
	Conflicts  []string       `json:"conflicts,omitempty"`
	Operations []syncOpOutput `json:"operations,omitempty"`
	Migrated   []string       `json:"migrated,omitempty"`
}

type syncOpOutput struct {
	Type   string `json:"type"`
	Key    string `json:"key"`
	Status string `json:"status"`
}

func (a *app) syncCmd() *cobra.Command {
	var (
		outDir string
		dryRun bool
	)

	cmd := &cobra.Command{
		Use:   "sync <remote>",
		Short: "Mirror a remote folder into the output directory",
		Long: `Mirror a remote folder into the output directory.

Files and folders that disappeared from the server are removed locally, new
ones are created and files whose modification time changed are downloaded
again. Paths matching black_list are never downloaded.

If the index was written by an older nubesync, the command fails with
"migration required" unless state migration is enabled and [migration] auto
is set.`,
		Args: usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.setup("sync", true); err != nil {
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

			var migrated *migrate.Result
			if !dryRun {
				migrated, err = a.gate(ctx, a.cfg, rem, dir, root)
				if err != nil {
					a.recordSync(ctx, a.newRun("sync", root, dir), nil, migrated, err)
					return err
				}
			}

			res, err := a.runSync(ctx, a.cfg, rem, sync.Request{OutDir: dir, Root: root, DryRun: dryRun}, migrated)
			if err != nil {
				return err
			}
			return a.printSync(res, root, dir, migrated)
		},
	}

	cmd.Flags().StringVarP(&outDir, "out", "o", "", "Output directory (default: out_dir from the configuration)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Show the plan without changing anything")

	return cmd
}

// runSync performs one sync and records it. The migration gate must have
// run before.
func (a *app) runSync(ctx context.Context, cfg *config.Config, rem remote.Remote, req sync.Request, migrated *migrate.Result) (*sync.Result, error) {
	run := a.newRun("sync", req.Root, req.OutDir)
	res, err := a.newSyncer(cfg, rem).Sync(ctx, req)
	if !req.DryRun {
		a.recordSync(ctx, run, res, migrated, err)
	}
	return res, err
}

func (a *app) recordSync(ctx context.Context, run journal.Run, res *sync.Result, migrated *migrate.Result, err error) {
	event := notify.Event{Type: notify.EventSync}
	if migrated != nil && migrated.Migrated() {
		run.FromVersion, run.ToVersion, run.Applied = migrated.From, migrated.To, migrated.Applied
		event.FromVersion, event.ToVersion = migrated.From, migrated.To
	}
	if res != nil {
		run.Removed, run.Created, run.Downloaded = res.Removed, res.Created, res.Downloaded
		run.Skipped = res.Skipped() + res.Conflicts()
		if res.Failed != "" {
			run.Failed = 1
		}
		event.Removed, event.Created, event.Downloaded = res.Removed, res.Created, res.Downloaded
	}
	a.complete(&run, err)
	a.finish(ctx, run, event)
}

func (a *app) printSync(res *sync.Result, root, outDir string, migrated *migrate.Result) error {
	out := syncOutput{
		Remote:     root,
		OutDir:     outDir,
		DryRun:     res.DryRun,
		Removed:    res.Removed,
		Created:    res.Created,
		Downloaded: res.Downloaded,
		Bytes:      res.Bytes,
	}
	if migrated != nil {
		out.Migrated = migrated.Applied
	}
	if res.Plan != nil {
		out.Unchanged = res.Plan.Unchanged
		for _, s := range res.Plan.Skipped {
			out.Skipped = append(out.Skipped, s.Key)
		}
		for _, c := range res.Plan.Conflicts {
			out.Conflicts = append(out.Conflicts, fmt.Sprintf("%s: %s", c.Key, c.Reason))
		}
		if res.DryRun {
			for _, op := range res.Plan.Operations {
				out.Operations = append(out.Operations, syncOpOutput{Type: op.Type, Key: op.Key, Status: op.Status.String()})
			}
		}
	}

	if a.jsonOutput {
		return a.outputJSON(out)
	}

	p := a.out()
	if len(out.Migrated) > 0 {
		p.Info(fmt.Sprintf("Migrated state: %s", strings.Join(out.Migrated, ", ")))
	}
	if len(out.Conflicts) > 0 {
		p.Warning(fmt.Sprintf("%s not synchronised:", Count(len(out.Conflicts), "path", "paths")))
		p.List(out.Conflicts, 2)
	}

	if res.DryRun {
		if len(out.Operations) == 0 {
			p.EmptyState("Nothing to do, the output directory is up to date.")
			return nil
		}
		p.Section("Plan")
		rows := make([][]string, 0, len(out.Operations))
		for _, op := range out.Operations {
			rows = append(rows, []string{op.Type, op.Key, op.Status})
		}
		p.Table([]string{"OPERATION", "KEY", "STATUS"}, rows)
		return nil
	}

	p.Success(fmt.Sprintf("Synchronised %s into %s", displayRoot(root), outDir))
	p.LabelValue("Downloaded", fmt.Sprintf("%s (%d bytes)", Count(out.Downloaded, "file", "files"), out.Bytes))
	p.LabelValue("Created", Count(out.Created, "folder", "folders"))
	p.LabelValue("Removed", Count(out.Removed, "path", "paths"))
	p.LabelValue("Unchanged", Count(out.Unchanged, "path", "paths"))
	if len(out.Skipped) > 0 {
		p.LabelValue("Skipped", Count(len(out.Skipped), "path", "paths"))
	}
	return nil
}

// displayRoot renders the server root as "/".
func displayRoot(root string) string {
	if root == "" {
		return "/"
	}
	return root
}
