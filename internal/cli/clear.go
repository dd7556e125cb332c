package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/nubesync/nubesync/internal/notify"
)

func (a *app) clearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear <out>",
		Short: "Delete everything inside an output directory",
		Long: `Delete every file and folder inside an output directory, including the
index. The directory itself is kept.

For safety the command refuses to touch a directory that does not contain
an index file.`,
		Args: usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.setup("clear", false); err != nil {
				return err
			}
			dir, err := filepath.Abs(args[0])
			if err != nil {
				return fmt.Errorf("failed to resolve output directory: %w", err)
			}

			ctx := cmd.Context()
			run := a.newRun("clear", "", dir)
			res, err := a.newSyncer(a.cfg, nil).Clear(ctx, dir)
			if res != nil {
				run.Removed = len(res.Removed)
			}
			a.complete(&run, err)
			a.finish(ctx, run, notify.Event{Type: notify.EventClear, Removed: run.Removed})
			if err != nil {
				return err
			}

			if a.jsonOutput {
				return a.outputJSON(map[string]any{"out_dir": res.OutDir, "removed": res.Removed})
			}
			a.out().Success(fmt.Sprintf("Cleared %s (%s removed)", res.OutDir, Count(len(res.Removed), "entry", "entries")))
			return nil
		},
	}
}
