package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	errs "github.com/nubesync/nubesync/internal/errors"
	"github.com/nubesync/nubesync/internal/journal"
)

func (a *app) historyCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent sync, migrate and clear runs",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.setup("history", false); err != nil {
				return err
			}
			if limit <= 0 {
				return errs.Usage("--limit must be positive, got %d", limit)
			}

			path, err := a.cfg.JournalPath()
			if err != nil {
				return err
			}
			if path == "" {
				if a.jsonOutput {
					return a.outputJSON([]journal.Run{})
				}
				a.out().EmptyState("The run journal is disabled ([journal] path = \"off\").")
				return nil
			}

			j, err := journal.Open(path)
			if err != nil {
				return err
			}
			a.journal = j

			runs, err := j.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}

			if a.jsonOutput {
				if runs == nil {
					runs = []journal.Run{}
				}
				return a.outputJSON(runs)
			}
			if len(runs) == 0 {
				a.out().EmptyState("No runs recorded yet.")
				return nil
			}

			rows := make([][]string, 0, len(runs))
			for _, r := range runs {
				rows = append(rows, []string{
					r.StartedAt.Local().Format(time.DateTime),
					r.Command,
					r.Outcome,
					displayRoot(r.Remote),
					r.OutDir,
					summary(r),
				})
			}
			a.out().Table([]string{"STARTED", "COMMAND", "OUTCOME", "REMOTE", "OUT DIR", "SUMMARY"}, rows)
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of runs to show")

	return cmd
}

// summary condenses the counters of r into one cell.
func summary(r journal.Run) string {
	switch r.Command {
	case "migrate":
		if len(r.Applied) == 0 {
			return "-"
		}
		return fmt.Sprintf("v%d -> v%d", r.FromVersion, r.ToVersion)
	case "clear":
		return Count(r.Removed, "entry", "entries") + " removed"
	default:
		if r.Error != "" {
			return r.Error
		}
		return fmt.Sprintf("+%d dirs, %d downloads, -%d", r.Created, r.Downloaded, r.Removed)
	}
}
