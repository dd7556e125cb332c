package cli

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/nubesync/nubesync/internal/persist"
	"github.com/nubesync/nubesync/internal/state"
)

type statusOutput struct {
	OutDir     string             `json:"out_dir"`
	StatePath  string             `json:"state_path"`
	Exists     bool               `json:"exists"`
	Version    int                `json:"version"`
	Target     int                `json:"target"`
	Pending    []string           `json:"pending,omitempty"`
	RemoteRoot string             `json:"remote_root,omitempty"`
	Files      int                `json:"files"`
	Dirs       int                `json:"dirs"`
	UpdatedAt  *time.Time         `json:"updated_at,omitempty"`
	Snapshots  []persist.Snapshot `json:"snapshots,omitempty"`
	Features   []string           `json:"features"`
}

func (a *app) statusCmd() *cobra.Command {
	var outDir string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the index of an output directory",
		Long: `Show the index format version, pending migration steps, the tracked remote
folder and entry counts of an output directory. Nothing is modified.`,
		Args: usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.setup("status", false); err != nil {
				return err
			}
			dir, err := a.resolveOutDir(outDir)
			if err != nil {
				return err
			}

			mst, err := a.migrator(a.cfg, dir, false, false).Status()
			if err != nil {
				return err
			}

			syncer := a.newSyncer(a.cfg, nil)
			out := statusOutput{
				OutDir:    dir,
				StatePath: syncer.Store(dir).Path(),
				Exists:    mst.Exists,
				Version:   mst.Version,
				Target:    mst.Target,
				Pending:   mst.Pending,
				Features:  a.caps.Names(),
			}
			if out.Features == nil {
				out.Features = []string{}
			}

			if mst.Exists && len(mst.Pending) == 0 {
				st, err := syncer.Status(dir)
				if err != nil && !errors.Is(err, state.ErrNotFound) {
					return err
				}
				out.RemoteRoot = st.RemoteRoot
				out.Files, out.Dirs = st.Files, st.Dirs
				if !st.UpdatedAt.IsZero() {
					out.UpdatedAt = &st.UpdatedAt
				}
			}

			if mst.Exists {
				snapshots, err := persist.NewSnapshotManager(a.fs, 0).List(out.StatePath)
				if err != nil {
					return err
				}
				out.Snapshots = snapshots
			}

			if a.jsonOutput {
				return a.outputJSON(out)
			}
			a.printStatus(out)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outDir, "out", "o", "", "Output directory (default: out_dir from the configuration)")

	return cmd
}

func (a *app) printStatus(out statusOutput) {
	p := a.out()
	p.Section("Output Directory")
	p.LabelValue("Path", out.OutDir)
	p.LabelValue("Index", out.StatePath)

	if !out.Exists {
		p.EmptyState("No index yet; the first sync creates it.")
		return
	}

	p.Section("Index")
	p.LabelValue("Version", fmt.Sprintf("%d (current %d)", out.Version, out.Target))
	if len(out.Pending) > 0 {
		p.LabelValueWithColor("Pending migration", strings.Join(out.Pending, ", "), warningColor)
		if len(out.Features) == 0 {
			p.Warning("State migration is not enabled in this build or configuration")
		}
		return
	}
	p.LabelValue("Remote folder", displayRoot(out.RemoteRoot))
	p.LabelValue("Entries", fmt.Sprintf("%s, %s", Count(out.Files, "file", "files"), Count(out.Dirs, "folder", "folders")))
	if out.UpdatedAt != nil {
		p.LabelValue("Last sync", out.UpdatedAt.Local().Format(time.DateTime))
	} else {
		p.LabelValue("Last sync", "never")
	}

	if len(out.Snapshots) > 0 {
		p.Section("Backups")
		items := make([]string, 0, len(out.Snapshots))
		for _, s := range out.Snapshots {
			items = append(items, fmt.Sprintf("v%d  %s", s.Version, s.Path))
		}
		p.List(items, 1)
	}
}
