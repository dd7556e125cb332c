// Package cli implements the nubesync command line.
package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	errs "github.com/nubesync/nubesync/internal/errors"
)

var (
	// Colors for help output sections
	groupTitleColor   = color.New(color.FgCyan, color.Bold)
	sectionTitleColor = color.New(color.FgBlue, color.Bold)
)

// BuildInfo is stamped into the binary with -ldflags.
type BuildInfo struct {
	Version string

	// Features is a comma separated list of compiled-in capabilities
	Features string
}

// Execute runs the command line with args and returns the exit code.
func Execute(ctx context.Context, build BuildInfo, args []string, stdout, stderr io.Writer) int {
	return newApp(build, stdout, stderr).execute(ctx, args)
}

func (a *app) execute(ctx context.Context, args []string) int {
	defer a.close()

	root := a.rootCommand()
	root.SetArgs(args)
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)

	err := root.ExecuteContext(ctx)
	if err == nil {
		return errs.ExitOK
	}
	return errs.NewCLIErrorAdapter(a.verbose, a.logger).Handle(a.stderr, err)
}

// rootCommand builds the command tree for a.
func (a *app) rootCommand() *cobra.Command {
	version := a.build.Version
	if version == "" {
		version = "dev"
	}

	rootCmd := &cobra.Command{
		Use:     "nubesync",
		Version: version,
		Short:   "One-way WebDAV folder mirror",
		Long: `nubesync mirrors a folder of a WebDAV server (Nextcloud, ownCloud, ...) into a
local directory. An index file (.sync) inside the directory records what was
downloaded, so only changes are transferred on the next run.`,
		Args:          usageArgs(cobra.NoArgs),
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	rootCmd.SetVersionTemplate("{{.Version}}\n")
	rootCmd.SetHelpFunc(customHelpFunc)
	rootCmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return errs.Usage("%v", err)
	})

	// Global flags
	rootCmd.PersistentFlags().StringVar(&a.configPath, "config", "", "Configuration file (default $NUBESYNC_CONFIG or ./nube-sync.config.toml)")
	rootCmd.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&a.jsonOutput, "json", false, "Output in JSON format")

	rootCmd.AddGroup(&cobra.Group{
		ID:    "sync",
		Title: "Synchronisation:",
	})
	rootCmd.AddGroup(&cobra.Group{
		ID:    "state",
		Title: "State Management:",
	})
	rootCmd.AddGroup(&cobra.Group{
		ID:    "cli-tooling",
		Title: "CLI & Tooling:",
	})

	for _, cmd := range []*cobra.Command{a.syncCmd(), a.daemonCmd(), a.clearCmd()} {
		cmd.GroupID = "sync"
		rootCmd.AddCommand(cmd)
	}
	for _, cmd := range []*cobra.Command{a.migrateCmd(), a.statusCmd(), a.historyCmd()} {
		cmd.GroupID = "state"
		rootCmd.AddCommand(cmd)
	}

	versionCmd := &cobra.Command{
		Use:     "version",
		Short:   "Print the nubesync version and build features",
		Args:    usageArgs(cobra.NoArgs),
		GroupID: "cli-tooling",
		RunE: func(cmd *cobra.Command, args []string) error {
			features := strings.TrimSpace(a.build.Features)
			if a.jsonOutput {
				return a.outputJSON(map[string]string{"version": version, "features": features})
			}
			if features == "" {
				features = "none"
			}
			fmt.Fprintf(a.stdout, "%s (features: %s)\n", version, features)
			return nil
		},
	}
	rootCmd.AddCommand(versionCmd)

	helpCmd := &cobra.Command{
		Use:     "help [command]",
		Short:   "Help about any command",
		GroupID: "cli-tooling",
		Run: func(cmd *cobra.Command, args []string) {
			target, _, err := cmd.Root().Find(args)
			if err != nil || target == nil {
				target = cmd.Root()
			}
			_ = target.Help()
		},
	}
	rootCmd.SetHelpCommand(helpCmd)

	completionCmd := &cobra.Command{
		Use:     "completion",
		Short:   "Generate the autocompletion script for the specified shell",
		GroupID: "cli-tooling",
		Long: `Generate the autocompletion script for nubesync for the specified shell.
See each sub-command's help for details on how to use the generated script.`,
	}
	completionCmd.AddCommand(&cobra.Command{
		Use:                   "bash",
		Short:                 "Generate the autocompletion script for bash",
		DisableFlagsInUseLine: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootCmd.GenBashCompletion(a.stdout)
		},
	})
	completionCmd.AddCommand(&cobra.Command{
		Use:                   "zsh",
		Short:                 "Generate the autocompletion script for zsh",
		DisableFlagsInUseLine: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootCmd.GenZshCompletion(a.stdout)
		},
	})
	completionCmd.AddCommand(&cobra.Command{
		Use:                   "fish",
		Short:                 "Generate the autocompletion script for fish",
		DisableFlagsInUseLine: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootCmd.GenFishCompletion(a.stdout, true)
		},
	})
	rootCmd.AddCommand(completionCmd)

	return rootCmd
}

// usageArgs makes argument validation failures usage errors.
func usageArgs(validate cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := validate(cmd, args); err != nil {
			return errs.Usage("%v", err)
		}
		return nil
	}
}

// customHelpFunc colors group titles
func customHelpFunc(cmd *cobra.Command, args []string) {
	var help strings.Builder

	if cmd.Long != "" {
		help.WriteString(cmd.Long)
		help.WriteString("\n\n")
	} else if cmd.Short != "" {
		help.WriteString(cmd.Short)
		help.WriteString("\n\n")
	}

	help.WriteString(sectionTitleColor.Sprint("Usage:"))
	help.WriteString("\n")
	fmt.Fprintf(&help, "  %s\n\n", cmd.UseLine())

	for _, group := range cmd.Groups() {
		help.WriteString(groupTitleColor.Sprint(group.Title))
		help.WriteString("\n")

		for _, c := range cmd.Commands() {
			if c.GroupID == group.ID && !c.Hidden {
				fmt.Fprintf(&help, "  %-11s %s\n", c.Name(), c.Short)
			}
		}
		help.WriteString("\n")
	}

	// Ungrouped commands
	hasUngrouped := false
	for _, c := range cmd.Commands() {
		if c.GroupID == "" && !c.Hidden {
			if !hasUngrouped {
				help.WriteString(sectionTitleColor.Sprint("Additional Commands:"))
				help.WriteString("\n")
				hasUngrouped = true
			}
			fmt.Fprintf(&help, "  %-11s %s\n", c.Name(), c.Short)
		}
	}
	if hasUngrouped {
		help.WriteString("\n")
	}

	if cmd.HasAvailableLocalFlags() || cmd.HasAvailablePersistentFlags() {
		help.WriteString(sectionTitleColor.Sprint("Flags:"))
		help.WriteString("\n")
		help.WriteString(cmd.LocalFlags().FlagUsages())
		help.WriteString(cmd.InheritedFlags().FlagUsages())
		help.WriteString("\n")
	}

	fmt.Fprintf(&help, "Use \"%s [command] --help\" for more information about a command.\n", cmd.CommandPath())

	fmt.Fprint(cmd.OutOrStdout(), help.String())
}
