package errors

import (
	"context"
	"fmt"
	"io"
	"log/slog"
)

// Exit codes returned by the nubesync binary.
const (
	ExitOK                = 0
	ExitGeneral           = 1
	ExitUsage             = 2
	ExitMigrationFailed   = 3
	ExitStateTooNew       = 4
	ExitMigrationRequired = 5
	ExitLocked            = 6
	ExitConfig            = 7
	ExitNetwork           = 8
	ExitCorrupt           = 9
)

// ExitCode maps err to the process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	switch GetCategory(err) {
	case CategoryUsage:
		return ExitUsage
	case CategoryMigration:
		return ExitMigrationFailed
	case CategoryStateTooNew:
		return ExitStateTooNew
	case CategoryMigrationRequired:
		return ExitMigrationRequired
	case CategoryLocked:
		return ExitLocked
	case CategoryConfig:
		return ExitConfig
	case CategoryNetwork:
		return ExitNetwork
	case CategoryCorrupt:
		return ExitCorrupt
	default:
		return ExitGeneral
	}
}

// CLIErrorAdapter handles error presentation and exit code determination for CLI applications.
type CLIErrorAdapter struct {
	verbose bool
	logger  *slog.Logger
}

// NewCLIErrorAdapter creates a new CLI error adapter.
func NewCLIErrorAdapter(verbose bool, logger *slog.Logger) *CLIErrorAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &CLIErrorAdapter{
		verbose: verbose,
		logger:  logger,
	}
}

// FormatError formats an error for user-friendly display.
func (a *CLIErrorAdapter) FormatError(err error) string {
	if err == nil {
		return ""
	}
	e, _ := As(Classify(err))

	msg := e.Error()
	if e.Category == CategoryInternal && e.Cause != nil && !a.verbose {
		msg = e.Cause.Error()
	}
	if e.Hint != "" {
		msg += "\nhint: " + e.Hint
	}
	return msg
}

// Handle prints err to w, logs it when verbose and returns the exit code.
func (a *CLIErrorAdapter) Handle(w io.Writer, err error) int {
	if err == nil {
		return ExitOK
	}
	classified := Classify(err)
	if a.verbose {
		e, _ := As(classified)
		a.logger.LogAttrs(context.Background(), slog.LevelDebug, "Command failed",
			slog.String("category", string(e.Category)),
			slog.String("error", err.Error()))
	}
	fmt.Fprintf(w, "Error: %s\n", a.FormatError(classified))
	return ExitCode(classified)
}
