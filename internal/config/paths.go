package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
)

// EnvStateDir overrides the directory holding nubesync's own data.
const EnvStateDir = "NUBESYNC_STATE_DIR"

// Paths contains the filesystem locations nubesync uses outside output
// directories.
type Paths struct {
	// StateDir is the base directory for nubesync data
	// (default: $XDG_STATE_HOME/nubesync)
	StateDir string

	// Journal is the default run journal database
	Journal string
}

// DefaultPaths returns the default paths for nubesync.
// Paths can be overridden with environment variables:
// - NUBESYNC_STATE_DIR: Override the state directory
func DefaultPaths() (*Paths, error) {
	root := os.Getenv(EnvStateDir)
	if root == "" {
		if xdg.StateHome == "" {
			return nil, fmt.Errorf("failed to resolve XDG state directory")
		}
		root = filepath.Join(xdg.StateHome, "nubesync")
	}

	return &Paths{
		StateDir: root,
		Journal:  filepath.Join(root, "journal.db"),
	}, nil
}

// EnsureDirectories creates all necessary directories if they don't exist.
func (p *Paths) EnsureDirectories() error {
	if err := os.MkdirAll(p.StateDir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", p.StateDir, err)
	}
	return nil
}

// JournalPath returns the journal database to use, or "" when disabled.
func (c *Config) JournalPath() (string, error) {
	switch c.Journal.Path {
	case JournalOff:
		return "", nil
	case "":
		paths, err := DefaultPaths()
		if err != nil {
			return "", err
		}
		if err := paths.EnsureDirectories(); err != nil {
			return "", err
		}
		return paths.Journal, nil
	default:
		return c.Journal.Path, nil
	}
}
