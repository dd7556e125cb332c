package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultPaths(t *testing.T) {
	t.Run("returns paths based on the XDG state directory", func(t *testing.T) {
		t.Setenv(EnvStateDir, "")

		paths, err := DefaultPaths()
		if err != nil {
			t.Fatalf("DefaultPaths failed: %v", err)
		}

		if filepath.Base(paths.StateDir) != "nubesync" {
			t.Errorf("StateDir should end with nubesync, got: %s", paths.StateDir)
		}
		if paths.Journal != filepath.Join(paths.StateDir, "journal.db") {
			t.Errorf("Journal path incorrect: got %s", paths.Journal)
		}
	})

	t.Run("respects NUBESYNC_STATE_DIR environment variable", func(t *testing.T) {
		customRoot := "/custom/nubesync/path"
		t.Setenv(EnvStateDir, customRoot)

		paths, err := DefaultPaths()
		if err != nil {
			t.Fatalf("DefaultPaths failed: %v", err)
		}
		if paths.StateDir != customRoot {
			t.Errorf("Expected StateDir=%s, got: %s", customRoot, paths.StateDir)
		}
	})
}

func TestEnsureDirectories(t *testing.T) {
	tmpDir := t.TempDir()
	paths := &Paths{StateDir: filepath.Join(tmpDir, "state", "nubesync")}

	if err := paths.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	info, err := os.Stat(paths.StateDir)
	if err != nil {
		t.Fatalf("Directory %s was not created: %v", paths.StateDir, err)
	}
	if !info.IsDir() {
		t.Errorf("%s is not a directory", paths.StateDir)
	}

	// Idempotent
	if err := paths.EnsureDirectories(); err != nil {
		t.Errorf("EnsureDirectories should be idempotent: %v", err)
	}
}

func TestJournalPath(t *testing.T) {
	t.Setenv(EnvStateDir, t.TempDir())

	cfg := Default()
	path, err := cfg.JournalPath()
	if err != nil {
		t.Fatalf("JournalPath failed: %v", err)
	}
	if filepath.Base(path) != "journal.db" {
		t.Errorf("unexpected default journal path %s", path)
	}

	cfg.Journal.Path = JournalOff
	if path, _ := cfg.JournalPath(); path != "" {
		t.Errorf("expected disabled journal, got %s", path)
	}

	cfg.Journal.Path = "/var/lib/nubesync/runs.db"
	if path, _ := cfg.JournalPath(); path != "/var/lib/nubesync/runs.db" {
		t.Errorf("expected explicit journal path, got %s", path)
	}
}
