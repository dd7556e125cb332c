package cli

import (
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	errs "github.com/nubesync/nubesync/internal/errors"
)

func TestExecute_Help(t *testing.T) {
	isolate(t)

	out := run(t, nil, "--help")
	if out.code != errs.ExitOK {
		t.Fatalf("exit code = %d, stderr = %q", out.code, out.stderr)
	}
	for _, want := range []string{"nubesync", "Synchronisation:", "State Management:", "sync", "migrate", "daemon"} {
		if !strings.Contains(out.stdout, want) {
			t.Errorf("expected help to contain %q, got:\n%s", want, out.stdout)
		}
	}
}

func TestExecute_Version(t *testing.T) {
	isolate(t)
	build := BuildInfo{Version: "1.2.3", Features: "version_migration"}

	out := execute(context.Background(), nil, build, "version")
	if out.code != errs.ExitOK {
		t.Fatalf("exit code = %d", out.code)
	}
	if got := strings.TrimSpace(out.stdout); got != "1.2.3 (features: version_migration)" {
		t.Errorf("version output = %q", got)
	}

	out = execute(context.Background(), nil, build, "--json", "version")
	var v map[string]string
	if err := json.Unmarshal([]byte(out.stdout), &v); err != nil {
		t.Fatalf("invalid JSON %q: %v", out.stdout, err)
	}
	if v["version"] != "1.2.3" || v["features"] != "version_migration" {
		t.Errorf("unexpected JSON version: %v", v)
	}

	out = execute(context.Background(), nil, BuildInfo{}, "--version")
	if strings.TrimSpace(out.stdout) != "dev" {
		t.Errorf("--version = %q, want dev", out.stdout)
	}
}

func TestExecute_UsageErrors(t *testing.T) {
	isolate(t)

	tests := []struct {
		name string
		args []string
	}{
		{"unknown command", []string{"bogus"}},
		{"missing remote", []string{"sync"}},
		{"too many arguments", []string{"sync", "a", "b"}},
		{"unknown flag", []string{"sync", "--bogus", "Photos"}},
		{"clear without directory", []string{"clear"}},
		{"non-positive limit", []string{"history", "--limit", "0"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := run(t, nil, tt.args...)
			if out.code != errs.ExitUsage {
				t.Errorf("exit code = %d, want %d (stderr %q)", out.code, errs.ExitUsage, out.stderr)
			}
			if !strings.HasPrefix(out.stderr, "Error: ") {
				t.Errorf("expected an error message, got %q", out.stderr)
			}
		})
	}
}

func TestExecute_ConfigErrors(t *testing.T) {
	isolate(t)

	t.Run("missing file", func(t *testing.T) {
		out := run(t, nil, "--config", filepath.Join(t.TempDir(), "none.toml"), "sync", "Photos")
		if out.code != errs.ExitConfig {
			t.Errorf("exit code = %d, want %d", out.code, errs.ExitConfig)
		}
		if !strings.Contains(out.stderr, "configuration error") {
			t.Errorf("unexpected stderr %q", out.stderr)
		}
	})

	t.Run("missing default file is required for sync", func(t *testing.T) {
		out := run(t, nil, "sync", "Photos")
		if out.code != errs.ExitConfig {
			t.Errorf("exit code = %d, want %d", out.code, errs.ExitConfig)
		}
	})

	t.Run("invalid value", func(t *testing.T) {
		cfg := writeConfig(t, "[log]\nlevel = \"loud\"\n")
		out := run(t, nil, "--config", cfg, "status")
		if out.code != errs.ExitConfig {
			t.Errorf("exit code = %d, want %d", out.code, errs.ExitConfig)
		}
	})

	t.Run("no output directory", func(t *testing.T) {
		cfg := writeConfig(t, "")
		out := run(t, &stubRemote{}, "--config", cfg, "sync", "Photos")
		if out.code != errs.ExitUsage {
			t.Errorf("exit code = %d, want %d", out.code, errs.ExitUsage)
		}
		if !strings.Contains(out.stderr, "no output directory") {
			t.Errorf("unexpected stderr %q", out.stderr)
		}
	})
}
