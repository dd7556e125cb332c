package errors

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/nubesync/nubesync/internal/config"
	"github.com/nubesync/nubesync/internal/fsops"
	"github.com/nubesync/nubesync/internal/hash"
	"github.com/nubesync/nubesync/internal/logging"
	"github.com/nubesync/nubesync/internal/migrate"
	"github.com/nubesync/nubesync/internal/remote"
	"github.com/nubesync/nubesync/internal/state"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitOK},
		{"plain", stderrors.New("boom"), ExitGeneral},
		{"usage", Usage("missing argument"), ExitUsage},
		{"step failure", fmt.Errorf("run: %w", &migrate.StepError{Step: "x", Err: stderrors.New("io")}), ExitMigrationFailed},
		{"missing step", fmt.Errorf("plan: %w", migrate.ErrMissingStep), ExitMigrationFailed},
		{"too new", &state.VersionError{Found: 9, Expected: 3}, ExitStateTooNew},
		{"outdated", &state.VersionError{Found: 1, Expected: 3}, ExitMigrationRequired},
		{"steps disabled", fmt.Errorf("%w: %w", migrate.ErrStepsDisabled, &state.VersionError{Found: 1, Expected: 3}), ExitMigrationRequired},
		{"locked", fmt.Errorf("failed to lock state: %w", fsops.ErrLocked), ExitLocked},
		{"config", fmt.Errorf("x.toml: %w", config.ErrInvalid), ExitConfig},
		{"network", fmt.Errorf("list: %w", remote.ErrUnreachable), ExitNetwork},
		{"corrupt", fmt.Errorf("load: %w", state.ErrCorrupt), ExitCorrupt},
		{"remote mismatch", state.ErrRemoteMismatch, ExitUsage},
		{"not a sync directory", fmt.Errorf("/tmp/x is not a sync directory: %w", state.ErrNotFound), ExitUsage},
		{"canceled", context.Canceled, ExitGeneral},
		{"already classified", Wrap(stderrors.New("x"), CategoryNetwork, "down"), ExitNetwork},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExitCode(tt.err); got != tt.want {
				t.Errorf("ExitCode() = %d, want %d", got, tt.want)
			}
		})
	}
}

// unwritableStore rejects writes the way a full or read-only disk does.
type unwritableStore struct {
	*state.FileStore
	errno syscall.Errno
}

func (s *unwritableStore) WriteRaw([]byte) error {
	return &os.PathError{Op: "write", Path: s.Path(), Err: s.errno}
}

func TestExitCode_MigrationWriteFailure(t *testing.T) {
	for _, errno := range []syscall.Errno{syscall.EACCES, syscall.ENOSPC} {
		t.Run(errno.Error(), func(t *testing.T) {
			dir := t.TempDir()
			hasher := hash.NewBlake3Hasher()
			store := state.NewFileStore(fsops.NewRealFS(), hasher, dir, "")
			if err := os.WriteFile(store.Path(), []byte(`{"paths": {}}`), 0644); err != nil {
				t.Fatalf("WriteFile() error = %v", err)
			}

			m := migrate.New(&unwritableStore{FileStore: store, errno: errno}, migrate.DefaultRegistry(),
				migrate.WithLogger(logging.Discard()), migrate.WithLockTimeout(time.Second))
			_, err := m.Run(context.Background(), migrate.Env{
				OutDir:     dir,
				RemoteRoot: "Photos/",
				RemoteBase: "/dav/files/alice/Photos/",
				Hasher:     hasher,
			})
			if err == nil {
				t.Fatal("expected the migration to fail")
			}
			if got := ExitCode(err); got != ExitMigrationFailed {
				t.Errorf("ExitCode() = %d, want %d (err = %v)", got, ExitMigrationFailed, err)
			}
		})
	}
}

func TestErrorUnwrap(t *testing.T) {
	cause := stderrors.New("disk full")
	err := Wrap(cause, CategoryFileSystem, "write failed").WithContext("path", "/x")

	if !stderrors.Is(err, cause) {
		t.Error("expected Wrap to preserve the cause")
	}
	if err.Error() != "write failed: disk full" {
		t.Errorf("Error() = %q", err.Error())
	}
	if err.Context["path"] != "/x" {
		t.Errorf("context not recorded: %v", err.Context)
	}
	if !IsCategory(fmt.Errorf("outer: %w", err), CategoryFileSystem) {
		t.Error("expected category to survive wrapping")
	}
}

func TestCLIErrorAdapter_Handle(t *testing.T) {
	adapter := NewCLIErrorAdapter(false, logging.Discard())
	var buf bytes.Buffer

	code := adapter.Handle(&buf, &state.VersionError{Found: 1, Expected: 3})
	if code != ExitMigrationRequired {
		t.Errorf("Handle() = %d, want %d", code, ExitMigrationRequired)
	}
	out := buf.String()
	if !strings.HasPrefix(out, "Error: migration required") || !strings.Contains(out, "hint:") {
		t.Errorf("unexpected output %q", out)
	}

	buf.Reset()
	adapter.Handle(&buf, stderrors.New("plain failure"))
	if buf.String() != "Error: plain failure\n" {
		t.Errorf("unexpected output for unclassified error %q", buf.String())
	}

	if adapter.Handle(&buf, nil) != ExitOK {
		t.Error("expected ExitOK for nil error")
	}
}
