package cli

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/nubesync/nubesync/internal/config"
	"github.com/nubesync/nubesync/internal/remote"
)

// isolate keeps the process environment and the user's state directory out
// of the test.
func isolate(t *testing.T) {
	t.Helper()
	t.Setenv(config.EnvStateDir, t.TempDir())
	for _, env := range []string{config.EnvConfig, config.EnvFeatures, config.EnvHost, config.EnvUsername, config.EnvPassword, config.EnvOutDir} {
		t.Setenv(env, "")
	}
}

// writeConfig writes a configuration file with a host and the given extra
// TOML, and returns its path.
func writeConfig(t *testing.T, extra string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "nube-sync.config.toml")
	content := "host = \"https://cloud.example.com/dav/\"\nusername = \"alice\"\n" + extra
	if !strings.Contains(extra, "[journal]") {
		content += "\n[journal]\npath = \"off\"\n"
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

type outcome struct {
	code   int
	stdout string
	stderr string
}

// execute runs args against a fresh app. A non-nil rem replaces the WebDAV
// client.
func execute(ctx context.Context, rem remote.Remote, build BuildInfo, args ...string) outcome {
	var stdout, stderr bytes.Buffer
	a := newApp(build, &stdout, &stderr)
	if rem != nil {
		a.newRemote = func(*config.Config) (remote.Remote, error) { return rem, nil }
	}
	code := a.execute(ctx, args)
	return outcome{code: code, stdout: stdout.String(), stderr: stderr.String()}
}

func run(t *testing.T, rem remote.Remote, args ...string) outcome {
	t.Helper()
	return execute(context.Background(), rem, BuildInfo{Version: "1.2.3"}, args...)
}

// stubRemote serves a fixed tree.
type stubRemote struct {
	entries []remote.Entry
	content map[string]string
	onList  func()
	lists   atomic.Int32
}

func (r *stubRemote) List(context.Context, string) ([]remote.Entry, error) {
	r.lists.Add(1)
	if r.onList != nil {
		r.onList()
	}
	return r.entries, nil
}

func (r *stubRemote) Open(_ context.Context, _, key string) (io.ReadCloser, error) {
	content, ok := r.content[key]
	if !ok {
		return nil, remote.ErrNotFound
	}
	return io.NopCloser(strings.NewReader(content)), nil
}

func (r *stubRemote) Base(root string) string {
	return "/dav/" + root
}
