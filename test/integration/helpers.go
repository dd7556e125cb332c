// Package integration drives the nubesync command line end to end against
// an in-process WebDAV server.
package integration

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nubesync/nubesync/internal/cli"
	"github.com/nubesync/nubesync/internal/config"
	"github.com/nubesync/nubesync/internal/remote/webdavtest"
)

// env is one test setup: a server, a configuration file and an output
// directory.
type env struct {
	t      *testing.T
	server *webdavtest.Server
	config string
	outDir string
}

type result struct {
	code   int
	stdout string
	stderr string
}

// newEnv starts a server and writes a configuration pointing at it. extra
// is appended to the configuration.
func newEnv(t *testing.T, extra string) *env {
	t.Helper()

	t.Setenv(config.EnvStateDir, t.TempDir())
	for _, name := range []string{config.EnvConfig, config.EnvFeatures, config.EnvHost, config.EnvUsername, config.EnvPassword, config.EnvOutDir} {
		t.Setenv(name, "")
	}

	e := &env{
		t:      t,
		server: webdavtest.NewServer(t),
		outDir: t.TempDir(),
	}

	var b strings.Builder
	fmt.Fprintf(&b, "host = %q\n", e.server.HostURL().String())
	fmt.Fprintf(&b, "username = %q\n", webdavtest.Username)
	if !strings.Contains(extra, "password") {
		fmt.Fprintf(&b, "password = %q\n", webdavtest.Password)
	}
	fmt.Fprintf(&b, "out_dir = %q\n", e.outDir)
	b.WriteString(extra)
	b.WriteString("\n[retry]\nmode = \"fixed\"\ninitial = \"1ms\"\nmax = \"1ms\"\nmax_retries = 2\n")
	if !strings.Contains(extra, "[journal]") {
		b.WriteString("\n[journal]\npath = \"off\"\n")
	}

	e.config = filepath.Join(t.TempDir(), "nube-sync.config.toml")
	if err := os.WriteFile(e.config, []byte(b.String()), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return e
}

// run executes the command line with the test configuration.
func (e *env) run(args ...string) result {
	e.t.Helper()
	var stdout, stderr bytes.Buffer
	full := append([]string{"--config", e.config}, args...)
	code := cli.Execute(context.Background(), cli.BuildInfo{Version: "test"}, full, &stdout, &stderr)
	return result{code: code, stdout: stdout.String(), stderr: stderr.String()}
}

// mustRun fails the test unless the command succeeds.
func (e *env) mustRun(args ...string) result {
	e.t.Helper()
	res := e.run(args...)
	if res.code != 0 {
		e.t.Fatalf("%v exited with %d\nstdout: %s\nstderr: %s", args, res.code, res.stdout, res.stderr)
	}
	return res
}

// local returns the path of rel inside the output directory.
func (e *env) local(rel string) string {
	return filepath.Join(e.outDir, filepath.FromSlash(rel))
}

func (e *env) readLocal(rel string) string {
	e.t.Helper()
	data, err := os.ReadFile(e.local(rel))
	if err != nil {
		e.t.Fatalf("failed to read %s: %v", rel, err)
	}
	return string(data)
}

func (e *env) assertMissing(rel string) {
	e.t.Helper()
	if _, err := os.Lstat(e.local(rel)); !os.IsNotExist(err) {
		e.t.Errorf("expected %s to be absent, stat err = %v", rel, err)
	}
}
