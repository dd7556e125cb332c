// Package webdavtest runs an in-process WebDAV server backed by a
// temporary directory, for tests that exercise the remote client.
package webdavtest

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/net/webdav"
)

// Prefix is the URL path the server mounts its file tree on.
const Prefix = "/remote.php/dav/files/alice"

// Credentials accepted by the server.
const (
	Username = "alice"
	Password = "secret"
)

// Server is a WebDAV server over Root.
type Server struct {
	*httptest.Server

	// Root is the directory served as the WebDAV tree
	Root string

	t        *testing.T
	failures atomic.Int32
	requests atomic.Int32
}

// NewServer starts a server that is closed when the test ends.
func NewServer(t *testing.T) *Server {
	t.Helper()
	s := &Server{Root: t.TempDir(), t: t}

	dav := &webdav.Handler{
		Prefix:     Prefix,
		FileSystem: webdav.Dir(s.Root),
		LockSystem: webdav.NewMemLS(),
	}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.requests.Add(1)
		if user, pass, ok := r.BasicAuth(); !ok || user != Username || pass != Password {
			w.Header().Set("WWW-Authenticate", `Basic realm="webdavtest"`)
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		if s.failures.Load() > 0 {
			s.failures.Add(-1)
			http.Error(w, "temporarily unavailable", http.StatusServiceUnavailable)
			return
		}
		dav.ServeHTTP(w, r)
	}))
	t.Cleanup(s.Close)
	return s
}

// HostURL returns the WebDAV root URL (with a trailing slash).
func (s *Server) HostURL() *url.URL {
	u, err := url.Parse(s.Server.URL + Prefix + "/")
	if err != nil {
		s.t.Fatalf("webdavtest: parse url: %v", err)
	}
	return u
}

// FailNext makes the next n authenticated requests fail with 503.
func (s *Server) FailNext(n int) {
	s.failures.Store(int32(n))
}

// Requests returns the number of requests served so far.
func (s *Server) Requests() int {
	return int(s.requests.Load())
}

// Mkdir creates a folder (and its parents) at rel.
func (s *Server) Mkdir(rel string) {
	s.t.Helper()
	if err := os.MkdirAll(filepath.Join(s.Root, filepath.FromSlash(rel)), 0755); err != nil {
		s.t.Fatalf("webdavtest: mkdir %s: %v", rel, err)
	}
}

// WriteFile stores content at rel with the given modification time.
func (s *Server) WriteFile(rel, content string, modified time.Time) {
	s.t.Helper()
	p := filepath.Join(s.Root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
		s.t.Fatalf("webdavtest: mkdir for %s: %v", rel, err)
	}
	if err := os.WriteFile(p, []byte(content), 0644); err != nil {
		s.t.Fatalf("webdavtest: write %s: %v", rel, err)
	}
	if err := os.Chtimes(p, modified, modified); err != nil {
		s.t.Fatalf("webdavtest: chtimes %s: %v", rel, err)
	}
}

// Remove deletes the file or folder at rel.
func (s *Server) Remove(rel string) {
	s.t.Helper()
	if err := os.RemoveAll(filepath.Join(s.Root, filepath.FromSlash(rel))); err != nil {
		s.t.Fatalf("webdavtest: remove %s: %v", rel, err)
	}
}
