package remote

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path"
	"strings"
	"time"

	"github.com/studio-b12/gowebdav"

	"github.com/nubesync/nubesync/internal/logging"
	"github.com/nubesync/nubesync/internal/metrics"
	"github.com/nubesync/nubesync/internal/retry"
)

// Options configures a WebDAV client.
type Options struct {
	// Host is the WebDAV root URL
	Host *url.URL

	Username string
	Password string

	// Timeout bounds each HTTP request (30s when zero)
	Timeout time.Duration

	Retry    retry.Policy
	Logger   *slog.Logger
	Recorder metrics.Recorder

	// Transport overrides the HTTP transport (tests)
	Transport http.RoundTripper
}

// WebDAV implements Remote over a WebDAV server.
type WebDAV struct {
	client   *gowebdav.Client
	host     *url.URL
	policy   retry.Policy
	logger   *slog.Logger
	recorder metrics.Recorder
}

// NewWebDAV creates a client for the server at opts.Host.
func NewWebDAV(opts Options) *WebDAV {
	client := gowebdav.NewClient(opts.Host.String(), opts.Username, opts.Password)
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	client.SetTimeout(timeout)
	if opts.Transport != nil {
		client.SetTransport(opts.Transport)
	}

	policy := opts.Retry
	if policy.Validate() != nil {
		policy = retry.DefaultPolicy()
	}

	return &WebDAV{
		client:   client,
		host:     opts.Host,
		policy:   policy,
		logger:   logging.OrDefault(opts.Logger),
		recorder: metrics.OrNoop(opts.Recorder),
	}
}

// Base returns the escaped URL path of root, e.g. "/remote.php/dav/files/alice/My%20Photos/".
func (w *WebDAV) Base(root string) string {
	p := w.host.Path
	if !strings.HasSuffix(p, "/") {
		p += "/"
	}
	return (&url.URL{Path: p + root}).EscapedPath()
}

// List walks root breadth-first with one depth-1 PROPFIND per folder.
func (w *WebDAV) List(ctx context.Context, root string) ([]Entry, error) {
	var entries []Entry
	queue := []string{""}

	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		folder := queue[0]
		queue = queue[1:]

		var infos []os.FileInfo
		err := w.do(ctx, "list", func() error {
			var err error
			infos, err = w.client.ReadDir(root + folder)
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("failed to list %q: %w", root+folder, err)
		}

		for _, fi := range infos {
			name := fi.Name()
			if name == "" || name == "." || name == ".." || strings.Contains(name, "/") {
				continue
			}
			e := Entry{
				Key:      folder + name,
				Dir:      fi.IsDir(),
				Modified: fi.ModTime().UTC(),
				Size:     fi.Size(),
			}
			if e.Dir {
				e.Key += "/"
				e.Size = 0
				queue = append(queue, e.Key)
			}
			entries = append(entries, e)
		}
	}

	w.logger.Debug("Listed remote folder", logging.Remote(root), logging.Count(len(entries)))
	return entries, nil
}

// Open streams the file at key below root.
func (w *WebDAV) Open(ctx context.Context, root, key string) (io.ReadCloser, error) {
	var body io.ReadCloser
	err := w.do(ctx, "open", func() error {
		var err error
		body, err = w.client.ReadStream(path.Clean(root + key))
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to download %q: %w", root+key, err)
	}
	return body, nil
}

// Ping checks that the server answers and accepts the credentials.
func (w *WebDAV) Ping(ctx context.Context) error {
	return w.do(ctx, "connect", w.client.Connect)
}

// do runs fn with retries. Only transport and server errors are retried.
func (w *WebDAV) do(ctx context.Context, op string, fn func() error) error {
	return retry.Do(ctx, w.policy, func(context.Context) error {
		err := classify(fn())
		if err != nil && !errors.Is(err, ErrUnreachable) {
			return retry.Permanent(err)
		}
		return err
	}, func(attempt int, err error) {
		w.recorder.IncRetry(op)
		w.logger.Warn("Retrying remote operation", logging.Op(op), logging.Attempt(attempt), logging.Error(err))
	})
}

func classify(err error) error {
	if err == nil {
		return nil
	}
	switch statusCode(err) {
	case http.StatusNotFound:
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %v", ErrUnauthorized, err)
	case http.StatusMethodNotAllowed:
		return fmt.Errorf("%w: %v", ErrNotFolder, err)
	default:
		return fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
}

// statusCode extracts the HTTP status from a gowebdav error, or 0.
func statusCode(err error) int {
	var se gowebdav.StatusError
	if errors.As(err, &se) {
		return se.Status
	}
	return 0
}
