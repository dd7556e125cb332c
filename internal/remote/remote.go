// Package remote lists and downloads the files of a remote WebDAV folder.
package remote

import (
	"context"
	"io"
	"strings"
	"time"
)

// Entry is one file or folder below the remote root.
type Entry struct {
	// Key is the decoded path relative to the remote root.
	// Folder keys end with "/".
	Key string

	Dir      bool
	Modified time.Time
	Size     int64
}

// Remote is the read side of a file server.
type Remote interface {
	// List walks the folder root recursively. The root itself is not
	// included.
	List(ctx context.Context, root string) ([]Entry, error)

	// Open streams the file at key below root.
	Open(ctx context.Context, root, key string) (io.ReadCloser, error)

	// Base returns the escaped URL path of root on the server.
	Base(root string) string
}

// NormalizeRoot turns a user supplied remote location into a root folder
// path: no leading slash, exactly one trailing slash. The server root is "".
func NormalizeRoot(location string) string {
	root := strings.Trim(strings.TrimSpace(location), "/")
	if root == "" || root == "." {
		return ""
	}
	return root + "/"
}
