package remote

import "errors"

var (
	// ErrUnreachable is returned when the WebDAV server cannot be contacted
	// or answers with a server error.
	ErrUnreachable = errors.New("webdav server unreachable")

	// ErrUnauthorized is returned when the server rejects the credentials.
	ErrUnauthorized = errors.New("webdav server rejected credentials")

	// ErrNotFound is returned when the requested remote path doesn't exist.
	ErrNotFound = errors.New("remote path not found")

	// ErrNotFolder is returned when the remote root is a file.
	ErrNotFolder = errors.New("remote path is not a folder")
)
