package migrate

import (
	"encoding/json"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/nubesync/nubesync/internal/fsops"
	"github.com/nubesync/nubesync/internal/state"
)

// Legacy on-disk shapes. Only the steps below read them.

// pathsV0 maps server hrefs to absolute local paths.
type pathsV0 struct {
	Paths map[string]string `json:"paths"`
}

// filesV1 maps server hrefs to local file records.
type filesV1 struct {
	Files map[string]fileV1 `json:"files"`
}

type fileV1 struct {
	Path         string     `json:"path"`
	IsDir        bool       `json:"is_dir"`
	LastModified *time.Time `json:"last_modified"`
}

// manifestV2 is the first explicitly versioned layout.
type manifestV2 struct {
	SchemaVersion int                `json:"schema_version"`
	RemoteRoot    string             `json:"remote_root"`
	Entries       map[string]entryV2 `json:"entries"`
}

type entryV2 struct {
	Path     string     `json:"path"`
	Dir      bool       `json:"dir"`
	Modified *time.Time `json:"modified"`
}

// DefaultSteps returns the steps that bring any released state file to
// state.CurrentVersion. A new slice is returned on every call.
func DefaultSteps() []Step {
	return []Step{
		{From: 0, Name: "paths-to-file-index", Apply: pathsToFileIndex},
		{From: 1, Name: "file-index-to-manifest", Apply: fileIndexToManifest},
		{From: 2, Name: "manifest-checksum", Apply: manifestChecksum},
	}
}

// DefaultRegistry returns a registry holding DefaultSteps.
func DefaultRegistry() *Registry {
	r, err := NewRegistry(DefaultSteps()...)
	if err != nil {
		panic(fmt.Sprintf("built-in migration steps are inconsistent: %v", err))
	}
	return r
}

func pathsToFileIndex(_ Env, raw []byte) ([]byte, error) {
	var in pathsV0
	if err := json.Unmarshal(raw, &in); err != nil {
		return nil, fmt.Errorf("failed to parse v0 state: %w", err)
	}

	out := filesV1{Files: make(map[string]fileV1, len(in.Paths))}
	for href, path := range in.Paths {
		out.Files[href] = fileV1{
			Path:  path,
			IsDir: strings.HasSuffix(href, "/"),
		}
	}
	return json.MarshalIndent(out, "", "  ")
}

func fileIndexToManifest(env Env, raw []byte) ([]byte, error) {
	if env.RemoteBase == "" {
		return nil, fmt.Errorf("%w: remote base is required to rewrite server hrefs", ErrIncompleteEnv)
	}
	if env.OutDir == "" {
		return nil, fmt.Errorf("%w: output directory is required to relativise paths", ErrIncompleteEnv)
	}

	var in filesV1
	if err := json.Unmarshal(raw, &in); err != nil {
		return nil, fmt.Errorf("failed to parse v1 state: %w", err)
	}

	base, err := url.PathUnescape(env.RemoteBase)
	if err != nil {
		return nil, fmt.Errorf("invalid remote base %q: %w", env.RemoteBase, err)
	}
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}

	out := manifestV2{
		SchemaVersion: 2,
		RemoteRoot:    env.RemoteRoot,
		Entries:       make(map[string]entryV2, len(in.Files)),
	}
	for href, f := range in.Files {
		key, err := keyFromHref(href, base)
		if err != nil {
			return nil, err
		}
		if key == "" {
			// The remote root itself.
			continue
		}

		rel, err := relativePath(env.OutDir, f.Path, key)
		if err != nil {
			return nil, err
		}

		dir := f.IsDir || state.IsDirKey(key)
		if dir && !state.IsDirKey(key) {
			key += "/"
		}
		e := entryV2{Path: rel, Dir: dir}
		if !dir {
			e.Modified = f.LastModified
		}
		out.Entries[key] = e
	}
	return json.MarshalIndent(out, "", "  ")
}

// keyFromHref strips the decoded remote base from a server href.
func keyFromHref(href, base string) (string, error) {
	decoded, err := url.PathUnescape(href)
	if err != nil {
		return "", fmt.Errorf("invalid href %q: %w", href, err)
	}
	if decoded+"/" == base {
		return "", nil
	}
	if !strings.HasPrefix(decoded, base) {
		return "", fmt.Errorf("href %q is outside remote base %q", href, base)
	}
	key := strings.TrimPrefix(decoded, base)
	if key == "" {
		return "", nil
	}
	if err := fsops.ValidateRelPath(strings.TrimSuffix(key, "/")); err != nil {
		return "", fmt.Errorf("href %q: %w", href, err)
	}
	return key, nil
}

// relativePath returns the slash-separated path of a legacy entry relative
// to outDir. Legacy paths are outDir joined with the decoded key; relative
// legacy paths (written with a relative out_dir) are trusted to follow that
// layout and are derived from the key.
func relativePath(outDir, legacyPath, key string) (string, error) {
	fromKey := strings.TrimSuffix(key, "/")
	if legacyPath == "" || !filepath.IsAbs(legacyPath) {
		return fromKey, nil
	}

	rel, err := filepath.Rel(filepath.Clean(outDir), filepath.Clean(legacyPath))
	if err != nil {
		return "", fmt.Errorf("path %q is outside output directory %q: %w", legacyPath, outDir, err)
	}
	rel = filepath.ToSlash(rel)
	if err := fsops.ValidateRelPath(rel); err != nil {
		return "", fmt.Errorf("path %q is outside output directory %q", legacyPath, outDir)
	}
	return rel, nil
}

func manifestChecksum(env Env, raw []byte) ([]byte, error) {
	var in manifestV2
	if err := json.Unmarshal(raw, &in); err != nil {
		return nil, fmt.Errorf("failed to parse v2 state: %w", err)
	}

	idx := state.NewIndex(in.RemoteRoot)
	for key, e := range in.Entries {
		idx.Put(key, state.Entry{Path: e.Path, Dir: e.Dir, Modified: e.Modified})
	}
	return state.Encode(idx, env.hasher())
}
