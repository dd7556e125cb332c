package state

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/nubesync/nubesync/internal/hash"
)

// CurrentVersion is the schema version this binary reads and writes.
const CurrentVersion = 3

// DefaultFileName is the name of the state file inside the output directory.
const DefaultFileName = ".sync"

// Entry describes one remote entry materialised locally.
type Entry struct {
	// Path is the local path relative to the output directory
	Path string `json:"path"`

	// Dir is true for directories
	Dir bool `json:"dir"`

	// Modified is the server modification time of the downloaded copy.
	// Nil means unknown, which forces a re-download on the next sync.
	Modified *time.Time `json:"modified"`

	// Size is the downloaded size in bytes (0 when unknown)
	Size int64 `json:"size"`
}

// Index is the current-version state store content.
type Index struct {
	// SchemaVersion is always CurrentVersion for a decoded Index
	SchemaVersion int `json:"schema_version"`

	// RemoteRoot is the remote folder this output directory mirrors
	RemoteRoot string `json:"remote_root"`

	// UpdatedAt is when the index was last saved by a sync
	UpdatedAt time.Time `json:"updated_at,omitzero"`

	// Checksum is the hex BLAKE3 digest of the canonical payload
	Checksum string `json:"checksum"`

	// Entries maps remote keys to their local entries.
	// Directory keys end with "/".
	Entries map[string]Entry `json:"entries"`
}

// NewIndex creates an empty current-version index for remoteRoot.
func NewIndex(remoteRoot string) *Index {
	return &Index{
		SchemaVersion: CurrentVersion,
		RemoteRoot:    remoteRoot,
		Entries:       make(map[string]Entry),
	}
}

// Put records an entry under key.
func (idx *Index) Put(key string, e Entry) {
	if idx.Entries == nil {
		idx.Entries = make(map[string]Entry)
	}
	idx.Entries[key] = e
}

// Remove deletes key from the index and returns the removed entry.
func (idx *Index) Remove(key string) (Entry, bool) {
	e, ok := idx.Entries[key]
	if ok {
		delete(idx.Entries, key)
	}
	return e, ok
}

// Keys returns all keys in lexical order.
func (idx *Index) Keys() []string {
	keys := make([]string, 0, len(idx.Entries))
	for k := range idx.Entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Counts returns the number of tracked files and directories.
func (idx *Index) Counts() (files, dirs int) {
	for _, e := range idx.Entries {
		if e.Dir {
			dirs++
		} else {
			files++
		}
	}
	return files, dirs
}

// IsDirKey reports whether key names a directory.
func IsDirKey(key string) bool {
	return strings.HasSuffix(key, "/")
}

// payload is the checksummed part of the index. encoding/json sorts map
// keys, which makes the encoding canonical.
type payload struct {
	RemoteRoot string           `json:"remote_root"`
	Entries    map[string]Entry `json:"entries"`
}

// Checksum computes the digest of the index payload.
func Checksum(remoteRoot string, entries map[string]Entry, hasher hash.Hasher) (string, error) {
	if entries == nil {
		entries = map[string]Entry{}
	}
	data, err := json.Marshal(payload{RemoteRoot: remoteRoot, Entries: entries})
	if err != nil {
		return "", fmt.Errorf("failed to marshal index payload: %w", err)
	}
	return hasher.Sum(data), nil
}

// Encode serialises idx at CurrentVersion with a fresh checksum.
// idx itself is not modified.
func Encode(idx *Index, hasher hash.Hasher) ([]byte, error) {
	out := *idx
	out.SchemaVersion = CurrentVersion
	if out.Entries == nil {
		out.Entries = make(map[string]Entry)
	}

	sum, err := Checksum(out.RemoteRoot, out.Entries, hasher)
	if err != nil {
		return nil, err
	}
	out.Checksum = sum

	data, err := json.MarshalIndent(&out, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal index: %w", err)
	}
	return append(data, '\n'), nil
}

// Decode parses a current-version state file and verifies its checksum.
// Older or newer files yield a *VersionError; unreadable or tampered files
// yield ErrCorrupt.
func Decode(raw []byte, hasher hash.Hasher) (*Index, error) {
	version, err := DetectVersion(raw)
	if err != nil {
		return nil, err
	}
	if version != CurrentVersion {
		return nil, &VersionError{Found: version, Expected: CurrentVersion}
	}

	var idx Index
	dec := json.NewDecoder(bytes.NewReader(raw))
	if err := dec.Decode(&idx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if idx.Entries == nil {
		idx.Entries = make(map[string]Entry)
	}

	sum, err := Checksum(idx.RemoteRoot, idx.Entries, hasher)
	if err != nil {
		return nil, err
	}
	if sum != idx.Checksum {
		return nil, fmt.Errorf("%w: checksum mismatch (stored %q, computed %q)", ErrCorrupt, idx.Checksum, sum)
	}

	return &idx, nil
}

// DetectVersion recognises the schema version of a raw state file.
//
//	schema_version present -> that value (2 and later)
//	"files" object         -> 1
//	"paths" object         -> 0
func DetectVersion(raw []byte) (int, error) {
	var probe struct {
		SchemaVersion *int            `json:"schema_version"`
		Files         json.RawMessage `json:"files"`
		Paths         json.RawMessage `json:"paths"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}

	switch {
	case probe.SchemaVersion != nil:
		if *probe.SchemaVersion < 2 {
			return 0, fmt.Errorf("%w: explicit schema_version %d is not a known manifest version", ErrCorrupt, *probe.SchemaVersion)
		}
		return *probe.SchemaVersion, nil
	case isObject(probe.Files):
		return 1, nil
	case isObject(probe.Paths):
		return 0, nil
	default:
		return 0, fmt.Errorf("%w: no recognisable schema", ErrCorrupt)
	}
}

func isObject(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '{'
}
