package state

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/nubesync/nubesync/internal/hash"
)

func TestNewIndex(t *testing.T) {
	idx := NewIndex("Photos/")

	if idx.SchemaVersion != CurrentVersion {
		t.Errorf("expected SchemaVersion=%d, got %d", CurrentVersion, idx.SchemaVersion)
	}
	if idx.RemoteRoot != "Photos/" {
		t.Errorf("expected RemoteRoot='Photos/', got %q", idx.RemoteRoot)
	}
	if idx.Entries == nil {
		t.Error("expected Entries to be initialized")
	}
	if len(idx.Entries) != 0 {
		t.Errorf("expected empty Entries, got %d items", len(idx.Entries))
	}
}

func TestIndex_PutRemoveCounts(t *testing.T) {
	idx := &Index{}
	idx.Put("docs/", Entry{Path: "docs", Dir: true})
	idx.Put("docs/a.txt", Entry{Path: "docs/a.txt"})
	idx.Put("b.txt", Entry{Path: "b.txt"})

	files, dirs := idx.Counts()
	if files != 2 || dirs != 1 {
		t.Errorf("Counts() = (%d, %d), want (2, 1)", files, dirs)
	}

	keys := idx.Keys()
	want := []string{"b.txt", "docs/", "docs/a.txt"}
	if strings.Join(keys, ",") != strings.Join(want, ",") {
		t.Errorf("Keys() = %v, want %v", keys, want)
	}

	removed, ok := idx.Remove("b.txt")
	if !ok || removed.Path != "b.txt" {
		t.Errorf("Remove() = (%+v, %v), want b.txt entry", removed, ok)
	}
	if _, ok := idx.Remove("b.txt"); ok {
		t.Error("expected second Remove to report missing")
	}
}

func TestIsDirKey(t *testing.T) {
	if !IsDirKey("docs/") {
		t.Error("expected docs/ to be a directory key")
	}
	if IsDirKey("docs/a.txt") {
		t.Error("expected docs/a.txt to be a file key")
	}
}

func TestDetectVersion(t *testing.T) {
	tests := []struct {
		name        string
		raw         string
		want        int
		wantCorrupt bool
	}{
		{
			name: "legacy paths map",
			raw:  `{"paths": {"/dav/a.txt": "/out/a.txt"}}`,
			want: 0,
		},
		{
			name: "empty legacy paths map",
			raw:  `{"paths": {}}`,
			want: 0,
		},
		{
			name: "file index",
			raw:  `{"files": {"/dav/a.txt": {"path": "/out/a.txt", "is_dir": false, "last_modified": null}}}`,
			want: 1,
		},
		{
			name: "manifest v2",
			raw:  `{"schema_version": 2, "remote_root": "x/", "entries": {}}`,
			want: 2,
		},
		{
			name: "future version",
			raw:  `{"schema_version": 99}`,
			want: 99,
		},
		{
			name:        "empty file",
			raw:         ``,
			wantCorrupt: true,
		},
		{
			name:        "truncated json",
			raw:         `{"files": {"/dav/a`,
			wantCorrupt: true,
		},
		{
			name:        "unknown object",
			raw:         `{"hello": "world"}`,
			wantCorrupt: true,
		},
		{
			name:        "paths is not an object",
			raw:         `{"paths": ["a"]}`,
			wantCorrupt: true,
		},
		{
			name:        "explicit version below manifests",
			raw:         `{"schema_version": 1, "files": {}}`,
			wantCorrupt: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DetectVersion([]byte(tt.raw))
			if tt.wantCorrupt {
				if !errors.Is(err, ErrCorrupt) {
					t.Fatalf("expected ErrCorrupt, got version=%d err=%v", got, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("DetectVersion() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("DetectVersion() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestEncodeDecode(t *testing.T) {
	hasher := hash.NewBlake3Hasher()
	modified := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	idx := NewIndex("Photos/")
	idx.Put("2024/", Entry{Path: "2024", Dir: true})
	idx.Put("2024/cat.jpg", Entry{Path: "2024/cat.jpg", Modified: &modified, Size: 42})

	data, err := Encode(idx, hasher)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}

	decoded, err := Decode(data, hasher)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if decoded.Checksum == "" {
		t.Error("expected checksum to be set")
	}
	if decoded.RemoteRoot != "Photos/" {
		t.Errorf("RemoteRoot = %q, want Photos/", decoded.RemoteRoot)
	}
	cat := decoded.Entries["2024/cat.jpg"]
	if cat.Modified == nil || !cat.Modified.Equal(modified) || cat.Size != 42 {
		t.Errorf("unexpected cat entry: %+v", cat)
	}

	// Encoding the decoded index again is byte-identical.
	again, err := Encode(decoded, hasher)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	if string(again) != string(data) {
		t.Errorf("re-encoding changed bytes:\n%s\nvs\n%s", again, data)
	}
}

func TestDecode_Errors(t *testing.T) {
	hasher := hash.NewBlake3Hasher()

	t.Run("tampered entries", func(t *testing.T) {
		data, err := Encode(NewIndex("x/"), hasher)
		if err != nil {
			t.Fatalf("Encode() error = %v", err)
		}
		tampered := strings.Replace(string(data), `"entries": {}`, `"entries": {"evil": {"path": "../../etc/passwd", "dir": false, "modified": null, "size": 0}}`, 1)
		if _, err := Decode([]byte(tampered), hasher); !errors.Is(err, ErrCorrupt) {
			t.Errorf("expected ErrCorrupt, got %v", err)
		}
	})

	t.Run("outdated", func(t *testing.T) {
		_, err := Decode([]byte(`{"paths": {}}`), hasher)
		if !errors.Is(err, ErrOutdated) {
			t.Errorf("expected ErrOutdated, got %v", err)
		}
		var vErr *VersionError
		if !errors.As(err, &vErr) || vErr.Found != 0 || vErr.Expected != CurrentVersion {
			t.Errorf("expected VersionError{0,%d}, got %v", CurrentVersion, err)
		}
	})

	t.Run("too new", func(t *testing.T) {
		_, err := Decode([]byte(`{"schema_version": 7}`), hasher)
		if !errors.Is(err, ErrTooNew) {
			t.Errorf("expected ErrTooNew, got %v", err)
		}
	})
}
