package fsops

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestValidateRelPath(t *testing.T) {
	tests := []struct {
		name      string
		path      string
		wantError bool
	}{
		{
			name:      "valid relative path",
			path:      "foo/bar/baz.txt",
			wantError: false,
		},
		{
			name:      "valid single file",
			path:      "file.txt",
			wantError: false,
		},
		{
			name:      "directory key with trailing slash",
			path:      "photos/2024/",
			wantError: false,
		},
		{
			name:      "empty path",
			path:      "",
			wantError: true,
		},
		{
			name:      "current directory",
			path:      ".",
			wantError: true,
		},
		{
			name:      "absolute path",
			path:      "/etc/hosts",
			wantError: true,
		},
		{
			name:      "parent directory traversal",
			path:      "../etc/hosts",
			wantError: true,
		},
		{
			name:      "traversal in middle",
			path:      "foo/../../../etc/hosts",
			wantError: true,
		},
		{
			name:      "traversal that stays inside",
			path:      "foo/../bar.txt",
			wantError: false,
		},
		{
			name:      "path with dot prefix",
			path:      ".hidden/file.txt",
			wantError: false,
		},
		{
			name:      "name starting with two dots",
			path:      "..notes.txt",
			wantError: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRelPath(tt.path)
			if (err != nil) != tt.wantError {
				t.Errorf("ValidateRelPath(%q) error = %v, wantError %v", tt.path, err, tt.wantError)
			}
		})
	}
}

func TestRealFS_AtomicWrite(t *testing.T) {
	fs := NewRealFS()
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", ".sync")

	if err := fs.AtomicWrite(path, []byte("first"), 0644); err != nil {
		t.Fatalf("AtomicWrite() error = %v", err)
	}
	if err := fs.AtomicWrite(path, []byte("second"), 0600); err != nil {
		t.Fatalf("AtomicWrite() overwrite error = %v", err)
	}

	data, err := fs.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if string(data) != "second" {
		t.Errorf("expected content 'second', got %q", data)
	}

	info, err := fs.Stat(path)
	if err != nil {
		t.Fatalf("Stat() error = %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("expected mode 0600, got %v", info.Mode().Perm())
	}

	entries, err := fs.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatalf("ReadDir() error = %v", err)
	}
	for _, e := range entries {
		if strings.Contains(e.Name(), ".tmp-") {
			t.Errorf("temp file left behind: %s", e.Name())
		}
	}
}

func TestRealFS_AtomicWriteFailureKeepsPrevious(t *testing.T) {
	fs := NewRealFS()
	dir := t.TempDir()
	path := filepath.Join(dir, ".sync")

	if err := fs.AtomicWrite(path, []byte("original"), 0644); err != nil {
		t.Fatalf("AtomicWrite() error = %v", err)
	}

	// A directory squatting on the target makes the rename fail.
	blocked := filepath.Join(dir, "blocked")
	if err := os.MkdirAll(filepath.Join(blocked, "child"), 0755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}
	if err := fs.AtomicWrite(blocked, []byte("x"), 0644); err == nil {
		t.Fatal("expected error writing over a non-empty directory")
	}

	data, err := fs.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if string(data) != "original" {
		t.Errorf("expected original content, got %q", data)
	}
}

func TestRealFS_Exists(t *testing.T) {
	fs := NewRealFS()
	dir := t.TempDir()

	exists, err := fs.Exists(filepath.Join(dir, "missing"))
	if err != nil {
		t.Fatalf("Exists() error = %v", err)
	}
	if exists {
		t.Error("expected missing path to not exist")
	}

	path := filepath.Join(dir, "present")
	if err := os.WriteFile(path, nil, 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	exists, err = fs.Exists(path)
	if err != nil {
		t.Fatalf("Exists() error = %v", err)
	}
	if !exists {
		t.Error("expected path to exist")
	}
}
