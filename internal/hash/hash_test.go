package hash

import (
	"os"
	"path/filepath"
	"testing"
)

func TestBlake3Hasher_Sum(t *testing.T) {
	hasher := NewBlake3Hasher()

	t.Run("known vector", func(t *testing.T) {
		// BLAKE3 of the empty input
		want := "af1349b9f5f9a1a6a0404dea36dcc9499bcb25c9adc112b7cc9a93cae41f3262"
		if got := hasher.Sum(nil); got != want {
			t.Errorf("Sum(nil) = %s, want %s", got, want)
		}
	})

	t.Run("deterministic", func(t *testing.T) {
		a := hasher.Sum([]byte(`{"a.txt":{"path":"a.txt"}}`))
		b := hasher.Sum([]byte(`{"a.txt":{"path":"a.txt"}}`))
		if a != b {
			t.Errorf("Sum inconsistent: %s vs %s", a, b)
		}
		if len(a) != 64 {
			t.Errorf("expected 64 hex chars, got %d", len(a))
		}
	})

	t.Run("different input different digest", func(t *testing.T) {
		if hasher.Sum([]byte("content A")) == hasher.Sum([]byte("content B")) {
			t.Error("different content produced the same digest")
		}
	})
}

func TestBlake3Hasher_HashFile(t *testing.T) {
	hasher := NewBlake3Hasher()
	tmpDir := t.TempDir()

	content := []byte("hello world")
	testFile := filepath.Join(tmpDir, "test.txt")
	if err := os.WriteFile(testFile, content, 0644); err != nil {
		t.Fatalf("failed to write test file: %v", err)
	}

	got, err := hasher.HashFile(testFile)
	if err != nil {
		t.Fatalf("HashFile failed: %v", err)
	}
	if want := hasher.Sum(content); got != want {
		t.Errorf("HashFile = %s, want Sum of content %s", got, want)
	}

	if _, err := hasher.HashFile(filepath.Join(tmpDir, "missing")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestFakeHasher(t *testing.T) {
	hasher := NewFakeHasher()

	if got := hasher.Sum([]byte("abc")); got != "fake-3" {
		t.Errorf("Sum = %q, want fake-3", got)
	}

	hasher.SetSum("pinned")
	if got := hasher.Sum([]byte("abc")); got != "pinned" {
		t.Errorf("Sum = %q, want pinned", got)
	}

	hasher.SetHash("/tmp/file", "abc123")
	if got, _ := hasher.HashFile("/tmp/file"); got != "abc123" {
		t.Errorf("HashFile = %q, want abc123", got)
	}
	if got, _ := hasher.HashFile("/tmp/other"); got != "fakehash" {
		t.Errorf("HashFile = %q, want fakehash", got)
	}
}
