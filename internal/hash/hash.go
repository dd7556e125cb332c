// Package hash provides content digests for integrity checks.
//
// nubesync stores a BLAKE3 digest of the state index payload alongside the
// payload itself, so a truncated or hand-edited state file is detected on
// load instead of silently driving deletions. The package provides a real
// implementation and a fake for tests.
package hash

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"github.com/zeebo/blake3"
)

// Hasher provides an abstraction for content hashing.
type Hasher interface {
	// Sum returns the hex digest of data.
	Sum(data []byte) string

	// HashFile computes the digest of the file at the given path.
	HashFile(path string) (string, error)
}

// Blake3Hasher implements Hasher using BLAKE3-256.
type Blake3Hasher struct{}

// NewBlake3Hasher creates a new Blake3Hasher.
func NewBlake3Hasher() *Blake3Hasher {
	return &Blake3Hasher{}
}

// Sum returns the hex-encoded BLAKE3-256 digest of data.
func (h *Blake3Hasher) Sum(data []byte) string {
	digest := blake3.Sum256(data)
	return hex.EncodeToString(digest[:])
}

// HashFile streams the file at path through BLAKE3.
func (h *Blake3Hasher) HashFile(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}
	defer func() {
		_ = file.Close()
	}()

	hasher := blake3.New()
	if _, err := io.Copy(hasher, file); err != nil {
		return "", fmt.Errorf("failed to read file: %w", err)
	}

	return hex.EncodeToString(hasher.Sum(nil)), nil
}

// FakeHasher implements Hasher with deterministic digests for testing.
// Sum returns the fixed digest when one is set, otherwise the length-tagged
// content, which is stable and easy to read in failures.
type FakeHasher struct {
	fixed  string
	hashes map[string]string
}

// NewFakeHasher creates a new FakeHasher.
func NewFakeHasher() *FakeHasher {
	return &FakeHasher{
		hashes: make(map[string]string),
	}
}

// SetSum forces every Sum call to return digest.
func (h *FakeHasher) SetSum(digest string) {
	h.fixed = digest
}

// SetHash sets the hash for a specific path.
func (h *FakeHasher) SetHash(path, hash string) {
	h.hashes[path] = hash
}

// Sum returns the forced digest or a readable stand-in.
func (h *FakeHasher) Sum(data []byte) string {
	if h.fixed != "" {
		return h.fixed
	}
	return fmt.Sprintf("fake-%d", len(data))
}

// HashFile returns the predetermined hash for the given path.
func (h *FakeHasher) HashFile(path string) (string, error) {
	if hash, ok := h.hashes[path]; ok {
		return hash, nil
	}
	return "fakehash", nil
}
