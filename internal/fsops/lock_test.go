package fsops

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func TestAcquireLock_Exclusive(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".sync.lock")
	ctx := context.Background()

	first, err := AcquireLock(ctx, path, 0)
	if err != nil {
		t.Fatalf("AcquireLock() error = %v", err)
	}

	if _, err := AcquireLock(ctx, path, 0); !errors.Is(err, ErrLocked) {
		t.Fatalf("expected ErrLocked, got %v", err)
	}

	if _, err := AcquireLock(ctx, path, 120*time.Millisecond); !errors.Is(err, ErrLocked) {
		t.Fatalf("expected ErrLocked after timeout, got %v", err)
	}

	if err := first.Release(); err != nil {
		t.Fatalf("Release() error = %v", err)
	}
	if err := first.Release(); err != nil {
		t.Fatalf("second Release() error = %v", err)
	}

	second, err := AcquireLock(ctx, path, 0)
	if err != nil {
		t.Fatalf("AcquireLock() after release error = %v", err)
	}
	_ = second.Release()
}

func TestAcquireLock_WaitsForRelease(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".sync.lock")
	ctx := context.Background()

	holder, err := AcquireLock(ctx, path, 0)
	if err != nil {
		t.Fatalf("AcquireLock() error = %v", err)
	}

	go func() {
		time.Sleep(100 * time.Millisecond)
		_ = holder.Release()
	}()

	waiter, err := AcquireLock(ctx, path, 5*time.Second)
	if err != nil {
		t.Fatalf("expected waiter to acquire lock, got %v", err)
	}
	if waiter.Path() != path {
		t.Errorf("expected path %q, got %q", path, waiter.Path())
	}
	_ = waiter.Release()
}

func TestAcquireLock_ContextCancelled(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".sync.lock")

	holder, err := AcquireLock(context.Background(), path, 0)
	if err != nil {
		t.Fatalf("AcquireLock() error = %v", err)
	}
	defer func() { _ = holder.Release() }()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := AcquireLock(ctx, path, time.Second); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
