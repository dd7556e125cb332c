package fsops

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sys/unix"
)

// ErrLocked is returned when an exclusive lock could not be acquired before
// the timeout expired.
var ErrLocked = errors.New("state is locked by another process")

const (
	minLockBackoff = 50 * time.Millisecond
	maxLockBackoff = time.Second
)

// Lock is an exclusive advisory lock held on a lock file.
// Locks are per open file description, so two Locks on the same path
// exclude each other even inside one process.
type Lock struct {
	file *os.File
	path string
}

// Path returns the lock file path.
func (l *Lock) Path() string {
	return l.path
}

// Release drops the lock. Releasing twice is a no-op.
func (l *Lock) Release() error {
	if l == nil || l.file == nil {
		return nil
	}
	f := l.file
	l.file = nil
	unlockErr := unix.Flock(int(f.Fd()), unix.LOCK_UN)
	closeErr := f.Close()
	if unlockErr != nil {
		return fmt.Errorf("flock unlock %s: %w", l.path, unlockErr)
	}
	return closeErr
}

// AcquireLock takes an exclusive lock on path, creating the file if needed.
// It polls with exponential backoff until timeout, returning ErrLocked when
// the holder never lets go. A zero timeout tries exactly once.
func AcquireLock(ctx context.Context, path string, timeout time.Duration) (*Lock, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create lock dir: %w", err)
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("open lock file: %w", err)
	}

	ok, err := tryFlock(file)
	if err != nil {
		_ = file.Close()
		return nil, err
	}
	if ok {
		return &Lock{file: file, path: path}, nil
	}
	if timeout <= 0 {
		_ = file.Close()
		return nil, fmt.Errorf("%w: %s", ErrLocked, path)
	}

	lockCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	backoff := minLockBackoff
	for {
		select {
		case <-lockCtx.Done():
			_ = file.Close()
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("%w after %v: %s", ErrLocked, timeout, path)
		case <-time.After(backoff):
		}

		ok, err := tryFlock(file)
		if err != nil {
			_ = file.Close()
			return nil, err
		}
		if ok {
			return &Lock{file: file, path: path}, nil
		}

		backoff *= 2
		if backoff > maxLockBackoff {
			backoff = maxLockBackoff
		}
	}
}

func tryFlock(file *os.File) (bool, error) {
	err := unix.Flock(int(file.Fd()), unix.LOCK_EX|unix.LOCK_NB)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, unix.EWOULDBLOCK) {
		return false, nil
	}
	return false, fmt.Errorf("flock: %w", err)
}
