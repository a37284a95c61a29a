package flock

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/cmeister2/fez/internal/errors"
)

// retryInterval is the pause between attempts in Acquire.
const retryInterval = 50 * time.Millisecond

// FileLock is an exclusive lock held on a lock file.
type FileLock struct {
	file *os.File
}

// Acquire takes an exclusive lock on path, creating the file if needed. It
// retries until timeout elapses, then fails with an error wrapping
// errors.ErrLockTimedOut.
func Acquire(ctx context.Context, path string, timeout time.Duration) (*FileLock, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o600) //nolint:gosec // lock path is built by the caller
	if err != nil {
		return nil, fmt.Errorf("opening lock file: %w", err)
	}

	deadline := time.Now().Add(timeout)
	for {
		if err := ctx.Err(); err != nil {
			_ = f.Close()
			return nil, err
		}

		if err := Exclusive(f.Fd()); err == nil {
			return &FileLock{file: f}, nil
		}

		if time.Now().After(deadline) {
			_ = f.Close()
			return nil, fmt.Errorf("%w: %s after %v", errors.ErrLockTimedOut, path, timeout)
		}

		timer := time.NewTimer(retryInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			_ = f.Close()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}

// Unlock releases the lock and closes the lock file.
func (l *FileLock) Unlock() error {
	if l == nil || l.file == nil {
		return nil
	}
	_ = Unlock(l.file.Fd())
	err := l.file.Close()
	l.file = nil
	return err
}
