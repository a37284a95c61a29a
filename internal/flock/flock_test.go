//go:build unix

package flock_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cmeister2/fez/internal/errors"
	"github.com/cmeister2/fez/internal/flock"
)

func openLockFile(t *testing.T, path string) *os.File {
	t.Helper()
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o600) //nolint:gosec // test temp dir
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })
	return f
}

func TestExclusive(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "test.lock")
	f1 := openLockFile(t, path)
	f2 := openLockFile(t, path)

	require.NoError(t, flock.Exclusive(f1.Fd()))
	require.Error(t, flock.Exclusive(f2.Fd()), "second holder must not get the lock")

	require.NoError(t, flock.Unlock(f1.Fd()))
	require.NoError(t, flock.Exclusive(f2.Fd()))
	require.NoError(t, flock.Unlock(f2.Fd()))
}

func TestAcquire(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), ".lock")

	lock, err := flock.Acquire(context.Background(), path, time.Second)
	require.NoError(t, err)

	t.Run("times out while held", func(t *testing.T) {
		_, err := flock.Acquire(context.Background(), path, 120*time.Millisecond)
		require.ErrorIs(t, err, errors.ErrLockTimedOut)
	})

	t.Run("honours cancellation while held", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := flock.Acquire(ctx, path, time.Minute)
		require.ErrorIs(t, err, context.Canceled)
	})

	require.NoError(t, lock.Unlock())
	require.NoError(t, lock.Unlock(), "second unlock is a no-op")

	again, err := flock.Acquire(context.Background(), path, time.Second)
	require.NoError(t, err)
	assert.NoError(t, again.Unlock())
}

func TestAcquire_MissingDirectory(t *testing.T) {
	t.Parallel()

	_, err := flock.Acquire(context.Background(), filepath.Join(t.TempDir(), "nope", ".lock"), time.Second)
	require.Error(t, err)
}
