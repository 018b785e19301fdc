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

	tmerrors "github.com/mrz1836/taskmcp/internal/errors"
	"github.com/mrz1836/taskmcp/internal/flock"
)

// TestExclusive tests that a second descriptor cannot take a held lock.
func TestExclusive(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "test.lock")

	f1, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o600) // #nosec G304 -- test temp dir
	require.NoError(t, err)
	defer func() { _ = f1.Close() }()
	f2, err := os.OpenFile(path, os.O_RDWR, 0o600) // #nosec G304 -- test temp dir
	require.NoError(t, err)
	defer func() { _ = f2.Close() }()

	require.NoError(t, flock.Exclusive(f1.Fd()))
	require.Error(t, flock.Exclusive(f2.Fd()))
	require.NoError(t, flock.Unlock(f1.Fd()))
	require.NoError(t, flock.Exclusive(f2.Fd()))
	require.NoError(t, flock.Unlock(f2.Fd()))
}

// TestAcquire tests the retry loop, timeout and release behavior.
func TestAcquire(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("acquire and release", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "a.lock")

		lock, err := flock.Acquire(ctx, path, time.Second)
		require.NoError(t, err)
		lock.Release()
		lock.Release()

		again, err := flock.Acquire(ctx, path, time.Second)
		require.NoError(t, err)
		again.Release()
	})

	t.Run("times out while held", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "b.lock")

		held, err := flock.Acquire(ctx, path, time.Second)
		require.NoError(t, err)
		defer held.Release()

		_, err = flock.Acquire(ctx, path, 100*time.Millisecond)
		require.ErrorIs(t, err, tmerrors.ErrLockTimeout)
	})

	t.Run("honors cancellation", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "c.lock")

		held, err := flock.Acquire(ctx, path, time.Second)
		require.NoError(t, err)
		defer held.Release()

		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err = flock.Acquire(cctx, path, 5*time.Second)
		require.ErrorIs(t, err, context.Canceled)
	})

	t.Run("nil release is safe", func(t *testing.T) {
		t.Parallel()
		var l *flock.Lock
		assert.NotPanics(t, l.Release)
	})
}
