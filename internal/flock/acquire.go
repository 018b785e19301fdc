package flock

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/mrz1836/taskmcp/internal/constants"
	tmerrors "github.com/mrz1836/taskmcp/internal/errors"
)

const lockFilePerm = 0o600

// Lock is a held exclusive lock on a lock file.
type Lock struct {
	f *os.File
}

// Acquire opens (creating if needed) the lock file at path and retries a
// non-blocking exclusive lock until it succeeds, ctx is done, or timeout
// elapses. A timeout yields ErrLockTimeout.
func Acquire(ctx context.Context, path string, timeout time.Duration) (*Lock, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, lockFilePerm) //#nosec G304 -- path is built by the caller from validated names
	if err != nil {
		return nil, fmt.Errorf("failed to open lock file: %w", err)
	}

	deadline := time.Now().Add(timeout)
	for {
		if err := Exclusive(f.Fd()); err == nil {
			return &Lock{f: f}, nil
		}

		if time.Now().After(deadline) {
			_ = f.Close()
			return nil, tmerrors.ErrLockTimeout
		}

		select {
		case <-ctx.Done():
			_ = f.Close()
			return nil, ctx.Err()
		case <-time.After(constants.LockRetryInterval):
		}
	}
}

// Release unlocks and closes the lock file. It is safe to call on nil.
func (l *Lock) Release() {
	if l == nil || l.f == nil {
		return
	}
	_ = Unlock(l.f.Fd())
	_ = l.f.Close()
	l.f = nil
}
