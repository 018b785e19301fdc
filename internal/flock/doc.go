// Package flock provides cross-platform exclusive file locks.
//
// The workspace registry uses Acquire to serialize lifecycle operations
// and active-record writes across taskmcp processes:
//
//	lock, err := flock.Acquire(ctx, path, constants.LockTimeout)
//	if err != nil {
//	    return err
//	}
//	defer lock.Release()
package flock
