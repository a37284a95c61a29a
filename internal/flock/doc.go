// Package flock provides cross-platform file locking.
//
// Exclusive and Unlock are the non-blocking primitives. Acquire wraps them
// with a retry loop bounded by a timeout, and is what keeps two concurrent
// "fez keygen" runs from writing the same key directory:
//
//	lock, err := flock.Acquire(ctx, filepath.Join(dir, ".lock"), 5*time.Second)
//	if err != nil {
//	    return err
//	}
//	defer func() { _ = lock.Unlock() }()
package flock
