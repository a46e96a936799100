// Package lock serializes work on a single key, such as all writes touching one room.
package lock

import (
	"context"
	"errors"
)

var ErrNotAcquired = errors.New("lock not acquired")

// Unlock releases a held lock. It is safe to call more than once.
type Unlock func()

type Locker interface {
	// Lock blocks until key is held or ctx ends.
	Lock(ctx context.Context, key string) (Unlock, error)
}

// IsTimeout reports whether err means the caller gave up waiting, as opposed to
// the lock backend failing.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrNotAcquired) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, context.Canceled)
}
