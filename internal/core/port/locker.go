package port

import "context"

// Locker serializes token create+lookup sequences for a single key (an email
// address). Acquire blocks until the lock is held or the context ends, and
// returns the release function.
type Locker interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}
