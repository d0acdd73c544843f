// Package lock implements a distributed per-key advisory lock: acquire is
// a CAS-if-absent-with-TTL, release is an owner-checked Lua script so a
// lease that outlived its holder is never yanked out from under whoever
// re-acquired it.
package lock

import (
	"context"
	"time"
)

// Locker is a per-key advisory lock backed by a shared store.
type Locker interface {
	// Acquire attempts a compare-and-set-if-absent on key with a TTL equal
	// to lease, retrying with bounded backoff until waitTimeout elapses or
	// ctx is cancelled. Returns nil, nil if the wait budget is exhausted
	// without acquiring.
	Acquire(ctx context.Context, key string, waitTimeout, lease time.Duration) (*Handle, error)

	// IsLocked reports whether key currently holds a live lease.
	IsLocked(ctx context.Context, key string) (bool, error)
}

// Handle is a held lease on a key. Release is idempotent: calling it twice,
// or after lease expiry, is a no-op rather than an error (RedisLocker logs
// it; MemLocker does not).
type Handle struct {
	Key    string
	Owner  string
	locker interface {
		release(ctx context.Context, h *Handle) error
	}
}

// Release deletes Key only if it still holds Owner's value, atomically.
func (h *Handle) Release(ctx context.Context) error {
	return h.locker.release(ctx, h)
}
