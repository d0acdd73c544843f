package lock

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func TestMemLocker_AcquireRelease(t *testing.T) {
	l := NewMemLocker("owner-a")
	ctx := context.Background()

	h, err := l.Acquire(ctx, "k1", time.Second, time.Minute)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if h == nil {
		t.Fatal("expected a handle")
	}

	locked, err := l.IsLocked(ctx, "k1")
	if err != nil || !locked {
		t.Fatalf("IsLocked = %v, %v; want true, nil", locked, err)
	}

	if err := h.Release(ctx); err != nil {
		t.Fatalf("Release: %v", err)
	}
	locked, _ = l.IsLocked(ctx, "k1")
	if locked {
		t.Error("expected key unlocked after release")
	}
}

func TestMemLocker_MutualExclusion(t *testing.T) {
	l := NewMemLocker("owner-a")
	ctx := context.Background()

	h, err := l.Acquire(ctx, "k1", 50*time.Millisecond, time.Minute)
	if err != nil || h == nil {
		t.Fatalf("first acquire failed: %v, %v", h, err)
	}

	h2, err := l.Acquire(ctx, "k1", 50*time.Millisecond, time.Minute)
	if err != nil {
		t.Fatalf("second Acquire errored: %v", err)
	}
	if h2 != nil {
		t.Fatal("second acquire should fail while the first handle is held")
	}
}

func TestMemLocker_ReleaseOnlyByOwner(t *testing.T) {
	l := NewMemLocker("owner-a")
	ctx := context.Background()

	h, _ := l.Acquire(ctx, "k1", time.Second, time.Minute)

	// Simulate another locker instance trying to release the same key
	// with a different owner id: must be a no-op, not an error, and must
	// not release the first owner's lease.
	other := NewMemLocker("owner-b")
	forged := &Handle{Key: "k1", Owner: "owner-b", locker: other}
	if err := forged.Release(ctx); err != nil {
		t.Fatalf("forged release returned an error: %v", err)
	}

	locked, _ := l.IsLocked(ctx, "k1")
	if !locked {
		t.Error("the real owner's lease should still be held")
	}
	_ = h
}

func TestMemLocker_LeaseExpiryAllowsReacquire(t *testing.T) {
	l := NewMemLocker("owner-a")
	ctx := context.Background()

	_, err := l.Acquire(ctx, "k1", time.Second, 20*time.Millisecond)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}

	h2, err := l.Acquire(ctx, "k1", 200*time.Millisecond, time.Minute)
	if err != nil {
		t.Fatalf("Acquire after expiry: %v", err)
	}
	if h2 == nil {
		t.Fatal("expected to acquire the key once the first lease expired")
	}
}

func TestMemLocker_ConcurrentAcquireExactlyOneWinner(t *testing.T) {
	l := NewMemLocker("owner-a")
	ctx := context.Background()
	var winners int32

	done := make(chan struct{})
	for i := 0; i < 5; i++ {
		go func() {
			h, err := l.Acquire(ctx, "shared", 100*time.Millisecond, 500*time.Millisecond)
			if err == nil && h != nil {
				atomic.AddInt32(&winners, 1)
			}
			done <- struct{}{}
		}()
	}
	for i := 0; i < 5; i++ {
		<-done
	}
	if winners != 1 {
		t.Fatalf("winners = %d, want exactly 1 within the lease window", winners)
	}
}
