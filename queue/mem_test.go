package queue

import (
	"context"
	"testing"
	"time"
)

func TestMemQueue_PriorityAndFIFOTiebreak(t *testing.T) {
	q := NewMemQueue()
	ctx := context.Background()

	base := time.Now().UTC()
	_ = q.Publish(ctx, Job{InstanceID: "mid-first", Priority: 50, QueuedAt: base})
	_ = q.Publish(ctx, Job{InstanceID: "mid-second", Priority: 50, QueuedAt: base.Add(time.Millisecond)})
	_ = q.Publish(ctx, Job{InstanceID: "high", Priority: 10, QueuedAt: base.Add(time.Hour)})
	_ = q.Publish(ctx, Job{InstanceID: "low", Priority: 100, QueuedAt: base})

	want := []string{"high", "mid-first", "mid-second", "low"}
	for _, w := range want {
		job, ok, err := q.Pop(ctx)
		if err != nil || !ok {
			t.Fatalf("Pop() = %v, %v, %v", job, ok, err)
		}
		if job.InstanceID != w {
			t.Errorf("Pop() = %q, want %q", job.InstanceID, w)
		}
	}
	_, ok, _ := q.Pop(ctx)
	if ok {
		t.Error("expected queue to be empty")
	}
}

func TestMemQueue_AckRemovesFromInFlight(t *testing.T) {
	q := NewMemQueue()
	ctx := context.Background()
	_ = q.Publish(ctx, Job{InstanceID: "i1"})

	job, ok, _ := q.Pop(ctx)
	if !ok {
		t.Fatal("expected a job")
	}
	if job.MessageID == "" {
		t.Fatal("expected Publish to assign a MessageID")
	}
	if err := q.Ack(ctx, job.MessageID); err != nil {
		t.Fatalf("Ack: %v", err)
	}
}

func TestMemQueue_NackRequeuesUntilMaxAttempts(t *testing.T) {
	q := NewMemQueue()
	ctx := context.Background()
	_ = q.Publish(ctx, Job{InstanceID: "i1"})

	job, _, _ := q.Pop(ctx)
	for i := 0; i < MaxQueueAttempts; i++ {
		if err := q.Nack(ctx, job); err != nil {
			t.Fatalf("Nack: %v", err)
		}
		var ok bool
		job, ok, _ = q.Pop(ctx)
		if !ok {
			t.Fatalf("expected job requeued after nack #%d", i+1)
		}
	}

	// job.Attempt is now MaxQueueAttempts; one more nack exhausts the
	// budget and dead-letters it instead of requeuing.
	if err := q.Nack(ctx, job); err != nil {
		t.Fatalf("final Nack: %v", err)
	}
	_, ok, _ := q.Pop(ctx)
	if ok {
		t.Fatal("job should have been dead-lettered, not requeued")
	}
	if len(q.DeadLettered()) != 1 {
		t.Fatalf("dead-lettered count = %d, want 1", len(q.DeadLettered()))
	}
}

func TestMemQueue_PopRaceSafe(t *testing.T) {
	q := NewMemQueue()
	ctx := context.Background()
	for i := 0; i < 20; i++ {
		_ = q.Publish(ctx, Job{InstanceID: "i"})
	}

	seen := make(chan Job, 20)
	done := make(chan struct{})
	for i := 0; i < 4; i++ {
		go func() {
			for {
				job, ok, _ := q.Pop(ctx)
				if !ok {
					done <- struct{}{}
					return
				}
				seen <- job
			}
		}()
	}
	for i := 0; i < 4; i++ {
		<-done
	}
	close(seen)
	count := 0
	for range seen {
		count++
	}
	if count != 20 {
		t.Fatalf("popped %d jobs across concurrent consumers, want 20", count)
	}
}
