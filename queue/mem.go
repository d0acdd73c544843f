package queue

import (
	"container/heap"
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// jobHeap orders entries by (Priority, QueuedAt) ascending: lower priority
// value first, ties broken by earliest QueuedAt.
type jobHeap []Job

func (h jobHeap) Len() int { return len(h) }
func (h jobHeap) Less(i, j int) bool {
	if h[i].Priority != h[j].Priority {
		return h[i].Priority < h[j].Priority
	}
	return h[i].QueuedAt.Before(h[j].QueuedAt)
}
func (h jobHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *jobHeap) Push(x any)   { *h = append(*h, x.(Job)) }
func (h *jobHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// MemQueue is an in-memory mirror of RedisQueue's heap ordering, used in
// unit tests and single-process deployments to avoid a live Redis
// dependency.
type MemQueue struct {
	mu        sync.Mutex
	pending   jobHeap
	inFlight  map[string]Job
	deadLeter []Job
}

// NewMemQueue builds an empty MemQueue.
func NewMemQueue() *MemQueue {
	q := &MemQueue{inFlight: make(map[string]Job)}
	heap.Init(&q.pending)
	return q
}

func (q *MemQueue) Publish(_ context.Context, job Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if job.MessageID == "" {
		job.MessageID = uuid.NewString()
	}
	if job.QueuedAt.IsZero() {
		job.QueuedAt = time.Now().UTC()
	}
	heap.Push(&q.pending, job)
	return nil
}

func (q *MemQueue) Pop(_ context.Context) (Job, bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.pending.Len() == 0 {
		return Job{}, false, nil
	}
	job := heap.Pop(&q.pending).(Job)
	q.inFlight[job.MessageID] = job
	return job, true, nil
}

func (q *MemQueue) Ack(_ context.Context, messageID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.inFlight, messageID)
	return nil
}

func (q *MemQueue) Nack(_ context.Context, job Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	delete(q.inFlight, job.MessageID)
	if job.Attempt < MaxQueueAttempts {
		job.Attempt++
		job.QueuedAt = time.Now().UTC()
		heap.Push(&q.pending, job)
		return nil
	}
	q.deadLeter = append(q.deadLeter, job)
	return nil
}

func (q *MemQueue) Subscribe(ctx context.Context, handler Handler) error {
	return runSubscribeLoop(ctx, q, handler)
}

// DeadLettered returns a snapshot of jobs dropped after exhausting
// MaxQueueAttempts, for test assertions.
func (q *MemQueue) DeadLettered() []Job {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]Job, len(q.deadLeter))
	copy(out, q.deadLeter)
	return out
}
