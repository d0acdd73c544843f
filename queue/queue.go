package queue

import "context"

// Handler processes one popped Job. Returning an error triggers Nack.
type Handler func(ctx context.Context, job Job) error

// Queue is the durable priority queue contract: publish assigns ordering,
// pop atomically moves an entry to an in-flight set, and ack/nack
// resolve it.
type Queue interface {
	// Publish assigns a MessageID and QueuedAt if unset, then stores job so
	// Pop returns jobs ordered by ascending (priority, queuedAt).
	Publish(ctx context.Context, job Job) error

	// Pop atomically claims the next job, moving it into an in-flight set
	// keyed by MessageID. Returns (Job{}, false, nil) if the queue is empty.
	Pop(ctx context.Context) (Job, bool, error)

	// Ack removes messageID from the in-flight set.
	Ack(ctx context.Context, messageID string) error

	// Nack requeues the job (attempt+1, same priority) if job.Attempt <
	// MaxQueueAttempts, else moves it to the dead-letter set.
	Nack(ctx context.Context, job Job) error

	// Subscribe runs handler for every popped job until ctx is cancelled,
	// acking on success and nacking on error. If the queue is empty it
	// sleeps at least 100ms before re-polling.
	Subscribe(ctx context.Context, handler Handler) error
}
