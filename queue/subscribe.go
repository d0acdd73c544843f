package queue

import (
	"context"
	"sync"
	"time"
)

// pollInterval is the minimum sleep between empty Pop polls.
const pollInterval = 100 * time.Millisecond

// runSubscribeLoop implements Queue.Subscribe identically for any Queue
// that has correct Pop/Ack/Nack semantics, so RedisQueue and MemQueue share
// one consumer loop instead of duplicating it. Each popped job is handed
// to its own goroutine so a slow handler never stalls the next Pop;
// callers that need to bound how many handlers run at once (the worker
// pool's counting semaphore) do so inside handler itself. The loop waits
// for every in-flight handler to finish before returning, so no job is
// still being processed after Subscribe has returned.
func runSubscribeLoop(ctx context.Context, q Queue, handler Handler) error {
	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		job, ok, err := q.Pop(ctx)
		if err != nil {
			return err
		}
		if !ok {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(pollInterval):
			}
			continue
		}

		wg.Add(1)
		go func(job Job) {
			defer wg.Done()
			if err := handler(ctx, job); err != nil {
				_ = q.Nack(ctx, job)
				return
			}
			_ = q.Ack(ctx, job.MessageID)
		}(job)
	}
}
