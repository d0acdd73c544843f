// Package worker implements the Worker Pool: one queue
// subscription per process, bounded concurrency via a counting semaphore,
// dispatch by job.Type to the Engine, and an independent heartbeat loop.
package worker

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/flowforge/flowforge/engine"
	"github.com/flowforge/flowforge/queue"
)

// Options configures the pool's concurrency bound and heartbeat cadence.
type Options struct {
	MaxConcurrency    int
	HeartbeatInterval time.Duration
	KeyPrefix         string
	WorkerID          string
}

func defaultOptions() Options {
	return Options{
		MaxConcurrency:    10,
		HeartbeatInterval: 30 * time.Second,
		KeyPrefix:         "flowforge:",
	}
}

// Pool runs one Queue.Subscribe loop, dispatching each job to the Engine
// under a bounded number of concurrent in-flight jobs.
type Pool struct {
	eng    *engine.Engine
	q      queue.Queue
	redis  *redis.Client
	logger *zap.Logger
	opts   Options

	sem chan struct{}
}

// New builds a Pool. redisClient may be nil: heartbeats are then skipped
// (used in tests that exercise dispatch without a live Redis).
func New(eng *engine.Engine, q queue.Queue, redisClient *redis.Client, logger *zap.Logger, opts Options) *Pool {
	defaults := defaultOptions()
	if opts.MaxConcurrency <= 0 {
		opts.MaxConcurrency = defaults.MaxConcurrency
	}
	if opts.HeartbeatInterval <= 0 {
		opts.HeartbeatInterval = defaults.HeartbeatInterval
	}
	if opts.KeyPrefix == "" {
		opts.KeyPrefix = "flowforge:"
	}
	if opts.WorkerID == "" {
		host, _ := os.Hostname()
		opts.WorkerID = fmt.Sprintf("%s:%d", host, os.Getpid())
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pool{
		eng:    eng,
		q:      q,
		redis:  redisClient,
		logger: logger,
		opts:   opts,
		sem:    make(chan struct{}, opts.MaxConcurrency),
	}
}

// Run subscribes to the queue and, concurrently, posts heartbeats until ctx
// is cancelled. It blocks until the subscription loop has returned and
// every handler it dispatched has finished, so no job is still in flight
// once Run returns.
func (p *Pool) Run(ctx context.Context) error {
	go p.heartbeatLoop(ctx)
	return p.q.Subscribe(ctx, p.handle)
}

// handle acquires the pool's counting semaphore, dispatches by job.Type,
// and always releases the semaphore before returning.
func (p *Pool) handle(ctx context.Context, job queue.Job) error {
	select {
	case p.sem <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-p.sem }()

	switch job.Type {
	case queue.Start, queue.Continue, queue.Resume, queue.Retry:
		_, err := p.eng.Execute(ctx, job.InstanceID)
		return err
	case queue.Cancel:
		_, err := p.eng.Cancel(ctx, job.InstanceID)
		return err
	default:
		return fmt.Errorf("worker: unknown job type %v", job.Type)
	}
}

func (p *Pool) heartbeatLoop(ctx context.Context) {
	if p.redis == nil {
		return
	}
	ticker := time.NewTicker(p.opts.HeartbeatInterval)
	defer ticker.Stop()

	ttl := 3 * p.opts.HeartbeatInterval
	key := p.opts.KeyPrefix + "worker:" + p.opts.WorkerID

	p.beat(ctx, key, ttl)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.beat(ctx, key, ttl)
		}
	}
}

func (p *Pool) beat(ctx context.Context, key string, ttl time.Duration) {
	if err := p.redis.Set(ctx, key, time.Now().UTC().Format(time.RFC3339), ttl).Err(); err != nil {
		p.logger.Warn("heartbeat failed", zap.String("worker_id", p.opts.WorkerID), zap.Error(err))
	}
}
