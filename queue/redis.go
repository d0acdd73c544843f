package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisQueue is the durable, multi-process-safe Queue implementation.
// Pending jobs live in a sorted set keyed by a composite score that
// collapses (priority, queuedAt) into one float64-safe value, so ZPOPMIN
// returns them in priority-then-FIFO order without a separate tiebreak query.
type RedisQueue struct {
	client *redis.Client
	prefix string
}

// NewRedisQueue builds a RedisQueue using keys under prefix (default
// "flowforge:").
func NewRedisQueue(client *redis.Client, prefix string) *RedisQueue {
	if prefix == "" {
		prefix = "flowforge:"
	}
	return &RedisQueue{client: client, prefix: prefix}
}

func (q *RedisQueue) pendingKey() string  { return q.prefix + "queue:pending" }
func (q *RedisQueue) inflightKey() string { return q.prefix + "queue:inflight" }
func (q *RedisQueue) deadletterKey() string {
	return q.prefix + "queue:deadletter"
}

// score packs (priority, queuedAt) into one float64: priority dominates the
// high bits, queuedAt (unix milliseconds) fills the low bits, so ascending
// numeric order is exactly the composite ordering.
func score(priority int, queuedAt time.Time) float64 {
	return float64(priority)*(1<<40) + float64(queuedAt.UnixMilli())
}

func (q *RedisQueue) Publish(ctx context.Context, job Job) error {
	if job.MessageID == "" {
		job.MessageID = uuid.NewString()
	}
	if job.QueuedAt.IsZero() {
		job.QueuedAt = time.Now().UTC()
	}
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("queue: marshal job: %w", err)
	}
	return q.client.ZAdd(ctx, q.pendingKey(), redis.Z{
		Score:  score(job.Priority, job.QueuedAt),
		Member: payload,
	}).Err()
}

// popScript atomically pops the lowest-scored pending member and records it
// in the in-flight hash keyed by its messageId, so a concurrent consumer
// can never observe the member in both places at once.
var popScript = redis.NewScript(`
local popped = redis.call('ZPOPMIN', KEYS[1], 1)
if #popped == 0 then
  return nil
end
local member = popped[1]
local decoded = cjson.decode(member)
redis.call('HSET', KEYS[2], decoded.messageId, member)
return member
`)

func (q *RedisQueue) Pop(ctx context.Context) (Job, bool, error) {
	res, err := popScript.Run(ctx, q.client, []string{q.pendingKey(), q.inflightKey()}).Result()
	if err == redis.Nil {
		return Job{}, false, nil
	}
	if err != nil {
		return Job{}, false, err
	}
	if res == nil {
		return Job{}, false, nil
	}
	payload, ok := res.(string)
	if !ok {
		return Job{}, false, fmt.Errorf("queue: unexpected pop result type %T", res)
	}

	var job Job
	if err := json.Unmarshal([]byte(payload), &job); err != nil {
		return Job{}, false, fmt.Errorf("queue: unmarshal popped job: %w", err)
	}
	return job, true, nil
}

func (q *RedisQueue) Ack(ctx context.Context, messageID string) error {
	return q.client.HDel(ctx, q.inflightKey(), messageID).Err()
}

func (q *RedisQueue) Nack(ctx context.Context, job Job) error {
	if err := q.client.HDel(ctx, q.inflightKey(), job.MessageID).Err(); err != nil {
		return err
	}
	if job.Attempt < MaxQueueAttempts {
		job.Attempt++
		job.QueuedAt = time.Now().UTC()
		return q.Publish(ctx, job)
	}
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("queue: marshal dead-lettered job: %w", err)
	}
	return q.client.RPush(ctx, q.deadletterKey(), payload).Err()
}

func (q *RedisQueue) Subscribe(ctx context.Context, handler Handler) error {
	return runSubscribeLoop(ctx, q, handler)
}
