package queue

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

// These tests exercise a real Redis server and only run when
// FLOWFORGE_TEST_REDIS_ADDR is set (e.g. "127.0.0.1:6379").
func newTestRedisClient(t *testing.T) *redis.Client {
	t.Helper()
	addr := os.Getenv("FLOWFORGE_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("FLOWFORGE_TEST_REDIS_ADDR not set, skipping redis queue integration test")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(context.Background()).Err(); err != nil {
		t.Skipf("redis at %s unreachable: %v", addr, err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func newTestRedisQueue(t *testing.T) *RedisQueue {
	t.Helper()
	client := newTestRedisClient(t)
	q := NewRedisQueue(client, "flowforge-test:")
	ctx := context.Background()
	_ = client.Del(ctx, q.pendingKey(), q.inflightKey(), q.deadletterKey())
	t.Cleanup(func() { _ = client.Del(context.Background(), q.pendingKey(), q.inflightKey(), q.deadletterKey()) })
	return q
}

func TestRedisQueue_PublishPopOrdersByPriorityThenFIFO(t *testing.T) {
	q := newTestRedisQueue(t)
	ctx := context.Background()

	_ = q.Publish(ctx, Job{InstanceID: "low", Priority: 100})
	time.Sleep(2 * time.Millisecond)
	_ = q.Publish(ctx, Job{InstanceID: "high", Priority: 10})
	time.Sleep(2 * time.Millisecond)
	_ = q.Publish(ctx, Job{InstanceID: "low-later", Priority: 100})

	first, ok, err := q.Pop(ctx)
	if err != nil || !ok || first.InstanceID != "high" {
		t.Fatalf("first pop = %+v, %v, %v; want high (lowest priority number first)", first, ok, err)
	}
	second, ok, err := q.Pop(ctx)
	if err != nil || !ok || second.InstanceID != "low" {
		t.Fatalf("second pop = %+v, %v, %v; want low (oldest of equal priority)", second, ok, err)
	}
}

func TestRedisQueue_PopEmptyReturnsFalse(t *testing.T) {
	q := newTestRedisQueue(t)
	_, ok, err := q.Pop(context.Background())
	if err != nil || ok {
		t.Fatalf("Pop on empty queue = %v, %v; want false, nil", ok, err)
	}
}

func TestRedisQueue_AckRemovesFromInflight(t *testing.T) {
	q := newTestRedisQueue(t)
	ctx := context.Background()
	_ = q.Publish(ctx, Job{InstanceID: "i1"})

	job, ok, err := q.Pop(ctx)
	if err != nil || !ok {
		t.Fatalf("Pop: %v, %v", ok, err)
	}
	if err := q.Ack(ctx, job.MessageID); err != nil {
		t.Fatalf("Ack: %v", err)
	}
	n, err := q.client.HLen(ctx, q.inflightKey()).Result()
	if err != nil || n != 0 {
		t.Fatalf("inflight size after ack = %d, %v; want 0", n, err)
	}
}

func TestRedisQueue_NackRequeuesUntilMaxAttemptsThenDeadLetters(t *testing.T) {
	q := newTestRedisQueue(t)
	ctx := context.Background()
	_ = q.Publish(ctx, Job{InstanceID: "flaky"})

	var job Job
	for i := 0; i < MaxQueueAttempts; i++ {
		got, ok, err := q.Pop(ctx)
		if err != nil || !ok {
			t.Fatalf("Pop iteration %d: %v, %v", i, ok, err)
		}
		job = got
		if err := q.Nack(ctx, job); err != nil {
			t.Fatalf("Nack iteration %d: %v", i, err)
		}
	}

	got, ok, err := q.Pop(ctx)
	if err != nil || !ok {
		t.Fatalf("final Pop: %v, %v", ok, err)
	}
	if err := q.Nack(ctx, got); err != nil {
		t.Fatalf("final Nack: %v", err)
	}

	_, ok, err = q.Pop(ctx)
	if err != nil || ok {
		t.Fatalf("Pop after dead-lettering = %v, %v; want empty", ok, err)
	}
	n, err := q.client.LLen(ctx, q.deadletterKey()).Result()
	if err != nil || n != 1 {
		t.Fatalf("deadletter size = %d, %v; want 1", n, err)
	}
}
