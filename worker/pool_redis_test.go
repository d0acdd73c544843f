package worker

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/flowforge/flowforge/activity"
	"github.com/flowforge/flowforge/engine"
	"github.com/flowforge/flowforge/lock"
	memstore "github.com/flowforge/flowforge/persistence/memory"
	"github.com/flowforge/flowforge/queue"
)

// Heartbeats only run with a live Redis client; skipped unless
// FLOWFORGE_TEST_REDIS_ADDR is set.
func TestPool_HeartbeatWritesKeyWithTTL(t *testing.T) {
	addr := os.Getenv("FLOWFORGE_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("FLOWFORGE_TEST_REDIS_ADDR not set, skipping redis heartbeat test")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(context.Background()).Err(); err != nil {
		t.Skipf("redis at %s unreachable: %v", addr, err)
	}
	defer func() { _ = client.Close() }()

	store := memstore.New()
	eng := engine.New(store, activity.NewRegistry(), lock.NewMemLocker("heartbeat-test"), nil, activity.NewServices(nil, nil, nil), engine.Options{})
	pool := New(eng, queue.NewMemQueue(), client, nil, Options{HeartbeatInterval: 50 * time.Millisecond, WorkerID: "test-worker", KeyPrefix: "flowforge-test:"})

	key := "flowforge-test:worker:test-worker"
	_ = client.Del(context.Background(), key)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	pool.heartbeatLoop(ctx)

	ttl, err := client.TTL(context.Background(), key).Result()
	if err != nil {
		t.Fatalf("TTL: %v", err)
	}
	if ttl <= 0 {
		t.Fatalf("ttl = %v, want a positive TTL set by the heartbeat", ttl)
	}
	_ = client.Del(context.Background(), key)
}
