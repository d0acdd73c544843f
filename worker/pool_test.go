package worker

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/flowforge/flowforge/activity"
	"github.com/flowforge/flowforge/engine"
	"github.com/flowforge/flowforge/lock"
	memstore "github.com/flowforge/flowforge/persistence/memory"
	"github.com/flowforge/flowforge/queue"
	"github.com/flowforge/flowforge/workflow"
)

func TestPool_DispatchesStartToEngineExecute(t *testing.T) {
	store := memstore.New()
	var executed int32
	registry := activity.NewRegistry()
	_ = registry.Register("log", activity.HandlerFunc(func(ctx context.Context, actx *activity.Context) (activity.Result, error) {
		atomic.AddInt32(&executed, 1)
		return activity.Ok(nil), nil
	}))
	eng := engine.New(store, registry, lock.NewMemLocker("pool-test"), nil, activity.NewServices(nil, nil, nil), engine.Options{})

	def := &workflow.WorkflowDefinition{
		Name: "pool-demo", StartActivityID: "a",
		Activities: []workflow.ActivityDefinition{{ID: "a", Type: "log"}},
		IsActive:   true,
	}
	if err := store.Definitions.Save(context.Background(), def); err != nil {
		t.Fatalf("save: %v", err)
	}
	inst, err := eng.Start(context.Background(), "pool-demo", nil, map[string]any{}, "", "")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	q := queue.NewMemQueue()
	_ = q.Publish(context.Background(), queue.Job{InstanceID: inst.ID, Type: queue.Start})

	pool := New(eng, q, nil, nil, Options{MaxConcurrency: 2})

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	_ = pool.Run(ctx)

	if atomic.LoadInt32(&executed) != 1 {
		t.Fatalf("executed = %d, want 1", executed)
	}
	got, _ := store.Instances.Get(context.Background(), inst.ID)
	if got.Status != workflow.Completed {
		t.Fatalf("status = %v, want Completed", got.Status)
	}
}

func TestPool_BoundsConcurrency(t *testing.T) {
	store := memstore.New()
	var concurrent, maxConcurrent int32
	registry := activity.NewRegistry()
	_ = registry.Register("slow", activity.HandlerFunc(func(ctx context.Context, actx *activity.Context) (activity.Result, error) {
		n := atomic.AddInt32(&concurrent, 1)
		for {
			old := atomic.LoadInt32(&maxConcurrent)
			if n <= old || atomic.CompareAndSwapInt32(&maxConcurrent, old, n) {
				break
			}
		}
		time.Sleep(30 * time.Millisecond)
		atomic.AddInt32(&concurrent, -1)
		return activity.Ok(nil), nil
	}))
	eng := engine.New(store, registry, lock.NewMemLocker("pool-test-2"), nil, activity.NewServices(nil, nil, nil), engine.Options{})

	def := &workflow.WorkflowDefinition{
		Name: "slow-demo", StartActivityID: "a",
		Activities: []workflow.ActivityDefinition{{ID: "a", Type: "slow"}},
		IsActive:   true,
	}
	_ = store.Definitions.Save(context.Background(), def)

	q := queue.NewMemQueue()
	const n = 6
	for i := 0; i < n; i++ {
		inst, err := eng.Start(context.Background(), "slow-demo", nil, map[string]any{}, "", "")
		if err != nil {
			t.Fatalf("Start: %v", err)
		}
		_ = q.Publish(context.Background(), queue.Job{InstanceID: inst.ID, Type: queue.Start})
	}

	pool := New(eng, q, nil, nil, Options{MaxConcurrency: 2})
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	_ = pool.Run(ctx)

	if maxConcurrent != 2 {
		t.Fatalf("maxConcurrent = %d, want exactly 2 (MaxConcurrency bound reached, not exceeded)", maxConcurrent)
	}
}
