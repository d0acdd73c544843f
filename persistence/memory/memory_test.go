package memory

import (
	"context"
	"testing"
	"time"

	"github.com/flowforge/flowforge/persistence"
	"github.com/flowforge/flowforge/workflow"
)

func TestDefinitionRepository_SaveVersionsAndDeactivates(t *testing.T) {
	port := New()
	ctx := context.Background()

	d1 := &workflow.WorkflowDefinition{Name: "wf", StartActivityID: "a",
		Activities: []workflow.ActivityDefinition{{ID: "a", Type: "log"}}}
	if err := port.Definitions.Save(ctx, d1); err != nil {
		t.Fatalf("save v1: %v", err)
	}
	if d1.Version != 1 || !d1.IsActive {
		t.Fatalf("v1 = %+v, want version 1, active", d1)
	}

	d2 := &workflow.WorkflowDefinition{Name: "wf", StartActivityID: "a",
		Activities: []workflow.ActivityDefinition{{ID: "a", Type: "log"}}}
	if err := port.Definitions.Save(ctx, d2); err != nil {
		t.Fatalf("save v2: %v", err)
	}
	if d2.Version != 2 {
		t.Fatalf("v2 version = %d, want 2", d2.Version)
	}

	active, err := port.Definitions.Get(ctx, "wf", nil)
	if err != nil {
		t.Fatalf("get active: %v", err)
	}
	if active.Version != 2 {
		t.Fatalf("active version = %d, want 2 (only the highest should be active)", active.Version)
	}

	all, err := port.Definitions.GetAllVersions(ctx, "wf")
	if err != nil || len(all) != 2 {
		t.Fatalf("GetAllVersions = %v, %v; want 2 versions", all, err)
	}
	if all[0].IsActive {
		t.Error("version 1 should be deactivated after saving version 2")
	}
}

func TestDefinitionRepository_GetMissing(t *testing.T) {
	port := New()
	_, err := port.Definitions.Get(context.Background(), "ghost", nil)
	if err != persistence.ErrNotFound {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestInstanceRepository_CreateGetUpdate(t *testing.T) {
	port := New()
	ctx := context.Background()
	inst := workflow.NewInstance("i1", "wf", 1, map[string]any{"x": 1.0}, "a", "corr-1", "")

	if err := port.Instances.Create(ctx, inst); err != nil {
		t.Fatalf("create: %v", err)
	}
	got, err := port.Instances.Get(ctx, "i1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.ID != "i1" || got.WorkflowName != "wf" {
		t.Fatalf("got %+v", got)
	}

	byCorr, err := port.Instances.GetByCorrelation(ctx, "corr-1")
	if err != nil || byCorr.ID != "i1" {
		t.Fatalf("GetByCorrelation = %v, %v", byCorr, err)
	}

	got.Status = workflow.Completed
	if err := port.Instances.Update(ctx, got); err != nil {
		t.Fatalf("update: %v", err)
	}
	reloaded, _ := port.Instances.Get(ctx, "i1")
	if reloaded.Status != workflow.Completed {
		t.Fatalf("status after update = %v, want Completed", reloaded.Status)
	}

	// Mutating the returned copy must not affect the stored record.
	reloaded.WorkflowName = "tampered"
	again, _ := port.Instances.Get(ctx, "i1")
	if again.WorkflowName != "wf" {
		t.Fatalf("store leaked a reference: WorkflowName = %q", again.WorkflowName)
	}
}

func TestInstanceRepository_GetTimedOut(t *testing.T) {
	port := New()
	ctx := context.Background()

	stale := workflow.NewInstance("stale", "wf", 1, nil, "a", "", "")
	stale.Status = workflow.Running
	stale.UpdatedAt = time.Now().UTC().Add(-time.Hour)
	_ = port.Instances.Create(ctx, stale)

	fresh := workflow.NewInstance("fresh", "wf", 1, nil, "a", "", "")
	fresh.Status = workflow.Running
	fresh.UpdatedAt = time.Now().UTC()
	_ = port.Instances.Create(ctx, fresh)

	out, err := port.Instances.GetTimedOut(ctx, 10*time.Minute)
	if err != nil {
		t.Fatalf("GetTimedOut: %v", err)
	}
	if len(out) != 1 || out[0].ID != "stale" {
		t.Fatalf("GetTimedOut = %v, want only %q", out, "stale")
	}
}

func TestExecutionRepository_OrderingAndLatest(t *testing.T) {
	port := New()
	ctx := context.Background()
	base := time.Now().UTC()

	e1 := &workflow.ActivityExecution{ID: "e1", WorkflowInstance: "i1", ActivityID: "a", Attempt: 1, StartedAt: base}
	e2 := &workflow.ActivityExecution{ID: "e2", WorkflowInstance: "i1", ActivityID: "a", Attempt: 2, StartedAt: base.Add(time.Second)}
	_ = port.Executions.Create(ctx, e2)
	_ = port.Executions.Create(ctx, e1)

	ordered, err := port.Executions.GetByInstance(ctx, "i1")
	if err != nil || len(ordered) != 2 {
		t.Fatalf("GetByInstance = %v, %v", ordered, err)
	}
	if ordered[0].ID != "e1" || ordered[1].ID != "e2" {
		t.Fatalf("executions not ordered by started_at ascending: %+v", ordered)
	}

	latest, err := port.Executions.GetLatest(ctx, "i1", "a")
	if err != nil || latest.Attempt != 2 {
		t.Fatalf("GetLatest = %+v, %v; want attempt 2", latest, err)
	}
}
