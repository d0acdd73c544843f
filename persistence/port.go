// Package persistence defines the Persistence Port — the three repository
// interfaces every storage backend implements: one for workflow
// definitions, one for instances, one for activity execution history.
package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/flowforge/flowforge/workflow"
)

// ErrNotFound is returned when a requested definition, instance, or
// execution does not exist.
var ErrNotFound = errors.New("persistence: not found")

// Page describes pagination for Instances.Query.
type Page struct {
	Offset int
	Limit  int
}

// Sort names the field and direction InstanceRepository.Query orders by.
type Sort struct {
	Field      string
	Descending bool
}

// InstanceFilter narrows InstanceRepository.Query. Zero-value fields are
// unconstrained.
type InstanceFilter struct {
	WorkflowName  string
	Status        *workflow.InstanceStatus
	CorrelationID string
	Tag           string
}

// InstanceStats summarizes instance counts by status, as returned by
// InstanceRepository.Stats.
type InstanceStats struct {
	TotalByStatus map[workflow.InstanceStatus]int64
}

// DefinitionRepository persists WorkflowDefinitions. Save auto-increments
// version and deactivates prior versions rather than mutating an existing
// row.
type DefinitionRepository interface {
	Get(ctx context.Context, name string, version *int) (*workflow.WorkflowDefinition, error)
	GetAllVersions(ctx context.Context, name string) ([]*workflow.WorkflowDefinition, error)
	List(ctx context.Context, includeInactive bool) ([]*workflow.WorkflowDefinition, error)
	Save(ctx context.Context, def *workflow.WorkflowDefinition) error
	SetActive(ctx context.Context, name string, version int, active bool) error
	Delete(ctx context.Context, name string, version int) error
	Exists(ctx context.Context, name string) (bool, error)
}

// InstanceRepository persists WorkflowInstances.
type InstanceRepository interface {
	Get(ctx context.Context, id string) (*workflow.WorkflowInstance, error)
	GetByCorrelation(ctx context.Context, correlationID string) (*workflow.WorkflowInstance, error)
	Query(ctx context.Context, filter InstanceFilter, sort Sort, page Page) ([]*workflow.WorkflowInstance, error)
	GetByStatus(ctx context.Context, status workflow.InstanceStatus, limit int) ([]*workflow.WorkflowInstance, error)
	Create(ctx context.Context, inst *workflow.WorkflowInstance) error
	Update(ctx context.Context, inst *workflow.WorkflowInstance) error
	Delete(ctx context.Context, id string) error
	GetTimedOut(ctx context.Context, olderThan time.Duration) ([]*workflow.WorkflowInstance, error)
	Stats(ctx context.Context) (InstanceStats, error)
}

// ExecutionRepository persists ActivityExecution history rows.
type ExecutionRepository interface {
	GetByInstance(ctx context.Context, instanceID string) ([]*workflow.ActivityExecution, error)
	Get(ctx context.Context, id string) (*workflow.ActivityExecution, error)
	Create(ctx context.Context, exec *workflow.ActivityExecution) error
	Update(ctx context.Context, exec *workflow.ActivityExecution) error
	GetLatest(ctx context.Context, instanceID, activityID string) (*workflow.ActivityExecution, error)
}

// Port bundles the three repositories a backend implements together, so
// engine wiring takes one value instead of three.
type Port struct {
	Definitions DefinitionRepository
	Instances   InstanceRepository
	Executions  ExecutionRepository
}
