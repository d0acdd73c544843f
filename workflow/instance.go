package workflow

import "time"

// SuspendKeyState is the reserved state key holding the signal name an
// instance is waiting on while Suspended.
const SuspendKeyState = "_suspend_key"

// SignalStatePrefix prefixes the state keys the engine writes for each
// payload field delivered with a resume signal: state["signal_"+k] = v.
const SignalStatePrefix = "signal_"

// WorkflowInstance is a single, mutable execution of a WorkflowDefinition.
type WorkflowInstance struct {
	ID                string
	WorkflowName      string
	WorkflowVersion   int
	Status            InstanceStatus
	Input             map[string]any
	Output            map[string]any
	State             map[string]any
	CurrentActivityID string
	Error             *InstanceError
	RetryCount        int
	ParentInstanceID  string
	CorrelationID     string
	WorkerID          string
	Tags              []string
	Metadata          map[string]any
	CreatedAt         time.Time
	StartedAt         *time.Time
	CompletedAt       *time.Time
	UpdatedAt         time.Time
}

// InstanceError is populated only when Status == Failed.
type InstanceError struct {
	Code       string
	Message    string
	ActivityID string
	OccurredAt time.Time
}

// ActivityExecution is an append-only history row for one attempt of one
// activity within one instance.
type ActivityExecution struct {
	ID               string
	WorkflowInstance string
	ActivityID       string
	ActivityType     string
	Status           ActivityStatus
	Input            map[string]any
	Output           map[string]any
	Error            *InstanceError
	Attempt          int
	StartedAt        time.Time
	CompletedAt      *time.Time
	DurationMS       int64
}

// NewInstance builds a freshly created, Pending instance ready to be
// persisted and then handed to Engine.Execute via a Start job.
func NewInstance(id, workflowName string, version int, input map[string]any, startActivityID, correlationID, parentID string) *WorkflowInstance {
	if input == nil {
		input = map[string]any{}
	}
	now := time.Now().UTC()
	return &WorkflowInstance{
		ID:                id,
		WorkflowName:      workflowName,
		WorkflowVersion:   version,
		Status:            Pending,
		Input:             input,
		Output:            map[string]any{},
		State:             map[string]any{},
		CurrentActivityID: startActivityID,
		ParentInstanceID:  parentID,
		CorrelationID:     correlationID,
		Metadata:          map[string]any{},
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

// IsSuspendedOn reports whether the instance is Suspended waiting
// specifically on signalName.
func (i *WorkflowInstance) IsSuspendedOn(signalName string) bool {
	if i.Status != Suspended {
		return false
	}
	key, _ := i.State[SuspendKeyState].(string)
	return key == signalName
}
