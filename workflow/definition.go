package workflow

import (
	"fmt"
	"sort"
	"time"
)

// WorkflowDefinition is the immutable blueprint a WorkflowInstance executes
// against. It is immutable once saved: the Persistence Port's Save
// auto-increments (name, version) and deactivates prior versions rather
// than mutating an existing row.
type WorkflowDefinition struct {
	Name            string
	Version         int
	StartActivityID string
	Activities      []ActivityDefinition
	Transitions     []TransitionDefinition
	InputSchema     *Schema
	OutputSchema    *Schema
	Trigger         TriggerType
	CronExpression  string
	DefaultRetry    *RetryPolicy
	DefaultTimeout  time.Duration
	Tags            []string
	IsActive        bool
	CreatedAt       time.Time
}

// ActivityDefinition is one named, typed step in a WorkflowDefinition.
type ActivityDefinition struct {
	ID             string
	Type           string
	Properties     map[string]any
	InputMappings  map[string]string // input name -> expression
	OutputMappings map[string]string // state key -> output name
	Condition      string            // pre-execution skip predicate, empty = always run
	Timeout        time.Duration
	RetryPolicy    *RetryPolicy
}

// TransitionDefinition is a directed, optionally guarded edge between two
// activities.
type TransitionDefinition struct {
	From      string
	To        string
	Condition string
	Priority  int // lower fires first; zero value is treated as DefaultPriority by the engine
	IsDefault bool
}

// DefaultPriority is used when a TransitionDefinition's Priority is left at
// its Go zero value, matching the "default 100".
const DefaultPriority = 100

// EffectivePriority returns t.Priority, or DefaultPriority if it was never
// set (zero value).
func (t TransitionDefinition) EffectivePriority() int {
	if t.Priority == 0 {
		return DefaultPriority
	}
	return t.Priority
}

// RetryPolicy controls automatic retry of a failed activity attempt.
type RetryPolicy struct {
	MaxAttempts       int
	InitialDelay      time.Duration
	MaxDelay          time.Duration
	BackoffMultiplier float64
	RetryOn           []string // error codes; empty = retry any retriable error
	DoNotRetryOn      []string // error codes; takes precedence over RetryOn
}

// Schema is a minimal JSON-schema-shaped input/output contract: required
// field names and, for fields whose type is constrained, the expected
// runtime type name (string|number|integer|boolean|array|object).
type Schema struct {
	Required   []string
	Properties map[string]SchemaProperty
}

// SchemaProperty names the expected runtime type of one field.
type SchemaProperty struct {
	Type string
}

// ActivityIDs returns the set of activity ids defined on d.
func (d *WorkflowDefinition) ActivityIDs() map[string]struct{} {
	ids := make(map[string]struct{}, len(d.Activities))
	for _, a := range d.Activities {
		ids[a.ID] = struct{}{}
	}
	return ids
}

// Activity looks up an ActivityDefinition by id.
func (d *WorkflowDefinition) Activity(id string) (ActivityDefinition, bool) {
	for _, a := range d.Activities {
		if a.ID == id {
			return a, true
		}
	}
	return ActivityDefinition{}, false
}

// TransitionsFrom returns the transitions whose From == activityID, sorted
// by EffectivePriority ascending.
func (d *WorkflowDefinition) TransitionsFrom(activityID string) []TransitionDefinition {
	var out []TransitionDefinition
	for _, t := range d.Transitions {
		if t.From == activityID {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].EffectivePriority() < out[j].EffectivePriority()
	})
	return out
}

// Validate checks the invariants a definition must satisfy before it may
// be saved: start_activity_id and every transition endpoint resolve to a
// defined activity, activity ids are unique, and a Scheduled trigger
// carries a cron expression.
func (d *WorkflowDefinition) Validate() error {
	seen := make(map[string]struct{}, len(d.Activities))
	for _, a := range d.Activities {
		if a.ID == "" {
			return fmt.Errorf("activity with empty id")
		}
		if _, dup := seen[a.ID]; dup {
			return fmt.Errorf("duplicate activity id %q", a.ID)
		}
		seen[a.ID] = struct{}{}
	}

	if d.StartActivityID == "" {
		return fmt.Errorf("start_activity_id is required")
	}
	if _, ok := seen[d.StartActivityID]; !ok {
		return fmt.Errorf("start_activity_id %q is not a defined activity", d.StartActivityID)
	}

	for _, t := range d.Transitions {
		if _, ok := seen[t.From]; !ok {
			return fmt.Errorf("transition from unknown activity %q", t.From)
		}
		if _, ok := seen[t.To]; !ok {
			return fmt.Errorf("transition to unknown activity %q", t.To)
		}
	}

	if d.Trigger == ScheduledTrigger && d.CronExpression == "" {
		return fmt.Errorf("scheduled trigger requires a cron_expression")
	}

	return nil
}
