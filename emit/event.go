// Package emit provides the engine's pluggable observability backbone:
// workflow instance and activity execution lifecycle events, delivered
// to whatever sink the caller wires in.
package emit

// Event is one observability event emitted during instance execution:
// activity start/end, retries, suspensions, failures, transition choices.
type Event struct {
	// InstanceID identifies the workflow instance that emitted this event.
	InstanceID string

	// Attempt is the 1-based attempt number of the activity execution this
	// event describes. Zero for instance-level events (start, complete).
	Attempt int

	// ActivityID identifies which activity emitted this event. Empty for
	// instance-level events.
	ActivityID string

	// Msg is a short event name, e.g. "activity_start", "activity_end",
	// "retry", "suspend", "transition".
	Msg string

	// Meta carries event-specific structured data: "duration_ms",
	// "error", "next_activity_id", "retryable", and similar.
	Meta map[string]interface{}
}
