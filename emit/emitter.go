package emit

import "context"

// Emitter receives observability events from the execution engine. Emit
// must not block instance execution; implementations that need to do
// network I/O should buffer and flush asynchronously.
type Emitter interface {
	// Emit sends a single event. Implementations must not panic.
	Emit(event Event)

	// EmitBatch sends multiple events, preserving order. Returns an error
	// only on catastrophic failure; individual event failures should be
	// logged internally, not returned.
	EmitBatch(ctx context.Context, events []Event) error

	// Flush blocks until all buffered events are sent or ctx is done.
	// Safe to call multiple times.
	Flush(ctx context.Context) error
}
