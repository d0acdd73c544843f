package emit

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func newRecordingEmitter() (*OTelEmitter, *tracetest.SpanRecorder) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	return NewOTelEmitter(tp.Tracer("test")), sr
}

func TestOTelEmitter_EmitCreatesSpanWithAttributes(t *testing.T) {
	e, sr := newRecordingEmitter()
	e.Emit(Event{InstanceID: "i1", ActivityID: "a", Msg: "activity_start", Attempt: 2, Meta: map[string]interface{}{
		"duration_ms": int64(42),
		"retryable":   true,
	}})

	spans := sr.Ended()
	if len(spans) != 1 {
		t.Fatalf("len(spans) = %d, want 1", len(spans))
	}
	if spans[0].Name() != "activity_start" {
		t.Fatalf("span name = %q, want activity_start", spans[0].Name())
	}

	attrs := map[string]bool{}
	for _, kv := range spans[0].Attributes() {
		attrs[string(kv.Key)] = true
	}
	for _, want := range []string{"flowforge.instance_id", "flowforge.activity_id", "flowforge.attempt", "flowforge.duration_ms", "flowforge.retryable"} {
		if !attrs[want] {
			t.Errorf("missing attribute %q in %v", want, attrs)
		}
	}
}

func TestOTelEmitter_EmitSetsErrorStatusWhenMetaHasError(t *testing.T) {
	e, sr := newRecordingEmitter()
	e.Emit(Event{InstanceID: "i1", Msg: "activity_end", Meta: map[string]interface{}{"error": "boom"}})

	spans := sr.Ended()
	if len(spans) != 1 {
		t.Fatalf("len(spans) = %d, want 1", len(spans))
	}
	if spans[0].Status().Code != codes.Error {
		t.Fatalf("status = %+v, want Error", spans[0].Status())
	}
}

func TestOTelEmitter_EmitBatchEndsEverySpan(t *testing.T) {
	e, sr := newRecordingEmitter()
	if err := e.EmitBatch(context.Background(), []Event{{Msg: "one"}, {Msg: "two"}}); err != nil {
		t.Fatalf("EmitBatch: %v", err)
	}
	if len(sr.Ended()) != 2 {
		t.Fatalf("len(spans) = %d, want 2", len(sr.Ended()))
	}
}

func TestOTelEmitter_FlushWithNoGlobalProviderIsNoop(t *testing.T) {
	e, _ := newRecordingEmitter()
	if err := e.Flush(context.Background()); err != nil {
		t.Fatalf("Flush: %v", err)
	}
}
