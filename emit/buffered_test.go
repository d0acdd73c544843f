package emit

import (
	"context"
	"testing"
)

func TestBufferedEmitter_EmitAndGetHistory(t *testing.T) {
	b := NewBufferedEmitter()
	b.Emit(Event{InstanceID: "i1", ActivityID: "a", Msg: "activity_start", Attempt: 1})
	b.Emit(Event{InstanceID: "i1", ActivityID: "a", Msg: "activity_end", Attempt: 1})
	b.Emit(Event{InstanceID: "i2", ActivityID: "b", Msg: "activity_start", Attempt: 1})

	got := b.GetHistory("i1")
	if len(got) != 2 {
		t.Fatalf("len(history) = %d, want 2", len(got))
	}
	if got[0].Msg != "activity_start" || got[1].Msg != "activity_end" {
		t.Fatalf("history out of order: %+v", got)
	}
	if len(b.GetHistory("i2")) != 1 {
		t.Fatalf("expected i2 history isolated from i1")
	}
}

func TestBufferedEmitter_GetHistoryReturnsCopy(t *testing.T) {
	b := NewBufferedEmitter()
	b.Emit(Event{InstanceID: "i1", Msg: "first"})

	got := b.GetHistory("i1")
	got[0].Msg = "mutated"

	again := b.GetHistory("i1")
	if again[0].Msg != "first" {
		t.Fatalf("mutating returned slice affected internal state: %+v", again)
	}
}

func TestBufferedEmitter_GetHistoryWithFilter(t *testing.T) {
	b := NewBufferedEmitter()
	b.Emit(Event{InstanceID: "i1", ActivityID: "a", Msg: "retry", Attempt: 1})
	b.Emit(Event{InstanceID: "i1", ActivityID: "a", Msg: "retry", Attempt: 2})
	b.Emit(Event{InstanceID: "i1", ActivityID: "b", Msg: "retry", Attempt: 1})

	got := b.GetHistoryWithFilter("i1", HistoryFilter{ActivityID: "a"})
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}

	min := 2
	got = b.GetHistoryWithFilter("i1", HistoryFilter{MinAttempt: &min})
	if len(got) != 1 || got[0].Attempt != 2 {
		t.Fatalf("got %+v, want single attempt-2 event", got)
	}

	max := 1
	got = b.GetHistoryWithFilter("i1", HistoryFilter{MaxAttempt: &max})
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2 events with attempt <= 1", len(got))
	}

	got = b.GetHistoryWithFilter("i1", HistoryFilter{Msg: "nonexistent"})
	if len(got) != 0 {
		t.Fatalf("len = %d, want 0", len(got))
	}
}

func TestBufferedEmitter_Clear(t *testing.T) {
	b := NewBufferedEmitter()
	b.Emit(Event{InstanceID: "i1", Msg: "x"})
	b.Emit(Event{InstanceID: "i2", Msg: "y"})

	b.Clear("i1")
	if len(b.GetHistory("i1")) != 0 {
		t.Fatal("expected i1 history cleared")
	}
	if len(b.GetHistory("i2")) != 1 {
		t.Fatal("expected i2 history untouched")
	}

	b.Clear("")
	if len(b.GetHistory("i2")) != 0 {
		t.Fatal("expected Clear(\"\") to wipe all history")
	}
}

func TestBufferedEmitter_EmitBatchPreservesOrder(t *testing.T) {
	b := NewBufferedEmitter()
	events := []Event{
		{InstanceID: "i1", Msg: "one"},
		{InstanceID: "i1", Msg: "two"},
		{InstanceID: "i1", Msg: "three"},
	}
	if err := b.EmitBatch(context.Background(), events); err != nil {
		t.Fatalf("EmitBatch: %v", err)
	}
	got := b.GetHistory("i1")
	if len(got) != 3 || got[0].Msg != "one" || got[1].Msg != "two" || got[2].Msg != "three" {
		t.Fatalf("got %+v, want one/two/three in order", got)
	}
}

func TestNullEmitter_DiscardsEverything(t *testing.T) {
	n := NewNullEmitter()
	n.Emit(Event{InstanceID: "i1", Msg: "whatever"})
	if err := n.EmitBatch(context.Background(), []Event{{Msg: "x"}}); err != nil {
		t.Fatalf("EmitBatch: %v", err)
	}
	if err := n.Flush(context.Background()); err != nil {
		t.Fatalf("Flush: %v", err)
	}
}
