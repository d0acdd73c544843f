package emit

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestLogEmitter_TextMode(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogEmitter(&buf, false)
	l.Emit(Event{InstanceID: "i1", ActivityID: "a", Msg: "activity_start", Attempt: 1, Meta: map[string]interface{}{"k": "v"}})

	out := buf.String()
	if !strings.Contains(out, "[activity_start]") || !strings.Contains(out, "instance=i1") || !strings.Contains(out, "activity=a") {
		t.Fatalf("unexpected text output: %q", out)
	}
	if !strings.Contains(out, `meta={"k":"v"}`) {
		t.Fatalf("expected meta rendered as json, got: %q", out)
	}
}

func TestLogEmitter_JSONMode(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogEmitter(&buf, true)
	l.Emit(Event{InstanceID: "i1", ActivityID: "a", Msg: "activity_end", Attempt: 2})

	var decoded struct {
		InstanceID string `json:"instanceId"`
		Attempt    int    `json:"attempt"`
		ActivityID string `json:"activityId"`
		Msg        string `json:"msg"`
	}
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("unmarshal: %v, raw: %q", err, buf.String())
	}
	if decoded.InstanceID != "i1" || decoded.Attempt != 2 || decoded.ActivityID != "a" || decoded.Msg != "activity_end" {
		t.Fatalf("decoded = %+v", decoded)
	}
}

func TestLogEmitter_NilWriterDefaultsToStdout(t *testing.T) {
	l := NewLogEmitter(nil, false)
	if l.writer == nil {
		t.Fatal("expected default writer to be set")
	}
}

func TestLogEmitter_EmitBatch(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogEmitter(&buf, false)
	events := []Event{{Msg: "one"}, {Msg: "two"}}
	if err := l.EmitBatch(nil, events); err != nil {
		t.Fatalf("EmitBatch: %v", err)
	}
	if strings.Count(buf.String(), "\n") != 2 {
		t.Fatalf("expected one line per event, got: %q", buf.String())
	}
}
