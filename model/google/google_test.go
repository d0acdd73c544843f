package google

import (
	"context"
	"testing"

	"github.com/flowforge/flowforge/model"
)

func TestNewChatModel_DefaultsModelName(t *testing.T) {
	m := NewChatModel("key", "")
	if m.modelName != "gemini-2.5-flash" {
		t.Fatalf("modelName = %q, want default", m.modelName)
	}
}

type fakeGoogleClient struct {
	out model.ChatOut
	err error
}

func (f *fakeGoogleClient) generateContent(ctx context.Context, messages []model.Message, tools []model.ToolSpec) (model.ChatOut, error) {
	return f.out, f.err
}

func TestChatModel_ChatDelegatesToClient(t *testing.T) {
	fake := &fakeGoogleClient{out: model.ChatOut{Text: "hi"}}
	m := &ChatModel{client: fake}

	out, err := m.Chat(context.Background(), []model.Message{{Role: model.RoleUser, Content: "hi"}}, nil)
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if out.Text != "hi" {
		t.Fatalf("out.Text = %q, want hi", out.Text)
	}
}

func TestChatModel_ChatPropagatesSafetyFilterError(t *testing.T) {
	safetyErr := &SafetyFilterError{Reason: "blocked", Category: "violence"}
	fake := &fakeGoogleClient{err: safetyErr}
	m := &ChatModel{client: fake}

	_, err := m.Chat(context.Background(), []model.Message{{Role: model.RoleUser, Content: "hi"}}, nil)
	if err == nil {
		t.Fatal("expected safety filter error to propagate")
	}
	if err.Error() != "content blocked by safety filter: violence" {
		t.Fatalf("err = %q, want safety message", err.Error())
	}
}

func TestChatModel_ChatReturnsErrorOnCancelledContext(t *testing.T) {
	fake := &fakeGoogleClient{}
	m := &ChatModel{client: fake}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := m.Chat(ctx, []model.Message{{Role: model.RoleUser, Content: "hi"}}, nil)
	if err == nil {
		t.Fatal("expected cancelled context to short-circuit")
	}
}

func TestDefaultClient_RequiresAPIKey(t *testing.T) {
	c := &defaultClient{}
	_, err := c.generateContent(context.Background(), nil, nil)
	if err == nil {
		t.Fatal("expected missing API key to error")
	}
}

func TestConvertTypeString(t *testing.T) {
	cases := map[string]bool{
		"string": true, "number": true, "integer": true,
		"boolean": true, "array": true, "object": true, "bogus": true,
	}
	for typeStr := range cases {
		_ = convertTypeString(typeStr) // exercises every branch without depending on genai.Type's zero value
	}
}

func TestConvertSchemaToGenai_NilSchemaReturnsNil(t *testing.T) {
	if got := convertSchemaToGenai(nil); got != nil {
		t.Fatalf("got %v, want nil", got)
	}
}

func TestConvertSchemaToGenai_ExtractsPropertiesAndRequired(t *testing.T) {
	schema := map[string]interface{}{
		"properties": map[string]interface{}{
			"q": map[string]interface{}{"type": "string", "description": "query"},
		},
		"required": []string{"q"},
	}
	got := convertSchemaToGenai(schema)
	if got == nil || len(got.Properties) != 1 {
		t.Fatalf("got %+v, want one property", got)
	}
	if got.Properties["q"].Description != "query" {
		t.Fatalf("description = %q, want query", got.Properties["q"].Description)
	}
	if len(got.Required) != 1 || got.Required[0] != "q" {
		t.Fatalf("required = %+v, want [q]", got.Required)
	}
}
