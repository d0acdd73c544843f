package openai

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/flowforge/flowforge/model"
)

func TestNewChatModel_DefaultsModelName(t *testing.T) {
	m := NewChatModel("key", "")
	if m.modelName != "gpt-4o" {
		t.Fatalf("modelName = %q, want gpt-4o", m.modelName)
	}
}

type fakeOpenAIClient struct {
	calls int
	errs  []error
	out   model.ChatOut
}

func (f *fakeOpenAIClient) createChatCompletion(ctx context.Context, messages []model.Message, tools []model.ToolSpec) (model.ChatOut, error) {
	i := f.calls
	f.calls++
	if i < len(f.errs) {
		return model.ChatOut{}, f.errs[i]
	}
	return f.out, nil
}

func TestChatModel_ChatSucceedsOnFirstTry(t *testing.T) {
	fake := &fakeOpenAIClient{out: model.ChatOut{Text: "hi"}}
	m := &ChatModel{client: fake, maxRetries: 3, retryDelay: time.Millisecond}

	out, err := m.Chat(context.Background(), []model.Message{{Role: model.RoleUser, Content: "hi"}}, nil)
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if out.Text != "hi" || fake.calls != 1 {
		t.Fatalf("out = %+v, calls = %d, want one successful call", out, fake.calls)
	}
}

func TestChatModel_ChatRetriesTransientErrors(t *testing.T) {
	fake := &fakeOpenAIClient{
		errs: []error{errors.New("503 service unavailable"), errors.New("connection reset")},
		out:  model.ChatOut{Text: "recovered"},
	}
	m := &ChatModel{client: fake, maxRetries: 3, retryDelay: time.Millisecond}

	out, err := m.Chat(context.Background(), []model.Message{{Role: model.RoleUser, Content: "hi"}}, nil)
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if out.Text != "recovered" || fake.calls != 3 {
		t.Fatalf("out = %+v, calls = %d, want 3 calls (2 retries)", out, fake.calls)
	}
}

func TestChatModel_ChatDoesNotRetryNonTransientErrors(t *testing.T) {
	fake := &fakeOpenAIClient{errs: []error{errors.New("invalid request: bad schema")}}
	m := &ChatModel{client: fake, maxRetries: 3, retryDelay: time.Millisecond}

	_, err := m.Chat(context.Background(), []model.Message{{Role: model.RoleUser, Content: "hi"}}, nil)
	if err == nil {
		t.Fatal("expected non-transient error to propagate")
	}
	if fake.calls != 1 {
		t.Fatalf("calls = %d, want 1 (no retry)", fake.calls)
	}
}

func TestChatModel_ChatExhaustsRetriesAndReturnsWrappedError(t *testing.T) {
	fake := &fakeOpenAIClient{errs: []error{
		errors.New("timeout"), errors.New("timeout"), errors.New("timeout"), errors.New("timeout"),
	}}
	m := &ChatModel{client: fake, maxRetries: 3, retryDelay: time.Millisecond}

	_, err := m.Chat(context.Background(), []model.Message{{Role: model.RoleUser, Content: "hi"}}, nil)
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if fake.calls != 4 {
		t.Fatalf("calls = %d, want 4 (initial + 3 retries)", fake.calls)
	}
}

func TestChatModel_ChatReturnsErrorOnCancelledContext(t *testing.T) {
	fake := &fakeOpenAIClient{}
	m := &ChatModel{client: fake, maxRetries: 3, retryDelay: time.Millisecond}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := m.Chat(ctx, []model.Message{{Role: model.RoleUser, Content: "hi"}}, nil)
	if err == nil {
		t.Fatal("expected cancelled context to short-circuit")
	}
	if fake.calls != 0 {
		t.Fatalf("calls = %d, want 0", fake.calls)
	}
}

func TestIsTransientError(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{errors.New("network unreachable"), true},
		{errors.New("502 bad gateway"), true},
		{errors.New("invalid api key"), false},
		{&rateLimitError{message: "rate limited"}, true},
	}
	for _, c := range cases {
		if got := isTransientError(c.err); got != c.want {
			t.Errorf("isTransientError(%v) = %v, want %v", c.err, got, c.want)
		}
	}
}

func TestDefaultClient_RequiresAPIKey(t *testing.T) {
	c := &defaultClient{}
	_, err := c.createChatCompletion(context.Background(), nil, nil)
	if err == nil {
		t.Fatal("expected missing API key to error")
	}
}

func TestParseToolInput_EmptyReturnsNil(t *testing.T) {
	if got := parseToolInput(""); got != nil {
		t.Fatalf("got %v, want nil", got)
	}
}
