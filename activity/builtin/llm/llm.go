// Package llm adapts the model.ChatModel providers into activity.Handler,
// so a workflow definition can invoke an LLM the same way it invokes any
// other built-in activity type.
package llm

import (
	"context"
	"fmt"

	"github.com/flowforge/flowforge/activity"
	"github.com/flowforge/flowforge/model"
	"github.com/flowforge/flowforge/model/anthropic"
	"github.com/flowforge/flowforge/model/google"
	"github.com/flowforge/flowforge/model/openai"
)

// Handler wraps a model.ChatModel as an activity.Handler.
//
// Input:
//   - system: optional system prompt
//   - prompt: user message (required)
//   - history: optional []any of {"role": "...", "content": "..."} maps
//     preceding the prompt
//
// Output:
//   - text: the model's generated text
//   - tool_calls: []any of {"name": "...", "input": map} the model requested
type Handler struct {
	Model model.ChatModel
}

// NewAnthropic builds a Handler backed by Claude.
func NewAnthropic(apiKey, modelName string) Handler {
	return Handler{Model: anthropic.NewChatModel(apiKey, modelName)}
}

// NewOpenAI builds a Handler backed by OpenAI.
func NewOpenAI(apiKey, modelName string) Handler {
	return Handler{Model: openai.NewChatModel(apiKey, modelName)}
}

// NewGoogle builds a Handler backed by Gemini.
func NewGoogle(apiKey, modelName string) Handler {
	return Handler{Model: google.NewChatModel(apiKey, modelName)}
}

func (h Handler) Execute(ctx context.Context, actx *activity.Context) (activity.Result, error) {
	prompt, _ := actx.Input["prompt"].(string)
	if prompt == "" {
		return activity.Fail("INVALID_INPUT", "llm_chat: prompt is required", false), nil
	}

	var messages []model.Message
	if system, _ := actx.Input["system"].(string); system != "" {
		messages = append(messages, model.Message{Role: model.RoleSystem, Content: system})
	}
	if history, ok := actx.Input["history"].([]any); ok {
		for _, entry := range history {
			m, ok := entry.(map[string]any)
			if !ok {
				continue
			}
			role, _ := m["role"].(string)
			content, _ := m["content"].(string)
			messages = append(messages, model.Message{Role: role, Content: content})
		}
	}
	messages = append(messages, model.Message{Role: model.RoleUser, Content: prompt})

	out, err := h.Model.Chat(ctx, messages, nil)
	if err != nil {
		return activity.Fail("LLM_ERROR", fmt.Sprintf("llm_chat: %v", err), true), nil
	}

	toolCalls := make([]any, 0, len(out.ToolCalls))
	for _, tc := range out.ToolCalls {
		toolCalls = append(toolCalls, map[string]any{"name": tc.Name, "input": tc.Input})
	}

	return activity.Ok(map[string]any{
		"text":       out.Text,
		"tool_calls": toolCalls,
	}), nil
}
