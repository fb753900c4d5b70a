package model

import (
	"context"

	mcptypes "github.com/mark3labs/mcp-go/mcp"
)

// Provider abstracts LLM provider implementations (Anthropic, OpenAI,
// OpenRouter, Ollama, Bedrock) using provider-agnostic types from the model
// layer.
//
// This interface lives in the model package (not provider) to avoid import
// cycles: provider implementations import model, and callers can depend on
// the interface without pulling in every adapter.
//
// Chat is the single send-message operation this module offers. It blocks
// until the provider's stream ends and returns the finished assistant
// message, invoking the optional StreamHandlers incrementally along the way.
// Error semantics:
//   - non-2xx responses and transport failures return an error and no message;
//   - caller cancellation surfaces as the context's error
//     (errors.Is(err, context.Canceled)), meaning "no message produced", not a
//     provider failure;
//   - malformed individual stream events never fail the call.
type Provider interface {
	// Chat sends messages and streams the response, returning the final message.
	Chat(ctx context.Context, messages []Message, handlers StreamHandlers) (*Message, error)

	// ChatWithTools sends messages along with tool definitions the model may invoke.
	ChatWithTools(ctx context.Context, messages []Message, tools []mcptypes.Tool, handlers StreamHandlers) (*Message, error)

	// ListModels returns available models for this provider.
	ListModels(ctx context.Context) ([]ModelInfo, error)

	// GetModel returns the currently selected model name (InternalName for API calls).
	GetModel() string

	// GetDisplayName returns the model name formatted for display.
	// For OpenRouter this strips the vendor prefix ("qwen/qwen3-coder" → "qwen3-coder").
	GetDisplayName() string

	// SetModel changes the active model.
	SetModel(model string)

	// Ping checks if the provider is reachable with the configured credentials.
	Ping(ctx context.Context) error
}

// StreamHandlers holds the caller's observers for one streaming Chat call.
// Any field may be nil; use the Emit helpers so "no-op when absent" is a
// single explicit branch instead of nil checks scattered through adapters.
//
// Within one stream, invocations occur strictly in the order events were
// received from the wire.
type StreamHandlers struct {
	// OnText receives each new chunk of answer text. Concatenating the
	// chunks in order reconstructs the final Content exactly.
	OnText func(chunk string)

	// OnThinking receives the cumulative reasoning text after each update.
	OnThinking func(thinking string)

	// OnToolCall receives a snapshot of a tool call when it is announced and
	// again each time it changes. Snapshots of one call share an ID.
	OnToolCall func(call ToolCall)
}

// EmitText forwards a non-empty text chunk to OnText if set.
func (h StreamHandlers) EmitText(chunk string) {
	if h.OnText != nil && chunk != "" {
		h.OnText(chunk)
	}
}

// EmitThinking forwards the cumulative thinking text to OnThinking if set.
func (h StreamHandlers) EmitThinking(thinking string) {
	if h.OnThinking != nil && thinking != "" {
		h.OnThinking(thinking)
	}
}

// EmitToolCall forwards a tool call snapshot to OnToolCall if set.
func (h StreamHandlers) EmitToolCall(call ToolCall) {
	if h.OnToolCall != nil {
		h.OnToolCall(call)
	}
}
