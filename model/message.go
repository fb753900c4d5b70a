package model

import (
	"time"

	"github.com/google/uuid"
)

// Message roles. Exactly one role per message, immutable after creation.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Message represents one turn in a conversation.
//
// During streaming, Content and Thinking grow monotonically (append-only);
// both are frozen once the provider signals the end of the response. ToolCalls
// keeps insertion order, which is the order the provider announced them.
type Message struct {
	ID        string     `json:"id"`
	Role      string     `json:"role"`
	Content   string     `json:"content"`
	Thinking  string     `json:"thinking,omitempty"`
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
	Timestamp time.Time  `json:"timestamp"`
}

// NewMessage creates a message with a fresh ID and timestamp.
func NewMessage(role, content string) Message {
	return Message{
		ID:        uuid.New().String(),
		Role:      role,
		Content:   content,
		Timestamp: time.Now(),
	}
}

// ToolStatus tracks the lifecycle of a tool call.
//
// The stream normalizer creates calls as StatusRunning and moves them to
// StatusComplete when the provider closes the call's content block (or the
// stream ends). StatusError is set by the external tool executor, never by
// the normalizer.
type ToolStatus string

const (
	StatusPending  ToolStatus = "pending"
	StatusRunning  ToolStatus = "running"
	StatusComplete ToolStatus = "complete"
	StatusError    ToolStatus = "error"
)

// ToolCall is one model-requested invocation of a named tool.
//
// ID is stable once assigned; snapshots of the same call are re-emitted on
// each update so callers can match them by ID. Input is empty until the
// provider finishes streaming the call's argument fragments.
type ToolCall struct {
	ID       string         `json:"id"`
	Name     string         `json:"name"`
	Input    map[string]any `json:"input"`
	Output   string         `json:"output,omitempty"`
	Status   ToolStatus     `json:"status"`
	Error    string         `json:"error,omitempty"`
	Duration time.Duration  `json:"duration,omitempty"`
}

// ModelInfo describes one model offered by a provider.
type ModelInfo struct {
	Name         string // Display name (vendor prefix stripped for OpenRouter)
	InternalName string // Full API name (e.g. "meta-llama/llama-3.2-90b-instruct")
	Size         int64  // Bytes on disk; 0 when the provider doesn't report size
	Provider     string // Provider ID: "ollama", "openrouter", "anthropic", ...
}
