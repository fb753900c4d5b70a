// Package testutil provides shared test doubles and fixtures for provider
// tests: a configurable mock Provider, stream-event recorders, and an SSE
// test server builder.
package testutil

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"

	mcptypes "github.com/mark3labs/mcp-go/mcp"

	"chatkit/model"
)

// MockProvider implements model.Provider for testing. Every method is
// backed by a swappable func field with a sensible default.
type MockProvider struct {
	ChatFunc          func(ctx context.Context, messages []model.Message, handlers model.StreamHandlers) (*model.Message, error)
	ChatWithToolsFunc func(ctx context.Context, messages []model.Message, tools []mcptypes.Tool, handlers model.StreamHandlers) (*model.Message, error)
	ListModelsFunc    func(ctx context.Context) ([]model.ModelInfo, error)
	PingFunc          func(ctx context.Context) error

	currentModel string
}

// NewMockProvider creates a mock provider with default implementations.
func NewMockProvider(modelName string) *MockProvider {
	mock := &MockProvider{currentModel: modelName}
	mock.ChatFunc = mock.defaultChat
	mock.ChatWithToolsFunc = mock.defaultChatWithTools
	mock.ListModelsFunc = mock.defaultListModels
	mock.PingFunc = func(ctx context.Context) error { return nil }
	return mock
}

func (m *MockProvider) defaultChat(ctx context.Context, messages []model.Message, handlers model.StreamHandlers) (*model.Message, error) {
	handlers.EmitText("Mock response")
	msg := model.NewMessage(model.RoleAssistant, "Mock response")
	return &msg, nil
}

func (m *MockProvider) defaultChatWithTools(ctx context.Context, messages []model.Message, tools []mcptypes.Tool, handlers model.StreamHandlers) (*model.Message, error) {
	handlers.EmitText("Mock response with tools")
	msg := model.NewMessage(model.RoleAssistant, "Mock response with tools")
	return &msg, nil
}

func (m *MockProvider) defaultListModels(ctx context.Context) ([]model.ModelInfo, error) {
	return []model.ModelInfo{
		{Name: "mock-model-1", InternalName: "mock-model-1", Size: 1000, Provider: "mock"},
		{Name: "mock-model-2", InternalName: "mock-model-2", Size: 2000, Provider: "mock"},
	}, nil
}

func (m *MockProvider) Chat(ctx context.Context, messages []model.Message, handlers model.StreamHandlers) (*model.Message, error) {
	return m.ChatFunc(ctx, messages, handlers)
}

func (m *MockProvider) ChatWithTools(ctx context.Context, messages []model.Message, tools []mcptypes.Tool, handlers model.StreamHandlers) (*model.Message, error) {
	return m.ChatWithToolsFunc(ctx, messages, tools, handlers)
}

func (m *MockProvider) ListModels(ctx context.Context) ([]model.ModelInfo, error) {
	return m.ListModelsFunc(ctx)
}

func (m *MockProvider) GetModel() string { return m.currentModel }

func (m *MockProvider) GetDisplayName() string { return m.currentModel }

func (m *MockProvider) SetModel(model string) { m.currentModel = model }

func (m *MockProvider) Ping(ctx context.Context) error { return m.PingFunc(ctx) }

// StreamRecorder captures everything emitted through StreamHandlers so
// tests can assert on chunk order, thinking snapshots and tool-call
// snapshot sequences.
type StreamRecorder struct {
	mu        sync.Mutex
	Texts     []string
	Thinking  []string
	ToolCalls []model.ToolCall
}

// Handlers returns a StreamHandlers wired to record into the recorder.
func (r *StreamRecorder) Handlers() model.StreamHandlers {
	return model.StreamHandlers{
		OnText: func(chunk string) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.Texts = append(r.Texts, chunk)
		},
		OnThinking: func(thinking string) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.Thinking = append(r.Thinking, thinking)
		},
		OnToolCall: func(call model.ToolCall) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.ToolCalls = append(r.ToolCalls, call)
		},
	}
}

// Text concatenates all recorded text chunks.
func (r *StreamRecorder) Text() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out string
	for _, t := range r.Texts {
		out += t
	}
	return out
}

// SSEServer starts an httptest server that answers every request with the
// given pre-rendered SSE body. The caller owns the returned server.
func SSEServer(body string) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(body))
	}))
}

// SSEEvent renders one named SSE frame.
func SSEEvent(event, data string) string {
	return "event: " + event + "\ndata: " + data + "\n\n"
}

// SSEData renders one data-only SSE frame.
func SSEData(data string) string {
	return "data: " + data + "\n\n"
}
