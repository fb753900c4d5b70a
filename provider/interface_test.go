package provider_test

import (
	"context"
	"testing"
	"time"

	"chatkit/model"
	"chatkit/provider/testutil"
)

// TestProviderContract defines the behavior every provider must satisfy.
// It runs against the mock here; the per-provider tests exercise the same
// surface against recorded wire streams.
func TestProviderContract(t *testing.T) {
	tests := []struct {
		name     string
		provider model.Provider
	}{
		{"Mock", testutil.NewMockProvider("test-model")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Run("BasicChat", func(t *testing.T) {
				testProviderBasicChat(t, tt.provider)
			})
			t.Run("ChatWithTools", func(t *testing.T) {
				testProviderChatWithTools(t, tt.provider)
			})
			t.Run("ModelManagement", func(t *testing.T) {
				testProviderModelManagement(t, tt.provider)
			})
			t.Run("HealthCheck", func(t *testing.T) {
				testProviderHealthCheck(t, tt.provider)
			})
		})
	}
}

func testProviderBasicChat(t *testing.T, p model.Provider) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	rec := &testutil.StreamRecorder{}
	msg, err := p.Chat(ctx, testutil.SingleUserMessage("Hello"), rec.Handlers())
	if err != nil {
		t.Fatalf("Chat() error = %v", err)
	}

	if msg == nil {
		t.Fatal("Chat() returned nil message")
	}
	if msg.Role != model.RoleAssistant {
		t.Errorf("Role = %q, want %q", msg.Role, model.RoleAssistant)
	}
	if msg.ID == "" {
		t.Error("message has no ID")
	}
	// Streamed chunks must concatenate to the final content.
	if rec.Text() != msg.Content {
		t.Errorf("streamed text %q != final content %q", rec.Text(), msg.Content)
	}
}

func testProviderChatWithTools(t *testing.T, p model.Provider) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	msg, err := p.ChatWithTools(ctx, testutil.SingleUserMessage("What's the weather?"), testutil.TestTools(), model.StreamHandlers{})
	if err != nil {
		t.Fatalf("ChatWithTools() error = %v", err)
	}
	if msg == nil {
		t.Fatal("ChatWithTools() returned nil message")
	}
}

func testProviderModelManagement(t *testing.T, p model.Provider) {
	if p.GetModel() == "" {
		t.Error("GetModel() returned empty string")
	}
	if p.GetDisplayName() == "" {
		t.Error("GetDisplayName() returned empty string")
	}

	original := p.GetModel()
	p.SetModel("new-test-model")
	if got := p.GetModel(); got != "new-test-model" {
		t.Errorf("after SetModel, GetModel() = %q", got)
	}
	p.SetModel(original)
}

func testProviderHealthCheck(t *testing.T, p model.Provider) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := p.Ping(ctx); err != nil {
		t.Errorf("Ping() error = %v", err)
	}
}
