package provider

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"sync"
	"testing"

	"chatkit/model"
	"chatkit/provider/testutil"
)

func newTestAnthropicProvider(t *testing.T, serverURL string) *AnthropicProvider {
	t.Helper()
	p, err := NewAnthropicProvider(Config{
		Type:    ProviderTypeAnthropic,
		BaseURL: serverURL,
		APIKey:  "test-key",
	})
	if err != nil {
		t.Fatalf("NewAnthropicProvider() error = %v", err)
	}
	return p
}

func TestAnthropicChatTextStream(t *testing.T) {
	body := testutil.SSEEvent("message_start", `{"type": "message_start"}`) +
		testutil.SSEEvent("content_block_start", `{"type": "content_block_start", "index": 0, "content_block": {"type": "text"}}`) +
		testutil.SSEEvent("content_block_delta", `{"type": "content_block_delta", "index": 0, "delta": {"type": "text_delta", "text": "Hello "}}`) +
		testutil.SSEEvent("content_block_delta", `{"type": "content_block_delta", "index": 0, "delta": {"type": "text_delta", "text": "world"}}`) +
		testutil.SSEEvent("content_block_stop", `{"type": "content_block_stop", "index": 0}`) +
		testutil.SSEEvent("message_stop", `{"type": "message_stop"}`)

	server := testutil.SSEServer(body)
	defer server.Close()

	p := newTestAnthropicProvider(t, server.URL)
	rec := &testutil.StreamRecorder{}

	msg, err := p.Chat(context.Background(), testutil.SingleUserMessage("hi"), rec.Handlers())
	if err != nil {
		t.Fatalf("Chat() error = %v", err)
	}

	if msg.Content != "Hello world" {
		t.Errorf("Content = %q, want %q", msg.Content, "Hello world")
	}
	if msg.Role != model.RoleAssistant {
		t.Errorf("Role = %q, want %q", msg.Role, model.RoleAssistant)
	}
	if want := []string{"Hello ", "world"}; !reflect.DeepEqual(rec.Texts, want) {
		t.Errorf("chunks = %v, want %v", rec.Texts, want)
	}
}

func TestAnthropicChatThinkingStream(t *testing.T) {
	body := testutil.SSEEvent("content_block_start", `{"type": "content_block_start", "index": 0, "content_block": {"type": "thinking"}}`) +
		testutil.SSEEvent("content_block_delta", `{"type": "content_block_delta", "index": 0, "delta": {"type": "thinking_delta", "thinking": "Consider"}}`) +
		testutil.SSEEvent("content_block_delta", `{"type": "content_block_delta", "index": 0, "delta": {"type": "thinking_delta", "thinking": " the request"}}`) +
		testutil.SSEEvent("content_block_stop", `{"type": "content_block_stop", "index": 0}`) +
		testutil.SSEEvent("content_block_start", `{"type": "content_block_start", "index": 1, "content_block": {"type": "text"}}`) +
		testutil.SSEEvent("content_block_delta", `{"type": "content_block_delta", "index": 1, "delta": {"type": "text_delta", "text": "Done."}}`) +
		testutil.SSEEvent("message_stop", `{"type": "message_stop"}`)

	server := testutil.SSEServer(body)
	defer server.Close()

	p := newTestAnthropicProvider(t, server.URL)
	rec := &testutil.StreamRecorder{}

	msg, err := p.Chat(context.Background(), testutil.SingleUserMessage("hi"), rec.Handlers())
	if err != nil {
		t.Fatalf("Chat() error = %v", err)
	}

	if msg.Thinking != "Consider the request" {
		t.Errorf("Thinking = %q, want %q", msg.Thinking, "Consider the request")
	}
	if msg.Content != "Done." {
		t.Errorf("Content = %q, want %q", msg.Content, "Done.")
	}
	// Thinking snapshots are cumulative.
	if want := []string{"Consider", "Consider the request"}; !reflect.DeepEqual(rec.Thinking, want) {
		t.Errorf("thinking snapshots = %v, want %v", rec.Thinking, want)
	}
}

func TestAnthropicChatToolCallStream(t *testing.T) {
	body := testutil.SSEEvent("content_block_start", `{"type": "content_block_start", "index": 0, "content_block": {"type": "tool_use", "id": "t1", "name": "search"}}`) +
		testutil.SSEEvent("content_block_delta", `{"type": "content_block_delta", "index": 0, "delta": {"type": "input_json_delta", "partial_json": "{\"q\":"}}`) +
		testutil.SSEEvent("content_block_delta", `{"type": "content_block_delta", "index": 0, "delta": {"type": "input_json_delta", "partial_json": " \"x\"}"}}`) +
		testutil.SSEEvent("content_block_stop", `{"type": "content_block_stop", "index": 0}`) +
		testutil.SSEEvent("message_stop", `{"type": "message_stop"}`)

	server := testutil.SSEServer(body)
	defer server.Close()

	p := newTestAnthropicProvider(t, server.URL)
	rec := &testutil.StreamRecorder{}

	msg, err := p.ChatWithTools(context.Background(), testutil.SingleUserMessage("find x"), testutil.TestTools(), rec.Handlers())
	if err != nil {
		t.Fatalf("ChatWithTools() error = %v", err)
	}

	if len(msg.ToolCalls) != 1 {
		t.Fatalf("got %d tool calls, want 1", len(msg.ToolCalls))
	}
	call := msg.ToolCalls[0]
	if call.ID != "t1" || call.Name != "search" {
		t.Errorf("call = %q/%q, want t1/search", call.ID, call.Name)
	}
	if call.Status != model.StatusComplete {
		t.Errorf("Status = %q, want %q", call.Status, model.StatusComplete)
	}
	if want := map[string]any{"q": "x"}; !reflect.DeepEqual(call.Input, want) {
		t.Errorf("Input = %v, want %v", call.Input, want)
	}

	// Running snapshot first, complete snapshot second.
	if len(rec.ToolCalls) != 2 {
		t.Fatalf("got %d snapshots, want 2", len(rec.ToolCalls))
	}
	if rec.ToolCalls[0].Status != model.StatusRunning || rec.ToolCalls[1].Status != model.StatusComplete {
		t.Errorf("snapshot statuses = %q, %q", rec.ToolCalls[0].Status, rec.ToolCalls[1].Status)
	}
}

func TestAnthropicChatMalformedToolArgs(t *testing.T) {
	body := testutil.SSEEvent("content_block_start", `{"type": "content_block_start", "index": 0, "content_block": {"type": "tool_use", "id": "t1", "name": "search"}}`) +
		testutil.SSEEvent("content_block_delta", `{"type": "content_block_delta", "index": 0, "delta": {"type": "input_json_delta", "partial_json": "{\"q\": tru"}}`) +
		testutil.SSEEvent("content_block_stop", `{"type": "content_block_stop", "index": 0}`) +
		testutil.SSEEvent("message_stop", `{"type": "message_stop"}`)

	server := testutil.SSEServer(body)
	defer server.Close()

	p := newTestAnthropicProvider(t, server.URL)

	msg, err := p.ChatWithTools(context.Background(), testutil.SingleUserMessage("find"), testutil.TestTools(), model.StreamHandlers{})
	if err != nil {
		t.Fatalf("ChatWithTools() error = %v", err)
	}

	if len(msg.ToolCalls) != 1 {
		t.Fatalf("got %d tool calls, want 1", len(msg.ToolCalls))
	}
	want := map[string]any{"raw": `{"q": tru`}
	if !reflect.DeepEqual(msg.ToolCalls[0].Input, want) {
		t.Errorf("Input = %v, want %v", msg.ToolCalls[0].Input, want)
	}
	if msg.ToolCalls[0].Status != model.StatusComplete {
		t.Errorf("Status = %q, want %q", msg.ToolCalls[0].Status, model.StatusComplete)
	}
}

func TestAnthropicChatSkipsMalformedEvents(t *testing.T) {
	body := testutil.SSEData(`{not json`) +
		testutil.SSEEvent("content_block_delta", `{"type": "content_block_delta", "index": 0, "delta": {"type": "text_delta", "text": "ok"}}`) +
		testutil.SSEEvent("message_stop", `{"type": "message_stop"}`)

	server := testutil.SSEServer(body)
	defer server.Close()

	p := newTestAnthropicProvider(t, server.URL)

	msg, err := p.Chat(context.Background(), testutil.SingleUserMessage("hi"), model.StreamHandlers{})
	if err != nil {
		t.Fatalf("Chat() error = %v", err)
	}
	if msg.Content != "ok" {
		t.Errorf("Content = %q, want %q", msg.Content, "ok")
	}
}

func TestAnthropicChatStreamError(t *testing.T) {
	body := testutil.SSEEvent("error", `{"type": "error", "error": {"type": "overloaded_error", "message": "try later"}}`)

	server := testutil.SSEServer(body)
	defer server.Close()

	p := newTestAnthropicProvider(t, server.URL)

	msg, err := p.Chat(context.Background(), testutil.SingleUserMessage("hi"), model.StreamHandlers{})
	if err == nil {
		t.Fatal("expected an error from the error event")
	}
	if msg != nil {
		t.Errorf("expected no message on failure, got %+v", msg)
	}
}

func TestAnthropicChatHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": "invalid api key"}`, http.StatusUnauthorized)
	}))
	defer server.Close()

	p := newTestAnthropicProvider(t, server.URL)

	_, err := p.Chat(context.Background(), testutil.SingleUserMessage("hi"), model.StreamHandlers{})
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %v", err)
	}
	if apiErr.Status != http.StatusUnauthorized {
		t.Errorf("Status = %d, want %d", apiErr.Status, http.StatusUnauthorized)
	}
}

func TestAnthropicChatCancellation(t *testing.T) {
	firstChunk := make(chan struct{})
	var once sync.Once

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(testutil.SSEEvent("content_block_delta", `{"type": "content_block_delta", "index": 0, "delta": {"type": "text_delta", "text": "partial"}}`)))
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
		once.Do(func() { close(firstChunk) })
		<-r.Context().Done()
	}))
	defer server.Close()

	p := newTestAnthropicProvider(t, server.URL)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-firstChunk
		cancel()
	}()

	msg, err := p.Chat(ctx, testutil.SingleUserMessage("hi"), model.StreamHandlers{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if msg != nil {
		t.Errorf("expected no message on cancellation, got %+v", msg)
	}
}

func TestAnthropicRequiresAPIKey(t *testing.T) {
	if _, err := NewAnthropicProvider(Config{Type: ProviderTypeAnthropic}); err == nil {
		t.Error("expected an error without an API key")
	}
}

func TestConvertToAnthropicMessages(t *testing.T) {
	messages := []model.Message{
		{Role: model.RoleSystem, Content: "be brief"},
		{Role: model.RoleUser, Content: "hi"},
		{Role: model.RoleAssistant, Content: "hello"},
	}

	converted, system := convertToAnthropicMessages(messages)

	if len(system) != 1 || system[0].Text != "be brief" {
		t.Errorf("system blocks = %+v, want one block with %q", system, "be brief")
	}
	if len(converted) != 2 {
		t.Fatalf("got %d messages, want 2", len(converted))
	}
	if converted[0].Role != model.RoleUser || converted[1].Role != model.RoleAssistant {
		t.Errorf("roles = %q, %q", converted[0].Role, converted[1].Role)
	}
}
