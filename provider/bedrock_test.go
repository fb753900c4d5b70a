package provider

import (
	"encoding/json"
	"reflect"
	"testing"

	"chatkit/model"
	"chatkit/provider/testutil"
)

func TestBedrockBuildPayload(t *testing.T) {
	p := &BedrockProvider{
		model:     defaultBedrockModel,
		maxTokens: 512,
		thinking:  true,
	}

	payload := p.buildPayload(testutil.SingleUserMessage("hi"), testutil.TestTools(), p.maxTokens)

	if payload.AnthropicVersion != bedrockAnthropicVersion {
		t.Errorf("AnthropicVersion = %q, want %q", payload.AnthropicVersion, bedrockAnthropicVersion)
	}
	if payload.MaxTokens != 512 {
		t.Errorf("MaxTokens = %d, want 512", payload.MaxTokens)
	}
	if payload.Thinking == nil || payload.Thinking.Type != "enabled" {
		t.Errorf("Thinking = %+v, want enabled", payload.Thinking)
	}
	if len(payload.Tools) != 2 {
		t.Errorf("got %d tools, want 2", len(payload.Tools))
	}

	// The model and stream flag travel in the API call, not the payload.
	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	var decoded map[string]any
	json.Unmarshal(raw, &decoded)
	if _, ok := decoded["model"]; ok {
		t.Error("payload must not carry a model field")
	}
	if _, ok := decoded["stream"]; ok {
		t.Error("payload must not carry a stream field")
	}
}

// Bedrock chunks carry the same event family as the Messages API; the
// dispatcher below is the exact code path ChatWithTools feeds each chunk to.
func TestBedrockChunkDispatch(t *testing.T) {
	rec := &testutil.StreamRecorder{}
	acc := newAccumulator(rec.Handlers())

	chunks := []string{
		`{"type": "message_start"}`,
		`{"type": "content_block_start", "index": 0, "content_block": {"type": "text"}}`,
		`{"type": "content_block_delta", "index": 0, "delta": {"type": "text_delta", "text": "Hi from "}}`,
		`{"type": "content_block_delta", "index": 0, "delta": {"type": "text_delta", "text": "Bedrock"}}`,
		`{"type": "content_block_stop", "index": 0}`,
		`{"type": "content_block_start", "index": 1, "content_block": {"type": "tool_use", "id": "b1", "name": "get_weather"}}`,
		`{"type": "content_block_delta", "index": 1, "delta": {"type": "input_json_delta", "partial_json": "{\"location\": \"Oslo\"}"}}`,
		`{"type": "content_block_stop", "index": 1}`,
		`{"type": "message_stop"}`,
	}

	var done bool
	for _, chunk := range chunks {
		var err error
		done, err = dispatchAnthropicEvent(acc, []byte(chunk))
		if err != nil {
			t.Fatalf("dispatch error on %q: %v", chunk, err)
		}
		if done {
			break
		}
	}
	if !done {
		t.Fatal("expected done after message_stop")
	}

	msg := acc.Message()
	if msg.Content != "Hi from Bedrock" {
		t.Errorf("Content = %q, want %q", msg.Content, "Hi from Bedrock")
	}
	if len(msg.ToolCalls) != 1 {
		t.Fatalf("got %d tool calls, want 1", len(msg.ToolCalls))
	}
	call := msg.ToolCalls[0]
	if call.ID != "b1" || call.Name != "get_weather" || call.Status != model.StatusComplete {
		t.Errorf("call = %+v", call)
	}
	if want := map[string]any{"location": "Oslo"}; !reflect.DeepEqual(call.Input, want) {
		t.Errorf("Input = %v, want %v", call.Input, want)
	}
}

func TestBedrockListModels(t *testing.T) {
	p := &BedrockProvider{model: defaultBedrockModel}

	models, err := p.ListModels(t.Context())
	if err != nil {
		t.Fatalf("ListModels() error = %v", err)
	}
	if len(models) == 0 {
		t.Fatal("expected a curated model list")
	}
	for _, m := range models {
		if m.Provider != "bedrock" {
			t.Errorf("Provider = %q, want bedrock", m.Provider)
		}
	}
}

func TestBedrockModelManagement(t *testing.T) {
	p := &BedrockProvider{model: defaultBedrockModel}

	if p.GetModel() != defaultBedrockModel {
		t.Errorf("GetModel() = %q", p.GetModel())
	}
	if p.GetDisplayName() != p.GetModel() {
		t.Error("display name should match model ID")
	}
	p.SetModel("anthropic.claude-3-haiku-20240307-v1:0")
	if p.GetModel() != "anthropic.claude-3-haiku-20240307-v1:0" {
		t.Errorf("after SetModel, GetModel() = %q", p.GetModel())
	}
}
