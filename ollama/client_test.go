package ollama

import "testing"

func TestModelSupportsToolCalling(t *testing.T) {
	tests := []struct {
		model string
		want  bool
	}{
		{"llama3.1:latest", true},
		{"llama3.2:3b", true},
		{"llama3.3:70b", true},
		{"qwen2.5-coder:7b", true},
		{"mistral-nemo:latest", true},
		{"command-r:35b", true},
		{"granite3-dense:8b", true},

		// llama3.2 must not be swallowed by the generic llama3 entry.
		{"llama3:latest", false},
		{"llama3-gradient:8b", false},
		{"phi3:mini", false},
		{"gemma2:9b", false},
		{"codellama:13b", false},
		{"deepseek-coder-v2:16b", false},

		// Unknown models default to no support.
		{"some-future-model:1b", false},
		{"", false},

		// Matching is case-insensitive.
		{"Llama3.1:Latest", true},
	}

	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			if got := ModelSupportsToolCalling(tt.model); got != tt.want {
				t.Errorf("ModelSupportsToolCalling(%q) = %v, want %v", tt.model, got, tt.want)
			}
		})
	}
}

func TestClientSupportsToolCalling(t *testing.T) {
	client, err := NewClient("", "llama3.1:latest")
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	if !client.SupportsToolCalling() {
		t.Error("llama3.1 should support tool calling")
	}

	client.SetModel("gemma2:9b")
	if client.SupportsToolCalling() {
		t.Error("gemma2 should not support tool calling")
	}
}

func TestNewClientDefaults(t *testing.T) {
	client, err := NewClient("", "")
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	if client.GetModel() != defaultModel {
		t.Errorf("GetModel() = %q, want %q", client.GetModel(), defaultModel)
	}
	if client.baseURL != defaultBaseURL {
		t.Errorf("baseURL = %q, want %q", client.baseURL, defaultBaseURL)
	}
}

func TestNewClientInvalidURL(t *testing.T) {
	if _, err := NewClient("://bad", "llama3.1"); err == nil {
		t.Error("expected an error for an invalid URL")
	}
}
