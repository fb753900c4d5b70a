package config

func DefaultSettings() *Settings {
	return &Settings{
		DataDirectory: "~/.local/share/chatkit",
		Provider:      "ollama",
		Storage:       "json",
		Ollama: OllamaSettings{
			Host: "http://localhost:11434",
		},
		Bedrock: BedrockSettings{
			Region: "us-east-1",
		},
	}
}

func GenerateSettingsTemplate() string {
	return `# chatkit configuration
# Location: ~/.config/chatkit/settings.toml
# This file uses TOML format: https://toml.io
#
# API keys are NEVER read from this file. Set them in the environment:
#   ANTHROPIC_API_KEY / OPENAI_API_KEY / OPENROUTER_API_KEY
# or the CHATKIT_<PROVIDER>_API_KEY variants.

# Directory where conversations are stored
data_directory = "~/.local/share/chatkit"

# Chat provider: anthropic, openai, openrouter, bedrock or ollama
provider = "ollama"

# Model to use (empty picks the provider default)
model = ""

# Conversation storage backend: json (single conversations.json file)
# or sqlite
storage = "json"

# Default system prompt for new conversations (optional)
# Example: "You are a helpful coding assistant."
system_prompt = ""

# Request the model's reasoning channel where supported
thinking = false

[ollama]
# Ollama server URL
host = "http://localhost:11434"

[bedrock]
# AWS region for Bedrock. Credentials come from the usual AWS chain.
region = "us-east-1"
`
}
