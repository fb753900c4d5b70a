package config

import (
	"fmt"
	"os"
	"strings"
)

// OllamaSettings configures the local Ollama endpoint.
type OllamaSettings struct {
	Host string `toml:"host"`
}

// BedrockSettings configures the AWS Bedrock adapter. Credentials come
// from the standard AWS credential chain, never from this file.
type BedrockSettings struct {
	Region string `toml:"region"`
}

// Settings is the on-disk shape of settings.toml.
type Settings struct {
	DataDirectory string `toml:"data_directory"`
	Provider      string `toml:"provider"`
	Model         string `toml:"model,omitempty"`
	Storage       string `toml:"storage"`
	SystemPrompt  string `toml:"system_prompt,omitempty"`
	MaxTokens     int    `toml:"max_tokens,omitempty"`
	Thinking      bool   `toml:"thinking"`
	BaseURL       string `toml:"base_url,omitempty"`

	Ollama  OllamaSettings  `toml:"ollama"`
	Bedrock BedrockSettings `toml:"bedrock"`
}

// Config is the resolved runtime configuration: settings.toml defaults
// with CHATKIT_* environment overrides applied on top.
type Config struct {
	DataDirectory string
	Provider      string
	Model         string
	Storage       string
	SystemPrompt  string
	MaxTokens     int
	Thinking      bool
	BaseURL       string
	OllamaHost    string
	BedrockRegion string
}

func (c *Config) DataDir() string {
	return ExpandPath(c.DataDirectory)
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("CHATKIT_PROVIDER"); v != "" {
		c.Provider = v
	}
	if v := os.Getenv("CHATKIT_MODEL"); v != "" {
		c.Model = v
	}
	if v := os.Getenv("CHATKIT_DATA_DIR"); v != "" {
		c.DataDirectory = v
	}
	if v := os.Getenv("CHATKIT_STORAGE"); v != "" {
		c.Storage = v
	}
	if v := os.Getenv("CHATKIT_BASE_URL"); v != "" {
		c.BaseURL = v
	}
	if v := os.Getenv("CHATKIT_OLLAMA_HOST"); v != "" {
		c.OllamaHost = v
	}
	if v := os.Getenv("CHATKIT_BEDROCK_REGION"); v != "" {
		c.BedrockRegion = v
	}
}

// APIKey returns the API key for the named provider. Keys live in the
// environment only: CHATKIT_<PROVIDER>_API_KEY wins, then the provider's
// conventional variable (ANTHROPIC_API_KEY, OPENAI_API_KEY, ...).
func (c *Config) APIKey(providerName string) string {
	upper := strings.ToUpper(strings.ReplaceAll(providerName, "-", "_"))
	if key := os.Getenv("CHATKIT_" + upper + "_API_KEY"); key != "" {
		return key
	}
	return os.Getenv(upper + "_API_KEY")
}

// CheckDebug reports whether debug logging was requested via CHATKIT_DEBUG.
func CheckDebug() bool {
	debug := os.Getenv("CHATKIT_DEBUG")
	return debug == "true" || debug == "1"
}

func fromSettings(s *Settings) *Config {
	return &Config{
		DataDirectory: s.DataDirectory,
		Provider:      s.Provider,
		Model:         s.Model,
		Storage:       s.Storage,
		SystemPrompt:  s.SystemPrompt,
		MaxTokens:     s.MaxTokens,
		Thinking:      s.Thinking,
		BaseURL:       s.BaseURL,
		OllamaHost:    s.Ollama.Host,
		BedrockRegion: s.Bedrock.Region,
	}
}

// Load resolves the runtime configuration. A missing settings.toml is
// created from the defaults; environment variables override either way.
func Load() (*Config, error) {
	settings, err := LoadSettings()
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}

	cfg := fromSettings(settings)
	cfg.applyEnvOverrides()

	dataDir := cfg.DataDir()
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	if err := EnsureDataDirPermissions(dataDir); err != nil {
		return nil, fmt.Errorf("failed to set data directory permissions: %w", err)
	}

	return cfg, nil
}
