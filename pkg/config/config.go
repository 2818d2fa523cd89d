package config

import (
	"fmt"
	"os"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Config defines the application configuration stored in config.json.
// It holds business-level settings: which completion providers to use,
// which channels to open and an optional override of the support policy.
type Config struct {
	// Channels maps a channel identifier (e.g. "web", "telegram") to its
	// raw JSON configuration payload.
	Channels map[string]jsoniter.RawMessage `json:"channels"`
	// LLM holds the provider group list in raw JSON. It is decoded by the
	// llm package so that each provider can declare its own options.
	LLM jsoniter.RawMessage `json:"llm"`
	// SystemPrompt replaces the built-in support policy when non-empty.
	SystemPrompt string `json:"system_prompt,omitempty"`
}

// Validate ensures the configuration contains all mandatory fields.
func (c *Config) Validate() error {
	if len(c.LLM) == 0 {
		return fmt.Errorf("mandatory 'llm' configuration is missing or empty")
	}
	return nil
}

// DefaultConfig returns the configuration used when config.json is absent:
// a single OpenAI model resolved from the environment and the web channel
// on port 8000.
func DefaultConfig() *Config {
	model := os.Getenv("OPENAI_MODEL")
	if model == "" {
		model = "gpt-4.1-mini"
	}
	llmRaw, _ := json.Marshal([]map[string]any{
		{"type": "openai", "models": []string{model}},
	})
	return &Config{
		Channels: map[string]jsoniter.RawMessage{
			"web": jsoniter.RawMessage(`{"port":8000}`),
		},
		LLM: llmRaw,
	}
}

// SystemConfig defines engine-level technical parameters stored in
// system.json. Missing fields keep their defaults.
type SystemConfig struct {
	// MaxRetries is the number of attempts the fallback client makes per
	// provider for transient errors. 1 means no retry.
	MaxRetries int `json:"max_retries"`
	// RetryDelayMs is the linear backoff step between fallback attempts.
	RetryDelayMs int `json:"retry_delay_ms"`
	// LLMTimeoutMs bounds one agent turn started from a channel.
	// 0 disables the deadline.
	LLMTimeoutMs int `json:"llm_timeout_ms"`
	// OllamaDefaultURL is used when an ollama group has no base_url and
	// OLLAMA_HOST is unset.
	OllamaDefaultURL string `json:"ollama_default_url"`
	// TelegramMessageLimit is the maximum characters per Telegram message.
	TelegramMessageLimit int `json:"telegram_message_limit"`
	// ShowToolCalls appends a summary of executed tools to chat replies on
	// channels without structured output.
	ShowToolCalls bool `json:"show_tool_calls"`
	// DebugResponses dumps raw provider responses under debug/responses.
	DebugResponses bool `json:"debug_responses"`
	// MaxSessions bounds the in-memory chat histories; the least recently
	// used session is dropped beyond it.
	MaxSessions int `json:"max_sessions"`
	// LogLevel sets the minimum severity: debug, info, warn, error.
	LogLevel string `json:"log_level"`
	// EnableTools toggles tool advertisement on the first completion round.
	EnableTools bool `json:"enable_tools"`
}

// DefaultSystemConfig returns a SystemConfig initialised with safe
// defaults, used when system.json is missing or corrupt.
func DefaultSystemConfig() *SystemConfig {
	return &SystemConfig{
		MaxRetries:           1,
		RetryDelayMs:         500,
		LLMTimeoutMs:         0,
		OllamaDefaultURL:     "http://localhost:11434",
		TelegramMessageLimit: 4000,
		ShowToolCalls:        false,
		MaxSessions:          10000,
		LogLevel:             "info",
		EnableTools:          true,
	}
}

// Load reads the application config from appPath and the system config from
// sysPath. A missing or invalid app config is an error; the system config
// always falls back to defaults.
func Load(appPath, sysPath string) (*Config, *SystemConfig, error) {
	sysCfg := LoadSystemConfig(sysPath)

	appFile, err := os.ReadFile(appPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, sysCfg, fmt.Errorf("config file '%s' not found: %w", appPath, err)
		}
		return nil, sysCfg, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(appFile, &cfg); err != nil {
		return nil, sysCfg, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, sysCfg, err
	}

	return &cfg, sysCfg, nil
}

// LoadSystemConfig attempts to load system settings, returns defaults if it fails.
func LoadSystemConfig(path string) *SystemConfig {
	cfg := DefaultSystemConfig()

	file, err := os.ReadFile(path)
	if err != nil {
		return cfg
	}

	if err := json.Unmarshal(file, cfg); err != nil {
		return DefaultSystemConfig()
	}

	return cfg
}
