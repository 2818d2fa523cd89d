package ollama

import (
	"log/slog"
	"os"

	"supportdesk/pkg/config"
	"supportdesk/pkg/llm"
)

// OllamaFactory handles creation of Ollama clients
type OllamaFactory struct{}

// Create implements llm.ProviderFactory. The host comes from base_url, then
// OLLAMA_HOST, then system.ollama_default_url.
func (f *OllamaFactory) Create(cfg llm.ProviderGroupConfig, sys *config.SystemConfig) ([]llm.LLMClient, error) {
	baseURL := cfg.BaseURL
	if baseURL == "" && os.Getenv("OLLAMA_HOST") == "" {
		baseURL = sys.OllamaDefaultURL
	}

	var clients []llm.LLMClient
	for _, model := range cfg.Models {
		client, err := NewOllamaClient(model, baseURL, cfg.Options)
		if err != nil {
			slog.Error("Failed to create Ollama client", "model", model, "error", err)
			continue
		}
		client.SetDebug(sys.DebugResponses)
		clients = append(clients, client)
	}
	return clients, nil
}

func init() {
	llm.RegisterProvider("ollama", &OllamaFactory{})
}
