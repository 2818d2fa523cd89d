package openailm

import (
	"fmt"
	"os"

	"supportdesk/pkg/config"
	"supportdesk/pkg/llm"
)

// OpenAIFactory creates OpenAI clients.
type OpenAIFactory struct{}

// Create implements llm.ProviderFactory.
func (f *OpenAIFactory) Create(cfg llm.ProviderGroupConfig, sys *config.SystemConfig) ([]llm.LLMClient, error) {
	apiKey := ""
	if len(cfg.APIKeys) > 0 {
		apiKey = cfg.APIKeys[0]
	}
	if apiKey == "" && os.Getenv("OPENAI_API_KEY") == "" && cfg.BaseURL == "" {
		return nil, fmt.Errorf("openai: no api key configured and OPENAI_API_KEY is unset")
	}

	models := cfg.Models
	if len(models) == 0 {
		if m := os.Getenv("OPENAI_MODEL"); m != "" {
			models = []string{m}
		}
	}
	if len(models) == 0 {
		return nil, fmt.Errorf("openai: no models configured")
	}

	clients := make([]llm.LLMClient, 0, len(models))
	for _, model := range models {
		client := NewClient("openai", apiKey, model, cfg.BaseURL, cfg.Options)
		client.SetDebug(sys.DebugResponses)
		clients = append(clients, client)
	}
	return clients, nil
}

func init() {
	llm.RegisterProvider("openai", &OpenAIFactory{})
}
