package ollama

import (
	"testing"

	"supportdesk/pkg/config"
	"supportdesk/pkg/llm"
)

func TestFactoryUsesSystemDefaultURL(t *testing.T) {
	t.Setenv("OLLAMA_HOST", "")

	sys := config.DefaultSystemConfig()
	sys.OllamaDefaultURL = "http://ollama.internal:11434"

	clients, err := (&OllamaFactory{}).Create(llm.ProviderGroupConfig{Type: "ollama", Models: []string{"m1", "m2"}}, sys)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if len(clients) != 2 {
		t.Fatalf("len(clients) = %d, want 2", len(clients))
	}
	if clients[0].Provider() != "ollama" {
		t.Fatalf("Provider() = %q", clients[0].Provider())
	}
}

func TestFactoryRejectsInvalidURL(t *testing.T) {
	clients, err := (&OllamaFactory{}).Create(llm.ProviderGroupConfig{
		Type:    "ollama",
		Models:  []string{"m1"},
		BaseURL: "://bad",
	}, config.DefaultSystemConfig())
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if len(clients) != 0 {
		t.Fatalf("expected invalid url to be skipped, got %d clients", len(clients))
	}
}
