package llm

import (
	"context"
	"testing"

	"supportdesk/pkg/config"

	jsoniter "github.com/json-iterator/go"
)

type fakeFactory struct{}

func (fakeFactory) Create(cfg ProviderGroupConfig, sys *config.SystemConfig) ([]LLMClient, error) {
	var out []LLMClient
	for _, m := range cfg.Models {
		out = append(out, &scriptedClient{name: "fake/" + m})
	}
	return out, nil
}

func init() {
	RegisterProvider("fake", fakeFactory{})
}

func TestNewFromConfigSingleClient(t *testing.T) {
	raw := jsoniter.RawMessage(`[{"type":"fake","models":["m1"]}]`)

	client, err := NewFromConfig(raw, config.DefaultSystemConfig())
	if err != nil {
		t.Fatalf("NewFromConfig() error = %v", err)
	}
	if client.Provider() != "fake/m1" {
		t.Fatalf("expected the bare client, got %q", client.Provider())
	}
}

func TestNewFromConfigFallback(t *testing.T) {
	raw := jsoniter.RawMessage(`[{"type":"unknown","models":["x"]},{"type":"fake","models":["m1","m2"]}]`)

	client, err := NewFromConfig(raw, config.DefaultSystemConfig())
	if err != nil {
		t.Fatalf("NewFromConfig() error = %v", err)
	}
	fc, ok := client.(*FallbackClient)
	if !ok {
		t.Fatalf("expected *FallbackClient, got %T", client)
	}
	if len(fc.Clients) != 2 {
		t.Fatalf("len(Clients) = %d, want 2", len(fc.Clients))
	}

	resp, err := fc.Chat(context.Background(), nil, nil)
	if err != nil || resp.Message.Content != "from fake/m1" {
		t.Fatalf("Chat() = %+v, %v", resp, err)
	}
}

func TestNewFromConfigRetriesWrapSingleClient(t *testing.T) {
	sys := config.DefaultSystemConfig()
	sys.MaxRetries = 3

	client, err := NewFromConfig(jsoniter.RawMessage(`[{"type":"fake","models":["m1"]}]`), sys)
	if err != nil {
		t.Fatalf("NewFromConfig() error = %v", err)
	}
	if fc, ok := client.(*FallbackClient); !ok || fc.MaxRetries != 3 {
		t.Fatalf("expected a retrying FallbackClient, got %#v", client)
	}
}

func TestNewFromConfigErrors(t *testing.T) {
	tests := map[string]string{
		"empty":       ``,
		"not json":    `{`,
		"no provider": `[{"type":"unknown","models":["x"]}]`,
	}
	for name, raw := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := NewFromConfig(jsoniter.RawMessage(raw), nil); err == nil {
				t.Fatal("expected an error")
			}
		})
	}
}
