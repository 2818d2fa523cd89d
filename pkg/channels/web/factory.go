package web

import (
	"fmt"

	"supportdesk/pkg/api"
	"supportdesk/pkg/channels"

	jsoniter "github.com/json-iterator/go"
)

// WebFactory creates the HTTP/WebSocket channel.
type WebFactory struct{}

// Create implements channels.ChannelFactory.
func (f *WebFactory) Create(rawConfig jsoniter.RawMessage, deps channels.Dependencies) (api.Channel, error) {
	cfg := WebConfig{Port: DefaultPort}
	if len(rawConfig) > 0 {
		if err := json.Unmarshal(rawConfig, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse web config: %w", err)
		}
	}
	return NewWebChannel(cfg, deps.Sessions), nil
}

func init() {
	channels.RegisterChannel("web", &WebFactory{})
}
