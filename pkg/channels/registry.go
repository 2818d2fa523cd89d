package channels

import (
	"supportdesk/pkg/api"
	"supportdesk/pkg/config"
	"supportdesk/pkg/llm"

	jsoniter "github.com/json-iterator/go"
)

// Dependencies are the shared resources handed to every channel factory.
type Dependencies struct {
	System   *config.SystemConfig
	Sessions *llm.SessionManager
}

// ChannelFactory builds one platform channel from its raw configuration.
// New platforms plug in without touching the gateway.
type ChannelFactory interface {
	Create(rawConfig jsoniter.RawMessage, deps Dependencies) (api.Channel, error)
}

// channelRegistry maps platform names (e.g. "telegram") to factories.
var channelRegistry = make(map[string]ChannelFactory)

// RegisterChannel adds a factory to the registry. Called from init().
func RegisterChannel(name string, factory ChannelFactory) {
	channelRegistry[name] = factory
}

// GetChannelFactory retrieves a registered ChannelFactory by platform name.
func GetChannelFactory(name string) (ChannelFactory, bool) {
	f, ok := channelRegistry[name]
	return f, ok
}
