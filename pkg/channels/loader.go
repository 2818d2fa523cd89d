package channels

import (
	"log/slog"
	"sort"

	"supportdesk/pkg/api"
	"supportdesk/pkg/config"

	jsoniter "github.com/json-iterator/go"
)

// LoadFromConfig creates a channel for every entry of the "channels" section.
// Unknown or broken entries are logged and skipped.
func LoadFromConfig(configs map[string]jsoniter.RawMessage, deps Dependencies) []api.Channel {
	if deps.System == nil {
		deps.System = config.DefaultSystemConfig()
	}

	names := make([]string, 0, len(configs))
	for name := range configs {
		names = append(names, name)
	}
	sort.Strings(names)

	var out []api.Channel
	for _, name := range names {
		factory, ok := GetChannelFactory(name)
		if !ok {
			slog.Warn("Unknown channel type", "name", name)
			continue
		}

		channel, err := factory.Create(configs[name], deps)
		if err != nil {
			slog.Error("Failed to create channel", "name", name, "error", err)
			continue
		}
		if channel == nil {
			continue
		}

		out = append(out, channel)
		slog.Info("Channel created", "name", name)
	}
	return out
}
