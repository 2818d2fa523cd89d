package telegram

import (
	"fmt"
	"os"

	"supportdesk/pkg/api"
	"supportdesk/pkg/channels"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// TelegramFactory creates Telegram channels.
type TelegramFactory struct{}

// Create implements channels.ChannelFactory. The token falls back to
// TELEGRAM_BOT_TOKEN.
func (f *TelegramFactory) Create(rawConfig jsoniter.RawMessage, deps channels.Dependencies) (api.Channel, error) {
	var tgCfg TelegramConfig
	if len(rawConfig) > 0 {
		if err := json.Unmarshal(rawConfig, &tgCfg); err != nil {
			return nil, fmt.Errorf("failed to parse telegram config: %w", err)
		}
	}
	if tgCfg.Token == "" {
		tgCfg.Token = os.Getenv("TELEGRAM_BOT_TOKEN")
	}
	if tgCfg.Token == "" {
		return nil, fmt.Errorf("missing telegram token")
	}

	return NewTelegramChannel(tgCfg, deps.System.TelegramMessageLimit)
}

func init() {
	channels.RegisterChannel("telegram", &TelegramFactory{})
}
