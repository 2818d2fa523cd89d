package telegram

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"supportdesk/pkg/api"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	// defaultMessageLimit is Telegram's 4096 cap minus some headroom.
	defaultMessageLimit = 4000
	defaultPollTimeout  = 60
	pollRetryDelay      = 3 * time.Second
)

// TelegramConfig holds the bot credentials.
type TelegramConfig struct {
	Token string `json:"token"` // Bot API token from @BotFather
	// APIEndpoint is a printf pattern taking the token and the method, for
	// self-hosted Bot API servers. Defaults to tgbotapi.APIEndpoint.
	APIEndpoint string `json:"api_endpoint,omitempty"`
	// PollTimeout is the long-poll duration in seconds.
	PollTimeout int `json:"poll_timeout,omitempty"`
}

// TelegramChannel is the Telegram bot implementation of api.Channel. Each
// chat is its own session.
type TelegramChannel struct {
	bot          *tgbotapi.BotAPI
	transport    *http.Transport
	messageLimit int
	pollTimeout  int
	done         context.Context
	stop         context.CancelFunc
}

func NewTelegramChannel(cfg TelegramConfig, msgLimit int) (*TelegramChannel, error) {
	if cfg.APIEndpoint == "" {
		cfg.APIEndpoint = tgbotapi.APIEndpoint
	}
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = defaultPollTimeout
	}
	if msgLimit <= 0 {
		msgLimit = defaultMessageLimit
	}

	done, stop := context.WithCancel(context.Background())
	transport := http.DefaultTransport.(*http.Transport).Clone()
	client := &http.Client{
		// Long poll plus slack for the round trip.
		Timeout:   time.Duration(cfg.PollTimeout+15) * time.Second,
		Transport: &abortableTransport{next: transport, done: done},
	}

	bot, err := tgbotapi.NewBotAPIWithClient(cfg.Token, cfg.APIEndpoint, client)
	if err != nil {
		stop()
		return nil, fmt.Errorf("telegram bot login: %w", err)
	}
	slog.Info("Telegram bot authorized", "username", bot.Self.UserName)

	return &TelegramChannel{
		bot:          bot,
		transport:    transport,
		messageLimit: msgLimit,
		pollTimeout:  cfg.PollTimeout,
		done:         done,
		stop:         stop,
	}, nil
}

func (t *TelegramChannel) ID() string {
	return "telegram"
}

// Start runs the long-polling loop in the background. Each text message is
// forwarded on its own goroutine; the handler serializes a chat's turns.
func (t *TelegramChannel) Start(ctx api.ChannelContext) error {
	go t.poll(ctx)
	return nil
}

func (t *TelegramChannel) poll(ctx api.ChannelContext) {
	offset := 0
	for t.done.Err() == nil {
		req := tgbotapi.NewUpdate(offset)
		req.Timeout = t.pollTimeout

		updates, err := t.bot.GetUpdates(req)
		if err != nil {
			if t.done.Err() != nil {
				return
			}
			slog.Debug("Telegram getUpdates failed", "error", err)
			select {
			case <-t.done.Done():
				return
			case <-time.After(pollRetryDelay):
			}
			continue
		}

		for _, update := range updates {
			if update.UpdateID < offset {
				continue
			}
			offset = update.UpdateID + 1

			if msg := toUnifiedMessage(update); msg != nil {
				t.sendTyping(msg.Session)
				go ctx.OnMessage(t.ID(), msg)
			}
		}
	}
}

// toUnifiedMessage maps a text update onto the gateway format. Updates
// without text are dropped.
func toUnifiedMessage(update tgbotapi.Update) *api.UnifiedMessage {
	m := update.Message
	if m == nil || m.From == nil || m.Chat == nil {
		return nil
	}
	content := m.Text
	if content == "" {
		content = m.Caption
	}
	if strings.TrimSpace(content) == "" {
		return nil
	}
	// Normalises /start@bot (groups) to /start.
	if m.IsCommand() {
		content = "/" + m.Command()
		if args := m.CommandArguments(); args != "" {
			content += " " + args
		}
	}

	return &api.UnifiedMessage{
		Session: api.SessionContext{
			ChannelID: "telegram",
			UserID:    strconv.FormatInt(m.From.ID, 10),
			ChatID:    strconv.FormatInt(m.Chat.ID, 10),
			Username:  m.From.UserName,
		},
		Content: content,
		Raw:     update,
	}
}

func (t *TelegramChannel) sendTyping(session api.SessionContext) {
	chatID, err := chatIDOf(session)
	if err != nil {
		return
	}
	if _, err := t.bot.Request(tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping)); err != nil {
		slog.Debug("Telegram typing action failed", "error", err)
	}
}

// Stop aborts the in-flight long poll. Leaving it open would make a
// restarted bot's first getUpdates fail with 409 Conflict.
func (t *TelegramChannel) Stop() error {
	t.stop()
	t.transport.CloseIdleConnections()
	return nil
}

// Send delivers message, split into chunks of at most messageLimit runes.
func (t *TelegramChannel) Send(session api.SessionContext, message string) error {
	chatID, err := chatIDOf(session)
	if err != nil {
		return err
	}
	for i, chunk := range splitMessage(message, t.messageLimit) {
		if _, err := t.bot.Send(tgbotapi.NewMessage(chatID, chunk)); err != nil {
			return fmt.Errorf("telegram send chunk %d: %w", i, err)
		}
	}
	return nil
}

func chatIDOf(session api.SessionContext) (int64, error) {
	id, err := strconv.ParseInt(session.ChatID, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid telegram chat id %q", session.ChatID)
	}
	return id, nil
}

// splitMessage cuts text into chunks of at most limit runes, preferring to
// break after a newline in the second half of a chunk.
func splitMessage(text string, limit int) []string {
	if limit <= 0 {
		limit = defaultMessageLimit
	}
	runes := []rune(text)
	if len(runes) <= limit {
		return []string{text}
	}

	var chunks []string
	for len(runes) > limit {
		cut := limit
		for i := limit - 1; i >= limit/2; i-- {
			if runes[i] == '\n' {
				cut = i + 1
				break
			}
		}
		chunks = append(chunks, string(runes[:cut]))
		runes = runes[cut:]
	}
	if len(runes) > 0 {
		chunks = append(chunks, string(runes))
	}
	return chunks
}

// abortableTransport ties every request to the channel lifetime so that Stop
// cancels a long poll blocked in Read.
type abortableTransport struct {
	next http.RoundTripper
	done context.Context
}

func (a *abortableTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx, cancel := context.WithCancel(req.Context())
	detach := context.AfterFunc(a.done, cancel)
	release := func() {
		detach()
		cancel()
	}

	resp, err := a.next.RoundTrip(req.WithContext(ctx))
	if err != nil {
		release()
		return nil, err
	}
	resp.Body = &releasingBody{ReadCloser: resp.Body, release: release}
	return resp, nil
}

type releasingBody struct {
	io.ReadCloser
	release func()
}

func (b *releasingBody) Close() error {
	err := b.ReadCloser.Close()
	b.release()
	return err
}
