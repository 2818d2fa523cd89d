package telegram

import (
	"strings"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func TestSplitMessage(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		text  string
		limit int
		want  []string
	}{
		{name: "fits", text: "hello", limit: 10, want: []string{"hello"}},
		{name: "hard cut", text: "abcdefghij", limit: 4, want: []string{"abcd", "efgh", "ij"}},
		{name: "prefers newline", text: "abc\ndefgh", limit: 6, want: []string{"abc\n", "defgh"}},
		{name: "ignores early newline", text: "a\nbcdefgh", limit: 6, want: []string{"a\nbcde", "fgh"}},
		{name: "counts runes", text: "ééééé", limit: 2, want: []string{"éé", "éé", "é"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := splitMessage(tt.text, tt.limit)
			if strings.Join(got, "|") != strings.Join(tt.want, "|") {
				t.Fatalf("splitMessage(%q, %d) = %q, want %q", tt.text, tt.limit, got, tt.want)
			}
		})
	}
}

func TestSplitMessageDefaultLimit(t *testing.T) {
	t.Parallel()

	got := splitMessage(strings.Repeat("x", defaultMessageLimit+1), 0)
	if len(got) != 2 || len(got[0]) != defaultMessageLimit {
		t.Fatalf("unexpected chunks: %d", len(got))
	}
}

func textUpdate(text string, entities ...tgbotapi.MessageEntity) tgbotapi.Update {
	return tgbotapi.Update{
		UpdateID: 7,
		Message: &tgbotapi.Message{
			From:     &tgbotapi.User{ID: 42, UserName: "alice"},
			Chat:     &tgbotapi.Chat{ID: -100},
			Text:     text,
			Entities: entities,
		},
	}
}

func TestToUnifiedMessage(t *testing.T) {
	t.Parallel()

	msg := toUnifiedMessage(textUpdate("Where is my order 123?"))
	if msg == nil {
		t.Fatal("expected a message")
	}
	if msg.Content != "Where is my order 123?" {
		t.Fatalf("Content = %q", msg.Content)
	}
	s := msg.Session
	if s.ChannelID != "telegram" || s.UserID != "42" || s.ChatID != "-100" || s.Username != "alice" {
		t.Fatalf("unexpected session: %+v", s)
	}
	if s.Key() != "telegram:-100" {
		t.Fatalf("Key() = %q", s.Key())
	}
}

func TestToUnifiedMessageCommands(t *testing.T) {
	t.Parallel()

	cmd := func(n int) tgbotapi.MessageEntity {
		return tgbotapi.MessageEntity{Type: "bot_command", Offset: 0, Length: n}
	}

	tests := []struct {
		text string
		want string
	}{
		{"/reset@support_bot", "/reset"},
		{"/reset", "/reset"},
		{"/start now please", "/start now please"},
	}
	for _, tt := range tests {
		length := strings.IndexByte(tt.text, ' ')
		if length < 0 {
			length = len(tt.text)
		}
		msg := toUnifiedMessage(textUpdate(tt.text, cmd(length)))
		if msg == nil || msg.Content != tt.want {
			t.Fatalf("toUnifiedMessage(%q) = %+v, want %q", tt.text, msg, tt.want)
		}
	}
}

func TestToUnifiedMessageDropsNonText(t *testing.T) {
	t.Parallel()

	if toUnifiedMessage(tgbotapi.Update{}) != nil {
		t.Fatal("update without message should be dropped")
	}
	if toUnifiedMessage(textUpdate("   ")) != nil {
		t.Fatal("blank message should be dropped")
	}

	captioned := textUpdate("")
	captioned.Message.Caption = "photo of my broken laptop"
	if msg := toUnifiedMessage(captioned); msg == nil || msg.Content != "photo of my broken laptop" {
		t.Fatalf("caption should be used as content: %+v", msg)
	}
}
