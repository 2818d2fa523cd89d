package channels

import (
	"errors"
	"testing"

	"supportdesk/pkg/api"
	"supportdesk/pkg/config"

	jsoniter "github.com/json-iterator/go"
)

type stubChannel struct{ id string }

func (c *stubChannel) ID() string                            { return c.id }
func (c *stubChannel) Start(api.ChannelContext) error        { return nil }
func (c *stubChannel) Stop() error                           { return nil }
func (c *stubChannel) Send(api.SessionContext, string) error { return nil }

type stubFactory struct {
	id  string
	err error
}

func (f stubFactory) Create(raw jsoniter.RawMessage, deps Dependencies) (api.Channel, error) {
	if f.err != nil {
		return nil, f.err
	}
	if deps.System == nil {
		return nil, errors.New("system config not provided")
	}
	return &stubChannel{id: f.id}, nil
}

func init() {
	RegisterChannel("stub-a", stubFactory{id: "stub-a"})
	RegisterChannel("stub-b", stubFactory{id: "stub-b"})
	RegisterChannel("stub-broken", stubFactory{err: errors.New("bad token")})
}

func TestLoadFromConfig(t *testing.T) {
	got := LoadFromConfig(map[string]jsoniter.RawMessage{
		"stub-b":         jsoniter.RawMessage(`{}`),
		"stub-a":         jsoniter.RawMessage(`{}`),
		"stub-broken":    jsoniter.RawMessage(`{}`),
		"carrier-pigeon": jsoniter.RawMessage(`{}`),
	}, Dependencies{})

	if len(got) != 2 {
		t.Fatalf("len(channels) = %d, want 2", len(got))
	}
	if got[0].ID() != "stub-a" || got[1].ID() != "stub-b" {
		t.Fatalf("channels not in name order: %s, %s", got[0].ID(), got[1].ID())
	}
}

func TestLoadFromConfigEmpty(t *testing.T) {
	if got := LoadFromConfig(nil, Dependencies{System: config.DefaultSystemConfig()}); len(got) != 0 {
		t.Fatalf("expected no channels, got %d", len(got))
	}
}
