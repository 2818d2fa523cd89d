package web

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"supportdesk/pkg/api"
	"supportdesk/pkg/llm"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// DefaultPort is used when the web config omits a port.
const DefaultPort = 8000

type WebConfig struct {
	Host string `json:"host,omitempty"`
	Port int    `json:"port"`
	// AllowedOrigins restricts WebSocket upgrades by Origin header. Empty
	// accepts any origin, for UIs served from elsewhere.
	AllowedOrigins []string `json:"allowed_origins,omitempty"`
}

// WebChannel serves POST /chat, GET /health and the /ws chat socket. It
// implements api.ResultChannel.
type WebChannel struct {
	config   WebConfig
	server   *http.Server
	sessions *llm.SessionManager
	clients  *hub
}

func NewWebChannel(cfg WebConfig, sessions *llm.SessionManager) *WebChannel {
	if cfg.Port == 0 {
		cfg.Port = DefaultPort
	}
	return &WebChannel{
		config:   cfg,
		sessions: sessions,
		clients:  newHub(),
	}
}

func (c *WebChannel) ID() string {
	return "web"
}

func (c *WebChannel) Start(ctx api.ChannelContext) error {
	addr := net.JoinHostPort(c.config.Host, strconv.Itoa(c.config.Port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("web listen on %s: %w", addr, err)
	}

	c.server = &http.Server{
		Addr:              addr,
		Handler:           c.Handler(ctx),
		ReadHeaderTimeout: 10 * time.Second,
	}
	slog.Info("Web API listening", "addr", ln.Addr().String())

	go func() {
		if err := c.server.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Web API stopped", "error", err)
		}
	}()
	return nil
}

func (c *WebChannel) Stop() error {
	c.clients.closeAll()
	if c.server == nil {
		return nil
	}
	return c.server.Close()
}

// Send writes a {"type":"message"} frame.
func (c *WebChannel) Send(session api.SessionContext, message string) error {
	conn, err := c.clients.get(session.ChatID)
	if err != nil {
		return err
	}
	return conn.sendJSON(messageFrame{Type: "message", Text: message})
}

// SendResult writes a {"type":"result"} frame carrying the agent result.
func (c *WebChannel) SendResult(session api.SessionContext, result *api.AgentResult) error {
	conn, err := c.clients.get(session.ChatID)
	if err != nil {
		return err
	}
	return conn.sendJSON(resultFrame{Type: "result", AgentResult: result})
}

var _ api.ResultChannel = (*WebChannel)(nil)
