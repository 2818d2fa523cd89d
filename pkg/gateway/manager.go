package gateway

import (
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"supportdesk/pkg/api"
	"supportdesk/pkg/config"
	"supportdesk/pkg/monitor"
)

// GatewayManager owns every channel and routes messages between them and the
// message handler. It implements api.ChannelContext.
type GatewayManager struct {
	channels      map[string]api.Channel
	msgHandler    api.MessageHandler
	engine        api.AgentEngine
	monitor       monitor.Monitor
	showToolCalls bool
	mu            sync.RWMutex
}

// NewGatewayManager creates an empty GatewayManager.
func NewGatewayManager() *GatewayManager {
	return &GatewayManager{
		channels: make(map[string]api.Channel),
	}
}

// WithSystemConfig applies engine-level parameters.
func (g *GatewayManager) WithSystemConfig(cfg *config.SystemConfig) {
	g.showToolCalls = cfg.ShowToolCalls
}

// SetMessageHandler sets the core message processing callback.
func (g *GatewayManager) SetMessageHandler(handler api.MessageHandler) {
	g.msgHandler = handler
}

// SetEngine sets the agent exposed to channels through Engine.
func (g *GatewayManager) SetEngine(engine api.AgentEngine) {
	g.engine = engine
}

// Engine implements api.ChannelContext.
func (g *GatewayManager) Engine() api.AgentEngine {
	return g.engine
}

// SetMonitor sets the traffic monitor.
func (g *GatewayManager) SetMonitor(m monitor.Monitor) {
	g.monitor = m
}

// Register adds a channel, replacing any channel with the same ID.
func (g *GatewayManager) Register(c api.Channel) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.channels[c.ID()] = c
}

// GetChannel returns the channel registered under id.
func (g *GatewayManager) GetChannel(id string) (api.Channel, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	c, ok := g.channels[id]
	return c, ok
}

// StartAll starts the registered channels in ID order. If one fails, those
// already started are stopped again.
func (g *GatewayManager) StartAll() error {
	g.mu.RLock()
	defer g.mu.RUnlock()

	ids := slices.Sorted(maps.Keys(g.channels))
	for i, id := range ids {
		slog.Info("Starting channel", "channel", id)
		if err := g.channels[id].Start(g); err != nil {
			for _, started := range ids[:i] {
				g.stopChannel(started)
			}
			return fmt.Errorf("start channel %s: %w", id, err)
		}
	}
	return nil
}

// StopAll stops every registered channel.
func (g *GatewayManager) StopAll() {
	g.mu.RLock()
	defer g.mu.RUnlock()

	for id := range g.channels {
		g.stopChannel(id)
	}
	if g.monitor != nil {
		g.monitor.Stop()
	}
}

// stopChannel expects g.mu held.
func (g *GatewayManager) stopChannel(id string) {
	slog.Info("Stopping channel", "channel", id)
	if err := g.channels[id].Stop(); err != nil {
		slog.Error("Channel did not stop cleanly", "channel", id, "error", err)
	}
}

// SendReply sends plain text back through the session's channel.
func (g *GatewayManager) SendReply(session api.SessionContext, content string) error {
	slog.Debug("Reply", "channel", session.ChannelID, "user", session.Username, "content", content)
	g.observe(session, monitor.MessageTypeAssistant, content, nil)

	c, ok := g.GetChannel(session.ChannelID)
	if !ok {
		return fmt.Errorf("channel %s not found", session.ChannelID)
	}
	return c.Send(session, content)
}

// SendResult delivers an agent result. Channels implementing
// api.ResultChannel receive it as is; others get the text reply.
func (g *GatewayManager) SendResult(session api.SessionContext, result *api.AgentResult) error {
	c, ok := g.GetChannel(session.ChannelID)
	if !ok {
		return fmt.Errorf("channel %s not found", session.ChannelID)
	}

	names := make([]string, 0, len(result.ToolCalls))
	for _, tc := range result.ToolCalls {
		names = append(names, tc.Name)
	}
	g.observe(session, monitor.MessageTypeAssistant, result.Response, names)

	if rc, ok := c.(api.ResultChannel); ok {
		return rc.SendResult(session, result)
	}
	return c.Send(session, FormatResult(result, g.showToolCalls))
}

// OnMessage implements api.ChannelContext.
func (g *GatewayManager) OnMessage(channelID string, msg *api.UnifiedMessage) {
	slog.Info("Received message", "channel", channelID, "user", msg.Session.Username, "user_id", msg.Session.UserID)
	g.observe(msg.Session, monitor.MessageTypeUser, msg.Content, nil)

	if g.msgHandler == nil {
		slog.Warn("No message handler set")
		return
	}
	g.msgHandler(msg)
}

func (g *GatewayManager) observe(session api.SessionContext, kind, content string, tools []string) {
	if g.monitor == nil {
		return
	}
	g.monitor.OnMessage(monitor.MonitorMessage{
		Timestamp:   time.Now(),
		MessageType: kind,
		ChannelID:   session.ChannelID,
		Username:    session.Username,
		Content:     content,
		ToolCalls:   tools,
	})
}

// FormatResult renders a result for text-only channels. With showTools set,
// a line per executed tool is appended.
func FormatResult(result *api.AgentResult, showTools bool) string {
	if !showTools || len(result.ToolCalls) == 0 {
		return result.Response
	}

	var sb strings.Builder
	sb.WriteString(result.Response)
	sb.WriteString("\n\n")
	for _, tc := range result.ToolCalls {
		if tc.Error != "" {
			fmt.Fprintf(&sb, "🔧 %s (%s)\n", tc.Name, tc.Error)
		} else {
			fmt.Fprintf(&sb, "🔧 %s\n", tc.Name)
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}
