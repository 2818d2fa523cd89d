package handler

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"supportdesk/pkg/api"
	"supportdesk/pkg/config"
	"supportdesk/pkg/llm"

	"github.com/google/uuid"
)

// FailureNotice is the only thing a user sees when a turn fails.
const FailureNotice = "Sorry, something went wrong while processing your request. Please try again in a moment."

// ResetNotice confirms a /reset command.
const ResetNotice = "Conversation cleared."

// ChatHandler connects channel sessions to the agent: it keeps one history
// per session, runs the agent on every user message and sends the result
// back through the responder.
type ChatHandler struct {
	engine       api.AgentEngine
	sessions     *llm.SessionManager
	responder    api.MessageResponder
	systemConfig *config.SystemConfig

	locksMu sync.Mutex
	locks   map[string]*sessionLock
}

// sessionLock is released from the map once no turn holds or waits on it.
type sessionLock struct {
	mu   sync.Mutex
	refs int
}

// NewChatHandler creates a handler. Its responder is injected by the gateway
// builder through SetResponder.
func NewChatHandler(engine api.AgentEngine, sessions *llm.SessionManager, sysCfg *config.SystemConfig) *ChatHandler {
	if sysCfg == nil {
		sysCfg = config.DefaultSystemConfig()
	}
	return &ChatHandler{
		engine:       engine,
		sessions:     sessions,
		systemConfig: sysCfg,
		locks:        make(map[string]*sessionLock),
	}
}

// SetResponder implements api.ResponderAware.
func (h *ChatHandler) SetResponder(responder api.MessageResponder) {
	h.responder = responder
}

// OnMessage implements api.MessageProcessor. Messages of one session are
// processed one at a time.
func (h *ChatHandler) OnMessage(msg *api.UnifiedMessage) {
	if msg.DebugID == "" {
		msg.DebugID = uuid.NewString()[:8]
	}
	ctx := llm.WithDebugDir(context.Background(), msg.DebugID)
	start := time.Now()

	key := msg.Session.Key()
	unlock := h.lock(key)
	defer unlock()

	slog.InfoContext(ctx, "Message received", "channel", msg.Session.ChannelID, "user", msg.Session.Username)

	if strings.HasPrefix(msg.Content, "/") {
		if h.handleSlashCommand(ctx, msg) {
			return
		}
	}

	history := h.sessions.GetHistory(key)
	history.Add(llm.NewUserMessage(msg.Content))

	if timeout := time.Duration(h.systemConfig.LLMTimeoutMs) * time.Millisecond; timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	result, err := h.engine.Run(ctx, history)
	if err != nil {
		slog.ErrorContext(ctx, "Agent turn failed", "session", key, "error", err)
		h.reply(ctx, msg.Session, FailureNotice)
		return
	}

	history.Add(llm.NewAssistantMessage(result.Response))

	for _, terr := range result.ToolErrors() {
		slog.WarnContext(ctx, "Tool request failed", "tool", terr.Tool, "kind", terr.Kind, "error", terr.Err)
	}

	if h.responder != nil {
		if err := h.responder.SendResult(msg.Session, result); err != nil {
			slog.ErrorContext(ctx, "Failed to send result", "error", err)
		}
	}

	slog.InfoContext(ctx, "Agent turn finished", "duration", time.Since(start).String(), "tools", len(result.ToolCalls))
}

// handleSlashCommand runs the administrative commands. It reports whether
// the message was consumed; unknown commands go to the agent as text.
func (h *ChatHandler) handleSlashCommand(ctx context.Context, msg *api.UnifiedMessage) bool {
	cmd := strings.Fields(msg.Content)[0]
	switch strings.ToLower(cmd) {
	case "/reset":
		h.sessions.GetHistory(msg.Session.Key()).Reset()
		slog.InfoContext(ctx, "Session reset", "session", msg.Session.Key())
		h.reply(ctx, msg.Session, ResetNotice)
		return true
	default:
		return false
	}
}

func (h *ChatHandler) reply(ctx context.Context, session api.SessionContext, text string) {
	if h.responder == nil {
		return
	}
	if err := h.responder.SendReply(session, text); err != nil {
		slog.ErrorContext(ctx, "Failed to send reply", "error", err)
	}
}

func (h *ChatHandler) lock(key string) func() {
	h.locksMu.Lock()
	l, ok := h.locks[key]
	if !ok {
		l = &sessionLock{}
		h.locks[key] = l
	}
	l.refs++
	h.locksMu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		h.locksMu.Lock()
		if l.refs--; l.refs == 0 {
			delete(h.locks, key)
		}
		h.locksMu.Unlock()
	}
}

var _ api.GatewayHandler = (*ChatHandler)(nil)
