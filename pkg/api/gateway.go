package api

// Channel is a chat surface (web, Telegram, ...) owned by the gateway.
type Channel interface {
	ID() string
	// Start begins accepting traffic; inbound messages go to ctx.OnMessage.
	Start(ctx ChannelContext) error
	Stop() error
	// Send delivers plain text to a session.
	Send(session SessionContext, message string) error
}

// ResultChannel is implemented by channels able to deliver the structured
// agent result (e.g. a JSON WebSocket) instead of plain text.
type ResultChannel interface {
	Channel
	SendResult(session SessionContext, result *AgentResult) error
}

// ChannelContext is the gateway as seen from a channel.
type ChannelContext interface {
	MessageResponder
	OnMessage(channelID string, msg *UnifiedMessage)
	// Engine exposes the agent for stateless request/response surfaces.
	Engine() AgentEngine
}

// MessageResponder routes outbound traffic to the channel owning a session.
type MessageResponder interface {
	SendReply(session SessionContext, content string) error
	SendResult(session SessionContext, result *AgentResult) error
}

// UnifiedMessage is the channel-neutral inbound message.
type UnifiedMessage struct {
	Session SessionContext // where the message came from
	Content string         // text content
	Raw     any            // optional original platform payload
	DebugID string         // groups logs and raw dumps of one turn
}

// SessionContext identifies one conversation on one channel.
type SessionContext struct {
	ChannelID string // e.g. "web", "telegram"
	UserID    string
	ChatID    string // may match UserID for direct messages
	Username  string
}

// Key returns the session key used to look up conversation history.
func (s SessionContext) Key() string {
	return s.ChannelID + ":" + s.ChatID
}

// MessageHandler adapts a plain function to MessageProcessor.
type MessageHandler func(*UnifiedMessage)

func (h MessageHandler) OnMessage(msg *UnifiedMessage) {
	h(msg)
}

// MessageProcessor consumes inbound messages.
type MessageProcessor interface {
	OnMessage(msg *UnifiedMessage)
}

// ResponderAware is implemented by processors that reply through the
// gateway; the builder injects the responder.
type ResponderAware interface {
	SetResponder(responder MessageResponder)
}

// GatewayHandler is a processor that also replies, like handler.ChatHandler.
type GatewayHandler interface {
	MessageProcessor
	ResponderAware
}
