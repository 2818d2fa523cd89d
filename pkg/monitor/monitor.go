package monitor

import "time"

// Message directions.
const (
	MessageTypeUser      = "USER"
	MessageTypeAssistant = "ASSISTANT"
)

// MonitorMessage is one line of channel traffic.
type MonitorMessage struct {
	Timestamp   time.Time
	MessageType string // MessageTypeUser or MessageTypeAssistant
	ChannelID   string
	Username    string
	Content     string
	// ToolCalls lists the tools run for an assistant reply.
	ToolCalls []string
}

// Monitor mirrors channel traffic somewhere visible to operators.
type Monitor interface {
	Start() error
	Stop() error
	OnMessage(msg MonitorMessage)
}
