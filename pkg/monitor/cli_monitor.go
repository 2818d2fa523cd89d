package monitor

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
)

const (
	ansiGray  = "\033[90m"
	ansiReset = "\033[0m"
	rule      = "----------------------------------------------------------------"
)

// CLIMonitor echoes the traffic of every channel to a terminal.
type CLIMonitor struct {
	mu  sync.Mutex
	out io.Writer
}

// NewCLIMonitor writes to stdout.
func NewCLIMonitor() *CLIMonitor {
	return NewCLIMonitorWriter(os.Stdout)
}

func NewCLIMonitorWriter(w io.Writer) *CLIMonitor {
	return &CLIMonitor{out: w}
}

func (m *CLIMonitor) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, err := fmt.Fprintf(m.out, "%s\n💬 Support traffic from all channels appears below\n%s\n", rule, rule)
	return err
}

func (m *CLIMonitor) Stop() error { return nil }

func (m *CLIMonitor) OnMessage(msg MonitorMessage) {
	var line string
	switch msg.MessageType {
	case MessageTypeAssistant:
		line = "[AI] " + msg.Content
		if len(msg.ToolCalls) > 0 {
			line += " (tools: " + strings.Join(msg.ToolCalls, ", ") + ")"
		}
	default:
		line = fmt.Sprintf("[%s/%s] %s", msg.ChannelID, msg.Username, msg.Content)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	fmt.Fprintf(m.out, "%s[%s]%s %s\n", ansiGray, msg.Timestamp.Format(logTimeLayout), ansiReset, line)
}
