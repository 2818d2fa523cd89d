package gateway

import (
	"fmt"

	"supportdesk/pkg/api"
	"supportdesk/pkg/config"
	"supportdesk/pkg/monitor"
)

// GatewayBuilder collects pre-built components and starts a GatewayManager
// over them. Every With* method is optional.
type GatewayBuilder struct {
	sysCfg   *config.SystemConfig
	mon      monitor.Monitor
	channels []api.Channel
	engine   api.AgentEngine
	handler  api.MessageProcessor
}

func NewGatewayBuilder() *GatewayBuilder {
	return &GatewayBuilder{}
}

func (b *GatewayBuilder) WithSystemConfig(cfg *config.SystemConfig) *GatewayBuilder {
	b.sysCfg = cfg
	return b
}

// WithMonitor sets the traffic monitor; Build starts it.
func (b *GatewayBuilder) WithMonitor(m monitor.Monitor) *GatewayBuilder {
	b.mon = m
	return b
}

func (b *GatewayBuilder) WithChannel(channels ...api.Channel) *GatewayBuilder {
	b.channels = append(b.channels, channels...)
	return b
}

// WithAgentEngine exposes the agent to stateless endpoints such as POST /chat.
func (b *GatewayBuilder) WithAgentEngine(engine api.AgentEngine) *GatewayBuilder {
	b.engine = engine
	return b
}

// WithHandler sets the processor for inbound messages. A processor that
// implements api.ResponderAware gets the gateway as its responder.
func (b *GatewayBuilder) WithHandler(h api.MessageProcessor) *GatewayBuilder {
	b.handler = h
	return b
}

// Build wires the gateway and starts the monitor and every channel. On error
// nothing is left running.
func (b *GatewayBuilder) Build() (*GatewayManager, error) {
	gw := NewGatewayManager()
	if b.sysCfg != nil {
		gw.WithSystemConfig(b.sysCfg)
	}
	gw.SetEngine(b.engine)
	for _, c := range b.channels {
		gw.Register(c)
	}
	if b.handler != nil {
		if aware, ok := b.handler.(api.ResponderAware); ok {
			aware.SetResponder(gw)
		}
		gw.SetMessageHandler(b.handler.OnMessage)
	}

	if b.mon != nil {
		if err := b.mon.Start(); err != nil {
			return nil, fmt.Errorf("start monitor: %w", err)
		}
		gw.SetMonitor(b.mon)
	}

	if err := gw.StartAll(); err != nil {
		if b.mon != nil {
			b.mon.Stop()
		}
		return nil, err
	}
	return gw, nil
}
