package api

import (
	"context"

	"supportdesk/pkg/llm"
)

// Tool defines a capability the agent can execute. It carries the
// declaration advertised to the model (llm.Tool) and the execution logic.
type Tool interface {
	llm.Tool
	// Execute runs the tool with decoded arguments and returns the raw
	// result text handed back to the model.
	Execute(ctx context.Context, args map[string]any) (string, error)
}

// ToolRegistry defines the interface for managing and accessing tools.
type ToolRegistry interface {
	Register(tool Tool)
	// Get reports explicitly whether name is registered.
	Get(name string) (Tool, bool)
	// GetAll returns the tools in registration order.
	GetAll() []Tool
}
