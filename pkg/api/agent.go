package api

import (
	"context"
	"fmt"

	"supportdesk/pkg/llm"
)

// SourceAgent identifies the agent in every AgentResult.
const SourceAgent = "CustomerSupportAgent"

// AgentEngine defines the interface for the core reasoning engine.
type AgentEngine interface {
	// Run answers the latest user turn in history. The history is mutated
	// in place: tool requests and tool results are appended to it.
	Run(ctx context.Context, history *llm.ChatHistory) (*AgentResult, error)
}

// AgentResult is the outcome of one agent turn.
type AgentResult struct {
	Response    string           `json:"response"`
	ToolCalls   []ToolCallRecord `json:"tool_calls"`
	SourceAgent string           `json:"source_agent"`
}

// NewAgentResult returns a result with an empty, non-nil audit trail.
func NewAgentResult(response string) *AgentResult {
	return &AgentResult{
		Response:    response,
		ToolCalls:   []ToolCallRecord{},
		SourceAgent: SourceAgent,
	}
}

// ToolErrors returns the typed failures recorded during the turn, in order.
func (r *AgentResult) ToolErrors() []*ToolError {
	var errs []*ToolError
	for _, rec := range r.ToolCalls {
		if rec.Err != nil {
			errs = append(errs, rec.Err)
		}
	}
	return errs
}

// ToolCallRecord is the audit entry of one tool request.
type ToolCallRecord struct {
	Name   string         `json:"name"`
	Args   map[string]any `json:"args"`
	Result string         `json:"result"`
	// Error is the ToolError kind when the request failed.
	Error string     `json:"error,omitempty"`
	Err   *ToolError `json:"-"`
}

// Tool error kinds.
const (
	ToolErrUnresolved = "unresolved" // name not in the registry
	ToolErrDecode     = "decode"     // arguments are not a JSON object
	ToolErrExecution  = "execution"  // Execute failed or panicked
)

// ToolError describes why a tool request could not produce a result.
type ToolError struct {
	Kind string
	Tool string
	Err  error
}

func (e *ToolError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("tool %s: %s", e.Tool, e.Kind)
	}
	return fmt.Sprintf("tool %s: %s: %v", e.Tool, e.Kind, e.Err)
}

func (e *ToolError) Unwrap() error {
	return e.Err
}
