package tools

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

// EscalationTool hands the conversation over to a human agent.
type EscalationTool struct {
	newTicketID func() string
}

// NewEscalationTool creates the escalate_to_human capability.
func NewEscalationTool() *EscalationTool {
	return &EscalationTool{newTicketID: uuid.NewString}
}

type escalationResult struct {
	Status   string `json:"status"`
	Message  string `json:"message"`
	TicketID string `json:"ticket_id"`
}

func (t *EscalationTool) Name() string {
	return "escalate_to_human"
}

func (t *EscalationTool) Description() string {
	return "Escalate the conversation to a human agent if the user is unhappy or the issue is complex."
}

func (t *EscalationTool) Parameters() map[string]any {
	return map[string]any{
		"reason": map[string]any{
			"type":        "string",
			"description": "The reason for escalation.",
		},
	}
}

func (t *EscalationTool) RequiredParameters() []string {
	return []string{"reason"}
}

// Execute opens a ticket and returns the confirmation JSON.
func (t *EscalationTool) Execute(ctx context.Context, args map[string]any) (string, error) {
	reason, err := stringArg(args, "reason")
	if err != nil {
		return "", err
	}

	ticket := t.newTicketID()
	slog.InfoContext(ctx, "Conversation escalated", "ticket_id", ticket, "reason", reason)

	return encode(escalationResult{
		Status:   "Escalated",
		Message:  "Ticket created. Reason: " + reason,
		TicketID: ticket,
	})
}
