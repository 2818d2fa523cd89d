package tools

import (
	"context"
	"log/slog"
)

// OrderStatusTool looks up an order in the store.
type OrderStatusTool struct {
	store *OrderStore
}

// NewOrderStatusTool creates the get_order_status capability.
func NewOrderStatusTool(store *OrderStore) *OrderStatusTool {
	return &OrderStatusTool{store: store}
}

func (t *OrderStatusTool) Name() string {
	return "get_order_status"
}

func (t *OrderStatusTool) Description() string {
	return "Get the status of an order given its Order ID."
}

func (t *OrderStatusTool) Parameters() map[string]any {
	return map[string]any{
		"order_id": map[string]any{
			"type":        "string",
			"description": "The ID of the order, e.g., '123'.",
		},
	}
}

func (t *OrderStatusTool) RequiredParameters() []string {
	return []string{"order_id"}
}

// Execute returns the order as JSON, or {"error":"Order not found."}.
func (t *OrderStatusTool) Execute(ctx context.Context, args map[string]any) (string, error) {
	id, err := stringArg(args, "order_id")
	if err != nil {
		return "", err
	}

	order, ok := t.store.Lookup(id)
	if !ok {
		slog.DebugContext(ctx, "Order not found", "order_id", id)
		return encode(map[string]string{"error": "Order not found."})
	}
	return encode(order)
}
