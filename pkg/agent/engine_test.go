package agent

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"supportdesk/pkg/api"
	"supportdesk/pkg/config"
	"supportdesk/pkg/llm"
	"supportdesk/pkg/tools"
)

type chatCall struct {
	messages []llm.Message
	tools    []llm.Tool
}

// scriptedClient replies with responses[i] (or fails with errs[i]) on the
// i-th call and records every request.
type scriptedClient struct {
	mu        sync.Mutex
	responses []*llm.ChatResponse
	errs      []error
	calls     []chatCall
}

func (c *scriptedClient) Provider() string            { return "scripted" }
func (c *scriptedClient) IsTransientError(error) bool { return false }

func (c *scriptedClient) Chat(_ context.Context, messages []llm.Message, tools []llm.Tool) (*llm.ChatResponse, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	idx := len(c.calls)
	c.calls = append(c.calls, chatCall{messages: messages, tools: tools})
	if idx < len(c.errs) && c.errs[idx] != nil {
		return nil, c.errs[idx]
	}
	if idx < len(c.responses) {
		return c.responses[idx], nil
	}
	return text("unexpected call"), nil
}

func text(s string) *llm.ChatResponse {
	return &llm.ChatResponse{Message: llm.NewAssistantMessage(s), Model: "scripted-model"}
}

func toolCalls(calls ...llm.ToolCall) *llm.ChatResponse {
	return &llm.ChatResponse{Message: llm.Message{Role: llm.RoleAssistant, ToolCalls: calls}}
}

type panicTool struct{}

func (panicTool) Name() string                 { return "explode" }
func (panicTool) Description() string          { return "always panics" }
func (panicTool) Parameters() map[string]any   { return map[string]any{} }
func (panicTool) RequiredParameters() []string { return nil }
func (panicTool) Execute(context.Context, map[string]any) (string, error) {
	panic("boom")
}

func newEngine(client llm.LLMClient, extra ...api.Tool) *AgentEngine {
	reg := tools.NewDefaultRegistry(tools.NewDefaultOrderStore())
	for _, t := range extra {
		reg.Register(t)
	}
	return NewAgentEngine(client, reg, "", nil)
}

func toolNames(ts []llm.Tool) []string {
	names := make([]string, len(ts))
	for i, t := range ts {
		names[i] = t.Name()
	}
	return names
}

func TestRunDirectAnswer(t *testing.T) {
	t.Parallel()

	client := &scriptedClient{responses: []*llm.ChatResponse{text("Hello! How can I help with your order today?")}}
	engine := newEngine(client)
	history := llm.NewChatHistory(llm.NewUserMessage("Hi there"))

	result, err := engine.Run(context.Background(), history)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if result.Response != "Hello! How can I help with your order today?" {
		t.Fatalf("Response = %q", result.Response)
	}
	if result.ToolCalls == nil || len(result.ToolCalls) != 0 {
		t.Fatalf("ToolCalls = %#v, want empty non-nil", result.ToolCalls)
	}
	if result.SourceAgent != "CustomerSupportAgent" {
		t.Fatalf("SourceAgent = %q", result.SourceAgent)
	}

	if len(client.calls) != 1 {
		t.Fatalf("expected 1 completion round, got %d", len(client.calls))
	}
	names := toolNames(client.calls[0].tools)
	if len(names) != 2 || names[0] != "get_order_status" || names[1] != "escalate_to_human" {
		t.Fatalf("advertised tools = %v", names)
	}
	sent := client.calls[0].messages
	if sent[0].Role != llm.RoleSystem || sent[0].Content != SystemPrompt {
		t.Fatalf("first message must be the policy, got %+v", sent[0])
	}
	if history.Len() != 2 {
		t.Fatalf("history length = %d, want 2", history.Len())
	}
}

func TestRunOrderLookup(t *testing.T) {
	t.Parallel()

	call := llm.ToolCall{ID: "call_1", Name: "get_order_status", Arguments: `{"order_id":"123"}`}
	client := &scriptedClient{responses: []*llm.ChatResponse{
		toolCalls(call),
		text("Your order 123 has shipped and will arrive on 2025-12-12."),
	}}
	engine := newEngine(client)
	history := llm.NewChatHistory(llm.NewUserMessage("Where is my order 123?"))

	result, err := engine.Run(context.Background(), history)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if !strings.Contains(result.Response, "shipped") {
		t.Fatalf("Response = %q", result.Response)
	}
	if len(result.ToolCalls) != 1 {
		t.Fatalf("expected 1 tool record, got %d", len(result.ToolCalls))
	}
	rec := result.ToolCalls[0]
	if rec.Name != "get_order_status" || rec.Args["order_id"] != "123" || rec.Error != "" {
		t.Fatalf("unexpected record: %+v", rec)
	}
	want := `{"order_id":"123","status":"Shipped","items":["Laptop","Mouse"],"delivery_date":"2025-12-12"}`
	if rec.Result != want {
		t.Fatalf("Result = %s, want %s", rec.Result, want)
	}

	if len(client.calls) != 2 {
		t.Fatalf("expected 2 completion rounds, got %d", len(client.calls))
	}
	if client.calls[1].tools != nil {
		t.Fatal("final round must not advertise tools")
	}
	sent := client.calls[1].messages
	if len(sent) != 4 {
		t.Fatalf("final round sent %d messages, want 4", len(sent))
	}
	if sent[2].Role != llm.RoleAssistant || len(sent[2].ToolCalls) != 1 || sent[2].ToolCalls[0].ID != "call_1" {
		t.Fatalf("unexpected tool request message: %+v", sent[2])
	}
	if sent[3].Role != llm.RoleTool || sent[3].ToolCallID != "call_1" || sent[3].Content != want {
		t.Fatalf("unexpected tool message: %+v", sent[3])
	}
	if history.Len() != 4 {
		t.Fatalf("history length = %d, want 4", history.Len())
	}
}

func TestRunExecutesToolsInOrder(t *testing.T) {
	t.Parallel()

	client := &scriptedClient{responses: []*llm.ChatResponse{
		toolCalls(
			llm.ToolCall{ID: "a", Name: "get_order_status", Arguments: `{"order_id":"999"}`},
			llm.ToolCall{ID: "b", Name: "escalate_to_human", Arguments: `{"reason":"Order missing"}`},
		),
		text("I could not find that order, so I've escalated to a human agent."),
	}}
	engine := newEngine(client)

	result, err := engine.Run(context.Background(), llm.NewChatHistory(llm.NewUserMessage("Order 999 never came!")))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(result.ToolCalls) != 2 {
		t.Fatalf("expected 2 records, got %d", len(result.ToolCalls))
	}
	if result.ToolCalls[0].Result != `{"error":"Order not found."}` {
		t.Fatalf("first result = %s", result.ToolCalls[0].Result)
	}
	if result.ToolCalls[1].Name != "escalate_to_human" || !strings.Contains(result.ToolCalls[1].Result, `"status":"Escalated"`) {
		t.Fatalf("second record = %+v", result.ToolCalls[1])
	}

	sent := client.calls[1].messages
	if sent[3].ToolCallID != "a" || sent[4].ToolCallID != "b" {
		t.Fatalf("tool messages out of order: %s, %s", sent[3].ToolCallID, sent[4].ToolCallID)
	}
}

func TestRunToolFailuresAreReportedToModel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		call       llm.ToolCall
		wantKind   string
		wantResult string
	}{
		{
			name:       "unknown tool",
			call:       llm.ToolCall{ID: "x", Name: "refund_order", Arguments: `{}`},
			wantKind:   api.ToolErrUnresolved,
			wantResult: `{"error":"Tool 'refund_order' is not available."}`,
		},
		{
			name:       "malformed arguments",
			call:       llm.ToolCall{ID: "x", Name: "get_order_status", Arguments: `order 123`},
			wantKind:   api.ToolErrDecode,
			wantResult: `{"error":"Invalid arguments for tool 'get_order_status': expected a JSON object."}`,
		},
		{
			name:       "non-object arguments",
			call:       llm.ToolCall{ID: "x", Name: "get_order_status", Arguments: `["123"]`},
			wantKind:   api.ToolErrDecode,
			wantResult: `{"error":"Invalid arguments for tool 'get_order_status': expected a JSON object."}`,
		},
		{
			name:       "execution error",
			call:       llm.ToolCall{ID: "x", Name: "get_order_status", Arguments: `{}`},
			wantKind:   api.ToolErrExecution,
			wantResult: `{"error":"Tool 'get_order_status' failed: invalid argument: missing parameter 'order_id'"}`,
		},
		{
			name:       "panic",
			call:       llm.ToolCall{ID: "x", Name: "explode", Arguments: `{}`},
			wantKind:   api.ToolErrExecution,
			wantResult: `{"error":"Tool 'explode' failed unexpectedly."}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			client := &scriptedClient{responses: []*llm.ChatResponse{toolCalls(tt.call), text("Sorry about that.")}}
			engine := newEngine(client, panicTool{})

			result, err := engine.Run(context.Background(), llm.NewChatHistory(llm.NewUserMessage("help")))
			if err != nil {
				t.Fatalf("Run() error = %v", err)
			}
			if result.Response != "Sorry about that." {
				t.Fatalf("Response = %q", result.Response)
			}

			rec := result.ToolCalls[0]
			if rec.Error != tt.wantKind || rec.Result != tt.wantResult {
				t.Fatalf("record = %+v", rec)
			}
			if rec.Args == nil {
				t.Fatal("Args must never be nil")
			}

			errs := result.ToolErrors()
			if len(errs) != 1 || errs[0].Kind != tt.wantKind {
				t.Fatalf("ToolErrors() = %v", errs)
			}

			toolMsg := client.calls[1].messages[3]
			if toolMsg.Role != llm.RoleTool || toolMsg.ToolCallID != "x" || toolMsg.Content != tt.wantResult {
				t.Fatalf("tool message = %+v", toolMsg)
			}
		})
	}
}

func TestRunExecutionErrorUnwraps(t *testing.T) {
	t.Parallel()

	client := &scriptedClient{responses: []*llm.ChatResponse{
		toolCalls(llm.ToolCall{ID: "x", Name: "get_order_status", Arguments: `{"order_id":42}`}),
		text("Could you confirm your order ID?"),
	}}
	result, err := newEngine(client).Run(context.Background(), llm.NewChatHistory(llm.NewUserMessage("order 42")))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	errs := result.ToolErrors()
	if len(errs) != 1 || !errors.Is(errs[0], tools.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument in chain, got %v", errs)
	}
	if result.ToolCalls[0].Args["order_id"] != float64(42) {
		t.Fatalf("decoded args should be recorded: %v", result.ToolCalls[0].Args)
	}
}

func TestRunArgumentNormalization(t *testing.T) {
	t.Parallel()

	client := &scriptedClient{responses: []*llm.ChatResponse{
		toolCalls(
			llm.ToolCall{ID: "a", Name: "functions.get_order_status", Arguments: `{"order_id":"456"}`},
			llm.ToolCall{ID: "b", Name: "escalate_to_human", Arguments: `null`},
			llm.ToolCall{ID: "c", Name: "escalate_to_human", Arguments: ``},
		),
		text("done"),
	}}
	result, err := newEngine(client).Run(context.Background(), llm.NewChatHistory(llm.NewUserMessage("456?")))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if rec := result.ToolCalls[0]; rec.Name != "get_order_status" || rec.Error != "" {
		t.Fatalf("prefixed name should resolve: %+v", rec)
	}
	for _, rec := range result.ToolCalls[1:] {
		if len(rec.Args) != 0 || rec.Error != api.ToolErrExecution {
			t.Fatalf("empty arguments should decode to {} and fail validation: %+v", rec)
		}
	}
}

func TestRunIgnoresToolCallsInFinalRound(t *testing.T) {
	t.Parallel()

	final := toolCalls(llm.ToolCall{ID: "again", Name: "get_order_status", Arguments: `{"order_id":"123"}`})
	final.Message.Content = "Your order has shipped."
	client := &scriptedClient{responses: []*llm.ChatResponse{
		toolCalls(llm.ToolCall{ID: "a", Name: "get_order_status", Arguments: `{"order_id":"123"}`}),
		final,
	}}

	result, err := newEngine(client).Run(context.Background(), llm.NewChatHistory(llm.NewUserMessage("123?")))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if result.Response != "Your order has shipped." {
		t.Fatalf("Response = %q", result.Response)
	}
	if len(client.calls) != 2 || len(result.ToolCalls) != 1 {
		t.Fatalf("expected exactly two rounds and one record, got %d rounds, %d records", len(client.calls), len(result.ToolCalls))
	}
}

func TestRunProviderFailure(t *testing.T) {
	t.Parallel()

	cause := &llm.ProviderError{Provider: "scripted", StatusCode: 401, Err: errors.New("invalid api key")}

	tests := []struct {
		name      string
		client    *scriptedClient
		wantCalls int
	}{
		{
			name:      "first round",
			client:    &scriptedClient{errs: []error{cause}},
			wantCalls: 1,
		},
		{
			name: "final round",
			client: &scriptedClient{
				responses: []*llm.ChatResponse{toolCalls(llm.ToolCall{ID: "a", Name: "get_order_status", Arguments: `{"order_id":"123"}`})},
				errs:      []error{nil, cause},
			},
			wantCalls: 2,
		},
		{
			name:      "plain error",
			client:    &scriptedClient{errs: []error{errors.New("connection refused")}},
			wantCalls: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			result, err := newEngine(tt.client).Run(context.Background(), llm.NewChatHistory(llm.NewUserMessage("123?")))
			if result != nil {
				t.Fatalf("expected no partial result, got %+v", result)
			}
			var pe *llm.ProviderError
			if !errors.As(err, &pe) {
				t.Fatalf("expected *llm.ProviderError, got %T: %v", err, err)
			}
			if len(tt.client.calls) != tt.wantCalls {
				t.Fatalf("calls = %d, want %d", len(tt.client.calls), tt.wantCalls)
			}
		})
	}
}

func TestRunNilResponse(t *testing.T) {
	t.Parallel()

	client := &scriptedClient{responses: []*llm.ChatResponse{nil}}
	_, err := newEngine(client).Run(context.Background(), llm.NewChatHistory(llm.NewUserMessage("hi")))
	if !errors.Is(err, llm.ErrEmptyResponse) {
		t.Fatalf("expected ErrEmptyResponse, got %v", err)
	}
}

func TestRunWithToolsDisabled(t *testing.T) {
	t.Parallel()

	sys := config.DefaultSystemConfig()
	sys.EnableTools = false
	client := &scriptedClient{responses: []*llm.ChatResponse{text("Please share your order ID.")}}
	engine := NewAgentEngine(client, tools.NewDefaultRegistry(tools.NewDefaultOrderStore()), "", sys)

	if _, err := engine.Run(context.Background(), llm.NewChatHistory(llm.NewUserMessage("order?"))); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if client.calls[0].tools != nil {
		t.Fatalf("tools advertised while disabled: %v", toolNames(client.calls[0].tools))
	}
}

func TestRunWithoutRegistry(t *testing.T) {
	t.Parallel()

	client := &scriptedClient{responses: []*llm.ChatResponse{
		toolCalls(llm.ToolCall{ID: "a", Name: "get_order_status", Arguments: `{}`}),
		text("ok"),
	}}
	result, err := NewAgentEngine(client, nil, "", nil).Run(context.Background(), llm.NewChatHistory(llm.NewUserMessage("hi")))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if client.calls[0].tools != nil {
		t.Fatal("no tools should be advertised without a registry")
	}
	if result.ToolCalls[0].Error != api.ToolErrUnresolved {
		t.Fatalf("record = %+v", result.ToolCalls[0])
	}
}

func TestRunEmptyHistory(t *testing.T) {
	t.Parallel()

	client := &scriptedClient{responses: []*llm.ChatResponse{text("Hello!")}}
	history := llm.NewChatHistory()

	if _, err := newEngine(client).Run(context.Background(), history); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	sent := client.calls[0].messages
	if len(sent) != 1 || sent[0].Role != llm.RoleSystem {
		t.Fatalf("sent = %+v", sent)
	}
}

func TestRunCustomPromptNotDuplicated(t *testing.T) {
	t.Parallel()

	client := &scriptedClient{responses: []*llm.ChatResponse{text("one"), text("two")}}
	engine := NewAgentEngine(client, nil, "Only talk about orders.", nil)
	if engine.Prompt() != "Only talk about orders." {
		t.Fatalf("Prompt() = %q", engine.Prompt())
	}

	history := llm.NewChatHistory(llm.NewUserMessage("first"))
	if _, err := engine.Run(context.Background(), history); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	history.Add(llm.NewAssistantMessage("one"), llm.NewUserMessage("second"))
	if _, err := engine.Run(context.Background(), history); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	systems := 0
	for _, m := range client.calls[1].messages {
		if m.Role == llm.RoleSystem {
			systems++
		}
	}
	if systems != 1 {
		t.Fatalf("expected a single system message, got %d", systems)
	}
}

func TestSystemPromptCarriesPolicy(t *testing.T) {
	t.Parallel()

	for _, want := range []string{DeclineTemplate, "get_order_status", "escalate_to_human", "Order ID", "passwords"} {
		if !strings.Contains(SystemPrompt, want) {
			t.Errorf("SystemPrompt missing %q", want)
		}
	}
}
