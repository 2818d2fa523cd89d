package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"supportdesk/pkg/api"
	"supportdesk/pkg/config"
	"supportdesk/pkg/llm"
	"supportdesk/pkg/monitor"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// AgentEngine runs the two-round completion loop: one request with the tool
// schema advertised, local execution of whatever the model asked for, and
// one final request without tools that produces the reply.
// It implements api.AgentEngine.
type AgentEngine struct {
	client       llm.LLMClient
	toolRegistry api.ToolRegistry
	prompt       string
	sysCfg       *config.SystemConfig
}

// NewAgentEngine creates an engine. An empty prompt selects SystemPrompt and
// a nil sysCfg selects the defaults.
func NewAgentEngine(client llm.LLMClient, registry api.ToolRegistry, prompt string, sysCfg *config.SystemConfig) *AgentEngine {
	if prompt == "" {
		prompt = SystemPrompt
	}
	if sysCfg == nil {
		sysCfg = config.DefaultSystemConfig()
	}
	return &AgentEngine{
		client:       client,
		toolRegistry: registry,
		prompt:       prompt,
		sysCfg:       sysCfg,
	}
}

// Prompt returns the support policy the engine prepends to histories.
func (e *AgentEngine) Prompt() string {
	return e.prompt
}

// Run answers the latest user turn in history.
//
// The history is normalized to start with the policy, then mutated in place:
// when the model requests tools, the assistant tool-request message and one
// tool message per request are appended. The final assistant reply is not
// appended; that is up to the caller. Provider failures are returned as
// *llm.ProviderError with no partial result.
func (e *AgentEngine) Run(ctx context.Context, history *llm.ChatHistory) (result *api.AgentResult, err error) {
	defer monitor.Track(ctx, "AgentEngine.Run")(&err)

	if history.EnsureSystemMessage(e.prompt) {
		slog.DebugContext(ctx, "System prompt inserted")
	}

	first, err := e.complete(ctx, history, e.advertisedTools(), "initial")
	if err != nil {
		return nil, err
	}

	if !first.HasToolCalls() {
		return api.NewAgentResult(first.Message.Content), nil
	}

	request := first.Message
	request.Role = llm.RoleAssistant
	history.Add(request)

	result = api.NewAgentResult("")
	for _, tc := range request.ToolCalls {
		rec := e.invokeTool(ctx, tc)
		history.Add(llm.NewToolMessage(tc, rec.Result))
		result.ToolCalls = append(result.ToolCalls, rec)
	}

	final, err := e.complete(ctx, history, nil, "final")
	if err != nil {
		return nil, err
	}
	if final.HasToolCalls() {
		slog.WarnContext(ctx, "Ignoring tool calls in final round", "count", len(final.Message.ToolCalls))
	}

	result.Response = final.Message.Content
	return result, nil
}

// complete issues one completion request and logs its token usage.
func (e *AgentEngine) complete(ctx context.Context, history *llm.ChatHistory, tools []llm.Tool, round string) (*llm.ChatResponse, error) {
	resp, err := e.client.Chat(ctx, history.GetMessages(), tools)
	if err != nil {
		return nil, llm.AsProviderError(e.client.Provider(), "", err)
	}
	if resp == nil {
		return nil, &llm.ProviderError{Provider: e.client.Provider(), Err: llm.ErrEmptyResponse}
	}
	llm.LogUsage(ctx, resp.Model, round, resp.Usage)
	return resp, nil
}

// advertisedTools returns the schema list for the first round, or nil when
// tools are disabled or none are registered.
func (e *AgentEngine) advertisedTools() []llm.Tool {
	if !e.sysCfg.EnableTools || e.toolRegistry == nil {
		return nil
	}
	registered := e.toolRegistry.GetAll()
	if len(registered) == 0 {
		return nil
	}
	out := make([]llm.Tool, len(registered))
	for i, t := range registered {
		out[i] = t
	}
	return out
}

// invokeTool resolves, decodes and executes one tool request. It never
// fails: problems are reported to the model as an {"error": ...} payload
// and recorded on the returned record.
func (e *AgentEngine) invokeTool(ctx context.Context, tc llm.ToolCall) (rec api.ToolCallRecord) {
	name := strings.TrimPrefix(tc.Name, "functions.")
	rec = api.ToolCallRecord{Name: name, Args: map[string]any{}}

	defer func() {
		if r := recover(); r != nil {
			slog.ErrorContext(ctx, "Tool execution panicked", "tool", name, "panic", r)
			rec = failed(rec, &api.ToolError{Kind: api.ToolErrExecution, Tool: name, Err: fmt.Errorf("panic: %v", r)},
				fmt.Sprintf("Tool '%s' failed unexpectedly.", name))
		}
	}()

	var tool api.Tool
	var ok bool
	if e.toolRegistry != nil {
		tool, ok = e.toolRegistry.Get(name)
	}
	if !ok {
		slog.WarnContext(ctx, "Unknown tool call", "name", tc.Name, "id", tc.ID)
		return failed(rec, &api.ToolError{Kind: api.ToolErrUnresolved, Tool: name},
			fmt.Sprintf("Tool '%s' is not available.", name))
	}

	args, err := decodeArguments(tc.Arguments)
	if err != nil {
		slog.WarnContext(ctx, "Failed to parse tool args", "tool", name, "error", err)
		return failed(rec, &api.ToolError{Kind: api.ToolErrDecode, Tool: name, Err: err},
			fmt.Sprintf("Invalid arguments for tool '%s': expected a JSON object.", name))
	}
	rec.Args = args

	slog.InfoContext(ctx, "Executing tool", "name", name, "args", args)
	out, err := tool.Execute(ctx, args)
	if err != nil {
		slog.ErrorContext(ctx, "Tool execution error", "name", name, "error", err)
		return failed(rec, &api.ToolError{Kind: api.ToolErrExecution, Tool: name, Err: err},
			fmt.Sprintf("Tool '%s' failed: %v", name, err))
	}

	rec.Result = out
	return rec
}

// decodeArguments parses the raw argument text. Empty text and null are an
// empty object; anything other than a JSON object is an error.
func decodeArguments(raw string) (map[string]any, error) {
	if strings.TrimSpace(raw) == "" {
		return map[string]any{}, nil
	}
	var args map[string]any
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return nil, err
	}
	if args == nil {
		args = map[string]any{}
	}
	return args, nil
}

func failed(rec api.ToolCallRecord, terr *api.ToolError, message string) api.ToolCallRecord {
	payload, err := json.Marshal(map[string]string{"error": message})
	if err != nil {
		payload = []byte(`{"error":"tool failed"}`)
	}
	rec.Result = string(payload)
	rec.Error = terr.Kind
	rec.Err = terr
	return rec
}
