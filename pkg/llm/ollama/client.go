package ollama

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"supportdesk/pkg/llm"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"github.com/ollama/ollama/api"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// OllamaClient talks to a local or remote Ollama server.
type OllamaClient struct {
	client  *api.Client
	model   string
	options map[string]any
	debug   bool
}

// SetDebug toggles raw response dumps.
func (o *OllamaClient) SetDebug(enabled bool) {
	o.debug = enabled
}

// NewOllamaClient creates an Ollama client. An empty baseURL resolves the
// host from OLLAMA_HOST.
func NewOllamaClient(model string, baseURL string, options map[string]any) (*OllamaClient, error) {
	if baseURL == "" {
		c, err := api.ClientFromEnvironment()
		if err != nil {
			return nil, fmt.Errorf("ollama client from environment: %w", err)
		}
		slog.Info("Ollama client ready", "model", model, "host", "env")
		return &OllamaClient{client: c, model: model, options: options}, nil
	}

	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("ollama base url %q: %w", baseURL, err)
	}

	// Cold model loads can take minutes; only connection setup is bounded.
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DialContext = (&net.Dialer{Timeout: 30 * time.Second, KeepAlive: 30 * time.Second}).DialContext
	httpClient := &http.Client{Transport: &escapeFixingTransport{next: transport}}

	slog.Info("Ollama client ready", "model", model, "host", u.Host)
	return &OllamaClient{client: api.NewClient(u, httpClient), model: model, options: options}, nil
}

func (o *OllamaClient) Provider() string {
	return "ollama"
}

// Chat implements llm.LLMClient. Streaming is disabled; the callback fires
// once with the complete reply.
func (o *OllamaClient) Chat(ctx context.Context, messages []llm.Message, tools []llm.Tool) (*llm.ChatResponse, error) {
	ollamaTools, err := convertTools(tools)
	if err != nil {
		return nil, o.wrapError(err)
	}

	stream := false
	req := &api.ChatRequest{
		Model:    o.model,
		Messages: convertMessages(messages),
		Options:  o.options,
		Tools:    ollamaTools,
		Stream:   &stream,
	}

	debugger := llm.NewResponseDebugger(ctx, o.Provider(), o.debug)
	defer debugger.Close()

	var final *api.ChatResponse
	err = o.client.Chat(ctx, req, func(resp api.ChatResponse) error {
		debugger.WriteJSON(resp)
		r := resp
		final = &r
		return nil
	})
	if err != nil {
		return nil, o.wrapError(err)
	}
	if final == nil {
		return nil, o.wrapError(llm.ErrEmptyResponse)
	}

	out := parseResponse(final)
	out.Model = o.model
	return out, nil
}

// IsTransientError reports connection failures, overload and retryable HTTP
// statuses.
func (o *OllamaClient) IsTransientError(err error) bool {
	if err == nil {
		return false
	}
	var se api.StatusError
	if errors.As(err, &se) {
		return llm.IsTransientStatus(se.StatusCode)
	}
	errMsg := err.Error()
	if strings.Contains(errMsg, "connection refused") || strings.Contains(errMsg, "connection reset") {
		return true
	}
	return strings.Contains(strings.ToLower(errMsg), "overloaded")
}

func (o *OllamaClient) wrapError(err error) *llm.ProviderError {
	pe := &llm.ProviderError{
		Provider:  o.Provider(),
		Model:     o.model,
		Transient: o.IsTransientError(err),
		Err:       err,
	}
	var se api.StatusError
	if errors.As(err, &se) {
		pe.StatusCode = se.StatusCode
	}
	return pe
}

// convertTools maps tool descriptors onto api.Tool through their JSON form,
// which is stable across SDK releases.
func convertTools(tools []llm.Tool) ([]api.Tool, error) {
	if len(tools) == 0 {
		return nil, nil
	}
	defs := make([]map[string]any, 0, len(tools))
	for _, t := range tools {
		defs = append(defs, map[string]any{
			"type": "function",
			"function": map[string]any{
				"name":        t.Name(),
				"description": t.Description(),
				"parameters":  llm.ToolSchema(t),
			},
		})
	}
	raw, err := json.Marshal(defs)
	if err != nil {
		return nil, fmt.Errorf("marshal tools: %w", err)
	}
	var out []api.Tool
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("convert tools: %w", err)
	}
	return out, nil
}

// convertMessages converts messages to Ollama API format
func convertMessages(messages []llm.Message) []api.Message {
	ollamaMsgs := make([]api.Message, 0, len(messages))

	for _, m := range messages {
		msg := api.Message{
			Role:    m.Role,
			Content: m.Content,
		}

		if m.Role == llm.RoleAssistant && len(m.ToolCalls) > 0 {
			for _, tc := range m.ToolCalls {
				args := tc.Arguments
				if args == "" {
					args = "{}"
				}
				var apiArgs api.ToolCallFunctionArguments
				if err := json.Unmarshal([]byte(args), &apiArgs); err != nil {
					slog.Warn("Failed to convert tool arguments for history", "provider", "ollama", "error", err)
				}
				msg.ToolCalls = append(msg.ToolCalls, api.ToolCall{
					ID: tc.ID,
					Function: api.ToolCallFunction{
						Name:      tc.Name,
						Arguments: apiArgs,
					},
				})
			}
		}

		if m.Role == llm.RoleTool {
			msg.ToolCallID = m.ToolCallID
		}

		ollamaMsgs = append(ollamaMsgs, msg)
	}

	return ollamaMsgs
}

func parseResponse(resp *api.ChatResponse) *llm.ChatResponse {
	msg := llm.Message{
		Role:    llm.RoleAssistant,
		Content: resp.Message.Content,
	}
	for _, tc := range resp.Message.ToolCalls {
		argsB, err := json.Marshal(tc.Function.Arguments)
		if err != nil {
			slog.Warn("Failed to marshal tool call arguments", "provider", "ollama", "error", err)
			argsB = []byte("{}")
		}
		id := tc.ID
		if id == "" {
			id = "call_" + uuid.NewString()
		}
		msg.ToolCalls = append(msg.ToolCalls, llm.ToolCall{
			ID:        id,
			Name:      tc.Function.Name,
			Arguments: string(argsB),
		})
	}

	stop := resp.DoneReason
	if len(msg.ToolCalls) > 0 {
		stop = llm.StopReasonToolCall
	}

	return &llm.ChatResponse{
		Message: msg,
		Usage: &llm.LLMUsage{
			PromptTokens:     resp.PromptEvalCount,
			CompletionTokens: resp.EvalCount,
			TotalTokens:      resp.PromptEvalCount + resp.EvalCount,
			StopReason:       stop,
		},
	}
}

// escapeFixingTransport drops backslashes that do not start a valid JSON
// escape (e.g. "\$"), which some models emit inside tool arguments and which
// would otherwise fail decoding of the whole reply. Bodies are buffered, so
// it is only used with non-streaming requests.
type escapeFixingTransport struct {
	next http.RoundTripper
}

func (t *escapeFixingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.next.RoundTrip(req)
	if err != nil || !strings.Contains(resp.Header.Get("Content-Type"), "json") {
		return resp, err
	}

	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("read ollama response: %w", err)
	}
	fixed := fixInvalidEscapes(body)
	resp.Body = io.NopCloser(bytes.NewReader(fixed))
	resp.ContentLength = int64(len(fixed))
	return resp, nil
}

// fixInvalidEscapes removes the backslash of every escape sequence JSON does
// not define. Escaped backslashes are kept intact.
func fixInvalidEscapes(b []byte) []byte {
	if !bytes.ContainsRune(b, '\\') {
		return b
	}
	out := make([]byte, 0, len(b))
	for i := 0; i < len(b); i++ {
		if b[i] != '\\' || i+1 >= len(b) {
			out = append(out, b[i])
			continue
		}
		next := b[i+1]
		if strings.IndexByte(`"\/bfnrtu`, next) >= 0 {
			out = append(out, b[i], next)
		} else {
			out = append(out, next)
		}
		i++
	}
	return out
}
