package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"supportdesk/pkg/llm"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"google.golang.org/genai"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// GeminiClient is a Google Gemini API client.
type GeminiClient struct {
	client       *genai.Client
	model        string
	debugEnabled bool
	options      map[string]any
}

// NewGeminiClient creates a Gemini client for a single model. An empty
// baseURL uses the public Gemini API endpoint.
func NewGeminiClient(ctx context.Context, apiKey, model, baseURL string, options map[string]any) (*GeminiClient, error) {
	cfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if baseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiClient{
		client:  client,
		model:   model,
		options: options,
	}, nil
}

func (g *GeminiClient) Provider() string {
	return "gemini"
}

// SetDebug toggles raw response dumps.
func (g *GeminiClient) SetDebug(enabled bool) {
	g.debugEnabled = enabled
}

func (g *GeminiClient) IsTransientError(err error) bool {
	if err == nil {
		return false
	}
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return llm.IsTransientStatus(apiErr.Code)
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "timeout") ||
		strings.Contains(msg, "overloaded")
}

// Chat implements llm.LLMClient.
func (g *GeminiClient) Chat(ctx context.Context, messages []llm.Message, tools []llm.Tool) (*llm.ChatResponse, error) {
	contents, systemInstruction := convertMessages(messages)

	cfg := &genai.GenerateContentConfig{
		SystemInstruction: systemInstruction,
	}
	if decls := convertTools(tools); len(decls) > 0 {
		cfg.Tools = []*genai.Tool{{FunctionDeclarations: decls}}
		cfg.ToolConfig = &genai.ToolConfig{
			FunctionCallingConfig: &genai.FunctionCallingConfig{
				Mode: genai.FunctionCallingConfigModeAuto,
			},
		}
	}
	if t, ok := g.options["temperature"].(float64); ok {
		cfg.Temperature = genai.Ptr(float32(t))
	}
	if maxTok, ok := g.options["max_tokens"].(float64); ok {
		cfg.MaxOutputTokens = int32(maxTok)
	}

	debugger := llm.NewResponseDebugger(ctx, g.Provider(), g.debugEnabled)
	defer debugger.Close()

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, cfg)
	if err != nil {
		return nil, g.wrapError(err)
	}
	debugger.WriteJSON(resp)

	out, err := parseResponse(resp)
	if err != nil {
		return nil, g.wrapError(err)
	}
	out.Model = g.model
	return out, nil
}

func (g *GeminiClient) wrapError(err error) *llm.ProviderError {
	pe := &llm.ProviderError{
		Provider:  g.Provider(),
		Model:     g.model,
		Transient: g.IsTransientError(err),
		Err:       err,
	}
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		pe.StatusCode = apiErr.Code
	}
	return pe
}

// convertMessages splits off the system prompt and maps the rest onto
// user/model contents. Tool results travel as function responses in a user
// turn.
func convertMessages(messages []llm.Message) ([]*genai.Content, *genai.Content) {
	var system *genai.Content
	contents := make([]*genai.Content, 0, len(messages))

	for _, m := range messages {
		switch m.Role {
		case llm.RoleSystem:
			if system == nil {
				system = genai.NewContentFromText(m.Content, genai.RoleUser)
			} else {
				system.Parts = append(system.Parts, genai.NewPartFromText(m.Content))
			}
		case llm.RoleUser:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleUser))
		case llm.RoleAssistant:
			var parts []*genai.Part
			if m.Content != "" {
				parts = append(parts, genai.NewPartFromText(m.Content))
			}
			for _, tc := range m.ToolCalls {
				var args map[string]any
				if tc.Arguments != "" {
					if err := json.Unmarshal([]byte(tc.Arguments), &args); err != nil {
						args = map[string]any{}
					}
				}
				part := genai.NewPartFromFunctionCall(tc.Name, args)
				part.FunctionCall.ID = tc.ID
				parts = append(parts, part)
			}
			if len(parts) > 0 {
				contents = append(contents, genai.NewContentFromParts(parts, genai.RoleModel))
			}
		case llm.RoleTool:
			part := genai.NewPartFromFunctionResponse(m.Name, toolResponse(m.Content))
			part.FunctionResponse.ID = m.ToolCallID
			// Consecutive tool results share one user turn.
			if n := len(contents); n > 0 && isFunctionResponseTurn(contents[n-1]) {
				contents[n-1].Parts = append(contents[n-1].Parts, part)
			} else {
				contents = append(contents, genai.NewContentFromParts([]*genai.Part{part}, genai.RoleUser))
			}
		}
	}
	return contents, system
}

func isFunctionResponseTurn(c *genai.Content) bool {
	if c.Role != genai.RoleUser || len(c.Parts) == 0 {
		return false
	}
	for _, p := range c.Parts {
		if p.FunctionResponse == nil {
			return false
		}
	}
	return true
}

// toolResponse decodes a JSON object result; anything else is wrapped
// under "output".
func toolResponse(content string) map[string]any {
	var obj map[string]any
	if err := json.Unmarshal([]byte(content), &obj); err == nil && obj != nil {
		return obj
	}
	return map[string]any{"output": content}
}

func convertTools(tools []llm.Tool) []*genai.FunctionDeclaration {
	if len(tools) == 0 {
		return nil
	}
	decls := make([]*genai.FunctionDeclaration, 0, len(tools))
	for _, t := range tools {
		decls = append(decls, &genai.FunctionDeclaration{
			Name:                 t.Name(),
			Description:          t.Description(),
			ParametersJsonSchema: llm.ToolSchema(t),
		})
	}
	return decls
}

// parseResponse extracts text, function calls and usage from the first
// candidate.
func parseResponse(resp *genai.GenerateContentResponse) (*llm.ChatResponse, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, llm.ErrEmptyResponse
	}
	cand := resp.Candidates[0]

	msg := llm.Message{Role: llm.RoleAssistant}
	var text strings.Builder
	for _, part := range cand.Content.Parts {
		switch {
		case part.FunctionCall != nil:
			args, err := json.Marshal(part.FunctionCall.Args)
			if err != nil || part.FunctionCall.Args == nil {
				args = []byte("{}")
			}
			id := part.FunctionCall.ID
			if id == "" {
				id = "call_" + uuid.NewString()
			}
			msg.ToolCalls = append(msg.ToolCalls, llm.ToolCall{
				ID:        id,
				Name:      part.FunctionCall.Name,
				Arguments: string(args),
			})
		case part.Thought:
			// reasoning is not part of the reply
		case part.Text != "":
			text.WriteString(part.Text)
		}
	}
	msg.Content = text.String()

	out := &llm.ChatResponse{Message: msg}
	if u := resp.UsageMetadata; u != nil {
		out.Usage = &llm.LLMUsage{
			PromptTokens:     int(u.PromptTokenCount),
			CompletionTokens: int(u.CandidatesTokenCount),
			TotalTokens:      int(u.TotalTokenCount),
			CachedTokens:     int(u.CachedContentTokenCount),
			StopReason:       normalizeStopReason(cand.FinishReason, len(msg.ToolCalls) > 0),
		}
	}
	return out, nil
}

func normalizeStopReason(reason genai.FinishReason, toolCalls bool) string {
	switch {
	case toolCalls:
		return llm.StopReasonToolCall
	case reason == genai.FinishReasonStop:
		return llm.StopReasonStop
	case reason == genai.FinishReasonMaxTokens:
		return llm.StopReasonLength
	default:
		return strings.ToLower(string(reason))
	}
}
