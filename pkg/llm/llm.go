package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	jsoniter "github.com/json-iterator/go"
)

// json is the package-wide JSON codec.
var json = jsoniter.ConfigCompatibleWithStandardLibrary

// LLMUsage is the provider-neutral token accounting of one completion.
type LLMUsage struct {
	PromptTokens     int    `json:"prompt_tokens"`
	CompletionTokens int    `json:"completion_tokens"`
	TotalTokens      int    `json:"total_tokens"`
	CachedTokens     int    `json:"cached_tokens,omitempty"`
	StopReason       string `json:"stop_reason,omitempty"`
}

// LogUsage logs token usage of one completion round.
func LogUsage(ctx context.Context, model, round string, usage *LLMUsage) {
	if usage == nil {
		return
	}
	attrs := []any{
		"model", model,
		"round", round,
		"prompt", usage.PromptTokens,
		"completion", usage.CompletionTokens,
		"total", usage.TotalTokens,
	}
	if usage.CachedTokens > 0 {
		attrs = append(attrs, "cached", usage.CachedTokens)
	}
	if usage.StopReason != "" {
		attrs = append(attrs, "stop_reason", usage.StopReason)
	}
	slog.InfoContext(ctx, "Token usage", attrs...)
}

// ChatResponse is the outcome of one completion request: either final text
// or a set of tool requests carried on Message.
type ChatResponse struct {
	Message Message
	Usage   *LLMUsage
	Model   string
}

// HasToolCalls reports whether the model delegated work to tools.
func (r *ChatResponse) HasToolCalls() bool {
	return r != nil && len(r.Message.ToolCalls) > 0
}

// LLMClient is the completion provider contract. Implementations must be
// safe for concurrent use across sessions.
type LLMClient interface {
	// Provider returns the provider identifier ("openai", "gemini", ...).
	Provider() string

	// Chat sends the conversation and returns the assistant message.
	// A nil tools slice means no tool schema is advertised at all; a
	// non-empty one lets the model decide whether to call tools.
	// Errors are *ProviderError.
	Chat(ctx context.Context, messages []Message, tools []Tool) (*ChatResponse, error)

	// IsTransientError reports whether err is worth another attempt.
	IsTransientError(err error) bool
}

// FallbackClient tries several clients in order.
type FallbackClient struct {
	Clients    []LLMClient
	MaxRetries int
	RetryDelay time.Duration
}

func (f *FallbackClient) Provider() string {
	return "fallback"
}

func (f *FallbackClient) Chat(ctx context.Context, messages []Message, tools []Tool) (*ChatResponse, error) {
	if len(f.Clients) == 0 {
		return nil, &ProviderError{Provider: f.Provider(), Err: errors.New("no clients configured")}
	}

	maxRetries := f.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 1
	}

	var lastErr error
	for i, client := range f.Clients {
		if i > 0 {
			slog.WarnContext(ctx, "Previous provider failed, trying fallback", "index", i, "provider", client.Provider())
		}

		for attempt := 1; attempt <= maxRetries; attempt++ {
			if attempt > 1 {
				slog.InfoContext(ctx, "Retrying provider", "provider", client.Provider(), "attempt", attempt, "max", maxRetries)
				select {
				case <-ctx.Done():
					return nil, AsProviderError(client.Provider(), "", ctx.Err())
				case <-time.After(time.Duration(attempt-1) * f.RetryDelay):
				}
			}

			resp, err := client.Chat(ctx, messages, tools)
			if err == nil {
				return resp, nil
			}
			lastErr = err

			if client.IsTransientError(err) && attempt < maxRetries {
				slog.WarnContext(ctx, "Provider failed with transient error", "provider", client.Provider(), "error", err)
				continue
			}

			slog.ErrorContext(ctx, "Provider failed", "provider", client.Provider(), "error", err)
			break
		}
	}

	pe := AsProviderError(f.Provider(), "", lastErr)
	return nil, &ProviderError{
		Provider:   pe.Provider,
		Model:      pe.Model,
		StatusCode: pe.StatusCode,
		Err:        fmt.Errorf("all fallback providers failed: %w", lastErr),
	}
}

// IsTransientError reports false: once every child has given up the whole
// group is considered failed.
func (f *FallbackClient) IsTransientError(err error) bool {
	return false
}
