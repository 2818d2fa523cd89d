package llm

import (
	"errors"
	"fmt"
)

// ProviderError is returned by every LLMClient when the completion provider
// fails: network, auth, quota or a malformed response.
type ProviderError struct {
	Provider   string
	Model      string
	StatusCode int  // HTTP status when known, 0 otherwise
	Transient  bool // safe to retry
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("[%s/%s] status %d: %v", e.Provider, e.Model, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("[%s/%s] %v", e.Provider, e.Model, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// ErrEmptyResponse is wrapped when a provider answers without any choice.
var ErrEmptyResponse = errors.New("provider returned no choices")

// AsProviderError wraps err in a ProviderError unless it already is one.
func AsProviderError(provider, model string, err error) *ProviderError {
	if err == nil {
		return nil
	}
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe
	}
	return &ProviderError{Provider: provider, Model: model, Err: err}
}

// IsTransientStatus classifies HTTP status codes the way the fallback client
// needs them: throttling and server-side failures may succeed on retry.
func IsTransientStatus(code int) bool {
	switch code {
	case 408, 429, 500, 502, 503, 504:
		return true
	}
	return false
}
