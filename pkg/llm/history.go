package llm

import (
	"sync"
)

// ChatHistory is an ordered, concurrency-safe conversation history.
// The agent loop mutates it in place: callers hand it over for the
// duration of a turn.
type ChatHistory struct {
	messages []Message
	mu       sync.RWMutex
}

// NewChatHistory creates a history seeded with msgs.
func NewChatHistory(msgs ...Message) *ChatHistory {
	h := &ChatHistory{messages: make([]Message, 0, len(msgs))}
	for _, m := range msgs {
		h.messages = append(h.messages, m.Clone())
	}
	return h
}

// Add appends messages at the end of the history.
func (h *ChatHistory) Add(msgs ...Message) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, m := range msgs {
		h.messages = append(h.messages, m.Clone())
	}
}

// GetMessages returns a copy of the current history.
func (h *ChatHistory) GetMessages() []Message {
	h.mu.RLock()
	defer h.mu.RUnlock()

	cp := make([]Message, len(h.messages))
	for i, m := range h.messages {
		cp[i] = m.Clone()
	}
	return cp
}

// Len returns the number of messages.
func (h *ChatHistory) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.messages)
}

// Reset drops every message.
func (h *ChatHistory) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.messages = h.messages[:0]
}

// EnsureSystemMessage normalizes the history so that it starts with a
// system message carrying prompt. It reports whether a message was inserted.
func (h *ChatHistory) EnsureSystemMessage(prompt string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	before := len(h.messages)
	h.messages = EnsureSystem(h.messages, prompt)
	return len(h.messages) != before
}

// EnsureSystem returns msgs with a leading system message. A sequence that
// already starts with a system message is returned unchanged, whatever its
// text, so the operation is idempotent.
func EnsureSystem(msgs []Message, prompt string) []Message {
	if len(msgs) > 0 && msgs[0].Role == RoleSystem {
		return msgs
	}
	out := make([]Message, 0, len(msgs)+1)
	out = append(out, NewSystemMessage(prompt))
	return append(out, msgs...)
}
