package llm

import (
	"log/slog"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultMaxSessions bounds the number of live histories when no explicit
// limit is configured.
const DefaultMaxSessions = 10000

// SessionManager keeps one ChatHistory per session ID. Histories live in
// memory only and disappear with the process; once the limit is reached the
// least recently used session is forgotten.
type SessionManager struct {
	histories *lru.Cache[string, *ChatHistory]
	mu        sync.Mutex
}

// NewSessionManager initializes an empty SessionManager holding at most
// DefaultMaxSessions histories.
func NewSessionManager() *SessionManager {
	return NewBoundedSessionManager(DefaultMaxSessions)
}

// NewBoundedSessionManager initializes an empty SessionManager holding at
// most maxSessions histories. A non-positive limit selects the default.
func NewBoundedSessionManager(maxSessions int) *SessionManager {
	if maxSessions <= 0 {
		maxSessions = DefaultMaxSessions
	}
	cache, err := lru.NewWithEvict(maxSessions, func(id string, _ *ChatHistory) {
		slog.Debug("Session evicted", "session", id)
	})
	if err != nil {
		// only reachable with a non-positive size
		panic(err)
	}
	return &SessionManager{histories: cache}
}

// GetHistory retrieves the ChatHistory for a session, creating it on first use.
func (sm *SessionManager) GetHistory(sessionID string) *ChatHistory {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if h, ok := sm.histories.Get(sessionID); ok {
		return h
	}
	h := NewChatHistory()
	sm.histories.Add(sessionID, h)
	return h
}

// Drop forgets a session.
func (sm *SessionManager) Drop(sessionID string) {
	sm.histories.Remove(sessionID)
}

// Count returns the number of live sessions.
func (sm *SessionManager) Count() int {
	return sm.histories.Len()
}
