package web

import (
	"fmt"
	"log/slog"
	"net/http"
	"slices"

	"supportdesk/pkg/api"
	"supportdesk/pkg/llm"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// maxBodyBytes bounds a POST /chat payload.
const maxBodyBytes = 1 << 20

// ChatRequest is the body of POST /chat.
type ChatRequest struct {
	Messages []ChatMessage `json:"messages"`
}

// ChatMessage is one client-supplied history entry.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// inboundFrame is a client WebSocket frame; plain text is accepted too.
type inboundFrame struct {
	Text string `json:"text"`
}

type resultFrame struct {
	Type string `json:"type"`
	*api.AgentResult
}

type messageFrame struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type sessionFrame struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id"`
}

// Handler returns the HTTP routes served by the channel.
func (c *WebChannel) Handler(ctx api.ChannelContext) http.Handler {
	upgrader := &websocket.Upgrader{CheckOrigin: c.checkOrigin}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", handleHealth)
	mux.HandleFunc("/chat", func(w http.ResponseWriter, r *http.Request) {
		handleChat(w, r, ctx.Engine())
	})
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			slog.Warn("WebSocket upgrade rejected", "remote", r.RemoteAddr, "error", err)
			return
		}
		c.serveSocket(ws, r.RemoteAddr, ctx)
	})
	return mux
}

func (c *WebChannel) checkOrigin(r *http.Request) bool {
	if len(c.config.AllowedOrigins) == 0 {
		return true
	}
	return slices.Contains(c.config.AllowedOrigins, r.Header.Get("Origin"))
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeDetail(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleChat runs one stateless agent turn over the client-supplied history.
func handleChat(w http.ResponseWriter, r *http.Request, engine api.AgentEngine) {
	if r.Method != http.MethodPost {
		writeDetail(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req ChatRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	history := llm.NewChatHistory()
	for i, m := range req.Messages {
		if !llm.ValidRole(m.Role) || m.Role == llm.RoleTool {
			writeDetail(w, http.StatusBadRequest, fmt.Sprintf("messages[%d]: invalid role %q", i, m.Role))
			return
		}
		history.Add(llm.NewTextMessage(m.Role, m.Content))
	}

	if engine == nil {
		writeDetail(w, http.StatusServiceUnavailable, "agent unavailable")
		return
	}

	ctx := llm.WithDebugDir(r.Context(), uuid.NewString()[:8])
	result, err := engine.Run(ctx, history)
	if err != nil {
		// Provider errors may carry credentials or upstream bodies.
		slog.ErrorContext(ctx, "Chat request failed", "error", err)
		writeDetail(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// serveSocket owns one WebSocket session until the client disconnects, then
// drops its history.
func (c *WebChannel) serveSocket(ws *websocket.Conn, remote string, ctx api.ChannelContext) {
	id := uuid.NewString()
	session := api.SessionContext{
		ChannelID: c.ID(),
		UserID:    id,
		ChatID:    id,
		Username:  "WebUser",
	}
	conn := &clientConn{ws: ws}
	c.clients.add(id, conn)
	slog.Info("WebSocket connected", "session", id, "remote", remote)

	defer func() {
		c.clients.remove(id)
		ws.Close()
		if c.sessions != nil {
			c.sessions.Drop(session.Key())
		}
		slog.Info("WebSocket disconnected", "session", id)
	}()

	if err := conn.sendJSON(sessionFrame{Type: "session", SessionID: id}); err != nil {
		return
	}

	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			return
		}
		text := string(data)
		var frame inboundFrame
		if json.Unmarshal(data, &frame) == nil {
			text = frame.Text
		}
		if text == "" {
			continue
		}
		ctx.OnMessage(c.ID(), &api.UnifiedMessage{Session: session, Content: text})
	}
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to write response", "error", err)
	}
}
