package web

import (
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// writeWait bounds a single frame write to a slow client.
const writeWait = 10 * time.Second

// clientConn serializes writes to one WebSocket; gorilla allows a single
// concurrent writer.
type clientConn struct {
	ws      *websocket.Conn
	writeMu sync.Mutex
}

func (c *clientConn) sendJSON(v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.ws.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.ws.WriteMessage(websocket.TextMessage, payload)
}

// hub maps session ids to live connections.
type hub struct {
	mu    sync.RWMutex
	conns map[string]*clientConn
}

func newHub() *hub {
	return &hub{conns: make(map[string]*clientConn)}
}

func (h *hub) add(id string, c *clientConn) {
	h.mu.Lock()
	h.conns[id] = c
	h.mu.Unlock()
}

func (h *hub) remove(id string) {
	h.mu.Lock()
	delete(h.conns, id)
	h.mu.Unlock()
}

func (h *hub) get(id string) (*clientConn, error) {
	h.mu.RLock()
	c, ok := h.conns[id]
	h.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("web session %s not connected", id)
	}
	return c, nil
}

// closeAll disconnects every client; their read loops then clean up.
func (h *hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, c := range h.conns {
		c.ws.Close()
		delete(h.conns, id)
	}
}
