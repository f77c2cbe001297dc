// Package live pushes ingest results to connected dashboard clients
// over WebSocket, so the UI updates without polling.
package live

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Frame is the wire format for messages sent to dashboard clients.
type Frame struct {
	Type    string          `json:"type"` // report, alert
	Payload json.RawMessage `json:"payload"`
}

// Hub manages active dashboard WebSocket connections and fans frames
// out to all of them.
type Hub struct {
	upgrader websocket.Upgrader

	mu    sync.Mutex
	conns map[*client]struct{}
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// NewHub creates a hub ready to accept connections.
func NewHub() *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		conns: make(map[*client]struct{}),
	}
}

// HandleConnection upgrades the request and keeps the connection until
// the client goes away.
func (h *Hub) HandleConnection(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("live: upgrade failed: %v", err)
		return
	}

	c := &client{conn: conn, send: make(chan []byte, 64)}

	h.mu.Lock()
	h.conns[c] = struct{}{}
	n := len(h.conns)
	h.mu.Unlock()
	log.Printf("🔌 Dashboard client connected (%d active)", n)

	go h.writePump(c)
	h.readPump(c)
}

// Broadcast sends a frame to every connected client. Slow clients are
// disconnected rather than allowed to block ingestion.
func (h *Hub) Broadcast(frameType string, payload any) {
	raw, err := json.Marshal(payload)
	if err != nil {
		log.Printf("live: encode %s payload: %v", frameType, err)
		return
	}
	data, err := json.Marshal(Frame{Type: frameType, Payload: raw})
	if err != nil {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.conns {
		select {
		case c.send <- data:
		default:
			h.dropLocked(c)
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}

// readPump discards inbound messages; the feed is one-way. It exists to
// detect closed connections promptly.
func (h *Hub) readPump(c *client) {
	defer h.drop(c)
	c.conn.SetReadLimit(512)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(c *client) {
	ping := time.NewTicker(30 * time.Second)
	defer ping.Stop()

	for {
		select {
		case data, ok := <-c.send:
			if !ok {
				return
			}
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				h.drop(c)
				return
			}
		case <-ping.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.drop(c)
				return
			}
		}
	}
}

func (h *Hub) drop(c *client) {
	h.mu.Lock()
	h.dropLocked(c)
	h.mu.Unlock()
}

func (h *Hub) dropLocked(c *client) {
	if _, ok := h.conns[c]; !ok {
		return
	}
	delete(h.conns, c)
	close(c.send)
	c.conn.Close()
}
