package web

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"laptimer-ng/internal/lap"
	"laptimer-ng/internal/session"
)

const writeWait = 5 * time.Second

// Hub fans live snapshots and lap events out to websocket clients. A
// client that cannot keep up is dropped rather than back-pressuring the
// timing loop.
type Hub struct {
	upgrader websocket.Upgrader

	mu    sync.Mutex
	conns map[*websocket.Conn]struct{}
}

// NewHub returns an empty hub.
func NewHub() *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			// The device runs on a private network; the UI is served
			// from the same host but over a non-matching origin when
			// accessed by IP.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		conns: make(map[*websocket.Conn]struct{}),
	}
}

// ServeWS upgrades the request and registers the client.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("web: ws upgrade: %v", err)
		return
	}

	h.mu.Lock()
	h.conns[conn] = struct{}{}
	n := len(h.conns)
	h.mu.Unlock()
	log.Printf("web: ws client connected remote=%s clients=%d", conn.RemoteAddr(), n)

	// Drain (and discard) client messages so pings are answered and
	// closes are noticed.
	go func() {
		defer h.drop(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}

// HandleSnapshot broadcasts a status message to all clients.
func (h *Hub) HandleSnapshot(snap session.Snapshot) {
	h.broadcast(wsMessage{Type: "status", Status: &snap})
}

// HandleLap broadcasts a lap message to all clients.
func (h *Hub) HandleLap(rec lap.Record) {
	h.broadcast(wsMessage{Type: "lap", Lap: &rec})
}

type wsMessage struct {
	Type   string            `json:"type"`
	Status *session.Snapshot `json:"status,omitempty"`
	Lap    *lap.Record       `json:"lap,omitempty"`
}

func (h *Hub) broadcast(msg wsMessage) {
	payload, err := json.Marshal(msg)
	if err != nil {
		log.Printf("web: ws marshal: %v", err)
		return
	}

	h.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(h.conns))
	for c := range h.conns {
		conns = append(conns, c)
	}
	h.mu.Unlock()

	for _, c := range conns {
		_ = c.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.WriteMessage(websocket.TextMessage, payload); err != nil {
			h.drop(c)
		}
	}
}

// Close disconnects all clients.
func (h *Hub) Close() {
	h.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(h.conns))
	for c := range h.conns {
		conns = append(conns, c)
	}
	h.conns = make(map[*websocket.Conn]struct{})
	h.mu.Unlock()

	for _, c := range conns {
		_ = c.Close()
	}
}

func (h *Hub) drop(conn *websocket.Conn) {
	h.mu.Lock()
	_, ok := h.conns[conn]
	delete(h.conns, conn)
	h.mu.Unlock()
	if ok {
		_ = conn.Close()
		log.Printf("web: ws client dropped remote=%s", conn.RemoteAddr())
	}
}
