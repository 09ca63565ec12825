package main

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// ProgressEvent is one sweep lifecycle notification pushed to websocket
// subscribers.
type ProgressEvent struct {
	Type       string  `json:"type"` // started, gate, completed, failed
	RunID      string  `json:"run_id,omitempty"`
	ConfigHash string  `json:"config_hash,omitempty"`
	GateAction string  `json:"gate_action,omitempty"`
	Params     int     `json:"params,omitempty"`
	Confirmed  int     `json:"confirmed,omitempty"`
	ElapsedSec float64 `json:"elapsed_sec,omitempty"`
	Error      string  `json:"error,omitempty"`
	Timestamp  int64   `json:"timestamp"`
}

// Hub fans sweep progress out to connected websocket clients. Clients that
// fail a write are dropped.
type Hub struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]bool
	logger  *slog.Logger
}

func newHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients: make(map[*websocket.Conn]bool),
		logger:  logger,
	}
}

// Add registers a client connection.
func (h *Hub) Add(conn *websocket.Conn) {
	h.mu.Lock()
	h.clients[conn] = true
	n := len(h.clients)
	h.mu.Unlock()
	h.logger.Info("websocket client connected", "clients", n)
}

// Remove drops a client connection and closes it.
func (h *Hub) Remove(conn *websocket.Conn) {
	h.mu.Lock()
	if _, ok := h.clients[conn]; ok {
		delete(h.clients, conn)
		conn.Close()
	}
	n := len(h.clients)
	h.mu.Unlock()
	h.logger.Info("websocket client disconnected", "clients", n)
}

// Broadcast sends an event to every connected client.
func (h *Hub) Broadcast(ev ProgressEvent) {
	if ev.Timestamp == 0 {
		ev.Timestamp = time.Now().UnixMilli()
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for conn := range h.clients {
		conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := conn.WriteJSON(ev); err != nil {
			h.logger.Warn("websocket write failed, dropping client", "error", err)
			delete(h.clients, conn)
			conn.Close()
		}
	}
}

// Close disconnects all clients.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.clients {
		conn.Close()
		delete(h.clients, conn)
	}
}
