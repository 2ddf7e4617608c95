package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"voyagelog/pkg/pipeline"
)

const (
	clientBuffer = 64
	writeWait    = 10 * time.Second
)

// Hub fans out pipeline notifications to websocket clients.
type Hub struct {
	clients  map[*Client]struct{}
	mu       sync.RWMutex
	upgrader websocket.Upgrader
}

// Client is one websocket connection. Send is buffered; a full buffer drops
// broadcasts for that client.
type Client struct {
	Send chan []byte
}

// Event is the message pushed to clients.
type Event struct {
	Type   string           `json:"type"`
	Result *pipeline.Result `json:"result,omitempty"`
}

// NewHub returns an empty hub that accepts connections from any origin.
func NewHub() *Hub {
	return &Hub{
		clients: map[*Client]struct{}{},
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Register adds a new client to the broadcast set.
func (h *Hub) Register() *Client {
	client := &Client{Send: make(chan []byte, clientBuffer)}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[client] = struct{}{}
	return client
}

// Unregister removes the client and closes its Send channel. Safe to call twice.
func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)
	close(client.Send)
}

// Broadcast queues payload for every client. Slow clients miss messages
// instead of blocking the sender.
func (h *Hub) Broadcast(payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients {
		select {
		case client.Send <- payload:
		default:
			slog.Debug("Hub: client buffer full, dropping message")
		}
	}
}

// Count returns the number of connected clients.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects all clients.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		delete(h.clients, client)
		close(client.Send)
	}
}

// NotifyRun broadcasts a "regenerated" event for a finished run.
func (h *Hub) NotifyRun(res pipeline.Result) {
	payload, err := json.Marshal(Event{Type: "regenerated", Result: &res})
	if err != nil {
		slog.Error("Hub: failed to encode event", "error", err)
		return
	}
	h.Broadcast(payload)
}

// HandleWS upgrades the connection and streams events until either side closes.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("Hub: websocket upgrade failed", "error", err)
		return
	}
	client := h.Register()
	slog.Debug("Hub: client connected", "clients", h.Count())

	done := make(chan struct{})
	go func() {
		defer close(done)
		defer conn.Close()
		for msg := range client.Send {
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		}
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, ""), time.Now().Add(writeWait))
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	h.Unregister(client)
	<-done
	slog.Debug("Hub: client disconnected", "clients", h.Count())
}
