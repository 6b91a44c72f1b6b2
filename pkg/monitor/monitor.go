// Package monitor streams live samples to bench UIs over WebSockets. It is
// a broadcast-only surface: clients connect, receive one JSON envelope per
// sample, and never send anything back.
package monitor

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Message is the minimal event envelope sent over WebSocket. The frontend
// switches on `type` and treats `data` as an arbitrary JSON object.
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
}

// RawSample is the broadcast payload for raw and filtered readings.
type RawSample struct {
	ElapsedUS int64 `json:"elapsed_us"`
	Value     int32 `json:"value"`
}

// WeightSample is the broadcast payload for calibrated and tared readings.
type WeightSample struct {
	ElapsedUS int64   `json:"elapsed_us"`
	Value     float32 `json:"value"`
}

// client wraps a websocket connection with a per-connection write mutex.
// Gorilla WebSocket requires that writes are not concurrent on the same Conn.
type client struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

// Hub is a lightweight broadcast hub for a set of WebSocket clients. A
// dongle serves a handful of local bench UIs at most, so a simple in-memory
// hub is enough.
type Hub struct {
	mu      sync.RWMutex
	clients map[*client]struct{}
}

// NewHub constructs an empty hub.
func NewHub() *Hub {
	return &Hub{clients: make(map[*client]struct{})}
}

func (h *Hub) add(conn *websocket.Conn) *client {
	c := &client{conn: conn}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	return c
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
	_ = c.conn.Close()
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast sends a message to all connected clients. The message is
// marshalled once and the raw bytes fanned out. Write failures are ignored;
// the read loop notices the disconnect and removes the client.
func (h *Hub) Broadcast(msg Message) {
	b, _ := json.Marshal(msg)
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		c.mu.Lock()
		_ = c.conn.WriteMessage(websocket.TextMessage, b)
		c.mu.Unlock()
	}
}

// OnRaw returns a sample callback that broadcasts raw readings.
func (h *Hub) OnRaw() func(elapsed time.Duration, value int32) {
	return func(elapsed time.Duration, value int32) {
		h.Broadcast(Message{Type: "sample", Data: RawSample{
			ElapsedUS: elapsed.Microseconds(),
			Value:     value,
		}})
	}
}

// OnWeight returns a sample callback that broadcasts weight readings.
func (h *Hub) OnWeight() func(elapsed time.Duration, value float32) {
	return func(elapsed time.Duration, value float32) {
		h.Broadcast(Message{Type: "sample", Data: WeightSample{
			ElapsedUS: elapsed.Microseconds(),
			Value:     value,
		}})
	}
}

// upgrader upgrades HTTP requests to WebSockets. CheckOrigin allows all
// origins; the monitor is meant to stay on localhost.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// ServeHTTP upgrades the request and registers the connection with the hub.
// Incoming messages are discarded; the read loop exists to detect client
// disconnects and trigger cleanup.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	c := h.add(conn)

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			h.remove(c)
			return
		}
	}
}
