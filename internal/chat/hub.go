// Package chat implements the websocket fan-out for the shared chat room.
//
// A single Hub goroutine owns the set of connected clients. Lines handed to
// Broadcast are delivered to every client in the order the hub receives them;
// a client whose send buffer is full is disconnected rather than blocking the
// room.
package chat

import (
	"context"
	"sort"
	"sync"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"moviejournal/internal/metrics"
)

// Frame types carried over the socket.
const (
	FrameMessage = "message"
	FramePing    = "ping"
	FramePong    = "pong"
)

// Frame is the JSON envelope exchanged with browsers.
type Frame struct {
	Type string `json:"type"`
	Data string `json:"data,omitempty"`
}

// Hub relays chat lines to every connected client.
type Hub struct {
	clients    map[*Client]struct{}
	broadcast  chan string
	register   chan *Client
	unregister chan *Client
	mu         sync.RWMutex
	log        zerolog.Logger
}

// NewHub creates a hub. Call Run to start it.
func NewHub(log zerolog.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]struct{}),
		broadcast:  make(chan string, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		log:        log.With().Str("component", "chat-hub").Logger(),
	}
}

// Run processes registrations and broadcasts until ctx is canceled, then
// closes every client.
func (h *Hub) Run(ctx context.Context) error {
	for {
		// Lifecycle events first so a client registered before a broadcast
		// was queued receives it.
		select {
		case c := <-h.register:
			h.add(c)
			continue
		case c := <-h.unregister:
			h.remove(c)
			continue
		default:
		}

		select {
		case <-ctx.Done():
			n := h.ClientCount()
			h.closeAll()
			h.log.Info().Int("clients_closed", n).Msg("chat hub stopped")
			return ctx.Err()
		case c := <-h.register:
			h.add(c)
		case c := <-h.unregister:
			h.remove(c)
		case line := <-h.broadcast:
			h.deliver(Frame{Type: FrameMessage, Data: line})
		}
	}
}

// Broadcast queues line for every connected client. It never blocks; when
// the queue is full the line is dropped.
func (h *Hub) Broadcast(line string) {
	select {
	case h.broadcast <- line:
	default:
		h.log.Warn().Msg("broadcast channel full, dropping chat line")
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) add(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	metrics.ChatClients.Set(float64(n))
	h.log.Info().Uint64("client", c.id).Int("total_clients", n).Msg("chat client connected")
}

func (h *Hub) remove(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	n := len(h.clients)
	h.mu.Unlock()
	metrics.ChatClients.Set(float64(n))
	h.log.Info().Uint64("client", c.id).Int("total_clients", n).Msg("chat client disconnected")
}

func (h *Hub) deliver(f Frame) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	sort.Slice(clients, func(i, j int) bool { return clients[i].id < clients[j].id })

	for _, c := range clients {
		select {
		case c.send <- f:
		default:
			close(c.send)
			delete(h.clients, c)
			h.log.Warn().Uint64("client", c.id).Msg("chat client too slow, disconnecting")
		}
	}
	metrics.ChatClients.Set(float64(len(h.clients)))
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		close(c.send)
		delete(h.clients, c)
	}
	metrics.ChatClients.Set(0)
}

// MarshalFrame encodes a frame for the wire.
func MarshalFrame(f Frame) ([]byte, error) {
	return json.Marshal(f)
}
