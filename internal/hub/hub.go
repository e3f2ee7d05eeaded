// Package hub fans events out to Server-Sent Events clients.
package hub

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
)

// KeepAliveInterval is how often idle clients receive a comment line
var KeepAliveInterval = 30 * time.Second

// BroadcastTimeout bounds how long BroadcastTo waits when the hub is backed up
var BroadcastTimeout = 2 * time.Second

// Client represents a connected SSE client
type Client struct {
	id      string
	session string // empty = all sessions
	events  chan []byte
}

// message is one broadcast; an empty session reaches every client
type message struct {
	session string
	event   interface{}
}

// Hub manages SSE client connections
type Hub struct {
	mu         sync.RWMutex
	clients    map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	broadcast  chan message
	done       chan struct{}
	stopOnce   sync.Once
}

// New creates a new Hub
func New() *Hub {
	return &Hub{
		clients:    make(map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan message, 256),
		done:       make(chan struct{}),
	}
}

// Run starts the hub's event loop. It returns after Stop.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = struct{}{}
			total := len(h.clients)
			h.mu.Unlock()
			log.Printf("SSE client connected: %s session=%q (total: %d)", client.id, client.session, total)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.events)
			}
			total := len(h.clients)
			h.mu.Unlock()
			log.Printf("SSE client disconnected: %s (total: %d)", client.id, total)

		case msg := <-h.broadcast:
			data, err := json.Marshal(msg.event)
			if err != nil {
				log.Printf("Failed to marshal event: %v", err)
				continue
			}

			frame := []byte(fmt.Sprintf("data: %s\n\n", data))

			// A client that cannot keep up is disconnected rather than
			// served a stream with gaps; EventSource reconnects and refetches.
			var slow []*Client
			h.mu.RLock()
			for client := range h.clients {
				if msg.session != "" && client.session != "" && client.session != msg.session {
					continue
				}
				select {
				case client.events <- frame:
				default:
					slow = append(slow, client)
				}
			}
			h.mu.RUnlock()

			if len(slow) > 0 {
				h.mu.Lock()
				for _, client := range slow {
					if _, ok := h.clients[client]; ok {
						delete(h.clients, client)
						close(client.events)
						log.Printf("SSE client %s is too slow, disconnecting", client.id)
					}
				}
				h.mu.Unlock()
			}

		case <-h.done:
			return
		}
	}
}

// Stop ends Run and closes open event streams
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.done) })
}

// Broadcast sends an event to all connected clients
func (h *Hub) Broadcast(event interface{}) {
	h.BroadcastTo("", event)
}

// BroadcastTo sends an event to clients following session and to unfiltered clients.
// Events keep their order; when the hub is backed up BroadcastTo waits up to
// BroadcastTimeout, and it returns at once after Stop.
func (h *Hub) BroadcastTo(session string, event interface{}) {
	msg := message{session: session, event: event}
	select {
	case h.broadcast <- msg:
		return
	case <-h.done:
		return
	default:
	}

	timer := time.NewTimer(BroadcastTimeout)
	defer timer.Stop()
	select {
	case h.broadcast <- msg:
	case <-h.done:
	case <-timer.C:
		log.Println("Broadcast channel full, dropping event")
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeHTTP handles SSE connections. ?session=<id> limits the stream to one session.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "SSE not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering

	client := &Client{
		id:      uuid.NewString(),
		session: r.URL.Query().Get("session"),
		events:  make(chan []byte, 64),
	}

	select {
	case h.register <- client:
	case <-r.Context().Done():
		return
	case <-h.done:
		return
	}

	defer func() {
		select {
		case h.unregister <- client:
		case <-h.done:
		}
	}()

	fmt.Fprintf(w, ": connected\n\n")
	flusher.Flush()

	ticker := time.NewTicker(KeepAliveInterval)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-client.events:
			if !ok {
				return
			}
			if _, err := w.Write(msg); err != nil {
				return
			}
			flusher.Flush()

		case <-ticker.C:
			if _, err := fmt.Fprintf(w, ": keepalive\n\n"); err != nil {
				return
			}
			flusher.Flush()

		case <-r.Context().Done():
			return

		case <-h.done:
			return
		}
	}
}
