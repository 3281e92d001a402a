package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Hub maintains the set of connected clients keyed by user id and pushes
// messages to every connection of a user
type Hub struct {
	// Registered clients organized by user id
	clients map[string]map[*Client]bool

	// Outbound messages addressed to one user
	push chan *envelope

	// Register requests from the clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client

	// Closed once Run has returned
	done chan struct{}

	// Guards clients for readers outside the Run loop
	mu sync.RWMutex

	logger zerolog.Logger
}

// Message is a server to client frame
type Message struct {
	// Type of message, e.g. "notification"
	Type string `json:"type"`

	// Payload is the JSON body of the message
	Payload interface{} `json:"payload,omitempty"`

	Timestamp time.Time `json:"timestamp"`
}

type envelope struct {
	userID string
	data   []byte
}

// NewHub creates a new Hub instance
func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		clients:    make(map[string]map[*Client]bool),
		push:       make(chan *envelope, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// Run handles registrations and pushes until ctx is cancelled
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			close(h.done)
			return

		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case env := <-h.push:
			h.deliver(env)
		}
	}
}

// addClient hands client to the Run loop. It reports false once the hub has
// stopped.
func (h *Hub) addClient(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

// removeClient hands client back to the Run loop; a stopped hub has already
// closed every queue
func (h *Hub) removeClient(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client.userID]; !ok {
		h.clients[client.userID] = make(map[*Client]bool)
	}
	h.clients[client.userID][client] = true

	h.logger.Info().
		Str("userID", client.userID).
		Str("addr", client.remoteAddr).
		Msg("Client registered")
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(client)
}

// removeLocked drops a client and closes its queue; h.mu must be held
func (h *Hub) removeLocked(client *Client) {
	conns, ok := h.clients[client.userID]
	if !ok {
		return
	}
	if _, ok := conns[client]; !ok {
		return
	}

	delete(conns, client)
	close(client.send)
	if len(conns) == 0 {
		delete(h.clients, client.userID)
	}

	h.logger.Info().
		Str("userID", client.userID).
		Str("addr", client.remoteAddr).
		Msg("Client unregistered")
}

// deliver queues data on every connection of the user. Clients whose queue is
// full are dropped.
func (h *Hub) deliver(env *envelope) {
	h.mu.Lock()
	defer h.mu.Unlock()

	conns, ok := h.clients[env.userID]
	if !ok {
		h.logger.Debug().Str("userID", env.userID).Msg("No live connections for push")
		return
	}

	for client := range conns {
		select {
		case client.send <- env.data:
		default:
			h.logger.Warn().Str("userID", env.userID).Msg("Dropping slow websocket client")
			h.removeLocked(client)
		}
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, conns := range h.clients {
		for client := range conns {
			h.removeLocked(client)
		}
	}
}

// Push sends msg to every live connection of userID. It never blocks; when the
// hub is saturated the message is dropped and logged.
func (h *Hub) Push(userID string, msg *Message) {
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}

	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error().Err(err).Str("userID", userID).Msg("Failed to marshal message for push")
		return
	}

	select {
	case h.push <- &envelope{userID: userID, data: data}:
	default:
		h.logger.Warn().Str("userID", userID).Msg("Push queue full, dropping message")
	}
}

// ConnectedCount returns the number of live connections of a user
func (h *Hub) ConnectedCount(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.clients[userID])
}
