// Package ws carries the websocket transport: a hub of connections,
// named room groups, per-client read/write pumps, and the message
// envelope exchanged with browsers.
package ws

import (
	"sync"

	"github.com/rs/zerolog/log"
)

// Hub maintains the set of active clients and the room groups they
// subscribe to. Group membership is managed by request handlers via
// AddToGroup; a connection is dropped from every group when it
// unregisters.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client            // by connection id
	groups  map[string]map[string]*Client // room code -> connection id -> client

	register   chan *Client
	unregister chan *Client
}

// NewHub creates a new Hub instance.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		groups:     make(map[string]map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

// Run starts the hub's event loop.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			if existing, ok := h.clients[client.ConnectionID]; ok {
				existing.Close()
			}
			h.clients[client.ConnectionID] = client
			h.mu.Unlock()
			log.Debug().Str("conn", client.ConnectionID).Msg("client registered")

		case client := <-h.unregister:
			h.mu.Lock()
			if existing, ok := h.clients[client.ConnectionID]; ok && existing == client {
				delete(h.clients, client.ConnectionID)
				for code, members := range h.groups {
					delete(members, client.ConnectionID)
					if len(members) == 0 {
						delete(h.groups, code)
					}
				}
				log.Debug().Str("conn", client.ConnectionID).Msg("client unregistered")
			}
			h.mu.Unlock()
		}
	}
}

// Register adds a client to the hub.
func (h *Hub) Register(client *Client) {
	h.register <- client
}

// Unregister removes a client from the hub.
func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// GetClient returns a client by connection id.
func (h *Hub) GetClient(connectionID string) *Client {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.clients[connectionID]
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// AddToGroup subscribes a connection to a room's broadcasts.
func (h *Hub) AddToGroup(connectionID, code string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	client, ok := h.clients[connectionID]
	if !ok {
		return
	}
	if h.groups[code] == nil {
		h.groups[code] = make(map[string]*Client)
	}
	h.groups[code][connectionID] = client
}

// RemoveFromGroup unsubscribes a connection from a room.
func (h *Hub) RemoveFromGroup(connectionID, code string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if members, ok := h.groups[code]; ok {
		delete(members, connectionID)
		if len(members) == 0 {
			delete(h.groups, code)
		}
	}
}

// RemoveGroup drops a whole room group, typically on room removal.
func (h *Hub) RemoveGroup(code string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.groups, code)
}

// GroupSize returns the number of connections subscribed to a room.
func (h *Hub) GroupSize(code string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.groups[code])
}

// SendToConnection sends a message to a single connection. Dead or
// unknown connections are logged and skipped; delivery is best-effort.
func (h *Hub) SendToConnection(connectionID string, msg *Message) {
	client := h.GetClient(connectionID)
	if client == nil {
		log.Debug().Str("conn", connectionID).Str("type", string(msg.Type)).
			Msg("dropping message for unknown connection")
		return
	}
	if err := client.SendMessage(msg); err != nil {
		log.Warn().Err(err).Str("conn", connectionID).Str("type", string(msg.Type)).
			Msg("failed to send message")
	}
}

// SendToGroup sends a message to every connection subscribed to a
// room. Messages are delivered per connection in emission order.
func (h *Hub) SendToGroup(code string, msg *Message) {
	h.sendToGroupExcept(code, "", msg)
}

// SendToGroupExcept sends to all group members except one connection.
func (h *Hub) SendToGroupExcept(code, exceptConnectionID string, msg *Message) {
	h.sendToGroupExcept(code, exceptConnectionID, msg)
}

func (h *Hub) sendToGroupExcept(code, exceptConnectionID string, msg *Message) {
	h.mu.RLock()
	members := make([]*Client, 0, len(h.groups[code]))
	for connID, client := range h.groups[code] {
		if connID == exceptConnectionID {
			continue
		}
		members = append(members, client)
	}
	h.mu.RUnlock()

	for _, client := range members {
		if err := client.SendMessage(msg); err != nil {
			log.Warn().Err(err).Str("conn", client.ConnectionID).Str("room", code).
				Str("type", string(msg.Type)).Msg("failed to send group message")
		}
	}
}
