package sse

import (
	"fmt"
	"log"
	"sync"
)

// Event represents a Server-Sent Event
type Event struct {
	EventType string `json:"event"`
	Data      string `json:"data"`
}

// Client represents a connected SSE client
type Client struct {
	ID     string
	UserID string
	Events chan Event
}

// Hub manages all SSE client connections
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
}

// GlobalHub is the singleton SSE Hub instance
var GlobalHub = NewHub()

func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]*Client),
	}
}

// Register adds a new client to the hub
func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[client.ID] = client
	log.Printf("[SSE] Client registered: id=%s user=%s (total: %d)", client.ID, client.UserID, len(h.clients))
}

// Unregister removes a client from the hub
func (h *Hub) Unregister(clientID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if client, ok := h.clients[clientID]; ok {
		close(client.Events)
		delete(h.clients, clientID)
		log.Printf("[SSE] Client unregistered: id=%s (total: %d)", clientID, len(h.clients))
	}
}

// Broadcast sends an event to all connected clients
func (h *Hub) Broadcast(event Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, client := range h.clients {
		select {
		case client.Events <- event:
		default:
			log.Printf("[SSE] Client %s buffer full, skipping event", client.ID)
		}
	}
}

// PublishLockUpdate tells connected preparers a fulfillment lock changed
// hands, so a second preparer sees the lock land without polling.
func PublishLockUpdate(requestID, userID, action string) {
	data := fmt.Sprintf(`{"request_id":%q,"user_id":%q,"action":%q}`, requestID, userID, action)
	GlobalHub.Broadcast(Event{
		EventType: "lock_update",
		Data:      data,
	})
}

// PublishFulfillmentUpdate broadcasts a request status transition
// (submitted, approved, denied, cancelled) to approvers and preparers.
func PublishFulfillmentUpdate(requestID, fromStatus, toStatus string) {
	data := fmt.Sprintf(`{"request_id":%q,"from":%q,"to":%q}`, requestID, fromStatus, toStatus)
	GlobalHub.Broadcast(Event{
		EventType: "fulfillment_update",
		Data:      data,
	})
}
