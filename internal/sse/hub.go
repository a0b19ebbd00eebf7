package sse

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/dimitrije/linkshelf-api/internal/cache"
	"github.com/dimitrije/linkshelf-api/internal/models"
	"github.com/google/uuid"
)

type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// InvalidateData tells a client which cached entries to drop.
type InvalidateData struct {
	Entity  models.EntityType `json:"entity"`
	Key     string            `json:"key"`
	Pattern string            `json:"pattern"`
}

type Client struct {
	ID     string
	UserID uuid.UUID
	Send   chan []byte
}

type userMessage struct {
	userID uuid.UUID
	event  Event
}

// Hub fans events out to the SSE connections of each user.
type Hub struct {
	clients    map[uuid.UUID]map[string]*Client
	register   chan *Client
	unregister chan *Client
	broadcast  chan userMessage
	mu         sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[uuid.UUID]map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan userMessage, 256),
	}
}

func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return

		case client := <-h.register:
			h.mu.Lock()
			if h.clients[client.UserID] == nil {
				h.clients[client.UserID] = make(map[string]*Client)
			}
			h.clients[client.UserID][client.ID] = client
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if conns, ok := h.clients[client.UserID]; ok {
				if _, ok := conns[client.ID]; ok {
					delete(conns, client.ID)
					close(client.Send)
				}
				if len(conns) == 0 {
					delete(h.clients, client.UserID)
				}
			}
			h.mu.Unlock()

		case msg := <-h.broadcast:
			data, err := json.Marshal(msg.event)
			if err != nil {
				continue
			}
			h.mu.RLock()
			for _, client := range h.clients[msg.userID] {
				select {
				case client.Send <- data:
				default:
					// slow consumer
				}
			}
			h.mu.RUnlock()
		}
	}
}

func (h *Hub) Register(client *Client) {
	h.register <- client
}

func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

func (h *Hub) ConnectedUsers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Invalidate queues an invalidate event for each distinct user. Events are
// dropped when the queue is full.
func (h *Hub) Invalidate(_ context.Context, entityType models.EntityType, entityID uuid.UUID, userIDs ...uuid.UUID) {
	seen := make(map[uuid.UUID]bool, len(userIDs))
	for _, uid := range userIDs {
		if uid == uuid.Nil || seen[uid] {
			continue
		}
		seen[uid] = true

		msg := userMessage{userID: uid, event: Event{
			Type: "invalidate",
			Data: InvalidateData{
				Entity:  entityType,
				Key:     cache.EntityKey(entityType, entityID),
				Pattern: cache.ListPattern(uid, entityType),
			},
		}}
		select {
		case h.broadcast <- msg:
		default:
		}
	}
}

var _ cache.Invalidator = (*Hub)(nil)
