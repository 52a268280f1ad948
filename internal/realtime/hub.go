package realtime

import (
	"sync"

	"github.com/google/uuid"
	"github.com/prepsutra/dpp-backend/internal/pkg/logger"
)

type Event string

const (
	EventDPPGenerated    Event = "DPPGenerated"
	EventDPPSetCompleted Event = "DPPSetCompleted"
)

// Message travels over the notification bus and out to SSE clients. Channel
// is the recipient user id.
type Message struct {
	Channel string `json:"channel"`
	Event   Event  `json:"event"`
	Data    any    `json:"data,omitempty"`
}

type Client struct {
	ID       uuid.UUID
	UserID   uuid.UUID
	Outbound chan Message
}

// Hub fans messages out to connected SSE clients, keyed by channel.
type Hub struct {
	mu            sync.RWMutex
	log           *logger.Logger
	subscriptions map[string]map[*Client]bool
}

func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		log:           log.With("component", "RealtimeHub"),
		subscriptions: make(map[string]map[*Client]bool),
	}
}

// Register creates a client subscribed to its own user channel.
func (h *Hub) Register(userID uuid.UUID) *Client {
	client := &Client{
		ID:       uuid.New(),
		UserID:   userID,
		Outbound: make(chan Message, 10),
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	channel := userID.String()
	clients, ok := h.subscriptions[channel]
	if !ok {
		clients = make(map[*Client]bool)
		h.subscriptions[channel] = clients
	}
	clients[client] = true

	h.log.Debug("realtime client registered", "client_id", client.ID, "user_id", userID)
	return client
}

func (h *Hub) Remove(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	channel := client.UserID.String()
	if clients, ok := h.subscriptions[channel]; ok {
		delete(clients, client)
		if len(clients) == 0 {
			delete(h.subscriptions, channel)
		}
	}
	h.log.Debug("realtime client removed", "client_id", client.ID)
}

// Broadcast delivers to every client on the message's channel. Slow clients
// are skipped rather than blocking the hub.
func (h *Hub) Broadcast(msg Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.subscriptions[msg.Channel] {
		select {
		case client.Outbound <- msg:
		default:
			h.log.Warn("dropping realtime message for slow client", "client_id", client.ID)
		}
	}
}
