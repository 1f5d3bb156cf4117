package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"canvasthink-be/internal/pkg/logger"
	"canvasthink-be/pkg/events"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	relayChannel = "cluster_events"
	relayBuffer  = 256
	relayTimeout = 2 * time.Second
)

type relayPayload struct {
	Origin          string          `json:"origin"`
	TargetSessionID string          `json:"target_session_id"`
	Message         json.RawMessage `json:"message"`
}

// Hub routes outbound frames to the websocket clients of a session. Frames
// are also relayed over Redis so the instance holding the socket delivers
// them.
type Hub struct {
	id string

	// SessionID -> clients (one per open tab)
	clients map[string][]*Client
	mu      sync.RWMutex

	register   chan *Client
	unregister chan *Client

	rdb    *redis.Client
	relay  chan []byte
	logger logger.ILogger

	// OnDrop is called for every frame dropped on a full client buffer.
	OnDrop      func()
	// OnRelayDrop is called for every frame that could not be queued for
	// the other instances.
	OnRelayDrop func()
}

func NewHub(rdb *redis.Client, log logger.ILogger) *Hub {
	return &Hub{
		id:         uuid.NewString(),
		clients:    make(map[string][]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		rdb:        rdb,
		relay:      make(chan []byte, relayBuffer),
		logger:     log,
	}
}

func (h *Hub) Run(ctx context.Context) {
	if h.rdb != nil {
		go h.subscribeToRedis(ctx)
		go h.publishToRedis(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.SessionID] = append(h.clients[client.SessionID], client)
			h.mu.Unlock()
			h.logger.Info("Hub", "Client registered", map[string]interface{}{"session_id": client.SessionID})

		case client := <-h.unregister:
			h.mu.Lock()
			clients := h.clients[client.SessionID]
			for i, c := range clients {
				if c == client {
					h.clients[client.SessionID] = append(clients[:i], clients[i+1:]...)
					close(client.Send)
					break
				}
			}
			if len(h.clients[client.SessionID]) == 0 {
				delete(h.clients, client.SessionID)
				h.logger.Info("Hub", "Session has no more clients", map[string]interface{}{"session_id": client.SessionID})
			}
			h.mu.Unlock()
		}
	}
}

// ClientCount returns the local clients of a session.
func (h *Hub) ClientCount(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[sessionID])
}

// Send delivers an event to the session's local clients and queues it for
// the other instances. It never waits on Redis.
func (h *Hub) Send(sessionID string, event events.Event) {
	data, err := json.Marshal(events.NewMessage(event))
	if err != nil {
		h.logger.Error("Hub", "Failed to marshal frame", map[string]interface{}{
			"session_id": sessionID,
			"type":       event.EventType(),
			"error":      err.Error(),
		})
		return
	}

	h.deliverLocal(sessionID, data)

	if h.rdb == nil {
		return
	}
	payload, _ := json.Marshal(relayPayload{Origin: h.id, TargetSessionID: sessionID, Message: data})
	select {
	case h.relay <- payload:
	default:
		h.logger.Warn("Hub", "Relay buffer full, dropping frame", map[string]interface{}{"session_id": sessionID})
		if h.OnRelayDrop != nil {
			h.OnRelayDrop()
		}
	}
}

// publishToRedis drains the relay buffer, one bounded publish at a time.
func (h *Hub) publishToRedis(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case payload := <-h.relay:
			pubCtx, cancel := context.WithTimeout(ctx, relayTimeout)
			err := h.rdb.Publish(pubCtx, relayChannel, payload).Err()
			cancel()
			if err != nil {
				h.logger.Warn("Hub", "Failed to relay frame", map[string]interface{}{"error": err.Error()})
			}
		}
	}
}

// deliverLocal never blocks: a client whose buffer is full loses the frame.
func (h *Hub) deliverLocal(sessionID string, data []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, client := range h.clients[sessionID] {
		select {
		case client.Send <- data:
		default:
			h.logger.Warn("Hub", "Client send buffer full, dropping frame", map[string]interface{}{"session_id": sessionID})
			if h.OnDrop != nil {
				h.OnDrop()
			}
		}
	}
}

func (h *Hub) subscribeToRedis(ctx context.Context) {
	pubsub := h.rdb.Subscribe(ctx, relayChannel)
	defer pubsub.Close()

	for msg := range pubsub.Channel() {
		var payload relayPayload
		if err := json.Unmarshal([]byte(msg.Payload), &payload); err != nil {
			h.logger.Warn("Hub", "Relay message parse error", map[string]interface{}{"error": err.Error()})
			continue
		}
		if payload.Origin == h.id {
			continue
		}
		h.deliverLocal(payload.TargetSessionID, payload.Message)
	}
}
