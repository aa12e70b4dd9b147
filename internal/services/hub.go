package services

import (
	"encoding/json"
	"fmt"
	"sync"

	"fitsquad-backend/internal/models"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// Event is a WebSocket message pushed to online group members when
// something happens in one of their groups.
type Event struct {
	Type        string        `json:"type"`
	GroupID     string        `json:"group_id,omitempty"`
	UserID      string        `json:"user_id,omitempty"`
	CheckInID   string        `json:"check_in_id,omitempty"`
	GroupStreak *int          `json:"group_streak,omitempty"`
	Stats       *models.Stats `json:"stats,omitempty"`
	Message     string        `json:"message,omitempty"`
}

// Hub tracks live WebSocket connections keyed by user id.
type Hub struct {
	mu          sync.RWMutex
	connections map[string]*websocket.Conn
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{connections: make(map[string]*websocket.Conn)}
}

// Register registers a connection for a user, replacing any existing one.
func (h *Hub) Register(userID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if existing, ok := h.connections[userID]; ok {
		existing.Close()
	}
	h.connections[userID] = conn

	log.Info().Str("user_id", userID).Msg("WebSocket connection registered")
}

// Unregister removes a user's connection. The conn must still be the
// registered one: a reconnect replaces the map entry, and the stale
// handler's deferred cleanup must not evict the replacement.
func (h *Hub) Unregister(userID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if current, ok := h.connections[userID]; ok && current == conn {
		current.Close()
		delete(h.connections, userID)
		log.Info().Str("user_id", userID).Msg("WebSocket connection unregistered")
	}
}

// IsOnline checks if a user has a live connection.
func (h *Hub) IsOnline(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.connections[userID]
	return ok
}

// SendToUser sends an event to a specific user.
func (h *Hub) SendToUser(userID string, event Event) error {
	h.mu.RLock()
	conn, ok := h.connections[userID]
	h.mu.RUnlock()

	if !ok {
		return fmt.Errorf("user %s is not connected", userID)
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		h.Unregister(userID, conn)
		return fmt.Errorf("failed to send event: %w", err)
	}
	return nil
}

// Broadcast sends an event to every listed user that is online. Offline
// users are skipped silently; send failures are logged and do not stop the
// fan-out.
func (h *Hub) Broadcast(userIDs []string, event Event) {
	for _, userID := range userIDs {
		if !h.IsOnline(userID) {
			continue
		}
		if err := h.SendToUser(userID, event); err != nil {
			log.Error().Err(err).Str("user_id", userID).Msg("Failed to broadcast event")
		}
	}
}
