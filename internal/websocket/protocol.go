package websocket

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Event types for client -> server
const (
	EventTypeRoomJoin  = "room.join"
	EventTypeRoomLeave = "room.leave"
)

// Event types for server -> client. Pin events reuse the pubsub message type.
const (
	EventTypeError      = "error"
	EventTypeConnected  = "connected"
	EventTypeRoomJoined = "room.joined"
	EventTypeRoomLeft   = "room.left"
)

// Room prefixes a client may join
const (
	roomPrefixChannel = "channel:"
	roomPrefixDeal    = "deal:"
)

// Message is the base WebSocket message envelope
type Message struct {
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp time.Time       `json:"timestamp,omitempty"`
}

// NewMessage creates a message with the current timestamp
func NewMessage(eventType string, payload interface{}) (*Message, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Message{
		Type:      eventType,
		Payload:   payloadBytes,
		Timestamp: time.Now(),
	}, nil
}

// ============================================================================
// Client -> Server Payloads
// ============================================================================

// RoomPayload names a room, e.g. "channel:lounge" or "deal:D1"
type RoomPayload struct {
	Room string `json:"room"`
}

// ============================================================================
// Server -> Client Payloads
// ============================================================================

// ErrorPayload for error responses
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ConnectedPayload confirms the connection and its identity
type ConnectedPayload struct {
	UserID   uuid.UUID `json:"user_id"`
	Username string    `json:"username"`
}

// validRoom reports whether a client may join room. Personal topics are
// subscribed automatically and cannot be joined by name.
func validRoom(room string) bool {
	for _, prefix := range []string{roomPrefixChannel, roomPrefixDeal} {
		if id, ok := strings.CutPrefix(room, prefix); ok {
			return id != "" && len(id) <= 128 && !strings.ContainsAny(id, " \t\r\n*?[]")
		}
	}
	return false
}
