package websocket

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// NewMessage Tests
// =============================================================================

func TestNewMessage_CreatesCorrectEnvelope(t *testing.T) {
	before := time.Now()
	msg, err := NewMessage(EventTypeRoomJoined, RoomPayload{Room: "deal:D1"})
	after := time.Now()

	require.NoError(t, err)
	require.NotNil(t, msg)

	assert.Equal(t, EventTypeRoomJoined, msg.Type)
	assert.JSONEq(t, `{"room":"deal:D1"}`, string(msg.Payload))
	assert.True(t, !msg.Timestamp.Before(before) && !msg.Timestamp.After(after))
}

func TestNewMessage_NilPayload(t *testing.T) {
	msg, err := NewMessage("test.event", nil)
	require.NoError(t, err)
	assert.Equal(t, json.RawMessage("null"), msg.Payload)
}

func TestNewMessage_InvalidPayload(t *testing.T) {
	msg, err := NewMessage("test.event", make(chan int))
	assert.Error(t, err)
	assert.Nil(t, msg)
}

// =============================================================================
// Room Names
// =============================================================================

func TestValidRoom(t *testing.T) {
	cases := map[string]bool{
		"channel:lounge":                            true,
		"deal:D1":                                   true,
		"deal:8b0e5a7e-1c7a-4c52-9a55-0e0f5b1c2d3e": true,
		"channel:":                                  false,
		"deal:":                                     false,
		"user:abc":                                  false,
		"lounge":                                    false,
		"":                                          false,
		"channel:lou nge":                           false,
		"channel:*":                                 false,
		"deal:" + strings.Repeat("x", 129):          false,
	}

	for room, want := range cases {
		assert.Equal(t, want, validRoom(room), "room %q", room)
	}
}
