package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/goldmafia/clubhouse/internal/pubsub"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Clients only send small control frames
	maxMessageSize = 4096

	// Rooms one connection may follow at once
	maxRooms = 64
)

// Client is one authenticated feed connection. Each joined room is a pubsub
// subscription owned by the client and released when it disconnects.
type Client struct {
	conn     *websocket.Conn
	ps       pubsub.PubSub
	send     chan []byte
	userID   uuid.UUID
	username string
	subs     map[string]pubsub.Subscription
	mu       sync.Mutex
	closed   bool
	logger   *slog.Logger
}

// NewClient creates a client for an authenticated user
func NewClient(conn *websocket.Conn, ps pubsub.PubSub, userID uuid.UUID, username string, logger *slog.Logger) *Client {
	return &Client{
		conn:     conn,
		ps:       ps,
		send:     make(chan []byte, 256),
		userID:   userID,
		username: username,
		subs:     make(map[string]pubsub.Subscription),
		logger:   logger.With("user_id", userID),
	}
}

// UserID returns the client's user ID
func (c *Client) UserID() uuid.UUID {
	return c.userID
}

// Subscribe follows topic, forwarding every message to the peer. Joining a
// room twice is a no-op.
func (c *Client) Subscribe(ctx context.Context, topic string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return pubsub.ErrClosed
	}
	if _, ok := c.subs[topic]; ok {
		return nil
	}
	if len(c.subs) >= maxRooms {
		return errTooManyRooms
	}

	sub, err := c.ps.Subscribe(ctx, topic, c.forward)
	if err != nil {
		return err
	}
	c.subs[topic] = sub
	return nil
}

// Unsubscribe stops following topic
func (c *Client) Unsubscribe(topic string) {
	c.mu.Lock()
	sub, ok := c.subs[topic]
	delete(c.subs, topic)
	c.mu.Unlock()

	if ok {
		_ = sub.Unsubscribe()
	}
}

// Rooms returns the topics the client follows, sorted
func (c *Client) Rooms() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	rooms := make([]string, 0, len(c.subs))
	for topic := range c.subs {
		rooms = append(rooms, topic)
	}
	sort.Strings(rooms)
	return rooms
}

// Close releases every subscription and stops the write pump
func (c *Client) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	subs := c.subs
	c.subs = make(map[string]pubsub.Subscription)
	close(c.send)
	c.mu.Unlock()

	for _, sub := range subs {
		_ = sub.Unsubscribe()
	}
}

func (c *Client) forward(_ context.Context, msg *pubsub.Message) {
	_ = c.Send(&Message{Type: msg.Type, Payload: msg.Payload, Timestamp: time.Now()})
}

// ReadPump reads control frames until the peer goes away
func (c *Client) ReadPump(ctx context.Context) {
	defer func() {
		c.Close()
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Warn("websocket read error", "error", err)
			}
			return
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			c.sendError("invalid_message", "Failed to parse message")
			continue
		}

		c.handleMessage(ctx, &msg)
	}
}

func (c *Client) handleMessage(ctx context.Context, msg *Message) {
	switch msg.Type {
	case EventTypeRoomJoin:
		room, ok := c.roomFrom(msg.Payload)
		if !ok {
			return
		}
		if err := c.Subscribe(ctx, room); err != nil {
			c.logger.Warn("room join failed", "room", room, "error", err)
			c.sendError("join_failed", err.Error())
			return
		}
		c.logger.Debug("client joined room", "room", room)
		c.reply(EventTypeRoomJoined, RoomPayload{Room: room})
	case EventTypeRoomLeave:
		room, ok := c.roomFrom(msg.Payload)
		if !ok {
			return
		}
		c.Unsubscribe(room)
		c.reply(EventTypeRoomLeft, RoomPayload{Room: room})
	default:
		c.sendError("unknown_event", "Unknown event type: "+msg.Type)
	}
}

func (c *Client) roomFrom(payload json.RawMessage) (string, bool) {
	var p RoomPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		c.sendError("invalid_payload", "Invalid room payload")
		return "", false
	}
	if !validRoom(p.Room) {
		c.sendError("invalid_room", "Room must be channel:<id> or deal:<id>")
		return "", false
	}
	return p.Room, true
}

// WritePump pumps queued messages to the WebSocket connection
func (c *Client) WritePump(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Send queues a message for the peer, dropping it when the buffer is full
func (c *Client) Send(msg *Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}

	select {
	case c.send <- data:
	default:
		c.logger.Warn("client send buffer full, dropping message", "type", msg.Type)
	}
	return nil
}

func (c *Client) reply(eventType string, payload interface{}) {
	msg, err := NewMessage(eventType, payload)
	if err != nil {
		return
	}
	_ = c.Send(msg)
}

// sendError sends an error message to the client
func (c *Client) sendError(code, message string) {
	c.reply(EventTypeError, ErrorPayload{Code: code, Message: message})
}
