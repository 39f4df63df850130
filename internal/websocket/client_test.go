package websocket

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goldmafia/clubhouse/internal/auth"
	"github.com/goldmafia/clubhouse/internal/domain"
	"github.com/goldmafia/clubhouse/internal/pubsub"
)

type feedFixture struct {
	srv    *httptest.Server
	ps     *pubsub.MemoryPubSub
	tokens *auth.TokenService
}

func newFeed(t *testing.T) *feedFixture {
	t.Helper()
	tokens, err := auth.NewTokenService("0123456789abcdef0123456789abcdef")
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ps := pubsub.NewMemoryPubSub(logger)
	srv := httptest.NewServer(NewHandler(ps, tokens, "", logger))
	t.Cleanup(func() {
		srv.Close()
		_ = ps.Close()
	})
	return &feedFixture{srv: srv, ps: ps, tokens: tokens}
}

func (f *feedFixture) dial(t *testing.T, userID uuid.UUID) *websocket.Conn {
	t.Helper()
	token, _, err := f.tokens.GenerateAccessToken(userID, "tessio")
	require.NoError(t, err)

	url := "ws" + strings.TrimPrefix(f.srv.URL, "http") + "/ws?token=" + token
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	_ = resp.Body.Close()
	t.Cleanup(func() { _ = conn.Close() })

	hello := readMessage(t, conn)
	require.Equal(t, EventTypeConnected, hello.Type)
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg Message
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func join(t *testing.T, conn *websocket.Conn, room string) Message {
	t.Helper()
	payload, _ := json.Marshal(RoomPayload{Room: room})
	require.NoError(t, conn.WriteJSON(Message{Type: EventTypeRoomJoin, Payload: payload}))
	return readMessage(t, conn)
}

// =============================================================================
// Handshake
// =============================================================================

func TestHandler_RejectsMissingToken(t *testing.T) {
	f := newFeed(t)

	url := "ws" + strings.TrimPrefix(f.srv.URL, "http") + "/ws"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestHandler_AcceptsBearerHeader(t *testing.T) {
	f := newFeed(t)
	token, _, err := f.tokens.GenerateAccessToken(uuid.New(), "tessio")
	require.NoError(t, err)

	url := "ws" + strings.TrimPrefix(f.srv.URL, "http") + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(url, http.Header{"Authorization": {"Bearer " + token}})
	require.NoError(t, err)
	_ = resp.Body.Close()
	defer conn.Close()

	assert.Equal(t, EventTypeConnected, readMessage(t, conn).Type)
}

func TestOriginChecker(t *testing.T) {
	check := originChecker("https://club.example.com")

	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	assert.True(t, check(req), "non-browser clients send no origin")

	req.Header.Set("Origin", "https://club.example.com")
	assert.True(t, check(req))

	req.Header.Set("Origin", "https://evil.example.com")
	assert.False(t, check(req))
}

// =============================================================================
// Rooms
// =============================================================================

func TestFeed_JoinRoomReceivesPinEvents(t *testing.T) {
	f := newFeed(t)
	conn := f.dial(t, uuid.New())

	joined := join(t, conn, "channel:lounge")
	require.Equal(t, EventTypeRoomJoined, joined.Type)
	assert.JSONEq(t, `{"room":"channel:lounge"}`, string(joined.Payload))

	file := &domain.PinnedFile{
		ID:       uuid.New(),
		CID:      "QmMap",
		Kind:     domain.PinKindChatAttachment,
		ScopeID:  "lounge",
		OwnerID:  uuid.New(),
		Filename: "map.jpg",
		URL:      "https://gateway.pinata.cloud/ipfs/QmMap",
	}
	require.NoError(t, NewPubSubBroadcaster(f.ps).BroadcastPinned(context.Background(), file))

	got := readMessage(t, conn)
	assert.Equal(t, pubsub.EventAttachmentPinned, got.Type)

	var event domain.PinEvent
	require.NoError(t, json.Unmarshal(got.Payload, &event))
	assert.Equal(t, "QmMap", event.CID)
	assert.Equal(t, "lounge", event.ScopeID)
}

func TestFeed_OwnAvatarEventsWithoutJoining(t *testing.T) {
	f := newFeed(t)
	userID := uuid.New()
	conn := f.dial(t, userID)

	file := &domain.PinnedFile{ID: uuid.New(), CID: "QmFace", Kind: domain.PinKindAvatar, OwnerID: userID}
	require.NoError(t, NewPubSubBroadcaster(f.ps).BroadcastPinned(context.Background(), file))

	got := readMessage(t, conn)
	assert.Equal(t, pubsub.EventAvatarUpdated, got.Type)
}

func TestFeed_InvalidRoom(t *testing.T) {
	f := newFeed(t)
	conn := f.dial(t, uuid.New())

	got := join(t, conn, "user:"+uuid.NewString())
	require.Equal(t, EventTypeError, got.Type)

	var p ErrorPayload
	require.NoError(t, json.Unmarshal(got.Payload, &p))
	assert.Equal(t, "invalid_room", p.Code)
}

func TestFeed_UnknownEvent(t *testing.T) {
	f := newFeed(t)
	conn := f.dial(t, uuid.New())

	require.NoError(t, conn.WriteJSON(Message{Type: "message.send"}))
	got := readMessage(t, conn)
	assert.Equal(t, EventTypeError, got.Type)
}

func TestFeed_LeaveRoomReleasesSubscription(t *testing.T) {
	f := newFeed(t)
	conn := f.dial(t, uuid.New())

	require.Equal(t, EventTypeRoomJoined, join(t, conn, "deal:D1").Type)
	assert.Equal(t, 1, f.ps.SubscriberCount(pubsub.Topics.Deal("D1")))

	payload, _ := json.Marshal(RoomPayload{Room: "deal:D1"})
	require.NoError(t, conn.WriteJSON(Message{Type: EventTypeRoomLeave, Payload: payload}))
	assert.Equal(t, EventTypeRoomLeft, readMessage(t, conn).Type)
	assert.Zero(t, f.ps.SubscriberCount(pubsub.Topics.Deal("D1")))
}

func TestFeed_DisconnectReleasesSubscriptions(t *testing.T) {
	f := newFeed(t)
	userID := uuid.New()
	conn := f.dial(t, userID)
	require.Equal(t, EventTypeRoomJoined, join(t, conn, "channel:lounge").Type)

	_ = conn.Close()

	assert.Eventually(t, func() bool {
		return f.ps.TopicCount() == 0
	}, 2*time.Second, 10*time.Millisecond)
}

// =============================================================================
// Client
// =============================================================================

func TestClient_SubscribeIsIdempotent(t *testing.T) {
	ps := pubsub.NewMemoryPubSub(nil)
	defer ps.Close()
	c := NewClient(nil, ps, uuid.New(), "clemenza", slog.Default())

	require.NoError(t, c.Subscribe(context.Background(), "deal:D1"))
	require.NoError(t, c.Subscribe(context.Background(), "deal:D1"))
	assert.Equal(t, []string{"deal:D1"}, c.Rooms())
	assert.Equal(t, 1, ps.SubscriberCount("deal:D1"))
}

func TestClient_RoomLimit(t *testing.T) {
	ps := pubsub.NewMemoryPubSub(nil)
	defer ps.Close()
	c := NewClient(nil, ps, uuid.New(), "clemenza", slog.Default())

	for i := 0; i < maxRooms; i++ {
		require.NoError(t, c.Subscribe(context.Background(), "deal:"+uuid.NewString()))
	}
	assert.ErrorIs(t, c.Subscribe(context.Background(), "deal:one-too-many"), errTooManyRooms)
}

func TestClient_SendAfterCloseIsSafe(t *testing.T) {
	ps := pubsub.NewMemoryPubSub(nil)
	defer ps.Close()
	c := NewClient(nil, ps, uuid.New(), "clemenza", slog.Default())
	require.NoError(t, c.Subscribe(context.Background(), "channel:lounge"))

	c.Close()
	c.Close()

	assert.NotPanics(t, func() { _ = c.Send(&Message{Type: "x"}) })
	assert.Zero(t, ps.TopicCount())
	assert.ErrorIs(t, c.Subscribe(context.Background(), "channel:lounge"), pubsub.ErrClosed)
}
