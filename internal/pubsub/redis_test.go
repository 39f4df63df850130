package pubsub

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *RedisPubSub) {
	t.Helper()
	mr := miniredis.RunT(t)
	ps := NewRedisPubSubFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}), nil)
	t.Cleanup(func() { _ = ps.Close() })
	return mr, ps
}

func TestRedisPubSub_DeliversAcrossInstances(t *testing.T) {
	mr, subscriber := newTestRedis(t)
	publisher := NewRedisPubSubFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}), nil)
	defer publisher.Close()

	topic := Topics.Deal("D1")
	received := make(chan *Message, 1)
	sub, err := subscriber.Subscribe(context.Background(), topic, func(ctx context.Context, msg *Message) {
		received <- msg
	})
	require.NoError(t, err)
	defer sub.Unsubscribe()

	msg, err := NewMessage(topic, EventDocumentPinned, map[string]string{"cid": "QmDeal"})
	require.NoError(t, err)
	require.NoError(t, publisher.Publish(context.Background(), topic, msg))

	got := await(t, received)
	assert.Equal(t, EventDocumentPinned, got.Type)
	assert.JSONEq(t, `{"cid":"QmDeal"}`, string(got.Payload))
}

func TestRedisPubSub_SharesOneChannelSubscriptionPerTopic(t *testing.T) {
	mr, ps := newTestRedis(t)
	topic := Topics.Channel("lounge")

	first, err := ps.Subscribe(context.Background(), topic, func(ctx context.Context, msg *Message) {})
	require.NoError(t, err)
	second, err := ps.Subscribe(context.Background(), topic, func(ctx context.Context, msg *Message) {})
	require.NoError(t, err)

	assert.Equal(t, 2, ps.SubscriberCount(topic))
	assert.Equal(t, 1, mr.PubSubNumSub(topic)[topic])

	require.NoError(t, first.Unsubscribe())
	assert.Equal(t, 1, mr.PubSubNumSub(topic)[topic], "one local handler still listening")

	require.NoError(t, second.Unsubscribe())
	assert.Eventually(t, func() bool {
		return mr.PubSubNumSub(topic)[topic] == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestRedisPubSub_ResubscribeAfterLastLeaves(t *testing.T) {
	_, ps := newTestRedis(t)
	topic := Topics.Deal("D9")

	sub, err := ps.Subscribe(context.Background(), topic, func(ctx context.Context, msg *Message) {})
	require.NoError(t, err)
	require.NoError(t, sub.Unsubscribe())

	received := make(chan *Message, 1)
	sub, err = ps.Subscribe(context.Background(), topic, func(ctx context.Context, msg *Message) {
		received <- msg
	})
	require.NoError(t, err)
	defer sub.Unsubscribe()

	require.NoError(t, ps.Publish(context.Background(), topic, &Message{Topic: topic, Type: EventDocumentPinned}))
	assert.Equal(t, EventDocumentPinned, await(t, received).Type)
}

func TestRedisPubSub_SubscribeHonoursContext(t *testing.T) {
	_, ps := newTestRedis(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := ps.Subscribe(ctx, Topics.Deal("D1"), func(ctx context.Context, msg *Message) {})
	assert.Error(t, err)
	assert.Zero(t, ps.SubscriberCount(Topics.Deal("D1")))
}

func TestRedisPubSub_Ping(t *testing.T) {
	mr, ps := newTestRedis(t)
	assert.NoError(t, ps.Ping(context.Background()))

	mr.SetError("LOADING")
	defer mr.SetError("")
	assert.Error(t, ps.Ping(context.Background()))
}

func TestNewRedisPubSub_BadURL(t *testing.T) {
	_, err := NewRedisPubSub(context.Background(), "not-a-url", nil)
	assert.Error(t, err)
}

func TestNewRedisPubSub_Connects(t *testing.T) {
	mr := miniredis.RunT(t)
	ps, err := NewRedisPubSub(context.Background(), "redis://"+mr.Addr(), nil)
	require.NoError(t, err)
	assert.NoError(t, ps.Close())
}
