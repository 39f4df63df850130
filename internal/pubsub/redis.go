package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// subscribeTimeout bounds the wait for Redis to confirm a new channel
const subscribeTimeout = 5 * time.Second

// RedisPubSub relays messages through Redis so that every instance sees them.
// All local subscribers share one Redis connection; a Redis channel is
// subscribed while at least one local handler needs it.
type RedisPubSub struct {
	client *redis.Client
	conn   *redis.PubSub
	reg    *registry
	logger *slog.Logger

	// subMu orders SUBSCRIBE and UNSUBSCRIBE commands with the registry
	subMu sync.Mutex

	pendingMu sync.Mutex
	pending   map[string]chan struct{}

	done chan struct{}
}

// NewRedisPubSub connects to url (redis://[:password@]host:port[/db]) and
// verifies the server answers.
func NewRedisPubSub(ctx context.Context, url string, logger *slog.Logger) (*RedisPubSub, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis at %s: %w", opts.Addr, err)
	}

	ps := NewRedisPubSubFromClient(client, logger)
	ps.logger.Info("connected to redis", "addr", opts.Addr)
	return ps, nil
}

// NewRedisPubSubFromClient takes ownership of client; Close closes it.
func NewRedisPubSubFromClient(client *redis.Client, logger *slog.Logger) *RedisPubSub {
	if logger == nil {
		logger = slog.Default()
	}
	ps := &RedisPubSub{
		client:  client,
		conn:    client.Subscribe(context.Background()),
		reg:     newRegistry(),
		logger:  logger.With("component", "pubsub", "backend", "redis"),
		pending: make(map[string]chan struct{}),
		done:    make(chan struct{}),
	}
	go ps.receive(ps.conn.ChannelWithSubscriptions())
	return ps
}

// Ping checks that Redis is reachable
func (ps *RedisPubSub) Ping(ctx context.Context) error {
	return ps.client.Ping(ctx).Err()
}

// Publish sends msg to the subscribers of topic on every instance
func (ps *RedisPubSub) Publish(ctx context.Context, topic string, msg *Message) error {
	if ps.reg.isClosed() {
		return ErrClosed
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal %s message: %w", msg.Type, err)
	}

	receivers, err := ps.client.Publish(ctx, topic, data).Result()
	if err != nil {
		return fmt.Errorf("publish to %s: %w", topic, err)
	}
	ps.logger.Debug("published", "topic", topic, "msg_type", msg.Type, "instances", receivers)
	return nil
}

// Subscribe registers handler for topic. When this instance had no handler on
// topic yet, it returns once Redis has confirmed the channel subscription.
func (ps *RedisPubSub) Subscribe(ctx context.Context, topic string, handler Handler) (Subscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("subscribe to %s: %w", topic, err)
	}

	ps.subMu.Lock()
	id, first, err := ps.reg.add(topic, handler)
	if err != nil {
		ps.subMu.Unlock()
		return nil, err
	}
	if first {
		ps.pendingMu.Lock()
		ps.pending[topic] = make(chan struct{})
		ps.pendingMu.Unlock()

		if err := ps.conn.Subscribe(ctx, topic); err != nil {
			ps.reg.remove(topic, id)
			ps.dropPending(topic)
			ps.subMu.Unlock()
			return nil, fmt.Errorf("subscribe to %s: %w", topic, err)
		}
	}
	ps.subMu.Unlock()

	sub := &subscription{release: func() { ps.release(topic, id) }}

	if err := ps.awaitConfirmation(ctx, topic); err != nil {
		_ = sub.Unsubscribe()
		return nil, err
	}

	ps.logger.Debug("subscribed", "topic", topic, "sub_id", id)
	return sub, nil
}

func (ps *RedisPubSub) awaitConfirmation(ctx context.Context, topic string) error {
	ps.pendingMu.Lock()
	confirmed, ok := ps.pending[topic]
	ps.pendingMu.Unlock()
	if !ok {
		return nil
	}

	timer := time.NewTimer(subscribeTimeout)
	defer timer.Stop()

	select {
	case <-confirmed:
		return nil
	case <-ps.done:
		return ErrClosed
	case <-ctx.Done():
		return fmt.Errorf("subscribe to %s: %w", topic, ctx.Err())
	case <-timer.C:
		return fmt.Errorf("subscribe to %s: no confirmation after %s", topic, subscribeTimeout)
	}
}

func (ps *RedisPubSub) release(topic string, id uint64) {
	ps.subMu.Lock()
	defer ps.subMu.Unlock()

	if !ps.reg.remove(topic, id) {
		return
	}
	ps.dropPending(topic)
	if err := ps.conn.Unsubscribe(context.Background(), topic); err != nil {
		ps.logger.Warn("unsubscribe failed", "topic", topic, "error", err)
	}
}

func (ps *RedisPubSub) dropPending(topic string) {
	ps.pendingMu.Lock()
	delete(ps.pending, topic)
	ps.pendingMu.Unlock()
}

// receive runs until the shared connection is closed
func (ps *RedisPubSub) receive(ch <-chan any) {
	defer close(ps.done)
	ctx := context.Background()

	for v := range ch {
		switch m := v.(type) {
		case *redis.Subscription:
			if m.Kind != "subscribe" {
				continue
			}
			ps.pendingMu.Lock()
			if confirmed, ok := ps.pending[m.Channel]; ok {
				close(confirmed)
				delete(ps.pending, m.Channel)
			}
			ps.pendingMu.Unlock()

		case *redis.Message:
			var msg Message
			if err := json.Unmarshal([]byte(m.Payload), &msg); err != nil {
				ps.logger.Error("dropping undecodable message", "topic", m.Channel, "error", err)
				continue
			}
			ps.reg.dispatch(ctx, m.Channel, &msg)
		}
	}
}

// Close releases every subscription and the Redis client
func (ps *RedisPubSub) Close() error {
	if !ps.reg.close() {
		return nil
	}

	connErr := ps.conn.Close()
	select {
	case <-ps.done:
	case <-time.After(time.Second):
		ps.logger.Warn("receive loop did not stop")
	}
	if err := ps.client.Close(); err != nil {
		return fmt.Errorf("close redis client: %w", err)
	}
	if connErr != nil {
		return fmt.Errorf("close redis subscription: %w", connErr)
	}
	ps.logger.Info("redis pubsub closed")
	return nil
}

// SubscriberCount returns the number of handlers on topic in this instance
func (ps *RedisPubSub) SubscriberCount(topic string) int {
	return ps.reg.subscriberCount(topic)
}

// TopicCount returns the number of topics this instance listens on
func (ps *RedisPubSub) TopicCount() int {
	return ps.reg.topicCount()
}
