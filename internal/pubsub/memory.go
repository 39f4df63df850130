package pubsub

import (
	"context"
	"log/slog"
)

// MemoryPubSub delivers messages to subscribers in this process only
type MemoryPubSub struct {
	reg    *registry
	logger *slog.Logger
}

// NewMemoryPubSub creates an in-process pub/sub. A nil logger uses slog.Default.
func NewMemoryPubSub(logger *slog.Logger) *MemoryPubSub {
	if logger == nil {
		logger = slog.Default()
	}
	return &MemoryPubSub{
		reg:    newRegistry(),
		logger: logger.With("component", "pubsub", "backend", "memory"),
	}
}

// Publish hands msg to the current subscribers of topic without waiting for them
func (ps *MemoryPubSub) Publish(ctx context.Context, topic string, msg *Message) error {
	if ps.reg.isClosed() {
		return ErrClosed
	}
	n := ps.reg.dispatch(ctx, topic, msg)
	ps.logger.Debug("published", "topic", topic, "msg_type", msg.Type, "subscribers", n)
	return nil
}

// Subscribe registers handler for topic
func (ps *MemoryPubSub) Subscribe(_ context.Context, topic string, handler Handler) (Subscription, error) {
	id, _, err := ps.reg.add(topic, handler)
	if err != nil {
		return nil, err
	}
	return &subscription{release: func() { ps.reg.remove(topic, id) }}, nil
}

// Close drops all subscribers. Later calls fail with ErrClosed.
func (ps *MemoryPubSub) Close() error {
	ps.reg.close()
	return nil
}

// SubscriberCount returns the number of handlers on topic
func (ps *MemoryPubSub) SubscriberCount(topic string) int {
	return ps.reg.subscriberCount(topic)
}

// TopicCount returns the number of topics with at least one handler
func (ps *MemoryPubSub) TopicCount() int {
	return ps.reg.topicCount()
}
