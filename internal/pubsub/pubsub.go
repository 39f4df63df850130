// Package pubsub fans pin events out to realtime subscribers.
//
// Topics are plain strings: "channel:<id>", "deal:<id>" and "user:<id>".
// MemoryPubSub delivers inside one process. RedisPubSub multiplexes every
// local subscriber over a single Redis connection so that several API
// instances see each other's events.
package pubsub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrClosed is returned by operations on a closed PubSub
var ErrClosed = errors.New("pubsub: closed")

// Event types carried on topics
const (
	EventDocumentPinned   = "document.pinned"
	EventAttachmentPinned = "attachment.pinned"
	EventAvatarUpdated    = "avatar.updated"
)

// Message is the envelope published on a topic
type Message struct {
	Topic   string          `json:"topic"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// NewMessage marshals payload into a message addressed to topic
func NewMessage(topic, msgType string, payload any) (*Message, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", msgType, err)
	}
	return &Message{Topic: topic, Type: msgType, Payload: data}, nil
}

// Handler receives messages. It runs on its own goroutine with a context
// that is not cancelled when the publisher's context is.
type Handler func(ctx context.Context, msg *Message)

// Subscription is released with Unsubscribe. Calling it twice is harmless.
type Subscription interface {
	Unsubscribe() error
}

// PubSub is safe for concurrent use
type PubSub interface {
	Publish(ctx context.Context, topic string, msg *Message) error
	Subscribe(ctx context.Context, topic string, handler Handler) (Subscription, error)
	Close() error
}

type topicNames struct{}

func (topicNames) Channel(channelID string) string { return "channel:" + channelID }
func (topicNames) Deal(dealID string) string       { return "deal:" + dealID }
func (topicNames) User(userID string) string       { return "user:" + userID }

// Topics builds topic names
var Topics topicNames
