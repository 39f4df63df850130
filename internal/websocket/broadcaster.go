package websocket

import (
	"context"
	"fmt"

	"github.com/goldmafia/clubhouse/internal/domain"
	"github.com/goldmafia/clubhouse/internal/pubsub"
)

// PubSubBroadcaster announces pinned files to the rooms that care about them
type PubSubBroadcaster struct {
	ps pubsub.PubSub
}

// NewPubSubBroadcaster creates a new broadcaster that uses the PubSub system
func NewPubSubBroadcaster(ps pubsub.PubSub) *PubSubBroadcaster {
	return &PubSubBroadcaster{ps: ps}
}

// BroadcastPinned publishes f's event: chat attachments to their channel,
// deal documents to their deal, avatars to the owner's personal topic.
// NFT metadata is not broadcast.
func (b *PubSubBroadcaster) BroadcastPinned(ctx context.Context, f *domain.PinnedFile) error {
	var topic, eventType string
	switch f.Kind {
	case domain.PinKindChatAttachment:
		topic, eventType = pubsub.Topics.Channel(f.ScopeID), pubsub.EventAttachmentPinned
	case domain.PinKindDealDocument:
		topic, eventType = pubsub.Topics.Deal(f.ScopeID), pubsub.EventDocumentPinned
	case domain.PinKindAvatar:
		topic, eventType = pubsub.Topics.User(f.OwnerID.String()), pubsub.EventAvatarUpdated
	default:
		return nil
	}

	msg, err := pubsub.NewMessage(topic, eventType, f.Event())
	if err != nil {
		return err
	}
	if err := b.ps.Publish(ctx, topic, msg); err != nil {
		return fmt.Errorf("broadcast %s: %w", eventType, err)
	}
	return nil
}
