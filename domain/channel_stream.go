package domain

import "context"

// Pub/sub channels, one per update category.
const (
	ChannelFriendshipUpdates                  = "friendship.updates"
	ChannelFriendConnectivityUpdates          = "friend.status.updates"
	ChannelBlockUpdates                       = "block.updates"
	ChannelPrivateVoiceChatUpdates            = "private-voice-chat.updates"
	ChannelCommunityMemberConnectivityUpdates = "community-member.status.updates"
)

// Channels lists every channel the update router listens on.
var Channels = []string{
	ChannelFriendshipUpdates,
	ChannelFriendConnectivityUpdates,
	ChannelBlockUpdates,
	ChannelPrivateVoiceChatUpdates,
	ChannelCommunityMemberConnectivityUpdates,
}

type MessageHandler func(ctx context.Context, body []byte)

// PubSub is the cross-process bus. Delivery is at-least-once and every
// process subscribed to a channel receives every message.
type PubSub interface {
	Publish(ctx context.Context, channel string, body []byte) error
	// Subscribe registers handler for channel and returns once the
	// subscription is live. Messages are handled on the bus's goroutines
	// until ctx is done or the bus is closed.
	Subscribe(ctx context.Context, channel string, handler MessageHandler) error
	Close() error
}
