package event

import (
	"context"
	"testing"

	"github.com/lam0glia/social-service/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_FansOutToEverySubscriber(t *testing.T) {
	bus := NewMemory()
	ctx := context.Background()

	var first, second []string

	require.NoError(t, bus.Subscribe(ctx, domain.ChannelBlockUpdates, func(_ context.Context, body []byte) {
		first = append(first, string(body))
	}))
	require.NoError(t, bus.Subscribe(ctx, domain.ChannelBlockUpdates, func(_ context.Context, body []byte) {
		second = append(second, string(body))
	}))

	require.NoError(t, bus.Publish(ctx, domain.ChannelBlockUpdates, []byte("one")))
	require.NoError(t, bus.Publish(ctx, domain.ChannelFriendshipUpdates, []byte("other")))
	require.NoError(t, bus.Publish(ctx, domain.ChannelBlockUpdates, []byte("two")))

	assert.Equal(t, []string{"one", "two"}, first)
	assert.Equal(t, []string{"one", "two"}, second)
}

func TestMemory_SkipsCancelledSubscriptions(t *testing.T) {
	bus := NewMemory()
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	require.NoError(t, bus.Subscribe(ctx, domain.ChannelBlockUpdates, func(context.Context, []byte) { calls++ }))

	cancel()
	require.NoError(t, bus.Publish(context.Background(), domain.ChannelBlockUpdates, []byte("x")))
	assert.Zero(t, calls)

	require.NoError(t, bus.Close())
	assert.ErrorIs(t, bus.Publish(context.Background(), domain.ChannelBlockUpdates, nil), domain.ErrConnectionClosed)
}
