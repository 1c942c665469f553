package stream

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/lam0glia/social-service/domain"
	"github.com/lam0glia/social-service/event"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func friendship(from string) *domain.FriendshipUpdate {
	return &domain.FriendshipUpdate{From: from, To: "0xa", Action: domain.FriendshipActionRequest}
}

func TestBridge_BuffersInArrivalOrder(t *testing.T) {
	e := event.NewEmitter()
	b := NewBridge(e, domain.UpdateFriendship)
	defer b.Cancel()

	e.Emit(domain.UpdateFriendship, friendship("0x1"))
	e.Emit(domain.UpdateFriendship, friendship("0x2"))
	e.Emit(domain.UpdateBlock, &domain.BlockUpdate{})
	e.Emit(domain.UpdateFriendship, friendship("0x3"))

	ctx := context.Background()
	for _, want := range []string{"0x1", "0x2", "0x3"} {
		u, err := b.Next(ctx)
		require.NoError(t, err)
		assert.Equal(t, want, u.(*domain.FriendshipUpdate).From)
	}
}

func TestBridge_NextWaitsForPush(t *testing.T) {
	e := event.NewEmitter()
	b := NewBridge(e, domain.UpdateFriendship)
	defer b.Cancel()

	got := make(chan domain.Update, 1)
	go func() {
		u, err := b.Next(context.Background())
		if err == nil {
			got <- u
		}
	}()

	time.Sleep(10 * time.Millisecond)
	e.Emit(domain.UpdateFriendship, friendship("0xb"))

	select {
	case u := <-got:
		assert.Equal(t, "0xb", u.(*domain.FriendshipUpdate).From)
	case <-time.After(time.Second):
		t.Fatal("pull never resumed")
	}
}

func TestBridge_IndependentPulls(t *testing.T) {
	e := event.NewEmitter()
	first := NewBridge(e, domain.UpdateFriendship)
	second := NewBridge(e, domain.UpdateFriendship)
	defer first.Cancel()
	defer second.Cancel()

	e.Emit(domain.UpdateFriendship, friendship("0xb"))

	ctx := context.Background()
	for _, b := range []*Bridge{first, second} {
		u, err := b.Next(ctx)
		require.NoError(t, err)
		assert.Equal(t, "0xb", u.(*domain.FriendshipUpdate).From)
	}
}

func TestBridge_CancelReleasesListener(t *testing.T) {
	e := event.NewEmitter()
	before := e.ListenerCount(domain.UpdateFriendship)

	b := NewBridge(e, domain.UpdateFriendship)
	assert.Equal(t, before+1, e.ListenerCount(domain.UpdateFriendship))

	e.Emit(domain.UpdateFriendship, friendship("0xb"))

	pending := make(chan error, 1)
	blocked := NewBridge(e, domain.UpdateBlock)
	go func() {
		_, err := blocked.Next(context.Background())
		pending <- err
	}()

	b.Cancel()
	blocked.Cancel()

	assert.Equal(t, before, e.ListenerCount(domain.UpdateFriendship))
	assert.Zero(t, e.ListenerCount(domain.UpdateBlock))
	assert.Zero(t, e.Emit(domain.UpdateFriendship, friendship("0xc")))

	_, err := b.Next(context.Background())
	assert.ErrorIs(t, err, io.EOF)

	select {
	case err := <-pending:
		assert.ErrorIs(t, err, io.EOF)
	case <-time.After(time.Second):
		t.Fatal("cancel did not wake the pending pull")
	}
}

func TestBridge_FailPropagatesError(t *testing.T) {
	e := event.NewEmitter()
	b := NewBridge(e, domain.UpdateBlock)

	boom := errors.New("boom")
	b.Fail(boom)
	b.Cancel()

	_, err := b.Next(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.Zero(t, e.ListenerCount(domain.UpdateBlock))
}

func TestBridge_ContextCancelled(t *testing.T) {
	e := event.NewEmitter()
	b := NewBridge(e, domain.UpdateBlock)
	defer b.Cancel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := b.Next(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
