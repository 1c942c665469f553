package stream

import (
	"context"
	"io"
	"sync"

	"github.com/lam0glia/social-service/domain"
	"github.com/lam0glia/social-service/event"
)

// Source is a push-based update source, usually an *event.Emitter.
type Source interface {
	On(t domain.UpdateType, fn event.Listener) (off func())
}

// Bridge turns the pushes of one update type on a Source into a pull-based
// sequence. Updates pushed before they are pulled are buffered in arrival
// order. Every Bridge owns its own listener, so two bridges on the same
// source both see every update.
type Bridge struct {
	ready chan struct{}
	done  chan struct{}
	off   func()

	mu     sync.Mutex
	buffer []domain.Update
	closed bool
	err    error
}

func NewBridge(src Source, t domain.UpdateType) *Bridge {
	b := &Bridge{
		ready: make(chan struct{}, 1),
		done:  make(chan struct{}),
	}
	b.off = src.On(t, b.push)

	return b
}

func (b *Bridge) push(u domain.Update) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.buffer = append(b.buffer, u)
	b.mu.Unlock()

	select {
	case b.ready <- struct{}{}:
	default:
	}
}

// Next returns the next update, blocking until one arrives. After Cancel it
// returns io.EOF; after Fail it returns the injected error.
func (b *Bridge) Next(ctx context.Context) (domain.Update, error) {
	for {
		b.mu.Lock()
		if b.closed {
			err := b.err
			b.mu.Unlock()

			if err == nil {
				return nil, io.EOF
			}
			return nil, err
		}

		if len(b.buffer) > 0 {
			u := b.buffer[0]
			b.buffer[0] = nil
			b.buffer = b.buffer[1:]
			b.mu.Unlock()

			return u, nil
		}
		b.mu.Unlock()

		select {
		case <-b.ready:
		case <-b.done:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// Cancel unregisters the listener before returning and drops anything still
// buffered.
func (b *Bridge) Cancel() {
	b.finish(nil)
}

// Fail unregisters the listener and makes later pulls return err.
func (b *Bridge) Fail(err error) {
	b.finish(err)
}

func (b *Bridge) finish(err error) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	b.err = err
	b.buffer = nil
	b.mu.Unlock()

	b.off()
	close(b.done)
}

func (b *Bridge) Done() <-chan struct{} {
	return b.done
}
