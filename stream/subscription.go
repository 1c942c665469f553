package stream

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lam0glia/social-service/domain"
)

// Subscription describes how one streaming RPC consumes updates of a type.
type Subscription[R any] struct {
	Type domain.UpdateType
	// GetAddress extracts the address of the other party of the update.
	GetAddress func(domain.Update) string
	// ShouldHandle is the last filter, e.g. dropping echoes of the
	// subscriber's own actions.
	ShouldHandle func(domain.Update) bool
	Parse        func(u domain.Update, peer string) (R, error)
	// Initial, when set, produces a snapshot emitted before any update.
	Initial func(ctx context.Context) ([]R, error)
}

type Stream[R any] struct {
	sub     Subscription[R]
	bridge  *Bridge
	initial []R
	logger  *slog.Logger
}

// Subscribe starts listening on src before taking the initial snapshot, so
// nothing published in between is lost.
func Subscribe[R any](ctx context.Context, src Source, sub Subscription[R], logger *slog.Logger) (*Stream[R], error) {
	bridge := NewBridge(src, sub.Type)

	var initial []R

	if sub.Initial != nil {
		var err error

		initial, err = sub.Initial(ctx)
		if err != nil {
			bridge.Fail(err)
			return nil, fmt.Errorf("initial state: %w", err)
		}
	}

	return &Stream[R]{
		sub:     sub,
		bridge:  bridge,
		initial: initial,
		logger:  logger.With("update", string(sub.Type)),
	}, nil
}

// Next returns the next response. A single stream is pulled by one goroutine.
func (s *Stream[R]) Next(ctx context.Context) (R, error) {
	var zero R

	if len(s.initial) > 0 {
		select {
		case <-s.bridge.Done():
		default:
			r := s.initial[0]
			s.initial = s.initial[1:]
			return r, nil
		}
	}

	for {
		u, err := s.bridge.Next(ctx)
		if err != nil {
			return zero, err
		}

		if s.sub.ShouldHandle != nil && !s.sub.ShouldHandle(u) {
			continue
		}

		var peer string
		if s.sub.GetAddress != nil {
			peer = s.sub.GetAddress(u)
		}

		r, err := s.sub.Parse(u, peer)
		if err != nil {
			s.logger.Warn("parse update", "peer", peer, "err", err)
			continue
		}

		return r, nil
	}
}

func (s *Stream[R]) Cancel() {
	s.bridge.Cancel()
}

func (s *Stream[R]) Fail(err error) {
	s.bridge.Fail(err)
}
