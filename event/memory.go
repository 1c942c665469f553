package event

import (
	"context"
	"sync"

	"github.com/lam0glia/social-service/domain"
)

// Memory is a process-local PubSub. Handlers run synchronously on the
// publisher's goroutine, in publish order.
type Memory struct {
	mu       sync.RWMutex
	handlers map[string][]*memoryHandler
	closed   bool
}

type memoryHandler struct {
	ctx     context.Context
	handler domain.MessageHandler
}

func NewMemory() *Memory {
	return &Memory{handlers: make(map[string][]*memoryHandler)}
}

func (m *Memory) Publish(ctx context.Context, channel string, body []byte) error {
	m.mu.RLock()
	if m.closed {
		m.mu.RUnlock()
		return domain.ErrConnectionClosed
	}
	handlers := append([]*memoryHandler(nil), m.handlers[channel]...)
	m.mu.RUnlock()

	for _, h := range handlers {
		if h.ctx.Err() != nil {
			continue
		}

		h.handler(h.ctx, append([]byte(nil), body...))
	}

	return nil
}

func (m *Memory) Subscribe(ctx context.Context, channel string, handler domain.MessageHandler) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return domain.ErrConnectionClosed
	}

	m.handlers[channel] = append(m.handlers[channel], &memoryHandler{ctx: ctx, handler: handler})

	return nil
}

func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	m.handlers = nil

	return nil
}
