// Package rpc binds named calls and streams to handlers and carries their
// responses over a connection's delivery queue.
package rpc

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/lam0glia/social-service/event"
	"github.com/lam0glia/social-service/metrics"
	"github.com/lam0glia/social-service/websocket_buffer"
)

// Context is handed to every handler of an authenticated connection.
type Context struct {
	Address      string
	ConnectionID uint64

	// Events is the emitter registered for Address when the connection
	// authenticated. Handlers running after the connection closed still hold
	// it, so they never put an entry back into the registry.
	Events *event.Emitter
}

func (c *Context) Emitter() *event.Emitter {
	return c.Events
}

type UnaryHandler func(ctx context.Context, rc *Context, params json.RawMessage) (any, error)

type StreamHandler func(ctx context.Context, rc *Context, params json.RawMessage) (Stream, error)

// Stream is pulled by a single goroutine until Next returns an error.
// io.EOF and context cancellation end the stream cleanly.
type Stream interface {
	Next(ctx context.Context) (any, error)
	Cancel()
}

type TypedStream[R any] interface {
	Next(ctx context.Context) (R, error)
	Cancel()
}

type adapted[R any] struct {
	TypedStream[R]
}

func (a adapted[R]) Next(ctx context.Context) (any, error) {
	return a.TypedStream.Next(ctx)
}

// Adapt exposes a typed stream as a Stream.
func Adapt[R any](s TypedStream[R]) Stream {
	return adapted[R]{s}
}

type Sender interface {
	Send(payload []byte) *websocket_buffer.Completion
}

type Server struct {
	logger  *slog.Logger
	metrics *metrics.Metrics

	mu         sync.RWMutex
	unary      map[string]UnaryHandler
	streams    map[string]StreamHandler
	transports map[string]*Transport
}

func NewServer(logger *slog.Logger, m *metrics.Metrics) *Server {
	return &Server{
		logger:     logger.With("component", "rpc"),
		metrics:    m,
		unary:      make(map[string]UnaryHandler),
		streams:    make(map[string]StreamHandler),
		transports: make(map[string]*Transport),
	}
}

func (s *Server) RegisterUnary(method string, h UnaryHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.mustBeFree(method)
	s.unary[method] = h
}

func (s *Server) RegisterStream(method string, h StreamHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.mustBeFree(method)
	s.streams[method] = h
}

func (s *Server) mustBeFree(method string) {
	_, unary := s.unary[method]
	_, stream := s.streams[method]
	if unary || stream {
		panic(fmt.Sprintf("rpc: method %q registered twice", method))
	}
}

func (s *Server) handler(method string) (UnaryHandler, StreamHandler) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.unary[method], s.streams[method]
}

// Attach binds an authenticated connection to the server under its address.
func (s *Server) Attach(rc *Context, sender Sender) *Transport {
	t := newTransport(s, rc, sender)

	s.mu.Lock()
	s.transports[rc.Address] = t
	s.mu.Unlock()

	return t
}

// Detach forgets t if it is still the transport bound to its address.
func (s *Server) Detach(t *Transport) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.transports[t.rc.Address] == t {
		delete(s.transports, t.rc.Address)
	}
}

func (s *Server) Transport(address string) (*Transport, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.transports[address]
	return t, ok
}
