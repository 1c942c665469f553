package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"

	"github.com/lam0glia/social-service/domain"
)

type activeStream struct {
	method string
	stream Stream
	cancel context.CancelFunc
}

// Transport is the per-connection side of the server.
type Transport struct {
	server *Server
	rc     *Context
	sender Sender
	logger *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	active  bool
	streams map[uint64]*activeStream
	wg      sync.WaitGroup
}

func newTransport(s *Server, rc *Context, sender Sender) *Transport {
	ctx, cancel := context.WithCancel(context.Background())

	return &Transport{
		server:  s,
		rc:      rc,
		sender:  sender,
		logger:  s.logger.With("address", rc.Address, "connection", rc.ConnectionID),
		ctx:     ctx,
		cancel:  cancel,
		active:  true,
		streams: make(map[uint64]*activeStream),
	}
}

func (t *Transport) Active() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.active
}

// Receive decodes and dispatches one inbound frame. Frames arriving after
// Close are ignored. Malformed frames are logged and never close the
// connection.
func (t *Transport) Receive(data []byte) {
	if !t.Active() {
		return
	}

	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		t.protocolError(0, "malformed frame", err)
		return
	}

	switch req.Type {
	case FrameCall:
		t.call(req)
	case FrameCancel:
		t.cancelStream(req.ID)
	default:
		t.protocolError(req.ID, "unknown frame type", nil)
	}
}

func (t *Transport) protocolError(id uint64, message string, err error) {
	t.server.metrics.ProtocolErrors.Inc()
	t.logger.Warn("protocol error", "id", id, "reason", message, "err", err)

	if id != 0 {
		t.send(Response{ID: id, Type: FrameError, Error: message})
	}
}

func (t *Transport) call(req Request) {
	unary, streaming := t.server.handler(req.Method)

	switch {
	case unary != nil:
		t.wg.Add(1)
		go t.runUnary(req, unary)
	case streaming != nil:
		t.openStream(req, streaming)
	default:
		t.server.metrics.RPCCalls.WithLabelValues(req.Method, "unknown").Inc()
		t.protocolError(req.ID, "unknown method", nil)
	}
}

func (t *Transport) runUnary(req Request, h UnaryHandler) {
	defer t.wg.Done()

	result, err := h(t.ctx, t.rc, req.Params)
	if err != nil {
		t.server.metrics.RPCCalls.WithLabelValues(req.Method, "error").Inc()
		t.logger.Info("call failed", "method", req.Method, "err", err)
		t.send(Response{ID: req.ID, Type: FrameError, Error: err.Error()})
		return
	}

	t.server.metrics.RPCCalls.WithLabelValues(req.Method, "ok").Inc()
	t.send(Response{ID: req.ID, Type: FrameResult, Result: result})
}

func (t *Transport) openStream(req Request, h StreamHandler) {
	t.mu.Lock()
	if !t.active {
		t.mu.Unlock()
		return
	}

	if _, exists := t.streams[req.ID]; exists {
		t.mu.Unlock()
		t.protocolError(req.ID, "stream id already in use", nil)
		return
	}

	ctx, cancel := context.WithCancel(t.ctx)
	as := &activeStream{method: req.Method, cancel: cancel}
	t.streams[req.ID] = as
	t.mu.Unlock()

	t.wg.Add(1)
	go t.runStream(ctx, req, h, as)
}

func (t *Transport) runStream(ctx context.Context, req Request, h StreamHandler, as *activeStream) {
	defer t.wg.Done()
	defer t.forget(req.ID, as)

	s, err := h(ctx, t.rc, req.Params)
	if err != nil {
		t.server.metrics.RPCCalls.WithLabelValues(req.Method, "error").Inc()
		t.logger.Info("open stream failed", "method", req.Method, "err", err)
		t.send(Response{ID: req.ID, Type: FrameError, Error: err.Error()})
		return
	}

	t.mu.Lock()
	if ctx.Err() != nil {
		// Cancelled while the handler was opening the stream.
		t.mu.Unlock()
		s.Cancel()
		return
	}
	as.stream = s
	t.mu.Unlock()

	defer s.Cancel()

	t.server.metrics.RPCCalls.WithLabelValues(req.Method, "ok").Inc()
	t.server.metrics.ActiveStreams.Inc()
	defer t.server.metrics.ActiveStreams.Dec()

	for {
		value, err := s.Next(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, context.Canceled) {
				t.send(Response{ID: req.ID, Type: FrameEnd})
				return
			}

			t.logger.Warn("stream failed", "method", req.Method, "err", err)
			t.send(Response{ID: req.ID, Type: FrameError, Error: err.Error()})
			return
		}

		payload, err := json.Marshal(Response{ID: req.ID, Type: FrameEvent, Result: value})
		if err != nil {
			t.logger.Error("encode stream event", "method", req.Method, "err", err)
			continue
		}

		err = t.sender.Send(payload).Wait(ctx)

		switch {
		case err == nil:
			t.server.metrics.StreamUpdates.WithLabelValues(req.Method).Inc()
		case errors.Is(err, domain.ErrConnectionClosed), ctx.Err() != nil:
			return
		default:
			t.logger.Warn("stream event not delivered", "method", req.Method, "err", err)
		}
	}
}

func (t *Transport) forget(id uint64, as *activeStream) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.streams[id] == as {
		delete(t.streams, id)
	}

	as.cancel()
}

// cancelStream unregisters the stream's listeners before returning.
func (t *Transport) cancelStream(id uint64) {
	t.mu.Lock()
	as, ok := t.streams[id]
	if ok {
		delete(t.streams, id)
	}
	t.mu.Unlock()

	if !ok {
		return
	}

	as.cancel()

	t.mu.Lock()
	s := as.stream
	t.mu.Unlock()

	if s != nil {
		s.Cancel()
	}
}

func (t *Transport) send(resp Response) {
	payload, err := json.Marshal(resp)
	if err != nil {
		t.logger.Error("encode response", "id", resp.ID, "err", err)
		return
	}

	c := t.sender.Send(payload)

	select {
	case <-c.Done():
		if err := c.Err(); err != nil {
			t.logger.Debug("response not delivered", "id", resp.ID, "err", err)
		}
	default:
	}
}

// Close stops accepting frames and cancels every open stream. Stream
// listeners are unregistered before Close returns.
func (t *Transport) Close() {
	t.mu.Lock()
	if !t.active {
		t.mu.Unlock()
		return
	}

	t.active = false
	streams := t.streams
	t.streams = make(map[uint64]*activeStream)
	t.mu.Unlock()

	for _, as := range streams {
		as.cancel()

		t.mu.Lock()
		s := as.stream
		t.mu.Unlock()

		if s != nil {
			s.Cancel()
		}
	}

	t.cancel()
}

// Wait blocks until every handler goroutine of t has returned.
func (t *Transport) Wait() {
	t.wg.Wait()
}

func (t *Transport) OpenStreams() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return len(t.streams)
}
