package connection

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/lam0glia/social-service/domain"
	"github.com/lam0glia/social-service/metrics"
	"github.com/lam0glia/social-service/rpc"
	"github.com/lam0glia/social-service/subscriber"
	"github.com/lam0glia/social-service/websocket_buffer"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

type fakeSocket struct {
	id uint64

	mu          sync.Mutex
	sent        [][]byte
	closed      bool
	closeCode   int
	closeReason string
}

func (s *fakeSocket) Send(data []byte) (domain.SendStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return domain.SendDropped, domain.ErrSocketClosed
	}

	s.sent = append(s.sent, data)
	return domain.SendAccepted, nil
}

func (s *fakeSocket) BufferedAmount() int { return 42 }

func (s *fakeSocket) Close(code int, reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}

	s.closed = true
	s.closeCode = code
	s.closeReason = reason
}

func (s *fakeSocket) UserData() *domain.SocketData {
	return &domain.SocketData{ConnectionID: s.id, CreatedAt: time.Now()}
}

func (s *fakeSocket) closedWith() (bool, int, string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.closed, s.closeCode, s.closeReason
}

func (s *fakeSocket) frames() []rpc.Response {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]rpc.Response, 0, len(s.sent))
	for _, b := range s.sent {
		var r rpc.Response
		if err := json.Unmarshal(b, &r); err == nil {
			out = append(out, r)
		}
	}
	return out
}

// gatedVerifier blocks until release is closed, then accepts any message
// as the address it carries unless err is set.
type gatedVerifier struct {
	release chan struct{}
	err     error
}

func (v *gatedVerifier) Verify(ctx context.Context, message []byte) (string, error) {
	if v.release != nil {
		select {
		case <-v.release:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	if v.err != nil {
		return "", v.err
	}

	return string(message), nil
}

type manualTimer struct {
	mu      sync.Mutex
	fn      func()
	stopped bool
}

func (t *manualTimer) Stop() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.stopped = true
	return true
}

func (t *manualTimer) fire() {
	t.fn()
}

func (t *manualTimer) isStopped() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.stopped
}

type presenceRecorder struct {
	mu     sync.Mutex
	events []string
}

func (p *presenceRecorder) record(e string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.events = append(p.events, e)
}

func (p *presenceRecorder) SetUserOnline(_ context.Context, address string) error {
	p.record("online:" + address)
	return nil
}

func (p *presenceRecorder) RefreshUserPresence(_ context.Context, address string) error {
	p.record("refresh:" + address)
	return nil
}

func (p *presenceRecorder) SetUserOffline(_ context.Context, address string) error {
	p.record("offline:" + address)
	return nil
}

func (p *presenceRecorder) recorded() []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	return append([]string(nil), p.events...)
}

type fixture struct {
	manager  *Manager
	verifier *gatedVerifier
	registry *subscriber.Registry
	server   *rpc.Server
	presence *presenceRecorder
	metrics  *metrics.Metrics

	mu     sync.Mutex
	timers []*manualTimer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	m := metrics.NewUnregistered()
	f := &fixture{
		verifier: &gatedVerifier{},
		registry: subscriber.NewRegistry(m),
		server:   rpc.NewServer(discard, m),
		presence: &presenceRecorder{},
		metrics:  m,
	}

	f.server.RegisterUnary("whoami", func(_ context.Context, rc *rpc.Context, _ json.RawMessage) (any, error) {
		return rc.Address, nil
	})

	f.manager = NewManager(
		Config{AuthTimeout: time.Hour, Queue: websocket_buffer.DefaultConfig()},
		f.verifier,
		f.server,
		f.registry,
		f.presence,
		discard,
		m,
	)
	f.manager.afterFunc = func(_ time.Duration, fn func()) stopper {
		f.mu.Lock()
		defer f.mu.Unlock()

		timer := &manualTimer{fn: fn}
		f.timers = append(f.timers, timer)
		return timer
	}

	return f
}

func (f *fixture) timer(i int) *manualTimer {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.timers[i]
}

func (f *fixture) authenticate(t *testing.T, socket *fakeSocket, address string) *Connection {
	t.Helper()

	c := f.manager.Open(socket)
	f.manager.HandleMessage(context.Background(), c, []byte(address))

	require.Eventually(t, func() bool {
		return c.State() == StateAuthenticated
	}, time.Second, time.Millisecond)

	return c
}

func TestManager_AuthTimeout(t *testing.T) {
	f := newFixture(t)
	socket := &fakeSocket{id: 1}

	c := f.manager.Open(socket)
	assert.Equal(t, StateUnauthenticated, c.State())
	assert.Equal(t, 1, f.manager.Len())

	f.timer(0).fire()

	closed, code, reason := socket.closedWith()
	assert.True(t, closed)
	assert.Equal(t, domain.CloseAuthTimeout, code)
	assert.Equal(t, "authentication timeout", reason)
	assert.Equal(t, StateClosed, c.State())
	assert.Zero(t, f.manager.Len())
	assert.Zero(t, testutil.ToFloat64(f.metrics.Connections))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.AuthErrors.WithLabelValues("timeout")))

	// A late first message never authenticates a closed connection.
	f.manager.HandleMessage(context.Background(), c, []byte("0xa"))
	assert.Equal(t, StateClosed, c.State())
}

func TestManager_AuthTimeoutWhileVerifying(t *testing.T) {
	f := newFixture(t)
	f.verifier.release = make(chan struct{})
	socket := &fakeSocket{id: 1}

	c := f.manager.Open(socket)
	f.manager.HandleMessage(context.Background(), c, []byte("0xa"))
	require.Equal(t, StateAuthenticating, c.State())

	f.timer(0).fire()
	close(f.verifier.release)

	_, code, _ := socket.closedWith()
	assert.Equal(t, domain.CloseAuthTimeout, code)

	// The verifier finishing late must not resurrect the connection.
	assert.Never(t, func() bool {
		_, ok := f.registry.Lookup("0xa")
		return ok || c.State() != StateClosed
	}, 50*time.Millisecond, time.Millisecond)
	assert.Empty(t, f.presence.recorded())
}

func TestManager_AuthSuccessCancelsTimer(t *testing.T) {
	f := newFixture(t)
	socket := &fakeSocket{id: 1}

	c := f.authenticate(t, socket, "0xa")

	assert.Equal(t, "0xa", c.Address())
	assert.True(t, f.timer(0).isStopped())

	_, ok := f.registry.Lookup("0xa")
	assert.True(t, ok)

	_, ok = f.server.Transport("0xa")
	assert.True(t, ok)

	require.Eventually(t, func() bool {
		return len(f.presence.recorded()) == 1
	}, time.Second, time.Millisecond)
	assert.Equal(t, []string{"online:0xa"}, f.presence.recorded())

	// Subsequent messages are calls.
	f.manager.HandleMessage(context.Background(), c, []byte(`{"id":3,"type":"call","method":"whoami"}`))

	require.Eventually(t, func() bool { return len(socket.frames()) == 1 }, time.Second, time.Millisecond)
	frame := socket.frames()[0]
	assert.Equal(t, rpc.FrameResult, frame.Type)
	assert.Equal(t, "0xa", frame.Result)

	closed, _, _ := socket.closedWith()
	assert.False(t, closed)
}

func TestManager_AuthFailure(t *testing.T) {
	f := newFixture(t)
	f.verifier.err = domain.ErrAuthentication
	socket := &fakeSocket{id: 1}

	c := f.manager.Open(socket)
	f.manager.HandleMessage(context.Background(), c, []byte("garbage"))

	require.Eventually(t, func() bool { return c.State() == StateClosed }, time.Second, time.Millisecond)

	_, code, reason := socket.closedWith()
	assert.Equal(t, domain.CloseAuthFailed, code)
	assert.Equal(t, "authentication failed", reason)
	assert.True(t, f.timer(0).isStopped())
	assert.Zero(t, f.manager.Len())
	assert.Zero(t, f.registry.Len())
}

func TestManager_AuthFailureAfterTimeoutCountsOnce(t *testing.T) {
	f := newFixture(t)
	f.verifier.release = make(chan struct{})
	f.verifier.err = domain.ErrAuthentication
	socket := &fakeSocket{id: 1}

	c := f.manager.Open(socket)
	f.manager.HandleMessage(context.Background(), c, []byte("garbage"))

	f.timer(0).fire()
	close(f.verifier.release)

	assert.Never(t, func() bool {
		return testutil.ToFloat64(f.metrics.AuthErrors.WithLabelValues("invalid")) != 0
	}, 50*time.Millisecond, time.Millisecond)

	_, code, _ := socket.closedWith()
	assert.Equal(t, domain.CloseAuthTimeout, code)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.AuthErrors.WithLabelValues("timeout")))
	assert.Zero(t, testutil.ToFloat64(f.metrics.Connections))
}

func TestManager_MessageDuringAuthenticationGetsNotice(t *testing.T) {
	f := newFixture(t)
	f.verifier.release = make(chan struct{})
	socket := &fakeSocket{id: 1}

	c := f.manager.Open(socket)
	f.manager.HandleMessage(context.Background(), c, []byte("0xa"))
	f.manager.HandleMessage(context.Background(), c, []byte(`{"id":1,"type":"call","method":"whoami"}`))

	frames := socket.frames()
	require.Len(t, frames, 1)
	assert.Equal(t, rpc.FrameNotice, frames[0].Type)
	assert.Equal(t, "authentication in progress", frames[0].Error)

	close(f.verifier.release)
	require.Eventually(t, func() bool { return c.State() == StateAuthenticated }, time.Second, time.Millisecond)
}

func TestManager_CloseReleasesEverything(t *testing.T) {
	f := newFixture(t)
	socket := &fakeSocket{id: 1}

	f.server.RegisterStream("updates", func(ctx context.Context, rc *rpc.Context, _ json.RawMessage) (rpc.Stream, error) {
		return &idleStream{off: rc.Emitter().On(domain.UpdateBlock, func(domain.Update) {})}, nil
	})

	c := f.authenticate(t, socket, "0xa")
	emitter, _ := f.registry.Lookup("0xa")

	f.manager.HandleMessage(context.Background(), c, []byte(`{"id":1,"type":"call","method":"updates"}`))
	require.Eventually(t, func() bool {
		return emitter.ListenerCount(domain.UpdateBlock) == 1
	}, time.Second, time.Millisecond)

	f.manager.HandleClose(c)

	assert.Equal(t, StateClosed, c.State())
	assert.Zero(t, f.registry.Len())
	assert.Zero(t, f.manager.Len())

	_, ok := f.server.Transport("0xa")
	assert.False(t, ok)

	require.Eventually(t, func() bool {
		return emitter.ListenerCount(domain.UpdateBlock) == 0
	}, time.Second, time.Millisecond)

	assert.Contains(t, f.presence.recorded(), "offline:0xa")

	// Idempotent.
	f.manager.HandleClose(c)
	assert.Zero(t, testutil.ToFloat64(f.metrics.Connections))

	f.manager.HandleMessage(context.Background(), c, []byte(`{"id":2,"type":"call","method":"whoami"}`))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.DroppedInbound))
}

func TestManager_NewerConnectionSurvivesOlderClose(t *testing.T) {
	f := newFixture(t)

	first := f.authenticate(t, &fakeSocket{id: 1}, "0xa")
	second := f.authenticate(t, &fakeSocket{id: 2}, "0xa")

	f.manager.HandleClose(first)

	_, ok := f.registry.Lookup("0xa")
	assert.True(t, ok)

	_, ok = f.server.Transport("0xa")
	assert.True(t, ok)

	assert.NotContains(t, f.presence.recorded(), "offline:0xa")
	assert.Equal(t, StateAuthenticated, second.State())
}

func TestManager_HandlePong(t *testing.T) {
	f := newFixture(t)

	pending := f.manager.Open(&fakeSocket{id: 1})
	f.manager.HandlePong(context.Background(), pending)
	assert.Empty(t, f.presence.recorded())

	c := f.authenticate(t, &fakeSocket{id: 2}, "0xa")
	require.Eventually(t, func() bool { return len(f.presence.recorded()) == 1 }, time.Second, time.Millisecond)

	f.manager.HandlePong(context.Background(), c)
	assert.Equal(t, []string{"online:0xa", "refresh:0xa"}, f.presence.recorded())
}

func TestManager_CloseAll(t *testing.T) {
	f := newFixture(t)

	sockets := []*fakeSocket{{id: 1}, {id: 2}}
	f.manager.Open(sockets[0])
	f.authenticate(t, sockets[1], "0xb")

	f.manager.CloseAll(1001, "shutting down")

	for _, s := range sockets {
		closed, code, _ := s.closedWith()
		assert.True(t, closed)
		assert.Equal(t, 1001, code)
	}
	assert.Zero(t, f.manager.Len())
}

type idleStream struct {
	off func()
}

func (s *idleStream) Next(ctx context.Context) (any, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func (s *idleStream) Cancel() {
	s.off()
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "AUTHENTICATING", StateAuthenticating.String())
	assert.Equal(t, "UNKNOWN", State(9).String())
}
