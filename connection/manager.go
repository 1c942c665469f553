// Package connection drives each websocket from its first byte to its
// close: authentication, the per-connection delivery queue and RPC transport,
// subscriber registration and presence.
package connection

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/lam0glia/social-service/domain"
	"github.com/lam0glia/social-service/metrics"
	"github.com/lam0glia/social-service/rpc"
	"github.com/lam0glia/social-service/subscriber"
	"github.com/lam0glia/social-service/websocket_buffer"
)

const (
	noticeAuthenticationInProgress = "authentication in progress"
	reasonAuthenticationTimeout    = "authentication timeout"
	reasonAuthenticationFailed     = "authentication failed"

	presenceTimeout = 5 * time.Second
)

type stopper interface {
	Stop() bool
}

type Config struct {
	AuthTimeout time.Duration
	Queue       websocket_buffer.Config
}

type Manager struct {
	cfg         Config
	verifier    domain.Verifier
	server      *rpc.Server
	subscribers *subscriber.Registry
	presence    domain.PresenceService
	logger      *slog.Logger
	metrics     *metrics.Metrics

	afterFunc func(time.Duration, func()) stopper

	mu          sync.Mutex
	connections map[uint64]*Connection
}

// NewManager builds a manager. presence may be nil.
func NewManager(
	cfg Config,
	verifier domain.Verifier,
	server *rpc.Server,
	subscribers *subscriber.Registry,
	presence domain.PresenceService,
	logger *slog.Logger,
	m *metrics.Metrics,
) *Manager {
	return &Manager{
		cfg:         cfg,
		verifier:    verifier,
		server:      server,
		subscribers: subscribers,
		presence:    presence,
		logger:      logger.With("component", "connection"),
		metrics:     m,
		afterFunc: func(d time.Duration, f func()) stopper {
			return time.AfterFunc(d, f)
		},
		connections: make(map[uint64]*Connection),
	}
}

// Open tracks a freshly upgraded socket and arms its authentication timer.
func (m *Manager) Open(socket domain.Socket) *Connection {
	data := socket.UserData()

	c := &Connection{
		ID:        data.ConnectionID,
		CreatedAt: data.CreatedAt,
		socket:    socket,
		state:     StateUnauthenticated,
		logger:    m.logger.With("connection", data.ConnectionID, "remote", data.RemoteAddr),
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}

	m.mu.Lock()
	m.connections[c.ID] = c
	m.mu.Unlock()

	m.metrics.Connections.Inc()

	c.mu.Lock()
	c.authTimer = m.afterFunc(m.cfg.AuthTimeout, func() { m.authTimeout(c) })
	c.mu.Unlock()

	c.logger.Debug("connection opened")

	return c
}

// HandleMessage processes one inbound message. It never blocks on
// authentication: the verifier runs on its own goroutine.
func (m *Manager) HandleMessage(ctx context.Context, c *Connection, data []byte) {
	m.metrics.MessagesReceived.Inc()

	c.mu.Lock()

	switch c.state {
	case StateUnauthenticated:
		c.state = StateAuthenticating
		c.mu.Unlock()

		go m.authenticate(ctx, c, data)

	case StateAuthenticating:
		c.mu.Unlock()

		if _, err := c.socket.Send(rpc.EncodeNotice(noticeAuthenticationInProgress)); err != nil {
			c.logger.Debug("send notice", "err", err)
		}

	case StateAuthenticated:
		transport, queue := c.transport, c.queue
		c.mu.Unlock()

		if !m.tracked(c) || !queue.Active() {
			m.metrics.DroppedInbound.Inc()
			c.logger.Warn("message for untracked connection dropped")
			return
		}

		transport.Receive(data)

	default:
		c.mu.Unlock()

		m.metrics.DroppedInbound.Inc()
		c.logger.Debug("message after close dropped")
	}
}

func (m *Manager) authenticate(ctx context.Context, c *Connection, data []byte) {
	address, err := m.verifier.Verify(ctx, data)
	if err != nil {
		if c.State() != StateAuthenticating {
			// The auth timer or a close got there first.
			return
		}

		m.metrics.AuthErrors.WithLabelValues("invalid").Inc()
		c.logger.Info("authentication failed", "err", err)

		c.socket.Close(domain.CloseAuthFailed, reasonAuthenticationFailed)
		m.HandleClose(c)
		return
	}

	c.mu.Lock()
	if c.state != StateAuthenticating {
		// Closed or timed out while the verifier was running.
		c.mu.Unlock()
		return
	}

	if c.authTimer != nil {
		c.authTimer.Stop()
		c.authTimer = nil
	}

	logger := c.logger.With("address", address)

	c.state = StateAuthenticated
	c.address = address
	c.queue = websocket_buffer.NewDeliveryQueue(c.socket, m.cfg.Queue, logger, m.metrics)

	c.transport = m.server.Attach(&rpc.Context{
		Address:      address,
		ConnectionID: c.ID,
		Events:       m.subscribers.Register(address, c.ID),
	}, c.queue)
	c.mu.Unlock()

	logger.Info("authenticated")

	if m.presence == nil {
		return
	}

	pctx, cancel := context.WithTimeout(context.Background(), presenceTimeout)
	defer cancel()

	if err = m.presence.SetUserOnline(pctx, address); err != nil {
		logger.Error("set user online", "err", err)
	}

	// A close racing the presence write may have marked the user offline
	// first.
	if c.State() != StateClosed {
		return
	}

	if _, taken := m.subscribers.Lookup(address); !taken {
		if err = m.presence.SetUserOffline(pctx, address); err != nil {
			logger.Error("set user offline", "err", err)
		}
	}
}

func (m *Manager) authTimeout(c *Connection) {
	c.mu.Lock()
	if c.state == StateAuthenticated || c.state == StateClosed {
		c.mu.Unlock()
		return
	}
	c.authTimer = nil
	c.mu.Unlock()

	m.metrics.AuthErrors.WithLabelValues("timeout").Inc()
	c.logger.Info("authentication timed out")

	c.socket.Close(domain.CloseAuthTimeout, reasonAuthenticationTimeout)
	m.HandleClose(c)
}

// HandleClose releases everything c holds. Calling it again is a no-op.
func (m *Manager) HandleClose(c *Connection) {
	c.mu.Lock()
	if c.state == StateClosed {
		c.mu.Unlock()
		return
	}

	c.state = StateClosed

	timer := c.authTimer
	transport := c.transport
	queue := c.queue
	address := c.address

	c.authTimer = nil
	c.mu.Unlock()

	if timer != nil {
		timer.Stop()
	}

	if transport != nil {
		transport.Close()
		m.server.Detach(transport)
	}

	if queue != nil {
		queue.Close()
	}

	if address != "" && m.subscribers.Remove(address, c.ID) && m.presence != nil {
		ctx, cancel := context.WithTimeout(context.Background(), presenceTimeout)
		defer cancel()

		if err := m.presence.SetUserOffline(ctx, address); err != nil {
			c.logger.Error("set user offline", "err", err)
		}
	}

	m.mu.Lock()
	delete(m.connections, c.ID)
	m.mu.Unlock()

	m.metrics.Connections.Dec()
	m.metrics.ConnectionDuration.Observe(time.Since(c.CreatedAt).Seconds())

	c.logger.Debug("connection closed")
}

// HandlePong keeps the presence of an authenticated connection alive.
func (m *Manager) HandlePong(ctx context.Context, c *Connection) {
	if m.presence == nil {
		return
	}

	c.mu.Lock()
	state, address := c.state, c.address
	c.mu.Unlock()

	if state != StateAuthenticated {
		return
	}

	if err := m.presence.RefreshUserPresence(ctx, address); err != nil {
		c.logger.Warn("refresh presence", "err", err)
	}
}

func (m *Manager) HandleDrain(c *Connection) {
	m.metrics.BufferedBytes.Observe(float64(c.socket.BufferedAmount()))
}

// CloseAll closes every tracked connection with code.
func (m *Manager) CloseAll(code int, reason string) {
	m.mu.Lock()
	connections := make([]*Connection, 0, len(m.connections))
	for _, c := range m.connections {
		connections = append(connections, c)
	}
	m.mu.Unlock()

	for _, c := range connections {
		c.socket.Close(code, reason)
		m.HandleClose(c)
	}
}

func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.connections)
}

func (m *Manager) tracked(c *Connection) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.connections[c.ID] == c
}
