package connection

import (
	"log/slog"
	"sync"
	"time"

	"github.com/lam0glia/social-service/domain"
	"github.com/lam0glia/social-service/rpc"
	"github.com/lam0glia/social-service/websocket_buffer"
)

type State int

const (
	StateUnauthenticated State = iota
	StateAuthenticating
	StateAuthenticated
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateUnauthenticated:
		return "UNAUTHENTICATED"
	case StateAuthenticating:
		return "AUTHENTICATING"
	case StateAuthenticated:
		return "AUTHENTICATED"
	case StateClosed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}

// Connection is one socket session. Fields guarded by mu change only
// through the Manager.
type Connection struct {
	ID        uint64
	CreatedAt time.Time

	socket domain.Socket
	logger *slog.Logger

	mu        sync.Mutex
	state     State
	address   string
	authTimer stopper
	queue     *websocket_buffer.DeliveryQueue
	transport *rpc.Transport
}

func (c *Connection) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.state
}

// Address is empty until the connection authenticates.
func (c *Connection) Address() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.address
}
