package handler

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/lam0glia/social-service/domain"
	"github.com/lam0glia/social-service/internal"
)

// wsSocket adapts a gorilla connection to domain.Socket. Gorilla allows one
// concurrent writer, so every data frame goes through writePump.
type wsSocket struct {
	conn   *websocket.Conn
	data   domain.SocketData
	cfg    SocketConfig
	logger *slog.Logger

	// onDrain runs on the write goroutine when a backlog is fully flushed.
	onDrain func()

	mu        sync.Mutex
	pending   [][]byte
	buffered  int
	congested bool
	closed    bool

	wake chan struct{}
	done chan struct{}
}

func newSocket(conn *websocket.Conn, data domain.SocketData, cfg SocketConfig, logger *slog.Logger) *wsSocket {
	return &wsSocket{
		conn:   conn,
		data:   data,
		cfg:    cfg,
		logger: logger,
		wake:   make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
}

// Send never blocks. Bytes that would push the backlog past the configured
// budget are refused with domain.SendDropped; a single frame is always
// accepted into an empty backlog.
func (s *wsSocket) Send(data []byte) (domain.SendStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return domain.SendDropped, domain.ErrSocketClosed
	}

	if s.buffered > 0 && s.buffered+len(data) > s.cfg.MaxBackpressure {
		s.congested = true
		return domain.SendDropped, nil
	}

	status := domain.SendAccepted
	if s.buffered > 0 {
		status = domain.SendBuffered
		s.congested = true
	}

	s.pending = append(s.pending, data)
	s.buffered += len(data)

	select {
	case s.wake <- struct{}{}:
	default:
	}

	return status, nil
}

func (s *wsSocket) BufferedAmount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.buffered
}

func (s *wsSocket) UserData() *domain.SocketData {
	return &s.data
}

// Close sends a close frame with code and reason and tears the connection
// down. Only the first call has an effect.
func (s *wsSocket) Close(code int, reason string) {
	if !s.markClosed() {
		return
	}

	msg := websocket.FormatCloseMessage(code, reason)
	err := s.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(s.cfg.WriteWait))
	if err != nil && !errors.Is(err, websocket.ErrCloseSent) {
		s.logger.Debug("write close frame", "err", err)
	}

	s.conn.Close()
}

func (s *wsSocket) markClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false
	}

	s.closed = true
	s.pending = nil
	s.buffered = 0
	close(s.done)

	return true
}

func (s *wsSocket) next() ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.pending) == 0 {
		return nil, false
	}

	data := s.pending[0]
	s.pending[0] = nil
	s.pending = s.pending[1:]

	return data, true
}

// written releases n bytes of budget and reports whether a backlog that
// made Send buffer has now been flushed.
func (s *wsSocket) written(n int) (drained bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false
	}

	s.buffered -= n
	if s.buffered > 0 || !s.congested {
		return false
	}

	s.congested = false
	return true
}

// writePump owns every data and ping write on the connection.
func (s *wsSocket) writePump() {
	defer internal.LogGoroutineClosed(s.logger, "write_pump")

	ticker := time.NewTicker(s.cfg.PingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return

		case <-s.wake:
			for {
				data, ok := s.next()
				if !ok {
					break
				}

				_ = s.conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteWait))
				if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
					s.logger.Debug("write message", "err", err)
					s.Close(websocket.CloseInternalServerErr, "write failed")
					return
				}

				if s.written(len(data)) && s.onDrain != nil {
					s.onDrain()
				}
			}

		case <-ticker.C:
			err := s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(s.cfg.WriteWait))
			if err != nil {
				if errors.Is(err, websocket.ErrCloseSent) {
					return
				}

				s.logger.Debug("send ping message", "err", err)
			}
		}
	}
}
