package handler

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/lam0glia/social-service/connection"
	"github.com/lam0glia/social-service/domain"
	"github.com/lam0glia/social-service/http/middleware"
	"github.com/lam0glia/social-service/internal"
)

const reasonIdleTimeout = "idle timeout"

type SocketConfig struct {
	// IdleTimeout closes connections that sent neither a message nor a
	// pong for this long.
	IdleTimeout     time.Duration
	PingPeriod      time.Duration
	WriteWait       time.Duration
	MaxBackpressure int
	MaxMessageSize  int64
}

func DefaultSocketConfig() SocketConfig {
	return SocketConfig{
		IdleTimeout:     90 * time.Second,
		PingPeriod:      30 * time.Second,
		WriteWait:       10 * time.Second,
		MaxBackpressure: 128 * 1024,
		MaxMessageSize:  64 * 1024,
	}
}

type WebSocket struct {
	upgrader websocket.Upgrader
	manager  *connection.Manager
	cfg      SocketConfig
	logger   *slog.Logger
}

// Serve upgrades the request and blocks reading the socket until it closes.
func (h *WebSocket) Serve(c *gin.Context) {
	id := middleware.GetConnectionIDFromContext(c)

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// The upgrader already replied with an HTTP error.
		h.logger.Warn("upgrade http connection", "err", err)
		return
	}

	logger := h.logger.With("connection", id)

	socket := newSocket(conn, domain.SocketData{
		ConnectionID: id,
		RemoteAddr:   c.ClientIP(),
		CreatedAt:    time.Now(),
	}, h.cfg, logger)

	session := h.manager.Open(socket)
	socket.onDrain = func() { h.manager.HandleDrain(session) }

	go socket.writePump()

	h.readPump(c.Request.Context(), conn, socket, session, logger)
}

func (h *WebSocket) readPump(
	ctx context.Context,
	conn *websocket.Conn,
	socket *wsSocket,
	session *connection.Connection,
	logger *slog.Logger,
) {
	defer internal.LogGoroutineClosed(logger, "read_pump")
	defer h.manager.HandleClose(session)

	conn.SetReadLimit(h.cfg.MaxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(h.cfg.IdleTimeout))

	conn.SetPongHandler(func(string) error {
		h.manager.HandlePong(ctx, session)
		return conn.SetReadDeadline(time.Now().Add(h.cfg.IdleTimeout))
	})

	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			h.closeAfterReadError(socket, err, logger)
			return
		}

		_ = conn.SetReadDeadline(time.Now().Add(h.cfg.IdleTimeout))

		if messageType != websocket.TextMessage && messageType != websocket.BinaryMessage {
			continue
		}

		h.manager.HandleMessage(ctx, session, data)
	}
}

func (h *WebSocket) closeAfterReadError(socket *wsSocket, err error, logger *slog.Logger) {
	var netErr net.Error

	switch {
	case errors.As(err, &netErr) && netErr.Timeout():
		logger.Info("connection idle, closing")
		socket.Close(domain.CloseIdleTimeout, reasonIdleTimeout)

	case websocket.IsUnexpectedCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseNoStatusReceived):
		logger.Warn("read peer", "err", err)
		socket.Close(websocket.CloseInternalServerErr, "read failed")

	default:
		var closeErr *websocket.CloseError
		if errors.As(err, &closeErr) {
			logger.Debug("close message received", "code", closeErr.Code, "text", closeErr.Text)
		}
		socket.Close(websocket.CloseNormalClosure, "")
	}
}

func NewWebSocket(manager *connection.Manager, cfg SocketConfig, logger *slog.Logger) *WebSocket {
	return &WebSocket{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  5120,
			WriteBufferSize: 5120,
			// Clients are game and desktop apps rather than browsers.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		manager: manager,
		cfg:     cfg,
		logger:  logger.With("component", "websocket"),
	}
}
