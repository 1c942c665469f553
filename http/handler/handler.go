package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	WebSocket *WebSocket
}

func NewHandler(
	WebSocket *WebSocket,
) *Handler {
	return &Handler{
		WebSocket: WebSocket,
	}
}

func Ping(c *gin.Context) {
	c.Status(http.StatusNoContent)
}
