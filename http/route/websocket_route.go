package route

import (
	"github.com/gin-gonic/gin"
	"github.com/lam0glia/social-service/http/handler"
)

func websocketRouter(r gin.IRouter, h *handler.WebSocket, connectionID gin.HandlerFunc) {
	r.GET("/ws", connectionID, h.Serve)
}
