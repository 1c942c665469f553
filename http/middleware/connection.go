package middleware

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lam0glia/social-service/domain"
)

const connectionIDContextKey = "x-connection-id"

// NewConnectionID tags each request with a fresh id used as the websocket
// connection id.
func NewConnectionID(generator domain.UIDGenerator, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := generator.NextID()
		if err != nil {
			logger.Error("generate connection id", "err", err)
			c.AbortWithStatus(http.StatusInternalServerError)
			return
		}

		c.Set(connectionIDContextKey, id)

		c.Next()
	}
}

func GetConnectionIDFromContext(c *gin.Context) uint64 {
	return c.GetUint64(connectionIDContextKey)
}
