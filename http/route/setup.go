package route

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/lam0glia/social-service/bootstrap"
	"github.com/lam0glia/social-service/domain"
	"github.com/lam0glia/social-service/http/handler"
	"github.com/lam0glia/social-service/http/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const v1Prefix = "/v1"

func Setup(
	h *handler.Handler,
	ids domain.UIDGenerator,
	gatherer prometheus.Gatherer,
	envName string,
	logger *slog.Logger,
) *gin.Engine {
	if envName == bootstrap.ProductionEnvironmentName {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	eng := gin.New()
	eng.Use(gin.Recovery())

	eng.SetTrustedProxies(nil)

	eng.GET("/ping", handler.Ping)
	eng.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	v1 := eng.Group(v1Prefix)
	{
		websocketRouter(v1, h.WebSocket, middleware.NewConnectionID(ids, logger))
	}

	return eng
}
