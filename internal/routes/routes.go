package routes

import (
	"net/http"

	"roastmarket_backend/internal/handlers"
	"roastmarket_backend/internal/logger"
	"roastmarket_backend/internal/middleware"
	"roastmarket_backend/ws"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// RegisterRoutes registers the HTTP API, the websocket endpoint and the
// service endpoints. metricsHandler may be nil when metrics are disabled.
func RegisterRoutes(
	ginRouter *gin.Engine,
	appHandlers *handlers.AppHandlers,
	wsHandler *ws.WebSocketHandler,
	tokens middleware.TokenParser,
	metricsHandler http.Handler,
) {
	authMiddleware := middleware.AuthMiddleware(tokens)

	api := ginRouter.Group("/api/v1")
	{
		appHandlers.NotificationHandler.RegisterRoutes(api, authMiddleware)
		appHandlers.TrackingHandler.RegisterRoutes(api, authMiddleware)
		appHandlers.RealtimeHandler.RegisterRoutes(api, authMiddleware)
	}

	// Anonymous upgrades are allowed; the client authenticates in-band.
	ginRouter.GET("/ws", middleware.OptionalAuthMiddleware(tokens), wsHandler.ServeWS)
	logger.Info("WebSocket route /ws registered")

	ginRouter.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	ginRouter.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	if metricsHandler != nil {
		ginRouter.GET("/metrics", gin.WrapH(metricsHandler))
	}
}
