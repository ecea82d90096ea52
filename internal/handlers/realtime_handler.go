package handlers

import (
	"net/http"

	"roastmarket_backend/internal/middleware"
	"roastmarket_backend/internal/models"
	"roastmarket_backend/ws"

	"github.com/gin-gonic/gin"
)

// RealtimeStats is implemented by *ws.WebSocketManager.
type RealtimeStats interface {
	Stats() ws.RegistryStats
}

type RealtimeHandler struct {
	*BaseHandler
	realtime RealtimeStats
}

func NewRealtimeHandler(base *BaseHandler, realtime RealtimeStats) *RealtimeHandler {
	return &RealtimeHandler{BaseHandler: base, realtime: realtime}
}

func (h *RealtimeHandler) RegisterRoutes(r *gin.RouterGroup, authMiddleware gin.HandlerFunc) {
	admin := r.Group("/admin/realtime")
	admin.Use(authMiddleware, middleware.RoleMiddleware(models.UserRoleAdmin))
	{
		admin.GET("/stats", h.GetStats)
	}
}

// GetStats godoc
// @Summary Live websocket connection counts
// @Tags admin
// @Produce json
// @Success 200 {object} ws.RegistryStats
// @Security BearerAuth
// @Router /admin/realtime/stats [get]
func (h *RealtimeHandler) GetStats(c *gin.Context) {
	c.JSON(http.StatusOK, h.realtime.Stats())
}
