package handlers

import (
	"net/http"

	"roastmarket_backend/internal/models"
	"roastmarket_backend/internal/services"
	"roastmarket_backend/internal/services/dto"

	"github.com/gin-gonic/gin"
)

type TrackingHandler struct {
	*BaseHandler
	trackingService services.TrackingService
}

func NewTrackingHandler(base *BaseHandler, trackingService services.TrackingService) *TrackingHandler {
	return &TrackingHandler{
		BaseHandler:     base,
		trackingService: trackingService,
	}
}

func (h *TrackingHandler) RegisterRoutes(r *gin.RouterGroup, authMiddleware gin.HandlerFunc) {
	orders := r.Group("/orders/:orderId")
	orders.Use(authMiddleware)
	{
		orders.GET("/tracking", h.ListTrackingEvents)
		orders.POST("/tracking", h.AppendTrackingEvent)
		orders.PUT("/status", h.UpdateOrderStatus)
	}
}

// ListTrackingEvents godoc
// @Summary Tracking log of an order
// @Description Events in the order they were recorded. Visible to the buyer, the roaster and admins.
// @Tags tracking
// @Produce json
// @Param orderId path string true "Order ID"
// @Success 200 {object} dto.TrackingListResponse
// @Failure 403 {object} apperrors.ErrorResponse
// @Failure 404 {object} apperrors.ErrorResponse
// @Security BearerAuth
// @Router /orders/{orderId}/tracking [get]
func (h *TrackingHandler) ListTrackingEvents(c *gin.Context) {
	actor, ok := h.GetActor(c)
	if !ok {
		return
	}
	orderID, ok := RequireParam(c, "orderId")
	if !ok {
		return
	}

	events, err := h.trackingService.ListTrackingEvents(c.Request.Context(), actor, orderID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, events)
}

// AppendTrackingEvent godoc
// @Summary Record a tracking event
// @Description Appends to the order's tracking log and pushes tracking_update to subscribed clients.
// @Tags tracking
// @Accept json
// @Produce json
// @Param orderId path string true "Order ID"
// @Param request body dto.AppendTrackingEventRequest true "Event"
// @Success 201 {object} dto.TrackingEventResponse
// @Failure 400 {object} apperrors.ErrorResponse
// @Failure 403 {object} apperrors.ErrorResponse
// @Failure 404 {object} apperrors.ErrorResponse
// @Security BearerAuth
// @Router /orders/{orderId}/tracking [post]
func (h *TrackingHandler) AppendTrackingEvent(c *gin.Context) {
	actor, ok := h.GetActor(c)
	if !ok {
		return
	}
	orderID, ok := RequireParam(c, "orderId")
	if !ok {
		return
	}

	var req dto.AppendTrackingEventRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	event, err := h.trackingService.AppendTrackingEvent(c.Request.Context(), actor, orderID, &req)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, event)
}

// UpdateOrderStatus godoc
// @Summary Change an order's status
// @Description Pushes status_change to subscribed clients and notifies the buyer.
// @Tags tracking
// @Accept json
// @Produce json
// @Param orderId path string true "Order ID"
// @Param request body dto.UpdateOrderStatusRequest true "New status"
// @Success 200 {object} dto.StatusChange
// @Failure 400 {object} apperrors.ErrorResponse
// @Failure 403 {object} apperrors.ErrorResponse
// @Failure 404 {object} apperrors.ErrorResponse
// @Security BearerAuth
// @Router /orders/{orderId}/status [put]
func (h *TrackingHandler) UpdateOrderStatus(c *gin.Context) {
	actor, ok := h.GetActor(c)
	if !ok {
		return
	}
	orderID, ok := RequireParam(c, "orderId")
	if !ok {
		return
	}

	var req dto.UpdateOrderStatusRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	change, err := h.trackingService.UpdateOrderStatus(c.Request.Context(), actor, orderID, models.OrderStatus(req.Status))
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, change)
}
