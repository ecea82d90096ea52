package handlers

import (
	"net/http"

	"roastmarket_backend/internal/middleware"
	"roastmarket_backend/internal/models"
	"roastmarket_backend/internal/services"
	"roastmarket_backend/internal/services/dto"

	"github.com/gin-gonic/gin"
)

type NotificationHandler struct {
	*BaseHandler
	notificationService services.NotificationService
}

func NewNotificationHandler(base *BaseHandler, notificationService services.NotificationService) *NotificationHandler {
	return &NotificationHandler{
		BaseHandler:         base,
		notificationService: notificationService,
	}
}

func (h *NotificationHandler) RegisterRoutes(r *gin.RouterGroup, authMiddleware gin.HandlerFunc) {
	notifications := r.Group("/notifications")
	notifications.Use(authMiddleware)
	{
		notifications.GET("", h.GetUserNotifications)
		notifications.GET("/stats", h.GetUserNotificationStats)
		notifications.GET("/unread-count", h.GetUnreadCount)
		notifications.PUT("/read-all", h.MarkAllAsRead)
		notifications.PUT("/read-multiple", h.MarkMultipleAsRead)
		notifications.DELETE("", h.DeleteUserNotifications)
		notifications.GET("/:notificationId", h.GetNotification)
		notifications.PUT("/:notificationId/read", h.MarkAsRead)
		notifications.DELETE("/:notificationId", h.DeleteNotification)
	}

	admin := r.Group("/admin/notifications")
	admin.Use(authMiddleware, middleware.RoleMiddleware(models.UserRoleAdmin))
	{
		admin.POST("", h.CreateNotification)
		admin.DELETE("/cleanup", h.CleanOldNotifications)
	}
}

// --- User notification handlers ---

// GetUserNotifications godoc
// @Summary List the caller's notifications
// @Tags notifications
// @Produce json
// @Param page query int false "Page number"
// @Param page_size query int false "Page size (max 100)"
// @Param unread_only query bool false "Only unread"
// @Param type query string false "Notification type"
// @Success 200 {object} dto.NotificationListResponse
// @Failure 401 {object} apperrors.ErrorResponse
// @Security BearerAuth
// @Router /notifications [get]
func (h *NotificationHandler) GetUserNotifications(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	page, pageSize := ParsePagination(c)
	criteria := dto.NotificationCriteria{
		Page:       page,
		PageSize:   pageSize,
		UnreadOnly: ParseQueryBool(c, "unread_only"),
		Type:       models.NotificationType(c.Query("type")),
	}

	response, err := h.notificationService.GetUserNotifications(c.Request.Context(), userID, criteria)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, response)
}

func (h *NotificationHandler) GetNotification(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}
	notificationID, ok := RequireParam(c, "notificationId")
	if !ok {
		return
	}

	notification, err := h.notificationService.GetNotification(c.Request.Context(), userID, notificationID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, notification)
}

// MarkAsRead is idempotent: marking an already read notification succeeds.
func (h *NotificationHandler) MarkAsRead(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}
	notificationID, ok := RequireParam(c, "notificationId")
	if !ok {
		return
	}

	if err := h.notificationService.MarkAsRead(c.Request.Context(), userID, notificationID); err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Notification marked as read"})
}

func (h *NotificationHandler) MarkAllAsRead(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	updated, err := h.notificationService.MarkAllAsRead(c.Request.Context(), userID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "All notifications marked as read", "updated": updated})
}

func (h *NotificationHandler) MarkMultipleAsRead(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	var req dto.MarkMultipleReadRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	updated, err := h.notificationService.MarkMultipleAsRead(c.Request.Context(), userID, req.NotificationIDs)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Notifications marked as read", "updated": updated})
}

func (h *NotificationHandler) DeleteNotification(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}
	notificationID, ok := RequireParam(c, "notificationId")
	if !ok {
		return
	}

	if err := h.notificationService.DeleteNotification(c.Request.Context(), userID, notificationID); err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *NotificationHandler) DeleteUserNotifications(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	deleted, err := h.notificationService.DeleteUserNotifications(c.Request.Context(), userID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Notifications deleted", "deleted": deleted})
}

func (h *NotificationHandler) GetUserNotificationStats(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	stats, err := h.notificationService.GetUserNotificationStats(c.Request.Context(), userID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

// GetUnreadCount godoc
// @Summary Unread notification count
// @Description Polled by clients as a backstop for missed realtime pushes.
// @Tags notifications
// @Produce json
// @Success 200 {object} dto.UnreadCountResponse
// @Security BearerAuth
// @Router /notifications/unread-count [get]
func (h *NotificationHandler) GetUnreadCount(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	count, err := h.notificationService.GetUnreadCount(c.Request.Context(), userID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.UnreadCountResponse{UnreadCount: count})
}

// --- Admin handlers ---

// CreateNotification godoc
// @Summary Create a notification and push it to the recipient
// @Tags admin
// @Accept json
// @Produce json
// @Param request body dto.CreateNotificationRequest true "Notification"
// @Success 201 {object} dto.NotificationResponse
// @Failure 400 {object} apperrors.ErrorResponse
// @Failure 403 {object} apperrors.ErrorResponse
// @Security BearerAuth
// @Router /admin/notifications [post]
func (h *NotificationHandler) CreateNotification(c *gin.Context) {
	var req dto.CreateNotificationRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	notification, err := h.notificationService.CreateNotification(c.Request.Context(), &req)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, notification)
}

func (h *NotificationHandler) CleanOldNotifications(c *gin.Context) {
	var query dto.CleanupQuery
	if !h.BindAndValidate_Query(c, &query) {
		return
	}

	deleted, err := h.notificationService.CleanOldNotifications(c.Request.Context(), query.Days)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Old notifications cleaned", "deleted": deleted})
}
