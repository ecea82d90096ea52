package services

import (
	"context"
	"errors"
	"fmt"

	json "github.com/goccy/go-json"
	"gorm.io/datatypes"

	"roastmarket_backend/internal/logger"
	"roastmarket_backend/internal/models"
	"roastmarket_backend/internal/repositories"
	"roastmarket_backend/internal/services/dto"
	"roastmarket_backend/pkg/apperrors"
	"roastmarket_backend/ws"
)

// RealtimePublisher pushes persisted events to live connections.
// *ws.WebSocketManager implements it.
type RealtimePublisher interface {
	PublishTrackingUpdate(orderID string, event any) (ws.DeliveryReport, error)
	PublishStatusChange(orderID string, change any) (ws.DeliveryReport, error)
	PublishNotification(userID string, notification any) (ws.DeliveryReport, error)
}

type NotificationMetrics interface {
	ObserveNotificationCreated(notificationType string)
	ObserveNotificationsCleaned(count int64)
}

type NotificationService interface {
	CreateNotification(ctx context.Context, req *dto.CreateNotificationRequest) (*dto.NotificationResponse, error)
	GetNotification(ctx context.Context, userID, notificationID string) (*dto.NotificationResponse, error)
	GetUserNotifications(ctx context.Context, userID string, criteria dto.NotificationCriteria) (*dto.NotificationListResponse, error)
	MarkAsRead(ctx context.Context, userID, notificationID string) error
	MarkAllAsRead(ctx context.Context, userID string) (int64, error)
	MarkMultipleAsRead(ctx context.Context, userID string, notificationIDs []string) (int64, error)
	DeleteNotification(ctx context.Context, userID, notificationID string) error
	DeleteUserNotifications(ctx context.Context, userID string) (int64, error)
	CleanOldNotifications(ctx context.Context, days int) (int64, error)

	GetUserNotificationStats(ctx context.Context, userID string) (*repositories.NotificationStats, error)
	GetUnreadCount(ctx context.Context, userID string) (int64, error)
}

type notificationService struct {
	notificationRepo repositories.NotificationRepository
	publisher        RealtimePublisher
	metrics          NotificationMetrics
}

func NewNotificationService(
	notificationRepo repositories.NotificationRepository,
	publisher RealtimePublisher,
	metrics NotificationMetrics,
) NotificationService {
	return &notificationService{
		notificationRepo: notificationRepo,
		publisher:        publisher,
		metrics:          metrics,
	}
}

// ---------------- Notification operations ----------------

// CreateNotification persists the notification and then pushes it to the
// owner's subscribed connections. A failed push never fails the call.
func (s *notificationService) CreateNotification(ctx context.Context, req *dto.CreateNotificationRequest) (*dto.NotificationResponse, error) {
	notificationType := models.NotificationType(req.Type)
	if !notificationType.Valid() {
		return nil, apperrors.ErrInvalidNotificationType
	}

	var dataJSON datatypes.JSON
	if req.Data != nil {
		jsonData, err := json.Marshal(req.Data)
		if err != nil {
			return nil, apperrors.ValidationError(fmt.Sprintf("failed to marshal notification data: %v", err))
		}
		dataJSON = datatypes.JSON(jsonData)
	}

	notification := &models.Notification{
		UserID:  req.UserID,
		Type:    notificationType,
		Title:   req.Title,
		Message: req.Message,
		Data:    dataJSON,
	}
	if err := s.notificationRepo.CreateNotification(ctx, notification); err != nil {
		return nil, s.mapError(err)
	}
	if s.metrics != nil {
		s.metrics.ObserveNotificationCreated(string(notification.Type))
	}

	resp := buildNotificationResponse(notification)
	s.push(ctx, resp)
	return resp, nil
}

func (s *notificationService) GetNotification(ctx context.Context, userID, notificationID string) (*dto.NotificationResponse, error) {
	notification, err := s.findOwned(ctx, userID, notificationID)
	if err != nil {
		return nil, err
	}
	return buildNotificationResponse(notification), nil
}

func (s *notificationService) GetUserNotifications(ctx context.Context, userID string, criteria dto.NotificationCriteria) (*dto.NotificationListResponse, error) {
	if criteria.Page < 1 {
		criteria.Page = 1
	}
	if criteria.PageSize < 1 || criteria.PageSize > 100 {
		criteria.PageSize = 20
	}
	if criteria.Type != "" && !criteria.Type.Valid() {
		return nil, apperrors.ErrInvalidNotificationType
	}

	notifications, total, err := s.notificationRepo.FindUserNotifications(ctx, userID, repositories.NotificationCriteria{
		UnreadOnly: criteria.UnreadOnly,
		Type:       criteria.Type,
		Page:       criteria.Page,
		PageSize:   criteria.PageSize,
	})
	if err != nil {
		return nil, s.mapError(err)
	}

	notificationResponses := make([]*dto.NotificationResponse, 0, len(notifications))
	for i := range notifications {
		notificationResponses = append(notificationResponses, buildNotificationResponse(&notifications[i]))
	}

	return &dto.NotificationListResponse{
		Notifications: notificationResponses,
		Total:         total,
		Page:          criteria.Page,
		PageSize:      criteria.PageSize,
		TotalPages:    calculateTotalPages(total, criteria.PageSize),
	}, nil
}

func (s *notificationService) MarkAsRead(ctx context.Context, userID, notificationID string) error {
	if _, err := s.findOwned(ctx, userID, notificationID); err != nil {
		return err
	}
	return s.mapError(s.notificationRepo.MarkAsRead(ctx, notificationID))
}

func (s *notificationService) MarkAllAsRead(ctx context.Context, userID string) (int64, error) {
	updated, err := s.notificationRepo.MarkAllAsRead(ctx, userID)
	return updated, s.mapError(err)
}

func (s *notificationService) MarkMultipleAsRead(ctx context.Context, userID string, notificationIDs []string) (int64, error) {
	for _, notificationID := range notificationIDs {
		if _, err := s.findOwned(ctx, userID, notificationID); err != nil {
			return 0, err
		}
	}
	updated, err := s.notificationRepo.MarkMultipleAsRead(ctx, userID, notificationIDs)
	return updated, s.mapError(err)
}

func (s *notificationService) DeleteNotification(ctx context.Context, userID, notificationID string) error {
	if _, err := s.findOwned(ctx, userID, notificationID); err != nil {
		return err
	}
	return s.mapError(s.notificationRepo.DeleteNotification(ctx, notificationID))
}

func (s *notificationService) DeleteUserNotifications(ctx context.Context, userID string) (int64, error) {
	deleted, err := s.notificationRepo.DeleteUserNotifications(ctx, userID)
	return deleted, s.mapError(err)
}

// CleanOldNotifications removes read notifications older than days.
func (s *notificationService) CleanOldNotifications(ctx context.Context, days int) (int64, error) {
	if days <= 0 {
		return 0, apperrors.ErrInvalidOperation("notification", "retention must be at least one day")
	}
	cutoff := timeNow().AddDate(0, 0, -days)
	deleted, err := s.notificationRepo.CleanOldNotifications(ctx, cutoff)
	if err != nil {
		return 0, s.mapError(err)
	}
	if s.metrics != nil {
		s.metrics.ObserveNotificationsCleaned(deleted)
	}
	return deleted, nil
}

// ---------------- Notification stats ----------------

func (s *notificationService) GetUserNotificationStats(ctx context.Context, userID string) (*repositories.NotificationStats, error) {
	stats, err := s.notificationRepo.GetUserNotificationStats(ctx, userID)
	return stats, s.mapError(err)
}

func (s *notificationService) GetUnreadCount(ctx context.Context, userID string) (int64, error) {
	count, err := s.notificationRepo.GetUnreadCount(ctx, userID)
	return count, s.mapError(err)
}

// ---------------- Helpers ----------------

func (s *notificationService) findOwned(ctx context.Context, userID, notificationID string) (*models.Notification, error) {
	notification, err := s.notificationRepo.FindNotificationByID(ctx, notificationID)
	if err != nil {
		return nil, s.mapError(err)
	}
	if notification.UserID != userID {
		return nil, apperrors.ErrNotificationAccessDenied
	}
	return notification, nil
}

func (s *notificationService) push(ctx context.Context, resp *dto.NotificationResponse) {
	if s.publisher == nil {
		return
	}
	report, err := s.publisher.PublishNotification(resp.UserID, resp)
	if err != nil {
		logger.CtxWithError(ctx, "notification push failed", err, "notification_id", resp.ID)
		return
	}
	logger.CtxDebug(ctx, "notification pushed",
		"notification_id", resp.ID, "user_id", resp.UserID,
		"delivered", report.Delivered, "missed", report.Missed)
}

func (s *notificationService) mapError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repositories.ErrNotificationNotFound):
		return apperrors.ErrNotificationNotFound
	case errors.Is(err, repositories.ErrInvalidNotificationData):
		return apperrors.ValidationError("notification data must be valid JSON")
	case errors.Is(err, repositories.ErrIncompleteNotification):
		return apperrors.ValidationError(err.Error())
	default:
		if _, ok := apperrors.AsAppError(err); ok {
			return err
		}
		return apperrors.DatabaseError(err)
	}
}

func buildNotificationResponse(n *models.Notification) *dto.NotificationResponse {
	resp := &dto.NotificationResponse{
		ID:        n.ID,
		UserID:    n.UserID,
		Type:      string(n.Type),
		Title:     n.Title,
		Message:   n.Message,
		IsRead:    n.IsRead,
		ReadAt:    n.ReadAt,
		CreatedAt: n.CreatedAt,
		UpdatedAt: n.UpdatedAt,
	}
	if len(n.Data) > 0 {
		var data map[string]interface{}
		if err := json.Unmarshal(n.Data, &data); err == nil {
			resp.Data = data
		}
	}
	return resp
}

func calculateTotalPages(total int64, pageSize int) int {
	if pageSize <= 0 {
		return 0
	}
	return int((total + int64(pageSize) - 1) / int64(pageSize))
}
