package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"roastmarket_backend/internal/models"

	json "github.com/goccy/go-json"
	"gorm.io/gorm"
)

var (
	ErrNotificationNotFound    = errors.New("notification not found")
	ErrInvalidNotificationData = errors.New("invalid notification data")
	ErrIncompleteNotification  = errors.New("incomplete notification")
)

type NotificationRepository interface {
	CreateNotification(ctx context.Context, notification *models.Notification) error
	FindNotificationByID(ctx context.Context, id string) (*models.Notification, error)
	FindUserNotifications(ctx context.Context, userID string, criteria NotificationCriteria) ([]models.Notification, int64, error)
	MarkAsRead(ctx context.Context, notificationID string) error
	MarkAllAsRead(ctx context.Context, userID string) (int64, error)
	MarkMultipleAsRead(ctx context.Context, userID string, notificationIDs []string) (int64, error)
	DeleteNotification(ctx context.Context, id string) error
	DeleteUserNotifications(ctx context.Context, userID string) (int64, error)

	GetUserNotificationStats(ctx context.Context, userID string) (*NotificationStats, error)
	GetUnreadCount(ctx context.Context, userID string) (int64, error)

	CleanOldNotifications(ctx context.Context, olderThan time.Time) (int64, error)
}

type NotificationRepositoryImpl struct {
	db *gorm.DB
}

// NotificationCriteria filters a user's notification list.
type NotificationCriteria struct {
	UnreadOnly bool
	Type       models.NotificationType
	Page       int
	PageSize   int
}

type NotificationStats struct {
	TotalNotifications int64            `json:"total_notifications"`
	UnreadCount        int64            `json:"unread_count"`
	ReadCount          int64            `json:"read_count"`
	ByType             map[string]int64 `json:"by_type"`
	TodayCount         int64            `json:"today_count"`
	ThisWeekCount      int64            `json:"this_week_count"`
}

func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &NotificationRepositoryImpl{db: db}
}

func (r *NotificationRepositoryImpl) CreateNotification(ctx context.Context, notification *models.Notification) error {
	if err := validateNotification(notification); err != nil {
		return err
	}
	// a new notification is always unread
	notification.IsRead = false
	notification.ReadAt = nil

	return r.db.WithContext(ctx).Create(notification).Error
}

func (r *NotificationRepositoryImpl) FindNotificationByID(ctx context.Context, id string) (*models.Notification, error) {
	var notification models.Notification
	err := r.db.WithContext(ctx).First(&notification, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotificationNotFound
		}
		return nil, err
	}
	return &notification, nil
}

func (r *NotificationRepositoryImpl) FindUserNotifications(ctx context.Context, userID string, criteria NotificationCriteria) ([]models.Notification, int64, error) {
	var notifications []models.Notification
	query := r.db.WithContext(ctx).Model(&models.Notification{}).Where("user_id = ?", userID)

	if criteria.UnreadOnly {
		query = query.Where("is_read = ?", false)
	}
	if criteria.Type != "" {
		query = query.Where("type = ?", criteria.Type)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if criteria.Page < 1 {
		criteria.Page = 1
	}
	if criteria.PageSize < 1 {
		criteria.PageSize = 20
	}
	offset := (criteria.Page - 1) * criteria.PageSize

	err := query.Order("created_at DESC").Order("id DESC").
		Limit(criteria.PageSize).Offset(offset).
		Find(&notifications).Error

	return notifications, total, err
}

// MarkAsRead is idempotent: an already read notification keeps its original ReadAt.
func (r *NotificationRepositoryImpl) MarkAsRead(ctx context.Context, notificationID string) error {
	db := r.db.WithContext(ctx)
	result := db.Model(&models.Notification{}).
		Where("id = ? AND is_read = ?", notificationID, false).
		Updates(map[string]interface{}{
			"is_read": true,
			"read_at": time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected > 0 {
		return nil
	}

	var count int64
	if err := db.Model(&models.Notification{}).Where("id = ?", notificationID).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return ErrNotificationNotFound
	}
	return nil
}

func (r *NotificationRepositoryImpl) MarkAllAsRead(ctx context.Context, userID string) (int64, error) {
	result := r.db.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Updates(map[string]interface{}{
			"is_read": true,
			"read_at": time.Now(),
		})
	return result.RowsAffected, result.Error
}

// MarkMultipleAsRead only touches notifications owned by userID.
func (r *NotificationRepositoryImpl) MarkMultipleAsRead(ctx context.Context, userID string, notificationIDs []string) (int64, error) {
	if len(notificationIDs) == 0 {
		return 0, nil
	}

	result := r.db.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND id IN ? AND is_read = ?", userID, notificationIDs, false).
		Updates(map[string]interface{}{
			"is_read": true,
			"read_at": time.Now(),
		})
	return result.RowsAffected, result.Error
}

func (r *NotificationRepositoryImpl) DeleteNotification(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Notification{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotificationNotFound
	}
	return nil
}

func (r *NotificationRepositoryImpl) DeleteUserNotifications(ctx context.Context, userID string) (int64, error) {
	result := r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.Notification{})
	return result.RowsAffected, result.Error
}

func (r *NotificationRepositoryImpl) GetUserNotificationStats(ctx context.Context, userID string) (*NotificationStats, error) {
	var stats NotificationStats
	db := r.db.WithContext(ctx)
	now := time.Now()
	todayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	weekStart := todayStart.AddDate(0, 0, -int(todayStart.Weekday()))

	if err := db.Model(&models.Notification{}).Where("user_id = ?", userID).
		Count(&stats.TotalNotifications).Error; err != nil {
		return nil, err
	}

	unread, err := r.GetUnreadCount(ctx, userID)
	if err != nil {
		return nil, err
	}
	stats.UnreadCount = unread
	stats.ReadCount = stats.TotalNotifications - stats.UnreadCount

	if err := db.Model(&models.Notification{}).Where("user_id = ? AND created_at >= ?", userID, todayStart).
		Count(&stats.TodayCount).Error; err != nil {
		return nil, err
	}

	if err := db.Model(&models.Notification{}).Where("user_id = ? AND created_at >= ?", userID, weekStart).
		Count(&stats.ThisWeekCount).Error; err != nil {
		return nil, err
	}

	stats.ByType = make(map[string]int64)
	var typeStats []struct {
		Type  string
		Count int64
	}
	err = db.Model(&models.Notification{}).Where("user_id = ?", userID).
		Select("type, COUNT(*) as count").
		Group("type").Scan(&typeStats).Error
	if err != nil {
		return nil, err
	}
	for _, ts := range typeStats {
		stats.ByType[ts.Type] = ts.Count
	}

	return &stats, nil
}

// GetUnreadCount is always derived from the rows, never cached.
func (r *NotificationRepositoryImpl) GetUnreadCount(ctx context.Context, userID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Count(&count).Error
	return count, err
}

// CleanOldNotifications removes read notifications created before olderThan.
func (r *NotificationRepositoryImpl) CleanOldNotifications(ctx context.Context, olderThan time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("is_read = ? AND created_at < ?", true, olderThan).
		Delete(&models.Notification{})
	return result.RowsAffected, result.Error
}

func validateNotification(notification *models.Notification) error {
	if notification.UserID == "" {
		return fmt.Errorf("%w: user ID is required", ErrIncompleteNotification)
	}
	if notification.Title == "" {
		return fmt.Errorf("%w: notification title is required", ErrIncompleteNotification)
	}
	if !notification.Type.Valid() {
		return fmt.Errorf("%w: invalid notification type %q", ErrIncompleteNotification, notification.Type)
	}
	if len(notification.Data) > 0 && !json.Valid(notification.Data) {
		return ErrInvalidNotificationData
	}
	return nil
}
