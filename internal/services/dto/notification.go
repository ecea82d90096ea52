package dto

import (
	"time"

	"roastmarket_backend/internal/models"
)

// ---------------- Requests ----------------

type CreateNotificationRequest struct {
	UserID  string                 `json:"user_id" validate:"required,max=36"`
	Type    string                 `json:"type" validate:"required,is-notification-type"`
	Title   string                 `json:"title" validate:"required,max=100"`
	Message string                 `json:"message" validate:"omitempty,max=1000"`
	Data    map[string]interface{} `json:"data"`
}

type MarkMultipleReadRequest struct {
	NotificationIDs []string `json:"notification_ids" validate:"required,min=1,max=100,dive,required"`
}

type CleanupQuery struct {
	Days int `form:"days" validate:"required,min=1,max=3650"`
}

// ---------------- Responses ----------------

type NotificationResponse struct {
	ID        string                 `json:"id"`
	UserID    string                 `json:"user_id"`
	Type      string                 `json:"type"`
	Title     string                 `json:"title"`
	Message   string                 `json:"message"`
	Data      map[string]interface{} `json:"data,omitempty"`
	IsRead    bool                   `json:"is_read"`
	ReadAt    *time.Time             `json:"read_at,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
	UpdatedAt time.Time              `json:"updated_at"`
}

type NotificationListResponse struct {
	Notifications []*NotificationResponse `json:"notifications"`
	Total         int64                   `json:"total"`
	Page          int                     `json:"page"`
	PageSize      int                     `json:"page_size"`
	TotalPages    int                     `json:"total_pages"`
}

type UnreadCountResponse struct {
	UnreadCount int64 `json:"unread_count"`
}

// ---------------- Criteria ----------------

type NotificationCriteria struct {
	Page       int
	PageSize   int
	UnreadOnly bool
	Type       models.NotificationType
}
