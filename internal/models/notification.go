package models

import (
	"time"

	"gorm.io/datatypes"
)

// Notification is a durable, user-owned record. IsRead only ever moves false -> true.
type Notification struct {
	BaseModel
	UserID  string           `gorm:"type:varchar(36);not null;index:idx_notifications_user_read,priority:1" json:"user_id"`
	Type    NotificationType `gorm:"type:varchar(32);not null" json:"type"`
	Title   string           `gorm:"not null" json:"title"`
	Message string           `json:"message"`
	Data    datatypes.JSON   `json:"data,omitempty"` // {"order_id": "...", "status": "..."}
	IsRead  bool             `gorm:"not null;default:false;index:idx_notifications_user_read,priority:2" json:"is_read"`
	ReadAt  *time.Time       `json:"read_at,omitempty"`
}
