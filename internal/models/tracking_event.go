package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TrackingEvent is an append-only fulfilment record for an order.
// Ids are UUIDv7 so (created_at, id) is a stable insertion order.
type TrackingEvent struct {
	ID          string     `gorm:"type:varchar(36);primaryKey" json:"id"`
	OrderID     string     `gorm:"type:varchar(36);not null;index" json:"order_id"`
	Status      string     `gorm:"type:varchar(32);not null" json:"status"`
	Location    string     `json:"location,omitempty"`
	Description string     `json:"description,omitempty"`
	EstimatedAt *time.Time `json:"estimated_at,omitempty"`
	ActualAt    *time.Time `json:"actual_at,omitempty"`
	CreatedAt   time.Time  `gorm:"autoCreateTime;index" json:"created_at"`
}

func (e *TrackingEvent) BeforeCreate(tx *gorm.DB) error {
	if e.ID != "" {
		return nil
	}
	id, err := uuid.NewV7()
	if err != nil {
		return err
	}
	e.ID = id.String()
	return nil
}

// BeforeUpdate rejects every update: the tracking log is append-only.
func (e *TrackingEvent) BeforeUpdate(tx *gorm.DB) error {
	return ErrTrackingEventImmutable
}
