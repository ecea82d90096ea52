package repositories

import (
	"context"
	"errors"

	"roastmarket_backend/internal/models"

	"gorm.io/gorm"
)

// TrackingRepository is append-only: there is no update or delete.
type TrackingRepository interface {
	Append(ctx context.Context, event *models.TrackingEvent) error
	ListByOrder(ctx context.Context, orderID string) ([]models.TrackingEvent, error)
}

type trackingRepository struct {
	db *gorm.DB
}

func NewTrackingRepository(db *gorm.DB) TrackingRepository {
	return &trackingRepository{db: db}
}

func (r *trackingRepository) Append(ctx context.Context, event *models.TrackingEvent) error {
	if event.OrderID == "" {
		return errors.New("order ID is required")
	}
	if event.Status == "" {
		return errors.New("tracking status is required")
	}
	return r.db.WithContext(ctx).Create(event).Error
}

// ListByOrder returns events oldest first; UUIDv7 ids break created_at ties.
func (r *trackingRepository) ListByOrder(ctx context.Context, orderID string) ([]models.TrackingEvent, error) {
	var events []models.TrackingEvent
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC").Order("id ASC").
		Find(&events).Error
	return events, err
}
