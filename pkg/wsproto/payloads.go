package wsproto

import (
	"fmt"
	"time"

	json "github.com/goccy/go-json"
)

// TrackingEventPayload is the data of a tracking_update frame.
type TrackingEventPayload struct {
	ID          string     `json:"id"`
	OrderID     string     `json:"order_id"`
	Status      string     `json:"status"`
	Location    string     `json:"location,omitempty"`
	Description string     `json:"description,omitempty"`
	EstimatedAt *time.Time `json:"estimated_at,omitempty"`
	ActualAt    *time.Time `json:"actual_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// NotificationPayload is the data of a notification frame.
type NotificationPayload struct {
	ID        string          `json:"id"`
	UserID    string          `json:"user_id"`
	Type      string          `json:"type"`
	Title     string          `json:"title"`
	Message   string          `json:"message"`
	Data      json.RawMessage `json:"data,omitempty"`
	IsRead    bool            `json:"is_read"`
	CreatedAt time.Time       `json:"created_at"`
}

// StatusChangePayload is the data of a status_change frame.
type StatusChangePayload struct {
	OrderID        string `json:"orderId"`
	Status         string `json:"status"`
	PreviousStatus string `json:"previousStatus,omitempty"`
}

// DecodeData unmarshals a frame's data field into v.
func DecodeData(data json.RawMessage, v any) error {
	if len(data) == 0 {
		return ErrParse
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %v", ErrParse, err)
	}
	return nil
}
