package dto

import "time"

type AppendTrackingEventRequest struct {
	Status      string     `json:"status" validate:"required,max=32"`
	Location    string     `json:"location" validate:"omitempty,max=255"`
	Description string     `json:"description" validate:"omitempty,max=1000"`
	EstimatedAt *time.Time `json:"estimated_at"`
	ActualAt    *time.Time `json:"actual_at"`
}

type UpdateOrderStatusRequest struct {
	Status string `json:"status" validate:"required,is-order-status"`
}

type TrackingEventResponse struct {
	ID          string     `json:"id"`
	OrderID     string     `json:"order_id"`
	Status      string     `json:"status"`
	Location    string     `json:"location,omitempty"`
	Description string     `json:"description,omitempty"`
	EstimatedAt *time.Time `json:"estimated_at,omitempty"`
	ActualAt    *time.Time `json:"actual_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

type TrackingListResponse struct {
	OrderID string                   `json:"order_id"`
	Events  []*TrackingEventResponse `json:"events"`
}

// StatusChange is both the HTTP response of a status update and the data
// of the status_change frame.
type StatusChange struct {
	OrderID        string `json:"orderId"`
	Status         string `json:"status"`
	PreviousStatus string `json:"previousStatus,omitempty"`
}
