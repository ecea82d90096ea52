package services

import (
	"context"
	"errors"
	"fmt"

	"roastmarket_backend/internal/auth"
	"roastmarket_backend/internal/logger"
	"roastmarket_backend/internal/models"
	"roastmarket_backend/internal/repositories"
	"roastmarket_backend/internal/services/dto"
	"roastmarket_backend/pkg/apperrors"
)

// Actor is the authenticated caller of a service operation.
type Actor struct {
	UserID string
	Role   string
}

type TrackingMetrics interface {
	ObserveTrackingEventAppended()
}

type TrackingService interface {
	AppendTrackingEvent(ctx context.Context, actor Actor, orderID string, req *dto.AppendTrackingEventRequest) (*dto.TrackingEventResponse, error)
	ListTrackingEvents(ctx context.Context, actor Actor, orderID string) (*dto.TrackingListResponse, error)
	UpdateOrderStatus(ctx context.Context, actor Actor, orderID string, status models.OrderStatus) (*dto.StatusChange, error)

	// CanSubscribe gates live order subscriptions on the realtime channel.
	CanSubscribe(ctx context.Context, userID, role, orderID string) error
}

type trackingService struct {
	orderRepo     repositories.OrderRepository
	trackingRepo  repositories.TrackingRepository
	notifications NotificationService
	publisher     RealtimePublisher
	metrics       TrackingMetrics
}

func NewTrackingService(
	orderRepo repositories.OrderRepository,
	trackingRepo repositories.TrackingRepository,
	notifications NotificationService,
	publisher RealtimePublisher,
	metrics TrackingMetrics,
) TrackingService {
	return &trackingService{
		orderRepo:     orderRepo,
		trackingRepo:  trackingRepo,
		notifications: notifications,
		publisher:     publisher,
		metrics:       metrics,
	}
}

// AppendTrackingEvent records a fulfilment step and pushes tracking_update
// to everyone following the order.
func (s *trackingService) AppendTrackingEvent(ctx context.Context, actor Actor, orderID string, req *dto.AppendTrackingEventRequest) (*dto.TrackingEventResponse, error) {
	order, err := s.findOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !auth.CanManageOrder(actor.UserID, actor.Role, order.RoasterID) {
		return nil, apperrors.ErrOrderAccessDenied
	}
	if order.Status == models.OrderStatusCancelled {
		return nil, apperrors.ErrInvalidOrderStatus
	}

	event := &models.TrackingEvent{
		OrderID:     order.ID,
		Status:      req.Status,
		Location:    req.Location,
		Description: req.Description,
		EstimatedAt: req.EstimatedAt,
		ActualAt:    req.ActualAt,
	}
	if err := s.trackingRepo.Append(ctx, event); err != nil {
		return nil, apperrors.DatabaseError(err)
	}
	if s.metrics != nil {
		s.metrics.ObserveTrackingEventAppended()
	}

	resp := buildTrackingEventResponse(event)
	if s.publisher != nil {
		report, err := s.publisher.PublishTrackingUpdate(order.ID, resp)
		if err != nil {
			logger.CtxWithError(ctx, "tracking push failed", err, "order_id", order.ID)
		} else {
			logger.CtxDebug(ctx, "tracking update pushed", "order_id", order.ID, "delivered", report.Delivered)
		}
	}
	return resp, nil
}

func (s *trackingService) ListTrackingEvents(ctx context.Context, actor Actor, orderID string) (*dto.TrackingListResponse, error) {
	order, err := s.findOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !auth.CanViewOrder(actor.UserID, actor.Role, order.BuyerID, order.RoasterID) {
		return nil, apperrors.ErrOrderAccessDenied
	}

	events, err := s.trackingRepo.ListByOrder(ctx, order.ID)
	if err != nil {
		return nil, apperrors.DatabaseError(err)
	}

	resp := &dto.TrackingListResponse{OrderID: order.ID, Events: make([]*dto.TrackingEventResponse, 0, len(events))}
	for i := range events {
		resp.Events = append(resp.Events, buildTrackingEventResponse(&events[i]))
	}
	return resp, nil
}

// UpdateOrderStatus moves the order to status, pushes status_change to the
// order's followers and notifies the buyer.
func (s *trackingService) UpdateOrderStatus(ctx context.Context, actor Actor, orderID string, status models.OrderStatus) (*dto.StatusChange, error) {
	if !status.Valid() {
		return nil, apperrors.ErrInvalidOperation("order", fmt.Sprintf("unknown order status %q", status))
	}

	order, err := s.findOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !auth.CanManageOrder(actor.UserID, actor.Role, order.RoasterID) {
		return nil, apperrors.ErrOrderAccessDenied
	}
	if order.Status == status {
		return &dto.StatusChange{OrderID: order.ID, Status: string(status), PreviousStatus: string(status)}, nil
	}
	if order.Status.Terminal() {
		return nil, apperrors.ErrInvalidOrderStatus
	}

	previous, err := s.orderRepo.UpdateStatus(ctx, order.ID, status)
	if err != nil {
		return nil, s.mapOrderError(err)
	}

	change := &dto.StatusChange{OrderID: order.ID, Status: string(status), PreviousStatus: string(previous)}
	if s.publisher != nil {
		if _, err := s.publisher.PublishStatusChange(order.ID, change); err != nil {
			logger.CtxWithError(ctx, "status change push failed", err, "order_id", order.ID)
		}
	}

	if s.notifications != nil {
		_, err := s.notifications.CreateNotification(ctx, buyerStatusNotification(order, change))
		if err != nil {
			// the status change is already committed
			logger.CtxWithError(ctx, "buyer notification failed", err, "order_id", order.ID)
		}
	}

	logger.CtxInfo(ctx, "order status updated",
		"order_id", order.ID, "status", change.Status, "previous_status", change.PreviousStatus)
	return change, nil
}

func (s *trackingService) CanSubscribe(ctx context.Context, userID, role, orderID string) error {
	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return err
	}
	if !auth.CanViewOrder(userID, role, order.BuyerID, order.RoasterID) {
		return apperrors.ErrOrderAccessDenied
	}
	return nil
}

func (s *trackingService) findOrder(ctx context.Context, orderID string) (*models.Order, error) {
	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, s.mapOrderError(err)
	}
	return order, nil
}

func (s *trackingService) mapOrderError(err error) error {
	if errors.Is(err, repositories.ErrOrderNotFound) {
		return apperrors.ErrOrderNotFound
	}
	return apperrors.DatabaseError(err)
}

func buyerStatusNotification(order *models.Order, change *dto.StatusChange) *dto.CreateNotificationRequest {
	notificationType := models.NotificationTypeOrderUpdate
	title := "Order updated"
	switch models.OrderStatus(change.Status) {
	case models.OrderStatusShipped:
		notificationType = models.NotificationTypeOrderShipped
		title = "Order shipped"
	case models.OrderStatusDelivered:
		notificationType = models.NotificationTypeOrderDelivered
		title = "Order delivered"
	}

	return &dto.CreateNotificationRequest{
		UserID:  order.BuyerID,
		Type:    string(notificationType),
		Title:   title,
		Message: fmt.Sprintf("Order %s is now %s", order.ID, change.Status),
		Data: map[string]interface{}{
			"order_id":        order.ID,
			"status":          change.Status,
			"previous_status": change.PreviousStatus,
		},
	}
}

func buildTrackingEventResponse(e *models.TrackingEvent) *dto.TrackingEventResponse {
	return &dto.TrackingEventResponse{
		ID:          e.ID,
		OrderID:     e.OrderID,
		Status:      e.Status,
		Location:    e.Location,
		Description: e.Description,
		EstimatedAt: e.EstimatedAt,
		ActualAt:    e.ActualAt,
		CreatedAt:   e.CreatedAt,
	}
}
