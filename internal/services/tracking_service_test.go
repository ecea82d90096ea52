package services_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"roastmarket_backend/internal/auth"
	"roastmarket_backend/internal/models"
	"roastmarket_backend/internal/repositories"
	"roastmarket_backend/internal/services"
	"roastmarket_backend/internal/services/dto"
	"roastmarket_backend/pkg/apperrors"
	"roastmarket_backend/test/helpers"
)

type trackingFixture struct {
	svc           services.TrackingService
	notifications services.NotificationService
	publisher     *recordingPublisher
	order         models.Order
	buyer         services.Actor
	roaster       services.Actor
	stranger      services.Actor
	admin         services.Actor
}

func newTrackingFixture(t *testing.T) *trackingFixture {
	t.Helper()
	db := helpers.NewTestDB(t)
	publisher := &recordingPublisher{}
	container := services.NewServiceContainer(db, publisher, nil)

	return &trackingFixture{
		svc:           container.TrackingService,
		notifications: container.NotificationService,
		publisher:     publisher,
		order:         helpers.CreateOrder(t, db, "buyer-1", "roaster-1"),
		buyer:         services.Actor{UserID: "buyer-1", Role: auth.RoleBuyer},
		roaster:       services.Actor{UserID: "roaster-1", Role: auth.RoleRoaster},
		stranger:      services.Actor{UserID: "roaster-2", Role: auth.RoleRoaster},
		admin:         services.Actor{UserID: "admin-1", Role: auth.RoleAdmin},
	}
}

func TestTrackingService_AppendAndList(t *testing.T) {
	ctx := context.Background()
	f := newTrackingFixture(t)

	for _, status := range []string{"label_created", "picked_up"} {
		_, err := f.svc.AppendTrackingEvent(ctx, f.roaster, f.order.ID, &dto.AppendTrackingEventRequest{Status: status, Location: "Portland"})
		require.NoError(t, err)
	}
	assert.Equal(t, []string{"tracking_update", "tracking_update"}, f.publisher.kinds())
	assert.Equal(t, f.order.ID, f.publisher.events[0].target)

	list, err := f.svc.ListTrackingEvents(ctx, f.buyer, f.order.ID)
	require.NoError(t, err)
	require.Len(t, list.Events, 2)
	assert.Equal(t, "label_created", list.Events[0].Status)
	assert.Equal(t, "picked_up", list.Events[1].Status)
}

func TestTrackingService_AccessRules(t *testing.T) {
	ctx := context.Background()
	f := newTrackingFixture(t)
	req := &dto.AppendTrackingEventRequest{Status: "picked_up"}

	_, err := f.svc.AppendTrackingEvent(ctx, f.buyer, f.order.ID, req)
	assert.ErrorIs(t, err, apperrors.ErrOrderAccessDenied)
	_, err = f.svc.AppendTrackingEvent(ctx, f.stranger, f.order.ID, req)
	assert.ErrorIs(t, err, apperrors.ErrOrderAccessDenied)
	_, err = f.svc.AppendTrackingEvent(ctx, f.admin, f.order.ID, req)
	assert.NoError(t, err)

	_, err = f.svc.ListTrackingEvents(ctx, f.stranger, f.order.ID)
	assert.ErrorIs(t, err, apperrors.ErrOrderAccessDenied)
	_, err = f.svc.ListTrackingEvents(ctx, f.buyer, "missing")
	assert.ErrorIs(t, err, apperrors.ErrOrderNotFound)

	assert.NoError(t, f.svc.CanSubscribe(ctx, f.buyer.UserID, f.buyer.Role, f.order.ID))
	assert.NoError(t, f.svc.CanSubscribe(ctx, f.admin.UserID, f.admin.Role, f.order.ID))
	assert.Error(t, f.svc.CanSubscribe(ctx, f.stranger.UserID, f.stranger.Role, f.order.ID))
	assert.ErrorIs(t, f.svc.CanSubscribe(ctx, f.buyer.UserID, f.buyer.Role, "missing"), repositories.ErrOrderNotFound)
}

func TestTrackingService_UpdateStatusBroadcastsAndNotifiesBuyer(t *testing.T) {
	ctx := context.Background()
	f := newTrackingFixture(t)

	change, err := f.svc.UpdateOrderStatus(ctx, f.roaster, f.order.ID, models.OrderStatusShipped)
	require.NoError(t, err)
	assert.Equal(t, &dto.StatusChange{OrderID: f.order.ID, Status: "shipped", PreviousStatus: "confirmed"}, change)
	assert.Equal(t, []string{"status_change", "notification"}, f.publisher.kinds())
	assert.Equal(t, "buyer-1", f.publisher.events[1].target)

	list, err := f.notifications.GetUserNotifications(ctx, "buyer-1", dto.NotificationCriteria{})
	require.NoError(t, err)
	require.Len(t, list.Notifications, 1)
	assert.Equal(t, string(models.NotificationTypeOrderShipped), list.Notifications[0].Type)
	assert.Equal(t, f.order.ID, list.Notifications[0].Data["order_id"])
}

func TestTrackingService_UpdateStatusRules(t *testing.T) {
	ctx := context.Background()
	f := newTrackingFixture(t)

	_, err := f.svc.UpdateOrderStatus(ctx, f.roaster, f.order.ID, "teleported")
	assert.Error(t, err)

	_, err = f.svc.UpdateOrderStatus(ctx, f.buyer, f.order.ID, models.OrderStatusDelivered)
	assert.ErrorIs(t, err, apperrors.ErrOrderAccessDenied)

	// same status is a no-op without pushes
	_, err = f.svc.UpdateOrderStatus(ctx, f.roaster, f.order.ID, models.OrderStatusConfirmed)
	require.NoError(t, err)
	assert.Empty(t, f.publisher.kinds())

	_, err = f.svc.UpdateOrderStatus(ctx, f.roaster, f.order.ID, models.OrderStatusCancelled)
	require.NoError(t, err)
	_, err = f.svc.UpdateOrderStatus(ctx, f.roaster, f.order.ID, models.OrderStatusShipped)
	assert.ErrorIs(t, err, apperrors.ErrInvalidOrderStatus)
	_, err = f.svc.AppendTrackingEvent(ctx, f.roaster, f.order.ID, &dto.AppendTrackingEventRequest{Status: "picked_up"})
	assert.ErrorIs(t, err, apperrors.ErrInvalidOrderStatus)
}
