package ws

import (
	"context"
	"errors"
	"fmt"

	"roastmarket_backend/pkg/wsproto"
)

var (
	// ErrProtocol marks a well-formed frame that cannot be honoured.
	ErrProtocol          = errors.New("ws: protocol error")
	ErrNotAuthenticated  = errors.New("ws: not authenticated")
	ErrOrderAccessDenied = errors.New("ws: order access denied")
)

// OrderAccess decides whether a user may follow an order's live updates.
type OrderAccess interface {
	CanSubscribe(ctx context.Context, userID, role, orderID string) error
}

// OrderAccessFunc adapts a function to OrderAccess.
type OrderAccessFunc func(ctx context.Context, userID, role, orderID string) error

func (f OrderAccessFunc) CanSubscribe(ctx context.Context, userID, role, orderID string) error {
	return f(ctx, userID, role, orderID)
}

// SubscriptionManager records per-connection topic membership. The ack
// for a new membership is queued before the membership becomes visible,
// so a broadcast for that topic can never overtake its ack.
type SubscriptionManager struct {
	registry *Registry
	access   OrderAccess
}

func NewSubscriptionManager(registry *Registry, access OrderAccess) *SubscriptionManager {
	return &SubscriptionManager{registry: registry, access: access}
}

// SubscribeOrder reports whether a new membership was created.
func (s *SubscriptionManager) SubscribeOrder(ctx context.Context, c *Connection, orderID string) (bool, error) {
	if orderID == "" {
		return false, fmt.Errorf("%w: empty orderId", ErrProtocol)
	}

	c.mu.Lock()
	authenticated, userID, role := c.authenticated, c.userID, c.role
	_, member := c.orders[orderID]
	c.mu.Unlock()
	if !authenticated {
		return false, ErrNotAuthenticated
	}
	if member {
		return false, nil
	}

	if s.access != nil {
		if err := s.access.CanSubscribe(ctx, userID, role, orderID); err != nil {
			return false, fmt.Errorf("%w: %v", ErrOrderAccessDenied, err)
		}
	}

	ack, err := wsproto.EncodeServer(wsproto.OrderSubscribed{OrderID: orderID})
	if err != nil {
		return false, err
	}

	s.registry.mu.Lock()
	defer s.registry.mu.Unlock()
	if _, ok := s.registry.conns[c.ID]; !ok {
		return false, ErrConnectionClosed
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.orders[orderID]; ok {
		return false, nil
	}
	if err := c.enqueueLocked(ack); err != nil {
		return false, err
	}
	c.orders[orderID] = struct{}{}
	addToIndex(s.registry.byOrder, orderID, c)
	return true, nil
}

// SubscribeNotifications reports whether the feed was newly activated.
func (s *SubscriptionManager) SubscribeNotifications(c *Connection) (bool, error) {
	ack, err := wsproto.EncodeServer(wsproto.NotificationsSubscribed{})
	if err != nil {
		return false, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.authenticated {
		return false, ErrNotAuthenticated
	}
	if c.notifications {
		return false, nil
	}
	if err := c.enqueueLocked(ack); err != nil {
		return false, err
	}
	c.notifications = true
	return true, nil
}
