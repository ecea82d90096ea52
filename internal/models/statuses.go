package models

type UserRole string
type NotificationType string
type OrderStatus string

const (
	UserRoleBuyer   UserRole = "buyer"
	UserRoleRoaster UserRole = "roaster"
	UserRoleAdmin   UserRole = "admin"

	NotificationTypeOrderPlaced     NotificationType = "order_placed"
	NotificationTypeOrderUpdate     NotificationType = "order_update"
	NotificationTypeOrderShipped    NotificationType = "order_shipped"
	NotificationTypeOrderDelivered  NotificationType = "order_delivered"
	NotificationTypeReviewReceived  NotificationType = "review_received"
	NotificationTypePaymentReceived NotificationType = "payment_received"
	NotificationTypeSystemAlert     NotificationType = "system_alert"
	NotificationTypeRoasterApproved NotificationType = "roaster_approved"
	NotificationTypeRoasterRejected NotificationType = "roaster_rejected"

	OrderStatusPending   OrderStatus = "pending"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusRoasting  OrderStatus = "roasting"
	OrderStatusShipped   OrderStatus = "shipped"
	OrderStatusInTransit OrderStatus = "in_transit"
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusCancelled OrderStatus = "cancelled"
)

var notificationTypes = map[NotificationType]struct{}{
	NotificationTypeOrderPlaced:     {},
	NotificationTypeOrderUpdate:     {},
	NotificationTypeOrderShipped:    {},
	NotificationTypeOrderDelivered:  {},
	NotificationTypeReviewReceived:  {},
	NotificationTypePaymentReceived: {},
	NotificationTypeSystemAlert:     {},
	NotificationTypeRoasterApproved: {},
	NotificationTypeRoasterRejected: {},
}

func (t NotificationType) Valid() bool {
	_, ok := notificationTypes[t]
	return ok
}

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusConfirmed, OrderStatusRoasting, OrderStatusShipped,
		OrderStatusInTransit, OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether no further status changes are accepted.
func (s OrderStatus) Terminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}
