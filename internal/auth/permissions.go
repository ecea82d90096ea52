package auth

import "errors"

const (
	RoleBuyer   = "buyer"
	RoleRoaster = "roaster"
	RoleAdmin   = "admin"
)

const (
	PermNotificationsCreate = "notifications:create"
	PermTrackingAppend      = "tracking:append"
	PermOrderStatusWrite    = "orders:status:write"
	PermRealtimeStats       = "realtime:stats"
)

// Permissions maps a role to the actions it may perform on any order.
// Roasters additionally act on their own orders; see CanManageOrder.
var Permissions = map[string][]string{
	RoleAdmin: {
		PermNotificationsCreate,
		PermTrackingAppend,
		PermOrderStatusWrite,
		PermRealtimeStats,
	},
	RoleRoaster: {},
	RoleBuyer:   {},
}

func HasPermission(role, permission string) bool {
	permissions, exists := Permissions[role]
	if !exists {
		return false
	}

	for _, p := range permissions {
		if p == permission {
			return true
		}
	}
	return false
}

// CanViewOrder reports whether the caller may read an order's tracking log
// or subscribe to its live updates.
func CanViewOrder(userID, role, buyerID, roasterID string) bool {
	if role == RoleAdmin {
		return true
	}
	return userID != "" && (userID == buyerID || userID == roasterID)
}

// CanManageOrder reports whether the caller may append tracking events or
// change the status of an order.
func CanManageOrder(userID, role, roasterID string) bool {
	if HasPermission(role, PermTrackingAppend) {
		return true
	}
	return role == RoleRoaster && userID != "" && userID == roasterID
}

func ValidateRole(role string) error {
	switch role {
	case RoleAdmin, RoleBuyer, RoleRoaster:
		return nil
	default:
		return errors.New("invalid role")
	}
}
