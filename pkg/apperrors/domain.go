package apperrors

import "net/http"

// ErrNotFound wraps a repository "not found" error.
func ErrNotFound(err error, domain, message string) *AppError {
	return Wrap(err, CodeNotFound, domain, message, http.StatusNotFound)
}

// ErrInvalidOperation is a 400 for operations that make no sense in the current state.
func ErrInvalidOperation(domain, message string) *AppError {
	return New(CodeInvalidOperation, domain, message, http.StatusBadRequest)
}

// ErrInvalidStatus is a 409 for illegal status transitions.
func ErrInvalidStatus(domain, message string) *AppError {
	return New(CodeInvalidStatus, domain, message, http.StatusConflict)
}

// --- Auth ---

var ErrInsufficientPermissions = New(
	CodeForbidden,
	"auth",
	"Insufficient permissions",
	http.StatusForbidden,
)

var ErrInvalidToken = New(
	CodeInvalidToken,
	"auth",
	"Invalid or expired token",
	http.StatusUnauthorized,
)

var ErrTokenExpired = New(
	CodeTokenExpired,
	"auth",
	"Token has expired",
	http.StatusUnauthorized,
)

// --- Notifications ---

var ErrNotificationNotFound = New(
	CodeNotFound,
	"notification",
	"Notification not found",
	http.StatusNotFound,
)

var ErrNotificationAccessDenied = New(
	CodeForbidden,
	"notification",
	"Access to notification denied",
	http.StatusForbidden,
)

var ErrInvalidNotificationType = New(
	CodeValidationFailed,
	"notification",
	"Invalid notification type",
	http.StatusBadRequest,
)

// --- Orders & tracking ---

var ErrOrderNotFound = New(
	CodeNotFound,
	"order",
	"Order not found",
	http.StatusNotFound,
)

var ErrOrderAccessDenied = New(
	CodeForbidden,
	"order",
	"Access to order denied",
	http.StatusForbidden,
)

var ErrInvalidOrderStatus = New(
	CodeInvalidStatus,
	"order",
	"Operation not allowed for the current order status",
	http.StatusConflict,
)
