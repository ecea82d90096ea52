package validator

import (
	"fmt"

	"roastmarket_backend/internal/models"

	"github.com/go-playground/validator/v10"
)

// registerCustomRules registers the domain tags used by request DTOs.
func registerCustomRules(v *validator.Validate) error {
	rules := map[string]validator.Func{
		"is-notification-type": validateNotificationType,
		"is-order-status":      validateOrderStatus,
	}
	for tag, fn := range rules {
		if err := v.RegisterValidation(tag, fn); err != nil {
			return fmt.Errorf("register validation tag %q: %w", tag, err)
		}
	}
	return nil
}

// Empty values pass; use 'required' for presence.

func validateNotificationType(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true
	}
	return models.NotificationType(value).Valid()
}

func validateOrderStatus(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true
	}
	return models.OrderStatus(value).Valid()
}
