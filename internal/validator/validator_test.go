package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type notificationForm struct {
	Type   string `json:"type" validate:"required,is-notification-type"`
	Status string `json:"status" validate:"omitempty,is-order-status"`
	Title  string `json:"title" validate:"required,max=5"`
}

type cleanupForm struct {
	Days int `form:"days" validate:"required,min=1"`
}

func TestValidate_CustomTags(t *testing.T) {
	v := New()

	assert.NoError(t, v.Validate(&notificationForm{Type: "order_shipped", Status: "roasting", Title: "Hi"}))

	err := v.Validate(&notificationForm{Type: "carrier_pigeon", Status: "lost", Title: "Too long"})
	require.Error(t, err)

	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, map[string]string{
		"type":   "Unknown notification type",
		"status": "Unknown order status",
		"title":  "Must be at most 5",
	}, vErr.Errors)
}

func TestValidate_FieldNamesFromFormTag(t *testing.T) {
	err := New().Validate(&cleanupForm{})

	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "This field is required", vErr.Errors["days"])
}

func TestValidationError_MessageIsStable(t *testing.T) {
	err := &ValidationError{Errors: map[string]string{"b": "second", "a": "first"}}
	assert.Equal(t, err.Error(), (&ValidationError{Errors: map[string]string{"a": "first", "b": "second"}}).Error())
	assert.Equal(t, "validation failed: field 'a': first; field 'b': second", err.Error())
}
