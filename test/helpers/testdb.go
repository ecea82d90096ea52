package helpers

import (
	"fmt"
	"testing"
	"time"

	"roastmarket_backend/internal/auth"
	"roastmarket_backend/internal/database"
	"roastmarket_backend/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const TestJWTSecret = "test-secret-for-roastmarket"

// NewTestDB opens a private in-memory SQLite database with the schema migrated.
func NewTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := database.Open("sqlite", dsn)
	require.NoError(t, err, "open test database")
	require.NoError(t, database.AutoMigrate(db), "migrate test database")

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

// NewTokenManager returns a token manager sharing the secret used by test servers.
func NewTokenManager() *auth.TokenManager {
	return auth.NewTokenManager(TestJWTSecret, time.Hour)
}

func IssueToken(t *testing.T, userID, role string) string {
	t.Helper()
	token, err := NewTokenManager().GenerateToken(userID, role)
	require.NoError(t, err)
	return token
}

func CreateOrder(t *testing.T, db *gorm.DB, buyerID, roasterID string) models.Order {
	t.Helper()
	order := models.Order{
		BuyerID:   buyerID,
		RoasterID: roasterID,
		Status:    models.OrderStatusConfirmed,
	}
	require.NoError(t, db.Create(&order).Error, "create test order")
	return order
}

// CreateNotification inserts a row directly, as an external collaborator would.
func CreateNotification(t *testing.T, db *gorm.DB, userID, title string) models.Notification {
	t.Helper()
	notification := models.Notification{
		UserID:  userID,
		Type:    models.NotificationTypeOrderUpdate,
		Title:   title,
		Message: title,
		Data:    datatypes.JSON(`{"source":"test"}`),
	}
	require.NoError(t, db.Create(&notification).Error, "create test notification")
	return notification
}
