package services

import (
	"time"

	"gorm.io/gorm"

	"roastmarket_backend/internal/repositories"
)

var timeNow = time.Now

// Metrics is everything the services report.
type Metrics interface {
	NotificationMetrics
	TrackingMetrics
}

// ServiceContainer holds the application services.
type ServiceContainer struct {
	NotificationService NotificationService
	TrackingService     TrackingService
}

func NewServiceContainer(db *gorm.DB, publisher RealtimePublisher, metrics Metrics) *ServiceContainer {
	notificationRepo := repositories.NewNotificationRepository(db)
	orderRepo := repositories.NewOrderRepository(db)
	trackingRepo := repositories.NewTrackingRepository(db)

	var notificationMetrics NotificationMetrics
	var trackingMetrics TrackingMetrics
	if metrics != nil {
		notificationMetrics = metrics
		trackingMetrics = metrics
	}

	notificationService := NewNotificationService(notificationRepo, publisher, notificationMetrics)
	return &ServiceContainer{
		NotificationService: notificationService,
		TrackingService:     NewTrackingService(orderRepo, trackingRepo, notificationService, publisher, trackingMetrics),
	}
}
