package workers

import (
	"context"
	"time"

	"roastmarket_backend/internal/logger"
)

const notificationWorkerName = "notification_cleanup"

// NotificationCleaner is satisfied by services.NotificationService.
type NotificationCleaner interface {
	CleanOldNotifications(ctx context.Context, days int) (int64, error)
}

// NotificationWorker periodically removes read notifications older than
// the retention window. Unread notifications are never removed.
type NotificationWorker struct {
	cleaner       NotificationCleaner
	retentionDays int
	interval      time.Duration
}

func NewNotificationWorker(cleaner NotificationCleaner, retentionDays int, interval time.Duration) *NotificationWorker {
	return &NotificationWorker{
		cleaner:       cleaner,
		retentionDays: retentionDays,
		interval:      interval,
	}
}

// Start runs the worker in a goroutine until ctx is cancelled.
func (w *NotificationWorker) Start(ctx context.Context) {
	go w.Run(ctx)
}

// Run blocks until ctx is cancelled, cleaning once per interval.
func (w *NotificationWorker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("Notification worker stopped")
			return
		case <-ticker.C:
			w.RunOnce(ctx)
		}
	}
}

// RunOnce performs a single cleanup pass.
func (w *NotificationWorker) RunOnce(ctx context.Context) int64 {
	deleted, err := w.cleaner.CleanOldNotifications(ctx, w.retentionDays)
	logger.WorkerLog(notificationWorkerName, "clean_old_notifications", deleted, err)
	return deleted
}
