package services_test

import (
	"sync"

	"roastmarket_backend/ws"
)

type publishedEvent struct {
	kind    string
	target  string
	payload any
}

// recordingPublisher captures pushes instead of sending them.
type recordingPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (p *recordingPublisher) record(kind, target string, payload any) (ws.DeliveryReport, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{kind: kind, target: target, payload: payload})
	return ws.DeliveryReport{Targets: 1, Delivered: 1}, nil
}

func (p *recordingPublisher) PublishTrackingUpdate(orderID string, event any) (ws.DeliveryReport, error) {
	return p.record("tracking_update", orderID, event)
}

func (p *recordingPublisher) PublishStatusChange(orderID string, change any) (ws.DeliveryReport, error) {
	return p.record("status_change", orderID, change)
}

func (p *recordingPublisher) PublishNotification(userID string, notification any) (ws.DeliveryReport, error) {
	return p.record("notification", userID, notification)
}

func (p *recordingPublisher) kinds() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.kind)
	}
	return out
}
