package ws

import (
	"log/slog"

	json "github.com/goccy/go-json"

	"roastmarket_backend/pkg/wsproto"
)

// DeliveryReport summarises one fan-out.
type DeliveryReport struct {
	Targets   int `json:"targets"`
	Delivered int `json:"delivered"`
	Missed    int `json:"missed"`
}

// Broadcaster serialises an event once and queues it on every matching
// connection without blocking. A connection whose queue is full is
// evicted so that it reconnects and pulls what it missed.
type Broadcaster struct {
	registry *Registry
	evict    func(c *Connection, code int, reason string)
	metrics  Metrics
	log      *slog.Logger
}

func NewBroadcaster(registry *Registry, evict func(*Connection, int, string), metrics Metrics, log *slog.Logger) *Broadcaster {
	if metrics == nil {
		metrics = NopMetrics{}
	}
	if log == nil {
		log = slog.Default()
	}
	return &Broadcaster{registry: registry, evict: evict, metrics: metrics, log: log}
}

// PublishTrackingUpdate sends a tracking_update to every connection subscribed to orderID.
func (b *Broadcaster) PublishTrackingUpdate(orderID string, event any) (DeliveryReport, error) {
	return b.publishOrder(orderID, event, func(data json.RawMessage) wsproto.ServerFrame {
		return wsproto.TrackingUpdate{Data: data}
	})
}

// PublishStatusChange sends a status_change to every connection subscribed to orderID.
func (b *Broadcaster) PublishStatusChange(orderID string, change any) (DeliveryReport, error) {
	return b.publishOrder(orderID, change, func(data json.RawMessage) wsproto.ServerFrame {
		return wsproto.StatusChange{Data: data}
	})
}

// PublishNotification sends a notification to userID's connections that
// have the notifications feed active.
func (b *Broadcaster) PublishNotification(userID string, notification any) (DeliveryReport, error) {
	msg, err := encodeDataFrame(notification, func(data json.RawMessage) wsproto.ServerFrame {
		return wsproto.Notification{Data: data}
	})
	if err != nil {
		return DeliveryReport{}, err
	}

	report := b.fanOut(b.registry.UserConnections(userID), msg, func(c *Connection) bool {
		return c.authenticated && c.userID == userID && c.notifications
	})
	b.metrics.ObserveBroadcast(wsproto.TypeNotification, report)
	b.log.Debug("notification broadcast", "user_id", userID,
		"targets", report.Targets, "delivered", report.Delivered, "missed", report.Missed)
	return report, nil
}

func (b *Broadcaster) publishOrder(orderID string, payload any, wrap func(json.RawMessage) wsproto.ServerFrame) (DeliveryReport, error) {
	msg, err := encodeDataFrame(payload, wrap)
	if err != nil {
		return DeliveryReport{}, err
	}
	frameType := wrap(nil).FrameType()

	report := b.fanOut(b.registry.OrderConnections(orderID), msg, func(c *Connection) bool {
		_, ok := c.orders[orderID]
		return c.authenticated && ok
	})
	b.metrics.ObserveBroadcast(frameType, report)
	b.log.Debug("order broadcast", "frame", frameType, "order_id", orderID,
		"targets", report.Targets, "delivered", report.Delivered, "missed", report.Missed)
	return report, nil
}

// fanOut queues msg on every target still matching the filter. The filter
// runs under the connection lock.
func (b *Broadcaster) fanOut(targets []*Connection, msg []byte, match func(*Connection) bool) DeliveryReport {
	var report DeliveryReport
	var missed []*Connection

	for _, c := range targets {
		c.mu.Lock()
		if !match(c) {
			c.mu.Unlock()
			continue
		}
		report.Targets++
		err := c.enqueueLocked(msg)
		c.mu.Unlock()

		if err != nil {
			report.Missed++
			if err == ErrDeliveryMiss {
				missed = append(missed, c)
			}
			continue
		}
		report.Delivered++
	}

	for _, c := range missed {
		c.log.Warn("send queue full, closing slow consumer")
		b.evict(c, wsproto.CloseTryAgainLater, "slow consumer")
	}
	return report
}

func encodeDataFrame(payload any, wrap func(json.RawMessage) wsproto.ServerFrame) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return wsproto.EncodeServer(wrap(data))
}
