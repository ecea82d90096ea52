package ws

import (
	"context"
	"time"

	"roastmarket_backend/pkg/wsproto"
)

// HeartbeatMonitor evicts connections that have sent nothing for longer
// than timeout. Any inbound frame counts as a heartbeat.
type HeartbeatMonitor struct {
	registry *Registry
	timeout  time.Duration
	interval time.Duration
	evict    func(c *Connection, code int, reason string)
	now      func() time.Time
}

func NewHeartbeatMonitor(registry *Registry, timeout time.Duration, evict func(*Connection, int, string)) *HeartbeatMonitor {
	if timeout <= 0 {
		timeout = wsproto.HeartbeatTimeout
	}
	return &HeartbeatMonitor{
		registry: registry,
		timeout:  timeout,
		interval: timeout / 2,
		evict:    evict,
		now:      time.Now,
	}
}

func (m *HeartbeatMonitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Sweep()
		}
	}
}

// Sweep evicts every silent connection and returns how many were evicted.
func (m *HeartbeatMonitor) Sweep() int {
	deadline := m.now().Add(-m.timeout)
	evicted := 0
	for _, c := range m.registry.All() {
		if c.LastSeen().Before(deadline) {
			c.log.Info("heartbeat timeout", "last_seen", c.LastSeen())
			m.evict(c, wsproto.CloseGoingAway, "heartbeat timeout")
			evicted++
		}
	}
	return evicted
}
