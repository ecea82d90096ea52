package ws

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"roastmarket_backend/pkg/wsproto"
)

func TestHeartbeat_SilentConnectionEvicted(t *testing.T) {
	h := newTestHub(nil)
	now := time.Now()

	silent := h.connect(t, "user-a", 8)
	alive := h.connect(t, "user-a", 8)
	for _, c := range []*Connection{silent, alive} {
		_, err := h.subs.SubscribeNotifications(c)
		require.NoError(t, err)
		drain(c)
	}
	silent.touch(now.Add(-90 * time.Second))
	alive.touch(now.Add(-10 * time.Second))

	monitor := NewHeartbeatMonitor(h.registry, 60*time.Second, h.evict)
	monitor.now = func() time.Time { return now }

	assert.Equal(t, 1, monitor.Sweep())
	assert.True(t, silent.Closed())
	assert.Equal(t, wsproto.CloseGoingAway, silent.CloseCode())
	_, ok := h.registry.Get(silent.ID)
	assert.False(t, ok)

	report, err := h.broadcaster.PublishNotification("user-a", map[string]string{"title": "hi"})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Targets)
	assert.Empty(t, drain(silent))
	assert.Len(t, drain(alive), 1)
}

func TestHeartbeat_DefaultsAndRunStops(t *testing.T) {
	monitor := NewHeartbeatMonitor(NewRegistry(), 0, func(*Connection, int, string) {})
	assert.Equal(t, wsproto.HeartbeatTimeout, monitor.timeout)
	assert.Equal(t, wsproto.HeartbeatTimeout/2, monitor.interval)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		monitor.Run(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("monitor did not stop")
	}
}
