package main

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"roastmarket_backend/pkg/wsproto"
)

// flakyServer authenticates every socket and drops the first one straight
// after the authenticated frame. Frames received on later sockets are
// forwarded to frames.
type flakyServer struct {
	upgrader websocket.Upgrader
	frames   chan wsproto.ClientFrame

	mu    sync.Mutex
	conns int
}

func (s *flakyServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	s.mu.Lock()
	s.conns++
	n := s.conns
	s.mu.Unlock()

	write := func(f wsproto.ServerFrame) error {
		data, err := wsproto.EncodeServer(f)
		if err != nil {
			return err
		}
		return conn.WriteMessage(websocket.TextMessage, data)
	}
	if err := write(wsproto.ConnectionEstablished{ConnectionID: "c"}); err != nil {
		return
	}

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		f, err := wsproto.DecodeClient(data)
		if err != nil {
			continue
		}
		switch f.(type) {
		case wsproto.Authenticate:
			if err := write(wsproto.Authenticated{UserID: "u1"}); err != nil {
				return
			}
			if n == 1 {
				msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "restart")
				_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
				return
			}
		case wsproto.Ping:
		default:
			if n > 1 {
				s.frames <- f
			}
		}
	}
}

func TestRunWatch_ResubscribesAfterEarlyDrop(t *testing.T) {
	srv := &flakyServer{frames: make(chan wsproto.ClientFrame, 16)}
	ts := httptest.NewServer(srv)
	defer ts.Close()

	opts := &cliOptions{
		server: ts.URL,
		token:  "tok",
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	cfg := watchConfig{
		wsURL:          "ws" + strings.TrimPrefix(ts.URL, "http"),
		orders:         []string{"o1"},
		notifications:  true,
		reconnectDelay: 20 * time.Millisecond,
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- runWatch(ctx, io.Discard, opts, cfg) }()

	got := map[wsproto.ClientFrame]bool{}
	deadline := time.After(3 * time.Second)
	for len(got) < 2 {
		select {
		case f := <-srv.frames:
			got[f] = true
		case <-deadline:
			t.Fatalf("subscriptions not re-issued on the second socket, got %v", got)
		}
	}
	assert.True(t, got[wsproto.SubscribeNotifications{}])
	assert.True(t, got[wsproto.SubscribeOrder{OrderID: "o1"}])

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("watch did not stop")
	}
}

type recordingSubscriber struct {
	orders        []string
	notifications int
}

func (r *recordingSubscriber) SubscribeToOrder(orderID string) error {
	r.orders = append(r.orders, orderID)
	return nil
}

func (r *recordingSubscriber) SubscribeToNotifications() error {
	r.notifications++
	return nil
}

func TestWatchConfig_SubscribeAll(t *testing.T) {
	rec := &recordingSubscriber{}
	cfg := watchConfig{orders: []string{"o1", "o2"}}
	cfg.subscribeAll(rec, slog.New(slog.NewTextHandler(io.Discard, nil)))

	assert.Equal(t, []string{"o1", "o2"}, rec.orders)
	assert.Zero(t, rec.notifications)
}
