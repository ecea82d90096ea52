package ws

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"roastmarket_backend/internal/auth"
	"roastmarket_backend/pkg/contextkeys"
	"roastmarket_backend/pkg/wsproto"
)

type hubServer struct {
	manager *WebSocketManager
	server  *httptest.Server
	cancel  context.CancelFunc
}

// newHubServer serves /ws; the "as" query parameter stands in for a session
// established by the auth middleware.
func newHubServer(t *testing.T, opts Options) *hubServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	verifier := stubVerifier{"good-token": {UserID: "token-user", Role: auth.RoleBuyer}}
	manager := NewWebSocketManager(opts, verifier, nil, nil, discardLogger)
	handler := NewWebSocketHandler(manager, nil)

	r := gin.New()
	r.GET("/ws", func(c *gin.Context) {
		if as := c.Query("as"); as != "" {
			c.Set(contextkeys.UserIDKey, as)
			c.Set(contextkeys.RoleKey, auth.RoleBuyer)
		}
		c.Next()
	}, handler.ServeWS)

	ctx, cancel := context.WithCancel(context.Background())
	go manager.Run(ctx)

	hs := &hubServer{manager: manager, server: httptest.NewServer(r), cancel: cancel}
	t.Cleanup(func() {
		cancel()
		hs.server.Close()
	})
	return hs
}

func (hs *hubServer) dial(t *testing.T, as string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(hs.server.URL, "http") + "/ws"
	if as != "" {
		url += "?as=" + as
	}
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	f := readFrame(t, conn)
	established, ok := f.(wsproto.ConnectionEstablished)
	require.True(t, ok, "first frame must be connection_established, got %T", f)
	require.NotEmpty(t, established.ConnectionID)
	return conn
}

func send(t *testing.T, conn *websocket.Conn, f wsproto.ClientFrame) {
	t.Helper()
	raw, err := wsproto.EncodeClient(f)
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, raw))
}

func readFrame(t *testing.T, conn *websocket.Conn) wsproto.ServerFrame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)
	f, err := wsproto.DecodeServer(raw)
	require.NoError(t, err)
	return f
}

func expectClose(t *testing.T, conn *websocket.Conn, code int) {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	for {
		_, _, err := conn.ReadMessage()
		if err == nil {
			continue
		}
		assert.True(t, websocket.IsCloseError(err, code), "expected close %d, got %v", code, err)
		return
	}
}

func TestHub_SessionHandshake(t *testing.T) {
	hs := newHubServer(t, Options{})
	conn := hs.dial(t, "user-a")

	send(t, conn, wsproto.Authenticate{UserID: "user-a"})
	assert.Equal(t, wsproto.Authenticated{UserID: "user-a"}, readFrame(t, conn))

	// a second authenticate is ignored; the next frame is the pong
	send(t, conn, wsproto.Authenticate{UserID: "user-a"})
	send(t, conn, wsproto.Ping{})
	assert.Equal(t, wsproto.Pong{}, readFrame(t, conn))
}

func TestHub_FrameTokenHandshake(t *testing.T) {
	hs := newHubServer(t, Options{})
	conn := hs.dial(t, "")

	send(t, conn, wsproto.Authenticate{Token: "good-token"})
	assert.Equal(t, wsproto.Authenticated{UserID: "token-user"}, readFrame(t, conn))
}

func TestHub_AssertedIdentityIsRejected(t *testing.T) {
	hs := newHubServer(t, Options{})

	noSession := hs.dial(t, "")
	send(t, noSession, wsproto.Authenticate{UserID: "user-a", Token: "whatever"})
	expectClose(t, noSession, wsproto.ClosePolicyViolation)

	impersonator := hs.dial(t, "user-a")
	send(t, impersonator, wsproto.Authenticate{UserID: "user-b"})
	expectClose(t, impersonator, wsproto.ClosePolicyViolation)

	require.Eventually(t, func() bool { return hs.manager.Registry().Count() == 0 },
		time.Second, 10*time.Millisecond)
}

func TestHub_FramesBeforeAuthenticationAreIgnored(t *testing.T) {
	hs := newHubServer(t, Options{})
	conn := hs.dial(t, "user-a")

	send(t, conn, wsproto.SubscribeOrder{OrderID: "order-1"})
	send(t, conn, wsproto.SubscribeNotifications{})
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("garbage")))
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"teleport"}`)))
	send(t, conn, wsproto.Ping{})

	// no acks were produced, and the connection survived the bad frames
	assert.Equal(t, wsproto.Pong{}, readFrame(t, conn))

	send(t, conn, wsproto.Authenticate{})
	assert.Equal(t, wsproto.Authenticated{UserID: "user-a"}, readFrame(t, conn))

	report, err := hs.manager.PublishTrackingUpdate("order-1", map[string]string{"status": "x"})
	require.NoError(t, err)
	assert.Zero(t, report.Targets)
}

func TestHub_SubscribeTwiceSingleAckThenBroadcast(t *testing.T) {
	hs := newHubServer(t, Options{})
	conn := hs.dial(t, "user-a")
	send(t, conn, wsproto.Authenticate{})
	readFrame(t, conn)

	send(t, conn, wsproto.SubscribeOrder{OrderID: "order-1"})
	send(t, conn, wsproto.SubscribeOrder{OrderID: "order-1"})
	send(t, conn, wsproto.Ping{})

	assert.Equal(t, wsproto.OrderSubscribed{OrderID: "order-1"}, readFrame(t, conn))
	assert.Equal(t, wsproto.Pong{}, readFrame(t, conn))

	report, err := hs.manager.PublishTrackingUpdate("order-1", wsproto.TrackingEventPayload{OrderID: "order-1", Status: "picked_up"})
	require.NoError(t, err)
	assert.Equal(t, DeliveryReport{Targets: 1, Delivered: 1}, report)

	update, ok := readFrame(t, conn).(wsproto.TrackingUpdate)
	require.True(t, ok)
	var payload wsproto.TrackingEventPayload
	require.NoError(t, wsproto.DecodeData(update.Data, &payload))
	assert.Equal(t, "picked_up", payload.Status)
}

func TestHub_PeerCloseRemovesConnection(t *testing.T) {
	hs := newHubServer(t, Options{})
	conn := hs.dial(t, "user-a")
	send(t, conn, wsproto.Authenticate{})
	readFrame(t, conn)
	require.Equal(t, 1, hs.manager.Registry().Count())

	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye")
	require.NoError(t, conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second)))

	require.Eventually(t, func() bool { return hs.manager.Registry().Count() == 0 },
		2*time.Second, 10*time.Millisecond)
	assert.Empty(t, hs.manager.Registry().UserConnections("user-a"))
}

func TestHub_HeartbeatEvictsSilentSocket(t *testing.T) {
	hs := newHubServer(t, Options{HeartbeatTimeout: 200 * time.Millisecond})
	conn := hs.dial(t, "user-a")
	send(t, conn, wsproto.Authenticate{})
	readFrame(t, conn)

	expectClose(t, conn, wsproto.CloseGoingAway)
	assert.Zero(t, hs.manager.Registry().Count())
}

func TestHub_ShutdownClosesConnections(t *testing.T) {
	hs := newHubServer(t, Options{})
	conn := hs.dial(t, "user-a")

	hs.cancel()
	expectClose(t, conn, wsproto.CloseGoingAway)
}

func TestHub_RefusesConnectionsAfterShutdown(t *testing.T) {
	hs := newHubServer(t, Options{})
	conn := hs.dial(t, "user-a")
	hs.cancel()
	expectClose(t, conn, wsproto.CloseGoingAway)

	require.Eventually(t, func() bool {
		hs.manager.lifecycle.Lock()
		defer hs.manager.lifecycle.Unlock()
		return hs.manager.stopping
	}, 2*time.Second, 10*time.Millisecond)

	url := "ws" + strings.TrimPrefix(hs.server.URL, "http") + "/ws"
	late, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer late.Close()
	expectClose(t, late, wsproto.CloseGoingAway)
	assert.Zero(t, hs.manager.Registry().Count())
}

func TestManager_ServeConnAfterRunReturns(t *testing.T) {
	manager := NewWebSocketManager(Options{}, nil, nil, nil, discardLogger)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	manager.Run(ctx)

	ft := &fakeTransport{}
	assert.Nil(t, manager.ServeConn(ft, nil))

	ft.mu.Lock()
	defer ft.mu.Unlock()
	assert.True(t, ft.closed)
	assert.Equal(t, wsproto.CloseGoingAway, ft.closeCode)
	assert.Zero(t, manager.Registry().Count())
}
