package app_test

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	json "github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"roastmarket_backend/internal/app"
	"roastmarket_backend/internal/config"
	"roastmarket_backend/internal/logger"
	"roastmarket_backend/pkg/wsproto"
	"roastmarket_backend/test/helpers"
)

type testServer struct {
	*app.Server
	http *httptest.Server
	db   *gorm.DB
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Server.Env = "test"
	cfg.Database.Driver = "sqlite"
	cfg.JWT.Secret = helpers.TestJWTSecret
	cfg.JWT.TTL = 60
	cfg.Realtime.HeartbeatTimeout = time.Minute
	cfg.Realtime.SendBuffer = 64
	cfg.Realtime.MaxMessageBytes = 4096
	cfg.Realtime.WriteTimeout = 5 * time.Second
	cfg.Realtime.AllowedOrigins = []string{"*"}
	cfg.Workers.NotificationRetentionDays = 90
	cfg.Workers.CleanupInterval = time.Hour
	return cfg
}

func newTestServer(t *testing.T, registry *prometheus.Registry) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger.InitWithWriter("test", io.Discard)

	db := helpers.NewTestDB(t)
	server := app.NewServer(testConfig(), db, registry)

	ctx, cancel := context.WithCancel(context.Background())
	done := server.Start(ctx)
	ts := &testServer{Server: server, http: httptest.NewServer(server.Router), db: db}

	t.Cleanup(func() {
		cancel()
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Error("realtime hub did not stop")
		}
		ts.http.Close()
	})
	return ts
}

// request sends a JSON request and decodes a JSON response into out when
// out is non-nil. It returns the status code.
func (s *testServer) request(t *testing.T, method, path, token string, body, out any) int {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, s.http.URL+path, reader)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := s.http.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out), "%s %s", method, path)
	}
	return resp.StatusCode
}

func (s *testServer) wsURL() string {
	return "ws" + strings.TrimPrefix(s.http.URL, "http") + "/ws"
}

// dial opens a socket carrying token as a query parameter and consumes
// connection_established.
func (s *testServer) dial(t *testing.T, token string) *websocket.Conn {
	t.Helper()
	url := s.wsURL()
	if token != "" {
		url += "?token=" + token
	}
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	_, ok := readFrame(t, conn).(wsproto.ConnectionEstablished)
	require.True(t, ok, "first frame must be connection_established")
	return conn
}

// dialAuthenticated dials and completes the handshake for userID.
func (s *testServer) dialAuthenticated(t *testing.T, userID, token string) *websocket.Conn {
	t.Helper()
	conn := s.dial(t, token)
	send(t, conn, wsproto.Authenticate{UserID: userID, Token: token})
	require.Equal(t, wsproto.Authenticated{UserID: userID}, readFrame(t, conn))
	return conn
}

func send(t *testing.T, conn *websocket.Conn, f wsproto.ClientFrame) {
	t.Helper()
	raw, err := wsproto.EncodeClient(f)
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, raw))
}

func readRaw(t *testing.T, conn *websocket.Conn) []byte {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)
	return raw
}

func readFrame(t *testing.T, conn *websocket.Conn) wsproto.ServerFrame {
	t.Helper()
	f, err := wsproto.DecodeServer(readRaw(t, conn))
	require.NoError(t, err)
	return f
}

// expectQuiet proves nothing was queued ahead of a pong.
func expectQuiet(t *testing.T, conn *websocket.Conn) {
	t.Helper()
	send(t, conn, wsproto.Ping{})
	f := readFrame(t, conn)
	require.Equal(t, wsproto.Pong{}, f, "expected no pending frames, got %T", f)
}

func subscribeOrder(t *testing.T, conn *websocket.Conn, orderID string) {
	t.Helper()
	send(t, conn, wsproto.SubscribeOrder{OrderID: orderID})
	require.Equal(t, wsproto.OrderSubscribed{OrderID: orderID}, readFrame(t, conn))
}

func subscribeNotifications(t *testing.T, conn *websocket.Conn) {
	t.Helper()
	send(t, conn, wsproto.SubscribeNotifications{})
	require.Equal(t, wsproto.NotificationsSubscribed{}, readFrame(t, conn))
}
