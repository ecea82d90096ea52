package ws

import (
	"encoding/binary"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"roastmarket_backend/internal/auth"
	"roastmarket_backend/pkg/wsproto"
)

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// fakeTransport satisfies Transport for tests that never start the pumps.
type fakeTransport struct {
	mu        sync.Mutex
	closed    bool
	closeCode int
}

func (f *fakeTransport) ReadMessage() (int, []byte, error) { return 0, nil, io.EOF }
func (f *fakeTransport) WriteMessage(int, []byte) error    { return nil }
func (f *fakeTransport) WriteControl(messageType int, data []byte, _ time.Time) error {
	if messageType == websocket.CloseMessage && len(data) >= 2 {
		f.mu.Lock()
		f.closeCode = int(binary.BigEndian.Uint16(data))
		f.mu.Unlock()
	}
	return nil
}
func (f *fakeTransport) SetReadLimit(int64)               {}
func (f *fakeTransport) SetWriteDeadline(time.Time) error { return nil }
func (f *fakeTransport) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func newTestConn(buffer int) *Connection {
	return newConnection(uuid.NewString(), &fakeTransport{}, nil, buffer, discardLogger)
}

// testHub wires the components the way WebSocketManager does, without pumps.
type testHub struct {
	registry    *Registry
	subs        *SubscriptionManager
	broadcaster *Broadcaster
	evicted     map[string]int
	mu          sync.Mutex
}

func newTestHub(access OrderAccess) *testHub {
	h := &testHub{registry: NewRegistry(), evicted: make(map[string]int)}
	h.subs = NewSubscriptionManager(h.registry, access)
	h.broadcaster = NewBroadcaster(h.registry, h.evict, nil, discardLogger)
	return h
}

func (h *testHub) evict(c *Connection, code int, reason string) {
	h.registry.Remove(c)
	c.Close(code, reason)
	h.mu.Lock()
	h.evicted[c.ID] = code
	h.mu.Unlock()
}

func (h *testHub) connect(t *testing.T, userID string, buffer int) *Connection {
	t.Helper()
	c := newTestConn(buffer)
	h.registry.Add(c)
	if userID != "" {
		ack, err := wsproto.EncodeServer(wsproto.Authenticated{UserID: userID})
		require.NoError(t, err)
		bound, err := h.registry.bind(c, Identity{UserID: userID, Role: auth.RoleBuyer}, ack)
		require.NoError(t, err)
		require.True(t, bound)
		drain(c)
	}
	return c
}

// drain empties c's send queue and returns the decoded frames.
func drain(c *Connection) []wsproto.ServerFrame {
	var frames []wsproto.ServerFrame
	for {
		select {
		case msg := <-c.send:
			f, err := wsproto.DecodeServer(msg)
			if err != nil {
				panic(err)
			}
			frames = append(frames, f)
		default:
			return frames
		}
	}
}

func frameTypes(frames []wsproto.ServerFrame) []string {
	out := make([]string, 0, len(frames))
	for _, f := range frames {
		out = append(out, f.FrameType())
	}
	return out
}

type stubVerifier map[string]*auth.Claims

func (s stubVerifier) ParseToken(token string) (*auth.Claims, error) {
	if c, ok := s[token]; ok {
		return c, nil
	}
	return nil, errors.New("bad token")
}
