package ws

import (
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

var (
	// ErrDeliveryMiss means a frame could not be queued for a connection.
	ErrDeliveryMiss = errors.New("ws: delivery miss")
	// ErrConnectionClosed is returned when queueing to a closed connection.
	ErrConnectionClosed = errors.New("ws: connection closed")
)

// Transport is the subset of *websocket.Conn used by a Connection.
type Transport interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	WriteControl(messageType int, data []byte, deadline time.Time) error
	SetReadLimit(limit int64)
	SetWriteDeadline(t time.Time) error
	Close() error
}

var _ Transport = (*websocket.Conn)(nil)

// Connection is one live WebSocket. All mutable state is guarded by mu,
// except lastSeen which is touched on every inbound frame.
type Connection struct {
	ID        string
	transport Transport
	session   *Identity
	log       *slog.Logger

	send chan []byte
	done chan struct{}

	mu            sync.Mutex
	userID        string
	role          string
	authenticated bool
	orders        map[string]struct{}
	notifications bool
	closed        bool
	closeCode     int
	closeReason   string

	lastSeen atomic.Int64
}

func newConnection(id string, transport Transport, session *Identity, sendBuffer int, log *slog.Logger) *Connection {
	c := &Connection{
		ID:        id,
		transport: transport,
		session:   session,
		log:       log.With("conn_id", id),
		send:      make(chan []byte, sendBuffer),
		done:      make(chan struct{}),
		orders:    make(map[string]struct{}),
	}
	c.touch(time.Now())
	return c
}

func (c *Connection) touch(now time.Time) {
	c.lastSeen.Store(now.UnixNano())
}

func (c *Connection) LastSeen() time.Time {
	return time.Unix(0, c.lastSeen.Load())
}

func (c *Connection) UserID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.userID
}

func (c *Connection) Authenticated() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.authenticated
}

func (c *Connection) SubscribedToOrder(orderID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.orders[orderID]
	return ok
}

func (c *Connection) NotificationsSubscribed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.notifications
}

func (c *Connection) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// CloseCode returns the code the server closed with, or 0 while open.
func (c *Connection) CloseCode() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closeCode
}

// Done is closed once the connection starts shutting down.
func (c *Connection) Done() <-chan struct{} {
	return c.done
}

// enqueueLocked queues msg without blocking. Caller holds c.mu.
func (c *Connection) enqueueLocked(msg []byte) error {
	if c.closed {
		return ErrConnectionClosed
	}
	select {
	case c.send <- msg:
		return nil
	default:
		return ErrDeliveryMiss
	}
}

func (c *Connection) enqueue(msg []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.enqueueLocked(msg)
}

// Close marks the connection closed and signals the write pump to send
// a close frame with code. Only the first call has any effect.
func (c *Connection) Close(code int, reason string) bool {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return false
	}
	c.closed = true
	c.closeCode = code
	c.closeReason = reason
	c.mu.Unlock()

	close(c.done)
	return true
}

func (c *Connection) readPump(maxMessageBytes int64, handle func(*Connection, []byte), onExit func(*Connection)) {
	defer onExit(c)

	c.transport.SetReadLimit(maxMessageBytes)
	for {
		_, msg, err := c.transport.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.log.Debug("read stopped", "error", err)
			}
			return
		}
		c.touch(time.Now())
		handle(c, msg)
	}
}

func (c *Connection) writePump(writeTimeout time.Duration) {
	defer c.transport.Close()

	for {
		select {
		case msg := <-c.send:
			_ = c.transport.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.transport.WriteMessage(websocket.TextMessage, msg); err != nil {
				c.log.Debug("write failed", "error", err)
				c.Close(websocket.CloseAbnormalClosure, "write failed")
				return
			}
		case <-c.done:
			c.mu.Lock()
			code, reason := c.closeCode, c.closeReason
			c.mu.Unlock()
			if code != websocket.CloseAbnormalClosure {
				payload := websocket.FormatCloseMessage(code, reason)
				_ = c.transport.WriteControl(websocket.CloseMessage, payload, time.Now().Add(writeTimeout))
			}
			return
		}
	}
}
