package ws

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"roastmarket_backend/pkg/wsproto"
)

type Options struct {
	SendBuffer       int
	MaxMessageBytes  int64
	WriteTimeout     time.Duration
	HeartbeatTimeout time.Duration
	// AccessTimeout bounds the order access lookup made for subscribe_order.
	AccessTimeout time.Duration
}

func (o *Options) applyDefaults() {
	if o.SendBuffer <= 0 {
		o.SendBuffer = 256
	}
	if o.MaxMessageBytes <= 0 {
		o.MaxMessageBytes = 4096
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = 10 * time.Second
	}
	if o.HeartbeatTimeout <= 0 {
		o.HeartbeatTimeout = wsproto.HeartbeatTimeout
	}
	if o.AccessTimeout <= 0 {
		o.AccessTimeout = 5 * time.Second
	}
}

// WebSocketManager owns the realtime hub: the registry, the handshake,
// subscriptions, fan-out and heartbeat eviction.
type WebSocketManager struct {
	opts        Options
	registry    *Registry
	auth        *Authenticator
	subs        *SubscriptionManager
	broadcaster *Broadcaster
	monitor     *HeartbeatMonitor
	metrics     Metrics
	log         *slog.Logger

	// lifecycle orders ServeConn against the shutdown sweep so no connection
	// registers, or joins wg, once Run has begun closing.
	lifecycle sync.Mutex
	stopping  bool
	wg        sync.WaitGroup
}

func NewWebSocketManager(opts Options, verifier TokenVerifier, access OrderAccess, metrics Metrics, log *slog.Logger) *WebSocketManager {
	opts.applyDefaults()
	if metrics == nil {
		metrics = NopMetrics{}
	}
	if log == nil {
		log = slog.Default()
	}

	m := &WebSocketManager{
		opts:     opts,
		registry: NewRegistry(),
		auth:     NewAuthenticator(verifier),
		metrics:  metrics,
		log:      log.With("component", "ws"),
	}
	m.subs = NewSubscriptionManager(m.registry, access)
	m.broadcaster = NewBroadcaster(m.registry, m.evict, metrics, m.log)
	m.monitor = NewHeartbeatMonitor(m.registry, opts.HeartbeatTimeout, m.evict)
	return m
}

func (m *WebSocketManager) Registry() *Registry { return m.registry }

func (m *WebSocketManager) Broadcaster() *Broadcaster { return m.broadcaster }

func (m *WebSocketManager) Stats() RegistryStats { return m.registry.Stats() }

// Run drives heartbeat eviction until ctx is cancelled, then closes every
// connection with 1001 and waits for their pumps to exit.
func (m *WebSocketManager) Run(ctx context.Context) {
	m.log.Info("websocket manager started",
		"heartbeat_timeout", m.opts.HeartbeatTimeout, "send_buffer", m.opts.SendBuffer)
	m.monitor.Run(ctx)

	m.lifecycle.Lock()
	m.stopping = true
	m.lifecycle.Unlock()

	for _, c := range m.registry.All() {
		m.evict(c, wsproto.CloseGoingAway, "server shutting down")
	}
	m.wg.Wait()
	m.log.Info("websocket manager stopped")
}

// ServeConn registers an upgraded transport and starts its pumps. session
// is the identity verified on the upgrade request, or nil. Once Run is
// shutting down the transport is closed with 1001 and nil is returned.
func (m *WebSocketManager) ServeConn(t Transport, session *Identity) *Connection {
	m.lifecycle.Lock()
	defer m.lifecycle.Unlock()
	if m.stopping {
		m.refuse(t)
		return nil
	}

	c := newConnection(uuid.NewString(), t, session, m.opts.SendBuffer, m.log)
	m.registry.Add(c)

	hello, err := wsproto.EncodeServer(wsproto.ConnectionEstablished{ConnectionID: c.ID})
	if err == nil {
		err = c.enqueue(hello)
	}
	if err != nil {
		c.log.Error("failed to greet connection", "error", err)
	}

	m.wg.Add(2)
	go func() {
		defer m.wg.Done()
		c.writePump(m.opts.WriteTimeout)
	}()
	go func() {
		defer m.wg.Done()
		c.readPump(m.opts.MaxMessageBytes, m.handleMessage, m.disconnect)
	}()

	c.log.Debug("connection opened", "has_session", session != nil)
	m.updateGauge()
	return c
}

func (m *WebSocketManager) refuse(t Transport) {
	msg := websocket.FormatCloseMessage(wsproto.CloseGoingAway, "server shutting down")
	if err := t.WriteControl(websocket.CloseMessage, msg, time.Now().Add(m.opts.WriteTimeout)); err != nil {
		m.log.Debug("refusal close frame not sent", "error", err)
	}
	t.Close()
	m.log.Debug("refused connection during shutdown")
}

func (m *WebSocketManager) PublishTrackingUpdate(orderID string, event any) (DeliveryReport, error) {
	return m.broadcaster.PublishTrackingUpdate(orderID, event)
}

func (m *WebSocketManager) PublishStatusChange(orderID string, change any) (DeliveryReport, error) {
	return m.broadcaster.PublishStatusChange(orderID, change)
}

func (m *WebSocketManager) PublishNotification(userID string, notification any) (DeliveryReport, error) {
	return m.broadcaster.PublishNotification(userID, notification)
}

func (m *WebSocketManager) handleMessage(c *Connection, raw []byte) {
	frame, err := wsproto.DecodeClient(raw)
	if err != nil {
		c.log.Warn("dropping inbound frame", "error", err)
		return
	}

	switch f := frame.(type) {
	case wsproto.Authenticate:
		m.authenticate(c, f)
	case wsproto.SubscribeOrder:
		ctx, cancel := context.WithTimeout(context.Background(), m.opts.AccessTimeout)
		_, err := m.subs.SubscribeOrder(ctx, c, f.OrderID)
		cancel()
		m.afterSubscribe(c, f.FrameType(), err)
	case wsproto.SubscribeNotifications:
		_, err := m.subs.SubscribeNotifications(c)
		m.afterSubscribe(c, f.FrameType(), err)
	case wsproto.Ping:
		pong, _ := wsproto.EncodeServer(wsproto.Pong{})
		if err := c.enqueue(pong); errors.Is(err, ErrDeliveryMiss) {
			m.evict(c, wsproto.CloseTryAgainLater, "slow consumer")
		}
	default:
		c.log.Error("unhandled client frame", "type", frame.FrameType())
	}
}

func (m *WebSocketManager) authenticate(c *Connection, f wsproto.Authenticate) {
	if c.Authenticated() {
		c.log.Debug("ignoring repeated authenticate")
		return
	}

	id, err := m.auth.Resolve(c.session, f)
	if err != nil {
		m.metrics.ObserveAuthFailure()
		c.log.Warn("authentication rejected", "error", err)
		m.evict(c, wsproto.ClosePolicyViolation, "authentication failed")
		return
	}

	ack, err := wsproto.EncodeServer(wsproto.Authenticated{UserID: id.UserID})
	if err != nil {
		c.log.Error("encode authenticated", "error", err)
		return
	}
	bound, err := m.registry.bind(c, id, ack)
	switch {
	case errors.Is(err, ErrDeliveryMiss):
		m.evict(c, wsproto.CloseTryAgainLater, "slow consumer")
	case err != nil:
		c.log.Debug("authenticate after close", "error", err)
	case bound:
		c.log.Info("connection authenticated", "user_id", id.UserID)
		m.updateGauge()
	}
}

func (m *WebSocketManager) afterSubscribe(c *Connection, frameType string, err error) {
	switch {
	case err == nil:
	case errors.Is(err, ErrNotAuthenticated):
		c.log.Debug("ignoring frame before authentication", "type", frameType)
	case errors.Is(err, ErrDeliveryMiss):
		m.evict(c, wsproto.CloseTryAgainLater, "slow consumer")
	case errors.Is(err, ErrConnectionClosed):
	default:
		c.log.Warn("subscription rejected", "type", frameType, "error", err)
	}
}

// evict removes c from the registry before closing it so no later
// broadcast can target it.
func (m *WebSocketManager) evict(c *Connection, code int, reason string) {
	m.registry.Remove(c)
	if c.Close(code, reason) {
		m.metrics.ObserveEviction(reason)
		c.log.Info("connection closed by server", "code", code, "reason", reason)
	}
	m.updateGauge()
}

// disconnect runs when the read pump stops, i.e. the peer went away.
func (m *WebSocketManager) disconnect(c *Connection) {
	removed := m.registry.Remove(c)
	c.Close(wsproto.CloseNormal, "")
	if removed {
		c.log.Debug("connection closed by peer")
		m.updateGauge()
	}
}

func (m *WebSocketManager) updateGauge() {
	stats := m.registry.Stats()
	m.metrics.SetConnections(stats.Connections, stats.Authenticated)
}
