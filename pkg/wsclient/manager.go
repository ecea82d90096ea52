// Package wsclient keeps one logical realtime connection to the server,
// re-establishing it after unexpected drops and dispatching inbound
// events to callbacks in arrival order.
package wsclient

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"roastmarket_backend/pkg/wsproto"
)

var (
	// ErrNotConnected is returned by subscribe calls while no socket is
	// open. The intent is dropped and must be re-issued after connecting.
	ErrNotConnected = errors.New("wsclient: not connected")
	// ErrTransport wraps dial and socket failures reported to OnConnectionStatus.
	ErrTransport = errors.New("wsclient: transport error")
	// ErrStopped is returned once Run has exited.
	ErrStopped = errors.New("wsclient: manager stopped")
)

// Session is the HTTP-layer login the socket authenticates with.
type Session struct {
	UserID string
	Token  string
}

type Options struct {
	ReconnectDelay time.Duration
	PingInterval   time.Duration
	WriteTimeout   time.Duration
	// DisableResubscribe stops the manager from re-issuing previously sent
	// subscriptions after a reconnect.
	DisableResubscribe bool
	Logger             *slog.Logger

	// Callbacks run on the Run goroutine in arrival order. They may call any
	// Manager method; the request takes effect once the callback returns.
	OnOrderUpdate      func(wsproto.TrackingEventPayload)
	OnStatusChange     func(wsproto.StatusChangePayload)
	OnNotification     func(wsproto.NotificationPayload)
	OnConnectionStatus func(status Status, err error)
}

func (o *Options) applyDefaults() {
	if o.ReconnectDelay <= 0 {
		o.ReconnectDelay = wsproto.ReconnectDelay
	}
	if o.PingInterval <= 0 {
		o.PingInterval = wsproto.PingInterval
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = 10 * time.Second
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
}

// Manager owns a single connection. All state below status is touched only
// by the Run goroutine.
type Manager struct {
	url    string
	dialer Dialer
	opts   Options
	log    *slog.Logger

	// events carries results from the dial and read goroutines; requests
	// carries caller calls and never blocks the caller.
	events   chan event
	requests requestQueue
	quit     <-chan struct{}
	stopped  chan struct{}
	status   atomic.Int32

	state        state
	session      Session
	gen          uint64
	conn         Conn
	cancelDial   context.CancelFunc
	connectionID string

	reconnectTimer *time.Timer
	reconnectC     <-chan time.Time
	pingTicker     *time.Ticker
	pingC          <-chan time.Time

	// intents are subscriptions the caller asked for; sent is what went
	// out on the current socket.
	intents intentSet
	sent    intentSet
}

func New(url string, dialer Dialer, opts Options) *Manager {
	opts.applyDefaults()
	if dialer == nil {
		dialer = GorillaDialer{}
	}
	return &Manager{
		url:      url,
		dialer:   dialer,
		opts:     opts,
		log:      opts.Logger.With("component", "wsclient"),
		events:   make(chan event),
		requests: requestQueue{wake: make(chan struct{}, 1)},
		stopped:  make(chan struct{}),
		intents:  newIntentSet(),
		sent:     newIntentSet(),
	}
}

// Status is safe to call from any goroutine.
func (m *Manager) Status() Status {
	return Status(m.status.Load())
}

// SetSession connects when token is non-empty and nothing is open or
// pending. An empty token disconnects with a normal closure.
func (m *Manager) SetSession(s Session) {
	m.requests.push(sessionEvent{session: s})
}

// Disconnect closes with 1000 and cancels any pending reconnect.
func (m *Manager) Disconnect() {
	m.requests.push(disconnectEvent{})
}

func (m *Manager) SubscribeToOrder(orderID string) error {
	if orderID == "" {
		return errors.New("wsclient: empty order id")
	}
	return m.subscribe(subscribeEvent{orderID: orderID})
}

func (m *Manager) SubscribeToNotifications() error {
	return m.subscribe(subscribeEvent{notifications: true})
}

// subscribe accepts the intent while a socket is open. The status read here
// is published by the Run goroutine before any callback sees it.
func (m *Manager) subscribe(ev subscribeEvent) error {
	select {
	case <-m.stopped:
		return ErrStopped
	default:
	}
	switch m.Status() {
	case StatusConnected, StatusAuthenticated:
	default:
		return ErrNotConnected
	}
	m.requests.push(ev)
	return nil
}

// Done is closed when Run returns.
func (m *Manager) Done() <-chan struct{} {
	return m.stopped
}

// Run processes events until ctx is cancelled, then closes any open socket
// with a normal closure. Every other method requires Run to be running.
func (m *Manager) Run(ctx context.Context) {
	m.quit = ctx.Done()
	defer close(m.stopped)
	defer m.shutdown()

	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-m.events:
			m.handle(ctx, ev)
		case <-m.requests.wake:
			for _, ev := range m.requests.drain() {
				m.handle(ctx, ev)
			}
		case <-m.reconnectC:
			m.reconnectTimer, m.reconnectC = nil, nil
			if m.state == stateIdle && m.session.Token != "" {
				m.log.Info("reconnecting")
				m.connect(ctx)
			}
		case <-m.pingC:
			if err := m.write(wsproto.Ping{}); err != nil {
				m.abort(err)
			}
		}
	}
}

// post is used by the dial and read goroutines only.
func (m *Manager) post(ev event) bool {
	select {
	case m.events <- ev:
		return true
	case <-m.quit:
		return false
	case <-m.stopped:
		return false
	}
}

func (m *Manager) handle(ctx context.Context, ev event) {
	switch ev := ev.(type) {
	case sessionEvent:
		m.onSession(ctx, ev.session)
	case disconnectEvent:
		m.disconnect()
	case subscribeEvent:
		m.onSubscribe(ev)
	case dialResult:
		m.onDialResult(ev)
	case inboundFrame:
		if ev.gen == m.gen {
			m.onFrame(ev.data)
		}
	case transportClosed:
		if ev.gen == m.gen {
			m.onClosed(ev.code, ev.err)
		}
	}
}

func (m *Manager) onSession(ctx context.Context, s Session) {
	hadSession := m.session.Token != ""
	m.session = s
	if s.Token == "" {
		if hadSession {
			m.disconnect()
		}
		return
	}
	if m.state == stateIdle && m.reconnectTimer == nil {
		m.connect(ctx)
	}
}

func (m *Manager) connect(ctx context.Context) {
	m.gen++
	gen := m.gen
	dialCtx, cancel := context.WithCancel(ctx)
	m.cancelDial = cancel
	m.setState(stateConnecting, nil)

	header := http.Header{}
	header.Set("Authorization", "Bearer "+m.session.Token)
	go func() {
		conn, err := m.dialer.Dial(dialCtx, m.url, header)
		if !m.post(dialResult{gen: gen, conn: conn, err: err}) && conn != nil {
			conn.Close()
		}
	}()
}

func (m *Manager) onDialResult(ev dialResult) {
	if ev.gen != m.gen || m.state != stateConnecting {
		if ev.conn != nil {
			ev.conn.Close()
		}
		return
	}
	m.cancelDial()
	m.cancelDial = nil

	if ev.err != nil {
		m.log.Warn("dial failed", "error", ev.err)
		m.lost(fmt.Errorf("%w: %v", ErrTransport, ev.err))
		return
	}

	m.conn = ev.conn
	m.sent = newIntentSet()
	m.setState(stateOpen, nil)
	go m.readLoop(ev.gen, ev.conn)
	m.startPing()

	auth := wsproto.Authenticate{UserID: m.session.UserID, Token: m.session.Token}
	if err := m.write(auth); err != nil {
		m.abort(err)
		return
	}
	m.setState(stateAuthenticating, nil)
}

func (m *Manager) readLoop(gen uint64, conn Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			m.post(transportClosed{gen: gen, code: closeCode(err), err: err})
			return
		}
		if !m.post(inboundFrame{gen: gen, data: data}) {
			return
		}
	}
}

func (m *Manager) onFrame(data []byte) {
	frame, err := wsproto.DecodeServer(data)
	if err != nil {
		m.log.Warn("ignoring inbound frame", "error", err)
		return
	}

	switch f := frame.(type) {
	case wsproto.ConnectionEstablished:
		m.connectionID = f.ConnectionID
		m.log.Debug("connection established", "connection_id", f.ConnectionID)
	case wsproto.Authenticated:
		if m.state != stateAuthenticating {
			return
		}
		m.log.Info("authenticated", "user_id", f.UserID, "connection_id", m.connectionID)
		m.setState(stateAuthenticated, nil)
		m.flushIntents()
	case wsproto.OrderSubscribed:
		m.log.Debug("order subscribed", "order_id", f.OrderID)
	case wsproto.NotificationsSubscribed:
		m.log.Debug("notifications subscribed")
	case wsproto.TrackingUpdate:
		var payload wsproto.TrackingEventPayload
		if m.decode(f, f.Data, &payload) && m.opts.OnOrderUpdate != nil {
			m.opts.OnOrderUpdate(payload)
		}
	case wsproto.StatusChange:
		var payload wsproto.StatusChangePayload
		if m.decode(f, f.Data, &payload) && m.opts.OnStatusChange != nil {
			m.opts.OnStatusChange(payload)
		}
	case wsproto.Notification:
		var payload wsproto.NotificationPayload
		if m.decode(f, f.Data, &payload) && m.opts.OnNotification != nil {
			m.opts.OnNotification(payload)
		}
	case wsproto.Pong:
	}
}

func (m *Manager) decode(f wsproto.ServerFrame, data []byte, v any) bool {
	if err := wsproto.DecodeData(data, v); err != nil {
		m.log.Warn("ignoring frame with bad data", "type", f.FrameType(), "error", err)
		return false
	}
	return true
}

func (m *Manager) onSubscribe(ev subscribeEvent) {
	switch {
	case m.state == stateOpen, m.state == stateAuthenticating, m.state == stateAuthenticated:
	case (m.state == stateConnecting || m.reconnectTimer != nil) && !m.opts.DisableResubscribe:
		// Accepted while open; the socket dropped before it was applied.
	default:
		m.log.Debug("dropping subscription accepted before disconnect", "order_id", ev.orderID)
		return
	}

	if ev.notifications {
		m.intents.notifications = true
	} else {
		m.intents.orders[ev.orderID] = true
	}
	// Sent after authenticated; the server ignores earlier subscribes.
	if m.state == stateAuthenticated {
		m.flushIntents()
	}
}

func (m *Manager) flushIntents() {
	if m.intents.notifications && !m.sent.notifications {
		if err := m.write(wsproto.SubscribeNotifications{}); err != nil {
			m.abort(err)
			return
		}
		m.sent.notifications = true
	}
	for orderID := range m.intents.orders {
		if m.sent.orders[orderID] {
			continue
		}
		if err := m.write(wsproto.SubscribeOrder{OrderID: orderID}); err != nil {
			m.abort(err)
			return
		}
		m.sent.orders[orderID] = true
	}
}

func (m *Manager) onClosed(code int, err error) {
	wasClosing := m.state == stateClosing
	m.releaseConn()

	if wasClosing || code == websocket.CloseNormalClosure {
		m.log.Info("connection closed", "code", code)
		m.intents = newIntentSet()
		m.setState(stateIdle, nil)
		return
	}
	m.log.Warn("connection lost", "code", code, "error", err)
	m.lost(fmt.Errorf("%w: closed with %d", ErrTransport, code))
}

// lost handles any unexpected closure, including a failed dial, by
// arming a single reconnect.
func (m *Manager) lost(err error) {
	m.releaseConn()
	if m.opts.DisableResubscribe {
		m.intents = newIntentSet()
	}
	m.setState(stateIdle, err)

	if m.session.Token == "" || m.reconnectTimer != nil {
		return
	}
	m.reconnectTimer = time.NewTimer(m.opts.ReconnectDelay)
	m.reconnectC = m.reconnectTimer.C
}

func (m *Manager) disconnect() {
	m.stopReconnect()
	m.intents = newIntentSet()

	switch m.state {
	case stateConnecting:
		m.cancelDial()
		m.cancelDial = nil
		m.gen++
		m.setState(stateIdle, nil)
	case stateOpen, stateAuthenticating, stateAuthenticated:
		m.stopPing()
		m.closeNormally()
		m.setState(stateClosing, nil)
	}
}

// abort drops a socket after a failed write; the read loop then reports
// the closure and the usual reconnect path runs.
func (m *Manager) abort(err error) {
	m.log.Warn("write failed", "error", err)
	if m.conn != nil {
		m.conn.Close()
	}
}

func (m *Manager) write(f wsproto.ClientFrame) error {
	if m.conn == nil {
		return ErrNotConnected
	}
	data, err := wsproto.EncodeClient(f)
	if err != nil {
		return err
	}
	if err := m.conn.SetWriteDeadline(time.Now().Add(m.opts.WriteTimeout)); err != nil {
		return fmt.Errorf("%w: %v", ErrTransport, err)
	}
	if err := m.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("%w: %v", ErrTransport, err)
	}
	return nil
}

func (m *Manager) closeNormally() {
	if m.conn == nil {
		return
	}
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "client disconnect")
	if err := m.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(m.opts.WriteTimeout)); err != nil {
		m.log.Debug("close frame not sent", "error", err)
	}
	m.conn.Close()
}

func (m *Manager) releaseConn() {
	m.stopPing()
	if m.conn != nil {
		m.conn.Close()
		m.conn = nil
	}
	m.connectionID = ""
}

func (m *Manager) startPing() {
	m.stopPing()
	m.pingTicker = time.NewTicker(m.opts.PingInterval)
	m.pingC = m.pingTicker.C
}

func (m *Manager) stopPing() {
	if m.pingTicker != nil {
		m.pingTicker.Stop()
	}
	m.pingTicker, m.pingC = nil, nil
}

func (m *Manager) stopReconnect() {
	if m.reconnectTimer != nil {
		m.reconnectTimer.Stop()
	}
	m.reconnectTimer, m.reconnectC = nil, nil
}

func (m *Manager) shutdown() {
	m.stopReconnect()
	m.stopPing()
	if m.cancelDial != nil {
		m.cancelDial()
		m.cancelDial = nil
	}
	m.closeNormally()
	m.conn = nil
	m.setState(stateIdle, nil)
}

func (m *Manager) setState(s state, err error) {
	if m.state != s {
		m.log.Debug("state transition", "from", m.state, "to", s)
	}
	m.state = s
	status := s.status()
	prev := Status(m.status.Swap(int32(status)))
	if (prev != status || err != nil) && m.opts.OnConnectionStatus != nil {
		m.opts.OnConnectionStatus(status, err)
	}
}

type intentSet struct {
	orders        map[string]bool
	notifications bool
}

func newIntentSet() intentSet {
	return intentSet{orders: make(map[string]bool)}
}

type event interface{}

type sessionEvent struct{ session Session }

type disconnectEvent struct{}

type subscribeEvent struct {
	orderID       string
	notifications bool
}

type dialResult struct {
	gen  uint64
	conn Conn
	err  error
}

type inboundFrame struct {
	gen  uint64
	data []byte
}

type transportClosed struct {
	gen  uint64
	code int
	err  error
}

// requestQueue is an unbounded FIFO of caller requests. push never blocks,
// so callbacks running on the Run goroutine can call back into the Manager.
type requestQueue struct {
	mu      sync.Mutex
	pending []event
	wake    chan struct{}
}

func (q *requestQueue) push(ev event) {
	q.mu.Lock()
	q.pending = append(q.pending, ev)
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
}

func (q *requestQueue) drain() []event {
	q.mu.Lock()
	defer q.mu.Unlock()
	evs := q.pending
	q.pending = nil
	return evs
}
