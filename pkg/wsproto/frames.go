// Package wsproto defines the JSON frames exchanged over the realtime
// WebSocket channel. Both the server hub and the client manager use it.
package wsproto

import (
	"errors"
	"fmt"
	"time"

	json "github.com/goccy/go-json"
	"github.com/gorilla/websocket"
)

const (
	TypeAuthenticate           = "authenticate"
	TypeSubscribeOrder         = "subscribe_order"
	TypeSubscribeNotifications = "subscribe_notifications"
	TypePing                   = "ping"

	TypeConnectionEstablished   = "connection_established"
	TypeAuthenticated           = "authenticated"
	TypeOrderSubscribed         = "order_subscribed"
	TypeNotificationsSubscribed = "notifications_subscribed"
	TypeTrackingUpdate          = "tracking_update"
	TypeNotification            = "notification"
	TypeStatusChange            = "status_change"
	TypePong                    = "pong"
)

const (
	CloseNormal          = websocket.CloseNormalClosure   // 1000, manual disconnect
	CloseGoingAway       = websocket.CloseGoingAway       // 1001, heartbeat eviction
	CloseAbnormal        = websocket.CloseAbnormalClosure // 1006, never sent on the wire
	ClosePolicyViolation = websocket.ClosePolicyViolation // 1008, authentication failed
	CloseTryAgainLater   = websocket.CloseTryAgainLater   // 1013, slow consumer
)

const (
	PingInterval     = 30 * time.Second
	HeartbeatTimeout = 2 * PingInterval
	ReconnectDelay   = 3 * time.Second
)

var (
	// ErrParse is returned for payloads that are not a JSON frame.
	ErrParse = errors.New("wsproto: malformed frame")
	// ErrUnknownType is returned for well-formed frames with an unrecognised type.
	ErrUnknownType = errors.New("wsproto: unknown frame type")
)

// ClientFrame is a frame sent by the client. The set is closed.
type ClientFrame interface {
	clientFrame()
	FrameType() string
}

// ServerFrame is a frame sent by the server. The set is closed.
type ServerFrame interface {
	serverFrame()
	FrameType() string
}

type Authenticate struct {
	UserID string
	Token  string
}

type SubscribeOrder struct {
	OrderID string
}

type SubscribeNotifications struct{}

type Ping struct{}

type ConnectionEstablished struct {
	ConnectionID string
}

type Authenticated struct {
	UserID string
}

type OrderSubscribed struct {
	OrderID string
}

type NotificationsSubscribed struct{}

type TrackingUpdate struct {
	Data json.RawMessage
}

type Notification struct {
	Data json.RawMessage
}

type StatusChange struct {
	Data json.RawMessage
}

type Pong struct{}

func (Authenticate) clientFrame()           {}
func (SubscribeOrder) clientFrame()         {}
func (SubscribeNotifications) clientFrame() {}
func (Ping) clientFrame()                   {}

func (ConnectionEstablished) serverFrame()   {}
func (Authenticated) serverFrame()           {}
func (OrderSubscribed) serverFrame()         {}
func (NotificationsSubscribed) serverFrame() {}
func (TrackingUpdate) serverFrame()          {}
func (Notification) serverFrame()            {}
func (StatusChange) serverFrame()            {}
func (Pong) serverFrame()                    {}

func (Authenticate) FrameType() string           { return TypeAuthenticate }
func (SubscribeOrder) FrameType() string         { return TypeSubscribeOrder }
func (SubscribeNotifications) FrameType() string { return TypeSubscribeNotifications }
func (Ping) FrameType() string                   { return TypePing }

func (ConnectionEstablished) FrameType() string   { return TypeConnectionEstablished }
func (Authenticated) FrameType() string           { return TypeAuthenticated }
func (OrderSubscribed) FrameType() string         { return TypeOrderSubscribed }
func (NotificationsSubscribed) FrameType() string { return TypeNotificationsSubscribed }
func (TrackingUpdate) FrameType() string          { return TypeTrackingUpdate }
func (Notification) FrameType() string            { return TypeNotification }
func (StatusChange) FrameType() string            { return TypeStatusChange }
func (Pong) FrameType() string                    { return TypePong }

// envelope is the flat wire shape shared by every frame.
type envelope struct {
	Type         string          `json:"type"`
	UserID       string          `json:"userId,omitempty"`
	Token        string          `json:"token,omitempty"`
	OrderID      string          `json:"orderId,omitempty"`
	ConnectionID string          `json:"connectionId,omitempty"`
	Data         json.RawMessage `json:"data,omitempty"`
}

func EncodeClient(f ClientFrame) ([]byte, error) {
	var env envelope
	switch f := f.(type) {
	case Authenticate:
		env = envelope{Type: TypeAuthenticate, UserID: f.UserID, Token: f.Token}
	case SubscribeOrder:
		env = envelope{Type: TypeSubscribeOrder, OrderID: f.OrderID}
	case SubscribeNotifications:
		env = envelope{Type: TypeSubscribeNotifications}
	case Ping:
		env = envelope{Type: TypePing}
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownType, f)
	}
	return json.Marshal(env)
}

func EncodeServer(f ServerFrame) ([]byte, error) {
	var env envelope
	switch f := f.(type) {
	case ConnectionEstablished:
		env = envelope{Type: TypeConnectionEstablished, ConnectionID: f.ConnectionID}
	case Authenticated:
		env = envelope{Type: TypeAuthenticated, UserID: f.UserID}
	case OrderSubscribed:
		env = envelope{Type: TypeOrderSubscribed, OrderID: f.OrderID}
	case NotificationsSubscribed:
		env = envelope{Type: TypeNotificationsSubscribed}
	case TrackingUpdate:
		env = envelope{Type: TypeTrackingUpdate, Data: f.Data}
	case Notification:
		env = envelope{Type: TypeNotification, Data: f.Data}
	case StatusChange:
		env = envelope{Type: TypeStatusChange, Data: f.Data}
	case Pong:
		env = envelope{Type: TypePong}
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownType, f)
	}
	return json.Marshal(env)
}

func decodeEnvelope(raw []byte) (envelope, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return env, fmt.Errorf("%w: %v", ErrParse, err)
	}
	if env.Type == "" {
		return env, fmt.Errorf("%w: missing type", ErrParse)
	}
	return env, nil
}

// DecodeClient parses a frame received by the server.
func DecodeClient(raw []byte) (ClientFrame, error) {
	env, err := decodeEnvelope(raw)
	if err != nil {
		return nil, err
	}
	switch env.Type {
	case TypeAuthenticate:
		return Authenticate{UserID: env.UserID, Token: env.Token}, nil
	case TypeSubscribeOrder:
		return SubscribeOrder{OrderID: env.OrderID}, nil
	case TypeSubscribeNotifications:
		return SubscribeNotifications{}, nil
	case TypePing:
		return Ping{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, env.Type)
	}
}

// DecodeServer parses a frame received by the client.
func DecodeServer(raw []byte) (ServerFrame, error) {
	env, err := decodeEnvelope(raw)
	if err != nil {
		return nil, err
	}
	switch env.Type {
	case TypeConnectionEstablished:
		return ConnectionEstablished{ConnectionID: env.ConnectionID}, nil
	case TypeAuthenticated:
		return Authenticated{UserID: env.UserID}, nil
	case TypeOrderSubscribed:
		return OrderSubscribed{OrderID: env.OrderID}, nil
	case TypeNotificationsSubscribed:
		return NotificationsSubscribed{}, nil
	case TypeTrackingUpdate:
		return TrackingUpdate{Data: env.Data}, nil
	case TypeNotification:
		return Notification{Data: env.Data}, nil
	case TypeStatusChange:
		return StatusChange{Data: env.Data}, nil
	case TypePong:
		return Pong{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, env.Type)
	}
}
