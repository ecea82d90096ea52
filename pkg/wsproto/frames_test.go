package wsproto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientFramesRoundTrip(t *testing.T) {
	frames := []ClientFrame{
		Authenticate{UserID: "user-1", Token: "jwt"},
		SubscribeOrder{OrderID: "order-42"},
		SubscribeNotifications{},
		Ping{},
	}
	for _, f := range frames {
		t.Run(f.FrameType(), func(t *testing.T) {
			raw, err := EncodeClient(f)
			require.NoError(t, err)
			assert.Contains(t, string(raw), `"type":"`+f.FrameType()+`"`)

			got, err := DecodeClient(raw)
			require.NoError(t, err)
			assert.Equal(t, f, got)
		})
	}
}

func TestServerFramesRoundTrip(t *testing.T) {
	data := []byte(`{"orderId":"order-42","status":"shipped"}`)
	frames := []ServerFrame{
		ConnectionEstablished{ConnectionID: "conn-1"},
		Authenticated{UserID: "user-1"},
		OrderSubscribed{OrderID: "order-42"},
		NotificationsSubscribed{},
		TrackingUpdate{Data: data},
		Notification{Data: data},
		StatusChange{Data: data},
		Pong{},
	}
	for _, f := range frames {
		t.Run(f.FrameType(), func(t *testing.T) {
			raw, err := EncodeServer(f)
			require.NoError(t, err)

			got, err := DecodeServer(raw)
			require.NoError(t, err)
			assert.Equal(t, f.FrameType(), got.FrameType())
			switch want := f.(type) {
			case TrackingUpdate:
				assert.JSONEq(t, string(want.Data), string(got.(TrackingUpdate).Data))
			case Notification:
				assert.JSONEq(t, string(want.Data), string(got.(Notification).Data))
			case StatusChange:
				assert.JSONEq(t, string(want.Data), string(got.(StatusChange).Data))
			default:
				assert.Equal(t, f, got)
			}
		})
	}
}

func TestWireFieldNames(t *testing.T) {
	raw, err := EncodeServer(ConnectionEstablished{ConnectionID: "c"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"connection_established","connectionId":"c"}`, string(raw))

	raw, err = EncodeClient(Authenticate{UserID: "u", Token: "t"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"authenticate","userId":"u","token":"t"}`, string(raw))

	raw, err = EncodeServer(Pong{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"pong"}`, string(raw))
}

func TestDecodeErrors(t *testing.T) {
	_, err := DecodeClient([]byte("not json"))
	assert.ErrorIs(t, err, ErrParse)

	_, err = DecodeClient([]byte(`{"orderId":"x"}`))
	assert.ErrorIs(t, err, ErrParse)

	_, err = DecodeClient([]byte(`{"type":"teleport"}`))
	assert.ErrorIs(t, err, ErrUnknownType)

	// server frames are not valid client input
	_, err = DecodeClient([]byte(`{"type":"pong"}`))
	assert.ErrorIs(t, err, ErrUnknownType)

	_, err = DecodeServer([]byte(`{"type":"ping"}`))
	assert.ErrorIs(t, err, ErrUnknownType)
}

func TestDecodeData(t *testing.T) {
	var p StatusChangePayload
	require.NoError(t, DecodeData([]byte(`{"orderId":"o","status":"shipped","previousStatus":"roasting"}`), &p))
	assert.Equal(t, StatusChangePayload{OrderID: "o", Status: "shipped", PreviousStatus: "roasting"}, p)

	assert.ErrorIs(t, DecodeData(nil, &p), ErrParse)
	assert.ErrorIs(t, DecodeData([]byte("{"), &p), ErrParse)
}
