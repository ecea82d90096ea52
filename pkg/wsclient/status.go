package wsclient

// Status is the connection state exposed to the UI.
type Status int

const (
	StatusDisconnected Status = iota
	StatusConnecting
	StatusConnected
	StatusAuthenticated
)

func (s Status) String() string {
	switch s {
	case StatusConnecting:
		return "connecting"
	case StatusConnected:
		return "connected"
	case StatusAuthenticated:
		return "authenticated"
	default:
		return "disconnected"
	}
}

// state is the internal machine state; several map to one Status.
type state int

const (
	stateIdle state = iota
	stateConnecting
	stateOpen
	stateAuthenticating
	stateAuthenticated
	stateClosing
)

func (s state) String() string {
	return [...]string{"idle", "connecting", "open", "authenticating", "authenticated", "closing"}[s]
}

func (s state) status() Status {
	switch s {
	case stateConnecting:
		return StatusConnecting
	case stateOpen, stateAuthenticating:
		return StatusConnected
	case stateAuthenticated:
		return StatusAuthenticated
	default:
		return StatusDisconnected
	}
}
