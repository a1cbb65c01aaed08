package client

// Status is the connection state of a Client.
//
//	NotConnected -> Connecting -> Connected -> ShuttingDown -> NotConnected
//	Connecting -> ConnectionFailed (left only through Reset)
type Status int32

// Connection states.
const (
	NotConnected Status = iota
	Connecting
	Connected
	ShuttingDown
	ConnectionFailed
)

func (s Status) String() string {
	switch s {
	case NotConnected:
		return "not_connected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case ShuttingDown:
		return "shutting_down"
	case ConnectionFailed:
		return "connection_failed"
	default:
		return "unknown"
	}
}
