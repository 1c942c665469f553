package domain

import "time"

// SendStatus is the outcome of handing bytes to the raw socket.
type SendStatus int

const (
	// SendAccepted means the bytes were handed to the network.
	SendAccepted SendStatus = iota
	// SendBuffered means the socket queued the bytes internally.
	SendBuffered
	// SendDropped means the socket refused the bytes because its own
	// backpressure budget is exhausted.
	SendDropped
)

func (s SendStatus) String() string {
	switch s {
	case SendAccepted:
		return "accepted"
	case SendBuffered:
		return "buffered"
	case SendDropped:
		return "dropped"
	default:
		return "unknown"
	}
}

// Websocket close codes sent by the server.
const (
	CloseIdleTimeout = 4000
	CloseAuthTimeout = 4001
	CloseAuthFailed  = 4003
)

type SocketData struct {
	ConnectionID uint64
	RemoteAddr   string
	CreatedAt    time.Time
}

// Socket is the raw connection primitive the delivery pipeline is written
// against. Send returns ErrSocketClosed once the peer is gone.
type Socket interface {
	Send(data []byte) (SendStatus, error)
	BufferedAmount() int
	Close(code int, reason string)
	UserData() *SocketData
}
