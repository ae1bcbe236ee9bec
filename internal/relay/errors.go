package relay

import (
	"errors"
	"fmt"
)

var (
	// ErrClosed is returned for sends after Close and used to reject
	// queries still pending when the connection goes away.
	ErrClosed = errors.New("relay connection closed")

	// ErrQueryTimeout rejects a query that got no reply within the
	// configured query timeout.
	ErrQueryTimeout = errors.New("relay query timed out")

	// ErrSendQueueFull is returned when the outbound queue has no room.
	// The packet is dropped.
	ErrSendQueueFull = errors.New("relay send queue full")
)

// RemoteError is a failure reported by the relay in a reply envelope.
type RemoteError struct {
	Type    PacketType
	Message string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("relay rejected %s: %s", e.Type, e.Message)
}
