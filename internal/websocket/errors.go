package websocket

import "errors"

var (
	// ErrUnknownConnection means the connection id is not registered,
	// usually because the connection already disconnected.
	ErrUnknownConnection = errors.New("unknown connection")

	// ErrSendBufferFull means the connection's outbound buffer
	// overflowed. The connection is treated as dead.
	ErrSendBufferFull = errors.New("send buffer full")

	// ErrConnectionClosed means the connection is tearing down.
	ErrConnectionClosed = errors.New("connection closed")

	// ErrNotParticipant means the user tried to subscribe to a chat
	// they are not an active participant of.
	ErrNotParticipant = errors.New("not a participant of this chat")
)
