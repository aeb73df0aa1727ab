package rcon

import (
	"errors"
	"fmt"
)

var (
	// ErrIncompleteRead signals the stream ended in the middle of a frame.
	ErrIncompleteRead = errors.New("rcon: incomplete read")
	// ErrInvalidPassword signals the server rejected the RCON password.
	ErrInvalidPassword = errors.New("rcon: invalid password")
	// ErrInvalidPacket signals a response packet that breaks the protocol.
	ErrInvalidPacket = errors.New("rcon: invalid packet")
	// ErrInvalidPayload signals a payload that does not round-trip under
	// the server's text encoding.
	ErrInvalidPayload = errors.New("rcon: payload not representable in encoding")
	// ErrServerNotFound signals the server supplier returned no descriptor,
	// typically because the server was deleted while its service was
	// reconnecting.
	ErrServerNotFound = errors.New("rcon: server not found")
)

// RequestIDMismatchError signals a response carrying a different request id
// than the outstanding request.
type RequestIDMismatchError struct {
	Expected int32
	Received int32
}

func (e *RequestIDMismatchError) Error() string {
	return fmt.Sprintf("rcon: request id mismatch: expected %d, received %d", e.Expected, e.Received)
}
