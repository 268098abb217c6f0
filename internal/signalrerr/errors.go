// Package signalrerr defines the error taxonomy used across the connection
// core: invalid-state, web, protocol, transport, and the canceled sentinel.
package signalrerr

import (
	"errors"
	"fmt"
)

// ErrCanceled is returned when a start was aborted by a concurrent stop, or
// a stop was superseded by another, already-in-flight stop.
var ErrCanceled = errors.New("signalr: operation canceled")

// InvalidStateError is returned when an operation is attempted while the
// connection is in a state that does not permit it.
type InvalidStateError struct {
	Message string
}

func (e *InvalidStateError) Error() string { return e.Message }

// NewInvalidState builds an InvalidStateError with the given message.
func NewInvalidState(message string) *InvalidStateError {
	return &InvalidStateError{Message: message}
}

// WebError is returned when an HTTP call made during negotiation returned a
// non-2xx status.
type WebError struct {
	Status int
	Reason string
}

func (e *WebError) Error() string {
	return fmt.Sprintf("signalr: web error: %d %s", e.Status, e.Reason)
}

// ProtocolError is returned when the negotiate sub-protocol is violated:
// legacy server, no WebSockets transport, redirect loop, malformed JSON,
// handshake timeout, or a server-reported error field.
type ProtocolError struct {
	Message string
}

func (e *ProtocolError) Error() string { return fmt.Sprintf("signalr: %s", e.Message) }

// NewProtocol builds a ProtocolError with the given message.
func NewProtocol(message string) *ProtocolError {
	return &ProtocolError{Message: message}
}

// TransportError wraps a failure surfaced by the underlying transport:
// connect, send, receive, or close.
type TransportError struct {
	Cause error
}

func (e *TransportError) Error() string { return fmt.Sprintf("signalr: transport error: %v", e.Cause) }

func (e *TransportError) Unwrap() error { return e.Cause }

// NewTransport wraps cause in a TransportError.
func NewTransport(cause error) *TransportError {
	return &TransportError{Cause: cause}
}
