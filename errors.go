package signalr

import "github.com/signalrgo/client/internal/signalrerr"

// Error taxonomy. Start, Stop, and Send report their failures through these
// types, discoverable via errors.As/errors.Is. An error from the HTTP client
// itself during the negotiate POST (one that occurs before any response
// status is received) is returned unwrapped.
type (
	// InvalidStateError is returned when an operation is attempted while the
	// connection is in a state that does not permit it.
	InvalidStateError = signalrerr.InvalidStateError
	// WebError is returned when the negotiate HTTP call returned a non-2xx
	// status.
	WebError = signalrerr.WebError
	// ProtocolError is returned when the negotiate sub-protocol is violated:
	// legacy server, no WebSockets transport, redirect loop, malformed JSON,
	// handshake timeout, or a server-reported error field.
	ProtocolError = signalrerr.ProtocolError
	// TransportError wraps a failure surfaced by the underlying transport.
	TransportError = signalrerr.TransportError
)

// ErrCanceled is returned by Start when a concurrent Stop aborts it, and by
// a Stop that was superseded by another, already-in-flight Stop.
var ErrCanceled = signalrerr.ErrCanceled
