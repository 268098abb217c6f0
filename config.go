package signalr

import (
	"github.com/signalrgo/client/internal/clientconfig"
	"github.com/signalrgo/client/internal/tracelog"
)

// ClientConfig carries the HTTP headers and per-transport knobs used during
// negotiation and transport connect. The zero value is usable.
type ClientConfig = clientconfig.Config

// TraceLevel selects which categories of trace lines the connection emits.
type TraceLevel = tracelog.Level

// Trace level constants, matching the library surface's taxonomy.
const (
	TraceNone         = tracelog.None
	TraceStateChanges = tracelog.StateChanges
	TraceMessages     = tracelog.Messages
	TraceErrors       = tracelog.Errors
	TraceAll          = tracelog.All
)
