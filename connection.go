// Package signalr implements the client-side connection state machine for
// the ASP.NET Core SignalR protocol: HTTP negotiation (with bounded
// redirects and bearer-token propagation), a WebSocket transport, and a
// long-running receive loop delivering framed messages to a user callback.
//
// The hub layer (method invocation dispatch, argument serialization) is
// not part of this package; Connection exposes only Start, Stop, Send, and
// the raw message callback described by the negotiate/transport protocol.
package signalr

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/signalrgo/client/internal/framing"
	"github.com/signalrgo/client/internal/httpsender"
	"github.com/signalrgo/client/internal/metrics"
	"github.com/signalrgo/client/internal/negotiate"
	"github.com/signalrgo/client/internal/signalrerr"
	"github.com/signalrgo/client/internal/tracelog"
	"github.com/signalrgo/client/internal/transport"
	"github.com/signalrgo/client/internal/urlbuilder"
)

// Transport is the duplex, message-framed channel a Connection drives.
// Exposed so a caller can plug in a transport other than the built-in
// WebSocket variant (e.g. a test double).
type Transport = transport.Transport

// Option configures a Connection at construction time.
type Option func(*Connection)

// WithHTTPClient overrides the Doer used for the negotiate POST. Defaults
// to an http.Client that does not follow HTTP-level redirects.
func WithHTTPClient(client httpsender.Doer) Option {
	return func(c *Connection) { c.httpClient = client }
}

// WithTransportFactory overrides how a fresh Transport is created for each
// start attempt. Defaults to a gorilla/websocket-backed transport.
func WithTransportFactory(factory func() Transport) Option {
	return func(c *Connection) { c.newTransport = factory }
}

// WithMetrics registers Prometheus instrumentation against reg.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(c *Connection) { c.metrics = metrics.New(reg) }
}

// WithLogger overrides the Logger built from New's traceLevel/logWriter
// arguments entirely — e.g. to supply a rotating-file logger built with
// NewRotatingFileLogger.
func WithLogger(logger Logger) Option {
	return func(c *Connection) { c.logger = logger }
}

// WithClientConfig sets the initial ClientConfig.
func WithClientConfig(cfg ClientConfig) Option {
	return func(c *Connection) { c.config = cfg }
}

// Connection is the connection state machine described by the SignalR
// negotiation and transport framing protocol. Construct with New; it is
// safe for concurrent use by multiple goroutines.
type Connection struct {
	baseURL      *url.URL
	httpClient   httpsender.Doer
	newTransport func() Transport
	logger       Logger
	metrics      *metrics.Metrics

	mu             sync.Mutex
	state          State
	connectionID   string
	config         ClientConfig
	onMessage      func(string)
	onDisconnected func()
	transport      Transport
	startCancel    context.CancelFunc
	receiveDone    chan struct{}
	stopSignal     chan struct{}
}

// New constructs a Connection for rawURL, logging at traceLevel to
// logWriter (os.Stderr if nil). The connection starts Disconnected; call
// Start to negotiate and connect.
func New(rawURL string, traceLevel TraceLevel, logWriter io.Writer, opts ...Option) (*Connection, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, err
	}

	c := &Connection{
		baseURL:    u,
		httpClient: &http.Client{CheckRedirect: noFollowRedirects},
		logger:     tracelog.New(traceLevel, logWriter),
		config:     ClientConfig{HTTPHeaders: http.Header{}},
	}
	c.newTransport = func() Transport {
		return transport.NewWebSocket(c.config.DialTimeout, c.config.WriteTimeout)
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// noFollowRedirects makes the default negotiate client return a 3xx
// response as-is instead of following it.
func noFollowRedirects(*http.Request, []*http.Request) error {
	return http.ErrUseLastResponse
}

// GetState returns the current state. Does not suspend.
func (c *Connection) GetState() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// GetConnectionID returns the last negotiated connection id, or "" if none
// has been negotiated yet. Does not suspend.
func (c *Connection) GetConnectionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connectionID
}

// SetOnMessage installs the callback invoked for every inbound message.
// Only permitted while Disconnected.
func (c *Connection) SetOnMessage(cb func(string)) error {
	return c.mutateWhileDisconnected("on_message", func() { c.onMessage = cb })
}

// SetOnDisconnected installs the callback invoked once shutdown completes.
// Only permitted while Disconnected.
func (c *Connection) SetOnDisconnected(cb func()) error {
	return c.mutateWhileDisconnected("on_disconnected", func() { c.onDisconnected = cb })
}

// SetClientConfig replaces the ClientConfig used by the next Start. Only
// permitted while Disconnected.
func (c *Connection) SetClientConfig(cfg ClientConfig) error {
	return c.mutateWhileDisconnected("client config", func() { c.config = cfg })
}

func (c *Connection) mutateWhileDisconnected(name string, mutate func()) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != Disconnected {
		return signalrerr.NewInvalidState(fmt.Sprintf(
			"cannot set %s when the connection is not in the disconnected state. current connection state: %s",
			name, c.state,
		))
	}
	mutate()
	return nil
}

// Close is the io.Closer realization of spec-mandated destruction
// semantics: it blocks until the receive loop and transport have closed.
// Callers that construct a Connection are responsible for calling Close
// (or Stop) themselves; Go's garbage collector does not run destructors,
// so nothing here relies on finalization.
func (c *Connection) Close() error {
	return c.Stop(context.Background())
}

// setStateLocked transitions state, logging "[state change] from -> to"
// and updating the state gauge. Must be called with mu held.
func (c *Connection) setStateLocked(to State) {
	from := c.state
	c.state = to
	c.logger.StateChange(from.String(), to.String())
	if c.metrics != nil {
		c.metrics.SetState(allStates, to.String())
	}
}

// checkOwnership reports whether Start still owns the in-flight attempt
// (state is still Connecting) or whether a concurrent Stop has already
// taken over the shutdown; in the latter case it also returns the channel
// to wait on for that shutdown to finish.
func (c *Connection) checkOwnership() (owns bool, waitCh <-chan struct{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == Connecting {
		return true, nil
	}
	return false, c.stopSignal
}

func waitOn(ch <-chan struct{}) {
	if ch != nil {
		<-ch
	}
}

// Start negotiates, connects, and awaits the handshake frame, transitioning
// Disconnected -> Connecting -> Connected. A concurrent Stop cancels an
// in-flight Start, which then returns signalrerr.ErrCanceled once the stop
// sequence has completed.
func (c *Connection) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.state != Disconnected {
		state := c.state
		c.mu.Unlock()
		return signalrerr.NewInvalidState(fmt.Sprintf(
			"cannot start a connection that is not in the disconnected state (current state: %s)", state,
		))
	}

	startCtx, cancel := context.WithCancel(ctx)
	c.connectionID = ""
	c.startCancel = cancel
	cfgSnapshot := c.config.Clone()
	c.setStateLocked(Connecting)
	c.mu.Unlock()

	result, err := negotiate.Negotiate(startCtx, c.httpClient, c.baseURL, cfgSnapshot, c.metrics)
	if err != nil {
		if startCtx.Err() != nil {
			return c.waitForStopTeardown()
		}
		return c.abortFailedStart(nil, nil, err)
	}

	c.mu.Lock()
	c.connectionID = result.ConnectionID
	c.mu.Unlock()

	if owns, waitCh := c.checkOwnership(); !owns {
		waitOn(waitCh)
		return signalrerr.ErrCanceled
	}

	tr := c.newTransport()
	connectURL := urlbuilder.BuildConnect(result.FinalURL, result.ConnectionID)
	if err := tr.Connect(startCtx, connectURL, result.EffectiveConfig.HTTPHeaders); err != nil {
		if startCtx.Err() != nil {
			return c.waitForStopTeardown()
		}
		return c.abortFailedStart(nil, nil, err)
	}

	owns, waitCh := c.checkOwnership()
	if !owns {
		_ = tr.Close()
		waitOn(waitCh)
		return signalrerr.ErrCanceled
	}

	done := make(chan struct{})
	c.mu.Lock()
	c.transport = tr
	c.receiveDone = done
	c.mu.Unlock()

	handshakeCh := make(chan error, 1)
	go c.receiveLoop(tr, handshakeCh, done)

	timeout := result.EffectiveConfig.EffectiveHandshakeTimeout()
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	var handshakeErr error
	select {
	case handshakeErr = <-handshakeCh:
	case <-timer.C:
		handshakeErr = signalrerr.NewProtocol("transport timed out when trying to connect")
	case <-startCtx.Done():
		return c.waitForStopTeardown()
	}

	if handshakeErr != nil {
		return c.abortFailedStart(tr, done, handshakeErr)
	}

	owns, waitCh = c.checkOwnership()
	if !owns {
		waitOn(waitCh)
		return signalrerr.ErrCanceled
	}

	c.mu.Lock()
	c.receiveDone = done
	c.setStateLocked(Connected)
	c.mu.Unlock()

	go c.monitorLoopExit(done)

	return nil
}

// waitForStopTeardown blocks until a concurrent Stop (which already owns
// the shutdown sequence, having observed ctx cancellation) has finished,
// then returns the canceled sentinel to the Start caller.
func (c *Connection) waitForStopTeardown() error {
	c.mu.Lock()
	ch := c.stopSignal
	c.mu.Unlock()
	waitOn(ch)
	return signalrerr.ErrCanceled
}

// abortFailedStart rolls a failed (not canceled) start attempt back to
// Disconnected and returns the original error. If a concurrent Stop has
// already taken ownership, it defers to that instead.
func (c *Connection) abortFailedStart(tr Transport, done chan struct{}, cause error) error {
	owns, waitCh := c.checkOwnership()
	if !owns {
		if tr != nil {
			_ = tr.Close()
		}
		waitOn(done)
		waitOn(waitCh)
		return signalrerr.ErrCanceled
	}

	if tr != nil {
		_ = tr.Close()
	}
	waitOn(done)

	c.mu.Lock()
	c.transport = nil
	c.receiveDone = nil
	c.startCancel = nil
	c.setStateLocked(Disconnected)
	c.mu.Unlock()

	return cause
}

// Stop tears the connection down. Idempotent: stopping an already
// disconnected connection is a no-op. A second concurrent Stop observes
// signalrerr.ErrCanceled rather than sharing the first caller's outcome.
func (c *Connection) Stop(ctx context.Context) error {
	c.mu.Lock()
	c.logger.Info("stopping connection")
	c.logger.Info("acquired lock in shutdown()")

	switch c.state {
	case Disconnected:
		c.mu.Unlock()
		return nil
	case Disconnecting:
		c.mu.Unlock()
		return signalrerr.ErrCanceled
	}

	wasConnecting := c.state == Connecting
	cancel := c.startCancel
	signal := make(chan struct{})
	c.stopSignal = signal
	c.setStateLocked(Disconnecting)
	c.mu.Unlock()

	if wasConnecting && cancel != nil {
		cancel()
		c.logger.Info("starting the connection has been canceled.")
	}

	c.mu.Lock()
	tr := c.transport
	done := c.receiveDone
	c.mu.Unlock()

	if tr != nil {
		_ = tr.Close()
	}
	waitOn(done)

	c.mu.Lock()
	c.setStateLocked(Disconnected)
	cb := c.onDisconnected
	c.transport = nil
	c.receiveDone = nil
	c.startCancel = nil
	c.stopSignal = nil
	c.mu.Unlock()

	c.invokeOnDisconnected(cb)
	close(signal)
	return nil
}

// Send forwards message to the transport. Requires state == Connected.
func (c *Connection) Send(ctx context.Context, message string) error {
	c.mu.Lock()
	if c.state != Connected {
		state := c.state
		c.mu.Unlock()
		return signalrerr.NewInvalidState(fmt.Sprintf(
			"cannot send data when the connection is not in the connected state. current connection state: %s", state,
		))
	}
	tr := c.transport
	c.mu.Unlock()

	if err := tr.Send(ctx, framing.Write(message)); err != nil {
		c.logger.Error("error sending data: " + err.Error())
		return err
	}
	c.logger.Message("sent: " + message)
	if c.metrics != nil {
		c.metrics.MessagesTotal.WithLabelValues("outbound").Inc()
	}
	return nil
}

// invokeOnDisconnected calls cb outside the state lock, recovering and
// logging any panic exactly like dispatchMessage does for on_message.
func (c *Connection) invokeOnDisconnected(cb func()) {
	if cb == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			if err, ok := r.(error); ok {
				c.logger.Error("disconnected callback threw an exception: " + err.Error())
			} else {
				c.logger.Error("disconnected callback threw an unknown exception")
			}
		}
	}()
	cb()
}

// monitorLoopExit drives the "loop-termination" edge of the state diagram:
// a spontaneous transport failure while Connected, with no Stop in
// flight, still tears the connection down to Disconnected and invokes
// on_disconnected. If a Stop is already (or concurrently becomes)
// responsible for shutdown, this is a no-op — Stop owns the teardown.
func (c *Connection) monitorLoopExit(done <-chan struct{}) {
	<-done

	c.mu.Lock()
	if c.state != Connected {
		c.mu.Unlock()
		return
	}
	c.setStateLocked(Disconnecting)
	tr := c.transport
	c.mu.Unlock()

	if tr != nil {
		_ = tr.Close()
	}

	c.mu.Lock()
	c.setStateLocked(Disconnected)
	cb := c.onDisconnected
	c.transport = nil
	c.receiveDone = nil
	c.mu.Unlock()

	c.invokeOnDisconnected(cb)
}

// receiveLoop pairs a transport reader with a frame dispatcher via
// errgroup, grounded on r0bot-signalr/client.go's Run(): one goroutine
// turns transport reads into framed messages, the other dispatches them
// to on_message, and the pair fails together the moment either side
// returns. It signals handshakeCh exactly once (nil on success, an error
// otherwise), then keeps delivering frames until the transport errors.
func (c *Connection) receiveLoop(tr Transport, handshakeCh chan<- error, done chan<- struct{}) {
	defer close(done)

	frames := make(chan string)
	g, gctx := errgroup.WithContext(context.Background())

	g.Go(func() error {
		defer close(frames)
		for {
			raw, err := tr.Receive(context.Background())
			if err != nil {
				return err
			}
			for _, frame := range framing.Split(raw) {
				select {
				case frames <- frame:
				case <-gctx.Done():
					return gctx.Err()
				}
			}
		}
	})

	handshakeSeen := false
	g.Go(func() error {
		for frame := range frames {
			if !handshakeSeen {
				handshakeSeen = true
				if !framing.IsHandshake(frame) {
					err := signalrerr.NewProtocol("expected handshake frame, got: " + frame)
					handshakeCh <- err
					return err
				}
				handshakeCh <- nil
				// Open question (a): the handshake frame is still delivered
				// to on_message after it served as the start signal.
				c.dispatchMessage(frame)
				continue
			}
			c.dispatchMessage(frame)
		}
		return nil
	})

	err := g.Wait()
	if !handshakeSeen {
		handshakeCh <- signalrerr.NewTransport(err)
	}
}

// dispatchMessage invokes on_message outside the state lock, recovering
// any panic so the loop survives a misbehaving callback.
func (c *Connection) dispatchMessage(frame string) {
	c.mu.Lock()
	cb := c.onMessage
	c.mu.Unlock()

	c.logger.Message("received: " + frame)
	if c.metrics != nil {
		c.metrics.MessagesTotal.WithLabelValues("inbound").Inc()
	}

	if cb == nil {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			if err, ok := r.(error); ok {
				c.logger.Error("message_received callback threw an exception: " + err.Error())
			} else {
				c.logger.Error("message_received callback threw an unknown exception")
			}
			if c.metrics != nil {
				c.metrics.CallbackPanicsTotal.Inc()
			}
		}
	}()
	cb(frame)
}
