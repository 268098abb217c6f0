// Package transport abstracts the duplex, message-framed channel used for
// post-negotiation traffic, with one concrete WebSocket variant.
package transport

import (
	"context"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/signalrgo/client/internal/signalrerr"
)

// Transport is the duplex, message-framed channel contract: connect, send,
// receive, close. Implementations are safe for concurrent Send calls; only
// one goroutine (the receive loop) may call Receive at a time.
type Transport interface {
	Connect(ctx context.Context, u *url.URL, headers http.Header) error
	Send(ctx context.Context, message string) error
	Receive(ctx context.Context) (string, error)
	Close() error
}

// WebSocket is the concrete Transport backed by gorilla/websocket.
type WebSocket struct {
	dialTimeout  time.Duration
	writeTimeout time.Duration
	conn         *websocket.Conn
	writeMu      sync.Mutex
}

// NewWebSocket builds an unconnected WebSocket transport tuned by the given
// dial and write timeouts (zero means no bound beyond the caller's context).
func NewWebSocket(dialTimeout, writeTimeout time.Duration) *WebSocket {
	return &WebSocket{dialTimeout: dialTimeout, writeTimeout: writeTimeout}
}

// Connect opens the WebSocket upgrade request against u, carrying headers
// into it.
func (w *WebSocket) Connect(ctx context.Context, u *url.URL, headers http.Header) error {
	dialer := *websocket.DefaultDialer
	dialer.HandshakeTimeout = w.dialTimeout

	conn, resp, err := dialer.DialContext(ctx, u.String(), headers)
	if err != nil {
		return signalrerr.NewTransport(err)
	}
	if resp != nil {
		defer func() { _ = resp.Body.Close() }()
	}

	w.conn = conn
	return nil
}

// Send enqueues a text message for the peer.
func (w *WebSocket) Send(ctx context.Context, message string) error {
	w.writeMu.Lock()
	defer w.writeMu.Unlock()

	if w.writeTimeout > 0 {
		_ = w.conn.SetWriteDeadline(timeNow().Add(w.writeTimeout))
	} else if deadline, ok := ctx.Deadline(); ok {
		_ = w.conn.SetWriteDeadline(deadline)
	}

	if err := w.conn.WriteMessage(websocket.TextMessage, []byte(message)); err != nil {
		return signalrerr.NewTransport(err)
	}
	return nil
}

// Receive resolves with the next inbound text message, or a transport
// error on close.
func (w *WebSocket) Receive(ctx context.Context) (string, error) {
	_, payload, err := w.conn.ReadMessage()
	if err != nil {
		return "", signalrerr.NewTransport(err)
	}
	return string(payload), nil
}

// Close initiates shutdown of the underlying socket.
func (w *WebSocket) Close() error {
	if w.conn == nil {
		return nil
	}
	return w.conn.Close()
}

// timeNow is a var so tests could override it; kept simple since the
// transport itself carries no test-sensitive clock logic today.
var timeNow = time.Now
