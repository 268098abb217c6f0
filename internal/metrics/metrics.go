// Package metrics exposes optional Prometheus instrumentation for the
// connection core: state gauge, negotiate/redirect counters, message
// counters, and a counter for callback panics the receive loop recovered.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors for one process. Embedders that
// don't want metrics can simply not register the default registerer, or
// construct a Metrics bound to a private prometheus.Registry.
type Metrics struct {
	StateGauge          *prometheus.GaugeVec
	NegotiateAttempts   prometheus.Counter
	NegotiateRedirects  prometheus.Counter
	MessagesTotal       *prometheus.CounterVec
	CallbackPanicsTotal prometheus.Counter
}

// New registers and returns a fresh Metrics set against reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		StateGauge: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "signalr_connection_state",
			Help: "Current connection state (1 for the active state, 0 otherwise), labeled by state name.",
		}, []string{"state"}),
		NegotiateAttempts: factory.NewCounter(prometheus.CounterOpts{
			Name: "signalr_negotiate_attempts_total",
			Help: "Total negotiate HTTP calls issued, including redirect hops.",
		}),
		NegotiateRedirects: factory.NewCounter(prometheus.CounterOpts{
			Name: "signalr_negotiate_redirects_total",
			Help: "Total negotiate redirects followed.",
		}),
		MessagesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "signalr_messages_total",
			Help: "Total messages exchanged over the transport.",
		}, []string{"direction"}),
		CallbackPanicsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "signalr_callback_panics_total",
			Help: "Total panics recovered from user callbacks in the receive loop.",
		}),
	}
}

// SetState updates the state gauge so only the given state reads 1.
func (m *Metrics) SetState(states []string, current string) {
	if m == nil {
		return
	}
	for _, s := range states {
		v := 0.0
		if s == current {
			v = 1.0
		}
		m.StateGauge.WithLabelValues(s).Set(v)
	}
}

// IncNegotiateAttempt records one negotiate POST (including redirect hops).
func (m *Metrics) IncNegotiateAttempt() {
	if m == nil {
		return
	}
	m.NegotiateAttempts.Inc()
}

// IncNegotiateRedirect records one followed negotiate redirect.
func (m *Metrics) IncNegotiateRedirect() {
	if m == nil {
		return
	}
	m.NegotiateRedirects.Inc()
}
