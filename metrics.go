package mchub

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the server's Prometheus collectors. A nil *Metrics records
// nothing, so connections built without one need no special casing.
type Metrics struct {
	connsActive   prometheus.Gauge
	connsTotal    prometheus.Counter
	connsRejected prometheus.Counter

	packetsReceived      *prometheus.CounterVec
	packetsUnimplemented *prometheus.CounterVec
	packetsSent          prometheus.Counter
	decodeErrors         *prometheus.CounterVec
	connErrors           prometheus.Counter
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		connsActive: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "mchub",
			Name:      "connections_active",
			Help:      "Connections currently open.",
		}),
		connsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "mchub",
			Name:      "connections_total",
			Help:      "Connections accepted.",
		}),
		connsRejected: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "mchub",
			Name:      "connections_rejected_total",
			Help:      "Connections closed on accept because the server was full.",
		}),
		packetsReceived: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mchub",
			Name:      "packets_received_total",
			Help:      "Packets read from clients.",
		}, []string{"phase"}),
		packetsUnimplemented: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mchub",
			Name:      "packets_unimplemented_total",
			Help:      "Packets with no handler in the connection's phase.",
		}, []string{"phase"}),
		packetsSent: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "mchub",
			Name:      "packets_sent_total",
			Help:      "Packets written to clients.",
		}),
		decodeErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mchub",
			Name:      "decode_errors_total",
			Help:      "Payloads that failed to decode into their packet type.",
		}, []string{"phase"}),
		connErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "mchub",
			Name:      "connection_errors_total",
			Help:      "Connections terminated by a protocol or I/O error.",
		}),
	}
}

func (m *Metrics) connOpened() {
	if m == nil {
		return
	}
	m.connsTotal.Inc()
	m.connsActive.Inc()
}

func (m *Metrics) connClosed() {
	if m == nil {
		return
	}
	m.connsActive.Dec()
}

func (m *Metrics) connRejected() {
	if m == nil {
		return
	}
	m.connsRejected.Inc()
}

func (m *Metrics) connFailed() {
	if m == nil {
		return
	}
	m.connErrors.Inc()
}

func (m *Metrics) received(p Phase) {
	if m == nil {
		return
	}
	m.packetsReceived.WithLabelValues(p.String()).Inc()
}

func (m *Metrics) unimplemented(p Phase) {
	if m == nil {
		return
	}
	m.packetsUnimplemented.WithLabelValues(p.String()).Inc()
}

func (m *Metrics) decodeFailed(p Phase) {
	if m == nil {
		return
	}
	m.decodeErrors.WithLabelValues(p.String()).Inc()
}

func (m *Metrics) sent() {
	if m == nil {
		return
	}
	m.packetsSent.Inc()
}
