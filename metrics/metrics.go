// Package metrics exposes Prometheus instrumentation for a vDC host. It
// knows nothing about the protocol types it is handed strings/counts for;
// callers pass plain values so this package stays import-free of session,
// device, and message.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the vDC host's Prometheus collectors. All methods are
// nil-safe: calls on a nil *Metrics are no-ops, so instrumentation can be
// threaded through constructors unconditionally and skipped entirely by
// passing nil where a registry isn't wanted (tests, embedding).
type Metrics struct {
	SessionsAcceptedTotal prometheus.Counter
	SessionsActive        prometheus.Gauge
	FramesDispatchedTotal *prometheus.CounterVec
	FrameErrorsTotal      *prometheus.CounterVec
	ProtocolErrorsTotal   *prometheus.CounterVec
}

// New creates and, if reg is non-nil, registers the host's metrics.
// Passing a nil Registerer builds the collectors without registering them,
// useful for tests that want real metric objects without a live registry.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		SessionsAcceptedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "vdchost",
			Subsystem: "sessions",
			Name:      "accepted_total",
			Help:      "Total number of vdSM connections accepted.",
		}),
		SessionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "vdchost",
			Subsystem: "sessions",
			Name:      "active",
			Help:      "Whether a vdSM session is currently active (0 or 1).",
		}),
		FramesDispatchedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vdchost",
			Subsystem: "dispatch",
			Name:      "frames_total",
			Help:      "Inbound frames dispatched, labeled by message type.",
		}, []string{"type"}),
		FrameErrorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vdchost",
			Subsystem: "dispatch",
			Name:      "frame_errors_total",
			Help:      "Framing-level errors (oversize or truncated frames), labeled by cause.",
		}, []string{"cause"}),
		ProtocolErrorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vdchost",
			Subsystem: "dispatch",
			Name:      "protocol_errors_total",
			Help:      "Protocol-level error responses emitted, labeled by GENERIC_RESPONSE code.",
		}, []string{"code"}),
	}

	if reg != nil {
		collectors := []prometheus.Collector{
			m.SessionsAcceptedTotal,
			m.SessionsActive,
			m.FramesDispatchedTotal,
			m.FrameErrorsTotal,
			m.ProtocolErrorsTotal,
		}
		for _, c := range collectors {
			if err := reg.Register(c); err != nil {
				if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
					panic(err)
				}
			}
		}
	}

	return m
}

// SessionAccepted records a newly accepted session.
func (m *Metrics) SessionAccepted() {
	if m == nil {
		return
	}
	m.SessionsAcceptedTotal.Inc()
	m.SessionsActive.Set(1)
}

// SessionEnded records that the active session has ended.
func (m *Metrics) SessionEnded() {
	if m == nil {
		return
	}
	m.SessionsActive.Set(0)
}

// FrameDispatched records one successfully dispatched inbound frame.
func (m *Metrics) FrameDispatched(msgType string) {
	if m == nil {
		return
	}
	m.FramesDispatchedTotal.WithLabelValues(msgType).Inc()
}

// FrameError records one framing-level failure (spec §7 "Framing").
func (m *Metrics) FrameError(cause string) {
	if m == nil {
		return
	}
	m.FrameErrorsTotal.WithLabelValues(cause).Inc()
}

// ProtocolError records one GENERIC_RESPONSE error code emitted (spec §7
// "Protocol").
func (m *Metrics) ProtocolError(code string) {
	if m == nil {
		return
	}
	m.ProtocolErrorsTotal.WithLabelValues(code).Inc()
}
