// Package metrics holds the prometheus collectors reported by the client.
//
// A nil *Metrics is valid and records nothing, so components can hold one
// unconditionally.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "clearstreet"

// Metrics groups the collectors of one client instance.
type Metrics struct {
	TokenRefreshes   *prometheus.CounterVec
	RequestAttempts  prometheus.Counter
	RequestRetries   prometheus.Counter
	StreamReconnects prometheus.Counter
	FramesDecoded    *prometheus.CounterVec
	ParseFailures    prometheus.Counter
}

// New creates the collectors and registers them on reg.
// A nil registerer yields a nil *Metrics.
func New(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		return nil, nil
	}

	m := &Metrics{
		TokenRefreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "token_refreshes_total",
			Help:      "Access token fetches by outcome.",
		}, []string{"outcome"}),
		RequestAttempts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "request_attempts_total",
			Help:      "HTTP request attempts, including retries.",
		}),
		RequestRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "request_retries_total",
			Help:      "HTTP requests retried after a transport failure.",
		}),
		StreamReconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stream_reconnects_total",
			Help:      "Activity feed reconnect attempts.",
		}),
		FramesDecoded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stream_frames_decoded_total",
			Help:      "Activity frames decoded by payload type.",
		}, []string{"type"}),
		ParseFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stream_parse_failures_total",
			Help:      "Activity frames that could not be decoded.",
		}),
	}

	collectors := []prometheus.Collector{
		m.TokenRefreshes,
		m.RequestAttempts,
		m.RequestRetries,
		m.StreamReconnects,
		m.FramesDecoded,
		m.ParseFailures,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}

	return m, nil
}

// TokenRefreshed records one token fetch.
func (m *Metrics) TokenRefreshed(ok bool) {
	if m == nil {
		return
	}

	outcome := "success"
	if !ok {
		outcome = "failure"
	}
	m.TokenRefreshes.WithLabelValues(outcome).Inc()
}

// RequestAttempted records one send of an HTTP request.
func (m *Metrics) RequestAttempted() {
	if m == nil {
		return
	}
	m.RequestAttempts.Inc()
}

// RequestRetried records one retry sleep.
func (m *Metrics) RequestRetried() {
	if m == nil {
		return
	}
	m.RequestRetries.Inc()
}

// StreamReconnected records one reconnect of the activity feed.
func (m *Metrics) StreamReconnected() {
	if m == nil {
		return
	}
	m.StreamReconnects.Inc()
}

// FrameDecoded records one decoded frame.
func (m *Metrics) FrameDecoded(payloadType string) {
	if m == nil {
		return
	}
	m.FramesDecoded.WithLabelValues(payloadType).Inc()
}

// ParseFailed records one undecodable frame.
func (m *Metrics) ParseFailed() {
	if m == nil {
		return
	}
	m.ParseFailures.Inc()
}
