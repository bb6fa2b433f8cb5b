package stream

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for a stream session. A nil *Metrics
// is valid and records nothing.
type Metrics struct {
	ReconnectsTotal      prometheus.Counter
	DroppedFramesTotal   prometheus.Counter
	DecodeErrorsTotal    prometheus.Counter
	EventsDeliveredTotal prometheus.Counter
}

// NewMetrics registers the stream metrics with the given registry.
// Passing nil registers with the default registry.
func NewMetrics(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}
	factory := promauto.With(registry)

	return &Metrics{
		ReconnectsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "lighter_stream_reconnects_total",
			Help: "Total number of reconnection attempts",
		}),
		DroppedFramesTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "lighter_stream_dropped_frames_total",
			Help: "Total number of frames dropped for unknown subscription ids",
		}),
		DecodeErrorsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "lighter_stream_decode_errors_total",
			Help: "Total number of malformed inbound frames skipped",
		}),
		EventsDeliveredTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "lighter_stream_events_delivered_total",
			Help: "Total number of events delivered to the consumer",
		}),
	}
}

func (m *Metrics) countReconnect() {
	if m == nil {
		return
	}
	m.ReconnectsTotal.Inc()
}

func (m *Metrics) countDropped() {
	if m == nil {
		return
	}
	m.DroppedFramesTotal.Inc()
}

func (m *Metrics) countDecodeError() {
	if m == nil {
		return
	}
	m.DecodeErrorsTotal.Inc()
}

func (m *Metrics) countDelivered() {
	if m == nil {
		return
	}
	m.EventsDeliveredTotal.Inc()
}
