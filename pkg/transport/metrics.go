package transport

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Version is reported in the default User-Agent header.
const Version = "0.1.0"

// Metrics holds Prometheus metrics for the request pipeline. A nil
// *Metrics is valid and records nothing, so metrics stay an optional
// collaborator.
type Metrics struct {
	RequestsTotal    *prometheus.CounterVec
	RetriesTotal     *prometheus.CounterVec
	RateLimitedTotal prometheus.Counter
}

// NewMetrics registers the transport metrics with the given registry.
// Passing nil registers with the default registry.
func NewMetrics(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}
	factory := promauto.With(registry)

	return &Metrics{
		RequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "lighter_transport_requests_total",
			Help: "Total number of HTTP attempts sent to the venue",
		}, []string{"method"}),
		RetriesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "lighter_transport_retries_total",
			Help: "Total number of retried HTTP attempts",
		}, []string{"method"}),
		RateLimitedTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "lighter_transport_rate_limited_total",
			Help: "Total number of 429 responses received from the venue",
		}),
	}
}

func (m *Metrics) countRequest(method string) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(method).Inc()
}

func (m *Metrics) countRetry(method string) {
	if m == nil {
		return
	}
	m.RetriesTotal.WithLabelValues(method).Inc()
}

func (m *Metrics) countRateLimited() {
	if m == nil {
		return
	}
	m.RateLimitedTotal.Inc()
}
