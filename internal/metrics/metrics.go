package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the ingestion pipeline counters.
type Metrics struct {
	registry *prometheus.Registry

	EventsReceived    prometheus.Counter
	EventsStored      prometheus.Counter
	EventsSkipped     prometheus.Counter
	SignatureFailures prometheus.Counter
}

func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		EventsReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "buddy_events_received_total",
			Help: "Webhook deliveries that passed signature verification.",
		}),
		EventsStored: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "buddy_events_stored_total",
			Help: "Normalized events admitted and appended to the event log.",
		}),
		EventsSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "buddy_events_skipped_total",
			Help: "Normalized events rejected by the admission filter.",
		}),
		SignatureFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "buddy_signature_failures_total",
			Help: "Webhook deliveries rejected by signature verification.",
		}),
	}

	registry.MustRegister(
		m.EventsReceived,
		m.EventsStored,
		m.EventsSkipped,
		m.SignatureFailures,
	)

	return m
}

// Handler serves the registry in Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
