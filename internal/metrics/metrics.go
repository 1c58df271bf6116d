// Package metrics holds the Prometheus instruments shared by the live
// context buffer, the knowledge client and the editor bridge.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Event kinds used as label values.
const (
	KindChange    = "change"
	KindSave      = "save"
	KindSelection = "selection"
	KindFocus     = "focus"
)

var (
	eventsIngested = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ctxbridge_events_ingested_total",
		Help: "Editor events accepted into the live context buffer, by kind.",
	}, []string{"kind"})

	eventsEvicted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ctxbridge_events_evicted_total",
		Help: "Buffered events dropped because a bounded list was full, by kind.",
	}, []string{"kind"})

	bufferedEvents = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "ctxbridge_buffered_events",
		Help: "Events currently held in the live context buffer, by kind.",
	}, []string{"kind"})

	detachedFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ctxbridge_detached_call_failures_total",
		Help: "Fire-and-forget knowledge service calls that failed, by operation.",
	}, []string{"operation"})

	serviceRequests = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ctxbridge_service_request_seconds",
		Help:    "Latency of knowledge service requests, by endpoint and outcome.",
		Buckets: prometheus.DefBuckets,
	}, []string{"endpoint", "outcome"})
)

// EventIngested counts an accepted event.
func EventIngested(kind string) {
	eventsIngested.WithLabelValues(kind).Inc()
}

// EventEvicted counts an event pushed out of a full list.
func EventEvicted(kind string) {
	eventsEvicted.WithLabelValues(kind).Inc()
}

// SetBuffered records the current length of a bounded list.
func SetBuffered(kind string, n int) {
	bufferedEvents.WithLabelValues(kind).Set(float64(n))
}

// DetachedFailure counts a failed fire-and-forget call.
func DetachedFailure(operation string) {
	detachedFailures.WithLabelValues(operation).Inc()
}

// ObserveServiceRequest records the duration of a knowledge service call.
func ObserveServiceRequest(endpoint, outcome string, seconds float64) {
	serviceRequests.WithLabelValues(endpoint, outcome).Observe(seconds)
}
