// Package metrics exposes Prometheus counters for the conversation and
// billing flows.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector is what services record into.
type MetricsCollector interface {
	RecordCompletion(outcome string, duration time.Duration)
	RecordTurnPersisted(newSession bool)
	RecordEntitlementDenied()
	RecordBillingEvent(status string, duplicate bool)
}

type Collector struct {
	completions       *prometheus.CounterVec
	completionLatency prometheus.Histogram
	turnsPersisted    *prometheus.CounterVec
	entitlementDenied prometheus.Counter
	billingEvents     *prometheus.CounterVec
}

// NewCollector registers every metric on reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		completions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "genius_completions_total",
			Help: "Completion requests by outcome",
		}, []string{"outcome"}),
		completionLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "genius_completion_latency_seconds",
			Help:    "Completion request latency in seconds",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20, 40, 60},
		}),
		turnsPersisted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "genius_turns_persisted_total",
			Help: "Conversation turns written",
		}, []string{"session"}),
		entitlementDenied: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "genius_entitlement_denied_total",
			Help: "Requests refused because the free allowance was used up",
		}),
		billingEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "genius_billing_events_total",
			Help: "Payment notifications by transaction status",
		}, []string{"status", "duplicate"}),
	}

	reg.MustRegister(
		c.completions,
		c.completionLatency,
		c.turnsPersisted,
		c.entitlementDenied,
		c.billingEvents,
	)

	return c
}

func (c *Collector) RecordCompletion(outcome string, duration time.Duration) {
	c.completions.WithLabelValues(outcome).Inc()
	c.completionLatency.Observe(duration.Seconds())
}

func (c *Collector) RecordTurnPersisted(newSession bool) {
	label := "existing"
	if newSession {
		label = "new"
	}
	c.turnsPersisted.WithLabelValues(label).Inc()
}

func (c *Collector) RecordEntitlementDenied() {
	c.entitlementDenied.Inc()
}

func (c *Collector) RecordBillingEvent(status string, duplicate bool) {
	dup := "false"
	if duplicate {
		dup = "true"
	}
	c.billingEvents.WithLabelValues(status, dup).Inc()
}

// Handler serves the Prometheus scrape format.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// NopCollector discards everything.
type NopCollector struct{}

func (NopCollector) RecordCompletion(string, time.Duration) {}
func (NopCollector) RecordTurnPersisted(bool)               {}
func (NopCollector) RecordEntitlementDenied()               {}
func (NopCollector) RecordBillingEvent(string, bool)        {}
