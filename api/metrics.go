/*
metrics.go - Prometheus metrics for the API

PURPOSE:
  Counts the operations the engine performs: duration computations,
  request submissions by outcome, decisions, and manual adjustments.
  Exposed at /metrics via promhttp.
*/
package api

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors used by the handlers.
type Metrics struct {
	// DurationsComputed counts duration calculations served.
	DurationsComputed prometheus.Counter

	// RequestsSubmitted counts submissions by outcome: accepted, rejected.
	RequestsSubmitted *prometheus.CounterVec

	// RequestsDecided counts decisions by result: approved, denied.
	RequestsDecided *prometheus.CounterVec

	// AdjustmentsApplied counts manual adjustments by outcome.
	AdjustmentsApplied *prometheus.CounterVec
}

// NewMetrics creates and registers the collectors on the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		DurationsComputed: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: "timeoff",
				Name:      "durations_computed_total",
				Help:      "Total number of duration calculations served",
			},
		),
		RequestsSubmitted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "timeoff",
				Name:      "requests_submitted_total",
				Help:      "Total number of request submissions",
			},
			[]string{"outcome"},
		),
		RequestsDecided: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "timeoff",
				Name:      "requests_decided_total",
				Help:      "Total number of request decisions",
			},
			[]string{"result"},
		),
		AdjustmentsApplied: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "timeoff",
				Name:      "adjustments_applied_total",
				Help:      "Total number of manual balance adjustments",
			},
			[]string{"outcome"},
		),
	}
}
