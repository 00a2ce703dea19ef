// Package metrics defines the Prometheus metrics exported by alertkeeper.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds every collector, registered on a single registry so tests
// can use a fresh one per case.
type Metrics struct {
	// Engine metrics
	Outcomes          *prometheus.CounterVec
	RuleMatches       *prometheus.CounterVec
	HandlerDeliveries *prometheus.CounterVec
	ProcessDuration   prometheus.Histogram

	// Rule source metrics
	RulesLoaded prometheus.Gauge
	RuleReloads *prometheus.CounterVec

	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Retention metrics
	HistoryPruned prometheus.Counter

	PanicsRecovered *prometheus.CounterVec
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Outcomes: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "alertkeeper_outcomes_total",
				Help: "Processed records by outcome",
			},
			[]string{"outcome"}, // rejected, unmatched, dispatched
		),
		RuleMatches: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "alertkeeper_rule_matches_total",
				Help: "Records matched per rule",
			},
			[]string{"rule_id", "message_key"},
		),
		HandlerDeliveries: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "alertkeeper_handler_deliveries_total",
				Help: "Action deliveries per handler",
			},
			[]string{"handler_id", "status"}, // status: ok, failed
		),
		ProcessDuration: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "alertkeeper_process_duration_seconds",
				Help:    "Time to classify and dispatch one record",
				Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1, 5},
			},
		),
		RulesLoaded: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "alertkeeper_rules_loaded",
				Help: "Number of rules currently registered",
			},
		),
		RuleReloads: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "alertkeeper_rule_reloads_total",
				Help: "Rule file reloads by result",
			},
			[]string{"status"},
		),
		HTTPRequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "alertkeeper_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "alertkeeper_http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "route"},
		),
		HistoryPruned: f.NewCounter(
			prometheus.CounterOpts{
				Name: "alertkeeper_history_pruned_total",
				Help: "Alert history rows removed by retention",
			},
		),
		PanicsRecovered: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "alertkeeper_panics_recovered_total",
				Help: "Panics recovered per component",
			},
			[]string{"component"},
		),
	}
}

// NewNop returns metrics registered on a private registry that nothing scrapes.
func NewNop() *Metrics {
	return New(prometheus.NewRegistry())
}
