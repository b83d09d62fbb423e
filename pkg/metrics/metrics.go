package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service's Prometheus collectors. All methods are safe on
// a nil receiver so components can run without metrics in tests.
type Metrics struct {
	registry *prometheus.Registry

	historyLoads      *prometheus.CounterVec
	historyEnrichment *prometheus.CounterVec
	historyClears     *prometheus.CounterVec
	historyResolves   *prometheus.CounterVec
	productLookups    *prometheus.CounterVec
	analysisDuration  *prometheus.HistogramVec
}

// New registers the collectors on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		historyLoads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sustainly_history_loads_total",
				Help: "History loads by where the list came from (cache, store) or error",
			},
			[]string{"source"},
		),
		historyEnrichment: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sustainly_history_enrichment_total",
				Help: "Per-item history enrichment outcomes",
			},
			[]string{"outcome"},
		),
		historyClears: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sustainly_history_clears_total",
				Help: "History clear requests by outcome",
			},
			[]string{"outcome"},
		),
		historyResolves: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sustainly_history_resolves_total",
				Help: "History item resolutions by outcome (cached, fetched, failed)",
			},
			[]string{"outcome"},
		),
		productLookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sustainly_product_lookups_total",
				Help: "Product score lookups by result (hit, analyzed, failed)",
			},
			[]string{"result"},
		),
		analysisDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sustainly_product_analysis_duration_seconds",
				Help:    "Time spent analyzing a product",
				Buckets: prometheus.ExponentialBuckets(0.25, 2, 9), // 250ms to ~64s
			},
			[]string{"analyzer"},
		),
	}
	m.registry.MustRegister(
		m.historyLoads,
		m.historyEnrichment,
		m.historyClears,
		m.historyResolves,
		m.productLookups,
		m.analysisDuration,
		prometheus.NewGoCollector(),
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry (tests gather from it).
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) HistoryLoad(source string) {
	if m == nil {
		return
	}
	m.historyLoads.WithLabelValues(source).Inc()
}

func (m *Metrics) HistoryEnrichment(outcome string) {
	if m == nil {
		return
	}
	m.historyEnrichment.WithLabelValues(outcome).Inc()
}

func (m *Metrics) HistoryClear(outcome string) {
	if m == nil {
		return
	}
	m.historyClears.WithLabelValues(outcome).Inc()
}

func (m *Metrics) HistoryResolve(outcome string) {
	if m == nil {
		return
	}
	m.historyResolves.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ProductLookup(result string) {
	if m == nil {
		return
	}
	m.productLookups.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveAnalysis(analyzer string, d time.Duration) {
	if m == nil {
		return
	}
	m.analysisDuration.WithLabelValues(analyzer).Observe(d.Seconds())
}
