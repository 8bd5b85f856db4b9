// Package metrics defines the Prometheus collectors for the search pipeline
// and exposes an HTTP handler for scraping them.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	OutcomeOK          = "ok"
	OutcomeEmpty       = "empty"
	OutcomeMalformed   = "malformed"
	OutcomeUnavailable = "unavailable"
	OutcomeFailed      = "failed"
	OutcomeStale       = "stale"
)

// Metrics holds all collectors, registered on their own registry so that
// several servers can coexist in one process.
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequestsTotal     *prometheus.CounterVec
	HTTPRequestDuration   *prometheus.HistogramVec
	QueriesTotal          *prometheus.CounterVec
	QueryLatency          prometheus.Histogram
	MatchesPerQuery       prometheus.Histogram
	MetadataFetchesTotal  *prometheus.CounterVec
	MetadataFetchDuration prometheus.Histogram
	RendersInFlight       prometheus.Gauge
	IndexedDocuments      prometheus.Gauge
	Generation            prometheus.Gauge
}

// New creates and registers all collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests by method, route, and status.",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"method", "route"},
		),
		QueriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "search_queries_total",
				Help: "Submitted queries by outcome (ok, empty, malformed, unavailable).",
			},
			[]string{"outcome"},
		),
		QueryLatency: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "search_query_latency_seconds",
				Help:    "Time spent ranking a query against the index.",
				Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
			},
		),
		MatchesPerQuery: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "search_matches_per_query",
				Help:    "Number of matches returned per query.",
				Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 250},
			},
		),
		MetadataFetchesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "metadata_fetches_total",
				Help: "Per-match metadata renders by outcome (ok, failed, stale).",
			},
			[]string{"outcome"},
		),
		MetadataFetchDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "metadata_fetch_duration_seconds",
				Help:    "Latency of scheme.json fetches.",
				Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
		),
		RendersInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "renders_in_flight",
				Help: "Number of metadata fetches currently in flight.",
			},
		),
		IndexedDocuments: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "search_index_documents",
				Help: "Number of documents in the loaded search index.",
			},
		),
		Generation: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "search_generation",
				Help: "Generation number of the current query.",
			},
		),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.QueriesTotal,
		m.QueryLatency,
		m.MatchesPerQuery,
		m.MetadataFetchesTotal,
		m.MetadataFetchDuration,
		m.RendersInFlight,
		m.IndexedDocuments,
		m.Generation,
	)

	return m
}

// Handler returns the scrape handler for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
