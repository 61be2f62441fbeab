// Package metrics defines the Prometheus metric collectors used by the
// indexer and the query engine and exposes an HTTP handler for scraping.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Query outcome labels for SearchQueriesTotal.
const (
	ResultHit     = "hit"
	ResultNoMatch = "no_match"
	ResultInvalid = "invalid"
	ResultError   = "error"
)

// Metrics holds all Prometheus collectors for the engine.
type Metrics struct {
	DocsIndexedTotal     prometheus.Counter
	TokensIndexedTotal   prometheus.Counter
	IndexFlushesTotal    *prometheus.CounterVec
	SegmentRecordsTotal  prometheus.Counter
	SegmentFootprint     prometheus.Histogram
	BuildDuration        prometheus.Histogram
	SearchQueriesTotal   *prometheus.CounterVec
	SearchLatency        prometheus.Histogram
	SearchResultsCount   prometheus.Histogram
	SearchCandidateCount prometheus.Histogram
}

// New creates all collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		DocsIndexedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "docs_indexed_total",
				Help: "Total documents indexed.",
			},
		),
		TokensIndexedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "tokens_indexed_total",
				Help: "Total normalized tokens indexed.",
			},
		),
		IndexFlushesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "index_flushes_total",
				Help: "Total segment flush operations by status.",
			},
			[]string{"status"},
		),
		SegmentRecordsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "segment_term_records_total",
				Help: "Total term dictionary records written.",
			},
		),
		SegmentFootprint: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "segment_footprint_bytes",
				Help:    "Estimated in-memory footprint of a segment at flush time.",
				Buckets: prometheus.ExponentialBuckets(1024, 2, 10),
			},
		),
		BuildDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "index_build_duration_seconds",
				Help:    "Wall time of a full index build.",
				Buckets: prometheus.ExponentialBuckets(0.01, 4, 8),
			},
		),
		SearchQueriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "search_queries_total",
				Help: "Total search queries by result type (hit, no_match, invalid, error).",
			},
			[]string{"result_type"},
		),
		SearchLatency: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "search_latency_seconds",
				Help:    "Search query latency in seconds.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
			},
		),
		SearchResultsCount: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "search_results_count",
				Help:    "Number of results returned per search query.",
				Buckets: []float64{0, 1, 5, 10, 25, 50, 100},
			},
		),
		SearchCandidateCount: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "search_candidates_count",
				Help:    "Number of documents surviving boolean evaluation per query.",
				Buckets: prometheus.ExponentialBuckets(1, 4, 8),
			},
		),
	}

	reg.MustRegister(
		m.DocsIndexedTotal,
		m.TokensIndexedTotal,
		m.IndexFlushesTotal,
		m.SegmentRecordsTotal,
		m.SegmentFootprint,
		m.BuildDuration,
		m.SearchQueriesTotal,
		m.SearchLatency,
		m.SearchResultsCount,
		m.SearchCandidateCount,
	)

	return m
}

// NewUnregistered returns collectors bound to a private registry, for
// components constructed without an explicit Metrics.
func NewUnregistered() *Metrics {
	return New(prometheus.NewRegistry())
}

// Handler returns the Prometheus scrape HTTP handler for g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
