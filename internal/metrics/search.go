package metrics

import "github.com/prometheus/client_golang/prometheus"

// Search lifecycle Prometheus metrics.
var (
	SearchRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "logdex",
			Name:      "search_requests_total",
			Help:      "Total number of search retrievals",
		},
		[]string{"status"},
	)

	SearchDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "logdex",
			Name:      "search_duration_seconds",
			Help:      "Full retrieval duration (start to final page) in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		},
	)

	SearchRowsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "logdex",
			Name:      "search_rows_total",
			Help:      "Total rows accumulated across all retrievals",
		},
	)

	PollPagesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "logdex",
			Name:      "poll_pages_total",
			Help:      "Total poll responses consumed",
		},
	)

	FieldMissesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "logdex",
			Name:      "field_misses_total",
			Help:      "Fixed-schema paths absent from a row (soft misses)",
		},
	)

	WireRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "logdex",
			Name:      "wire_requests_total",
			Help:      "Total HTTP requests to the Logpoint service",
		},
		[]string{"endpoint", "status"},
	)

	WireRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "logdex",
			Name:      "wire_request_duration_seconds",
			Help:      "Logpoint request duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"endpoint"},
	)

	RepoCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "logdex",
			Name:      "repo_cache_total",
			Help:      "Repository listing cache hits and misses",
		},
		[]string{"result"}, // "hit" / "miss"
	)
)

var searchMetricsRegistered bool

// RegisterSearchMetrics registers Prometheus search metrics. Must be called once from main.
func RegisterSearchMetrics() {
	if searchMetricsRegistered {
		return
	}
	prometheus.MustRegister(SearchRequestsTotal)
	prometheus.MustRegister(SearchDuration)
	prometheus.MustRegister(SearchRowsTotal)
	prometheus.MustRegister(PollPagesTotal)
	prometheus.MustRegister(FieldMissesTotal)
	prometheus.MustRegister(WireRequestsTotal)
	prometheus.MustRegister(WireRequestDuration)
	prometheus.MustRegister(RepoCacheTotal)
	searchMetricsRegistered = true
}
