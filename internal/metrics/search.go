package metrics

import "github.com/prometheus/client_golang/prometheus"

// Search Prometheus metrics.
var (
	SearchRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lexsearch",
			Name:      "search_requests_total",
			Help:      "Total number of search requests",
		},
		[]string{"status"}, // "success" / "invalid" / "timeout" / "error"
	)

	SearchDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "lexsearch",
			Name:      "search_duration_seconds",
			Help:      "End-to-end search duration in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
	)

	QueryCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lexsearch",
			Name:      "query_cache_total",
			Help:      "Query cache hits and misses",
		},
		[]string{"result"}, // "hit" / "miss"
	)

	IndexedVectors = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "lexsearch",
			Name:      "indexed_vectors",
			Help:      "Number of vectors in the ANN index",
		},
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
	prometheus.MustRegister(QueryCacheTotal)
	prometheus.MustRegister(IndexedVectors)
	searchMetricsRegistered = true
}
