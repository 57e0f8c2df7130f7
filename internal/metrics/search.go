package metrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "geodecay"

// Search Prometheus metrics.
var (
	SearchRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_requests_total",
			Help:      "Total number of decay searches",
		},
		[]string{"curve", "status"},
	)

	SearchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_duration_seconds",
			Help:      "Decay search duration in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"curve"},
	)

	DocumentsScoredTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "documents_scored_total",
			Help:      "Live documents visited by decay scorers",
		},
	)

	ScoreFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "score_failures_total",
			Help:      "Documents whose score could not be computed",
		},
		[]string{"reason"},
	)

	ResultCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "result_cache_total",
			Help:      "Search result cache hits and misses",
		},
		[]string{"result"}, // "hit" / "miss"
	)

	IndexedDocuments = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "indexed_documents",
			Help:      "Live documents per collection index",
		},
		[]string{"collection"},
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
	prometheus.MustRegister(DocumentsScoredTotal)
	prometheus.MustRegister(ScoreFailuresTotal)
	prometheus.MustRegister(ResultCacheTotal)
	prometheus.MustRegister(IndexedDocuments)
	searchMetricsRegistered = true
}
