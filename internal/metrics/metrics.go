package metrics

import "github.com/prometheus/client_golang/prometheus"

// Prometheus metrics for the grading service.
var (
	EmbeddingRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "essaylab",
			Name:      "embedding_requests_total",
			Help:      "Total number of embedding requests",
		},
		[]string{"model", "status"},
	)

	EmbeddingRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "essaylab",
			Name:      "embedding_request_duration_seconds",
			Help:      "Embedding request duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"model"},
	)

	JudgmentRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "essaylab",
			Name:      "judgment_requests_total",
			Help:      "Total number of judgment requests",
		},
		[]string{"dimension", "status"},
	)

	JudgmentRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "essaylab",
			Name:      "judgment_request_duration_seconds",
			Help:      "Judgment request duration in seconds",
			Buckets:   []float64{0.25, 0.5, 1, 2.5, 5, 10, 20, 30},
		},
		[]string{"dimension"},
	)

	GradingsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "essaylab",
			Name:      "gradings_total",
			Help:      "Total number of graded essays",
		},
		[]string{"outcome"}, // "complete" / "degraded" / "rejected"
	)

	GradingDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "essaylab",
			Name:      "grading_duration_seconds",
			Help:      "End-to-end grading pipeline duration in seconds",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 20, 30, 60},
		},
	)

	RetrievalTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "essaylab",
			Name:      "retrieval_total",
			Help:      "Prompt retrieval outcomes",
		},
		[]string{"outcome"}, // "match" / "relaxed" / "no_match"
	)

	EmbeddingCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "essaylab",
			Name:      "embedding_cache_total",
			Help:      "Embedding cache lookups",
		},
		[]string{"result"}, // "hit" / "miss"
	)
)

var registered bool

// Register registers all service metrics. Must be called once from main.
func Register() {
	if registered {
		return
	}
	prometheus.MustRegister(EmbeddingRequestsTotal)
	prometheus.MustRegister(EmbeddingRequestDuration)
	prometheus.MustRegister(JudgmentRequestsTotal)
	prometheus.MustRegister(JudgmentRequestDuration)
	prometheus.MustRegister(GradingsTotal)
	prometheus.MustRegister(GradingDuration)
	prometheus.MustRegister(RetrievalTotal)
	prometheus.MustRegister(EmbeddingCacheTotal)
	registered = true
}
