package metrics

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	EvaluationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "prepai_evaluation_duration_seconds",
			Help:    "Answer evaluation duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
		[]string{"mode"},
	)

	EvaluationTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "prepai_evaluation_total",
			Help: "Total evaluations by resulting band",
		},
		[]string{"band"},
	)

	CombinedScore = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "prepai_combined_score",
			Help:    "Combined evaluation scores",
			Buckets: []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0},
		},
	)

	EmbeddingRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "prepai_embedding_requests_total",
			Help: "Embedding provider requests by purpose and status",
		},
		[]string{"purpose", "status"},
	)

	CacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "prepai_cache_hits_total",
			Help: "Total cache hits",
		},
		[]string{"cache_type"},
	)

	CacheMisses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "prepai_cache_misses_total",
			Help: "Total cache misses",
		},
		[]string{"cache_type"},
	)

	InterviewSessionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "prepai_interview_sessions_active",
			Help: "Open websocket interview sessions",
		},
	)
)

func Init() {
	prometheus.MustRegister(EvaluationDuration)
	prometheus.MustRegister(EvaluationTotal)
	prometheus.MustRegister(CombinedScore)
	prometheus.MustRegister(EmbeddingRequests)
	prometheus.MustRegister(CacheHits)
	prometheus.MustRegister(CacheMisses)
	prometheus.MustRegister(InterviewSessionsActive)
}

func MetricsHandler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}
