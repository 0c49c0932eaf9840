package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "review_analyzer"

var (
	ScrapeAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "scrape_attempts_total", Help: "Product page scrape attempts by outcome."},
		[]string{"outcome"}, // outcome: success|incomplete|network|exception
	)
	DebugArtifacts = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "debug_artifacts_total", Help: "Debug HTML snapshots by reason and result."},
		[]string{"reason", "result"},
	)
	ReviewsCollected = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace, Name: "reviews_collected",
			Help:    "Unique reviews found per product page.",
			Buckets: []float64{0, 1, 5, 10, 20, 50},
		},
	)
	SentimentRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "sentiment_requests_total", Help: "Model calls by status."},
		[]string{"status"}, // status: ok|empty|error|rate_limited
	)
	SentimentLatency = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace, Name: "sentiment_request_duration_seconds",
			Help:    "Model call duration seconds.",
			Buckets: prometheus.DefBuckets,
		},
	)
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "http_requests_total", Help: "HTTP requests."},
		[]string{"route", "method", "status"},
	)
)

func InitRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(ScrapeAttempts, DebugArtifacts, ReviewsCollected, SentimentRequests, SentimentLatency, HTTPRequests)
	return reg
}

func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

func ObserveAttempt(outcome string) {
	ScrapeAttempts.WithLabelValues(outcome).Inc()
}

func ObserveArtifact(reason string, err error) {
	result := "saved"
	if err != nil {
		result = "failed"
	}
	DebugArtifacts.WithLabelValues(reason, result).Inc()
}

func ObserveReviews(n int) {
	ReviewsCollected.Observe(float64(n))
}

func ObserveSentiment(status string, dur time.Duration) {
	SentimentRequests.WithLabelValues(status).Inc()
	SentimentLatency.Observe(dur.Seconds())
}

func ObserveHTTP(route, method string, status int) {
	HTTPRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
}
