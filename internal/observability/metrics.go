package observability

import (
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registerOnce          sync.Once
	httpRequestsTotal     *prometheus.CounterVec
	httpLatencySeconds    *prometheus.HistogramVec
	httpErrorsTotal       *prometheus.CounterVec
	submissionsTotal      prometheus.Counter
	surveyVersionsTotal   *prometheus.CounterVec
	feedbackRepliesTotal  prometheus.Counter
	statisticsCacheLookup *prometheus.CounterVec
)

// RegisterMetrics initialises the Prometheus collectors exposed on /metrics.
func RegisterMetrics() {
	registerOnce.Do(func() {
		httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		httpLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		httpErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_errors_total",
			Help: "Total number of error responses returned by the API.",
		}, []string{"method", "route", "status"})

		submissionsTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "survey_submissions_total",
			Help: "Total number of survey submissions recorded.",
		})

		surveyVersionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "survey_versions_total",
			Help: "Survey writes by kind: created, versioned or cosmetic.",
		}, []string{"kind"})

		feedbackRepliesTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "feedback_replies_total",
			Help: "Total number of teacher replies to feedback.",
		})

		statisticsCacheLookup = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "survey_statistics_cache_lookups_total",
			Help: "Statistics cache lookups by result.",
		}, []string{"result"})

		prometheus.MustRegister(
			httpRequestsTotal,
			httpLatencySeconds,
			httpErrorsTotal,
			submissionsTotal,
			surveyVersionsTotal,
			feedbackRepliesTotal,
			statisticsCacheLookup,
		)
	})
}

// HTTPRequests exposes the request counter.
func HTTPRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return httpRequestsTotal
}

// HTTPLatency exposes the request latency histogram.
func HTTPLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return httpLatencySeconds
}

// HTTPErrors exposes the error response counter.
func HTTPErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return httpErrorsTotal
}

// SubmissionsRecorded counts persisted submissions.
func SubmissionsRecorded() prometheus.Counter {
	RegisterMetrics()
	return submissionsTotal
}

// SurveyVersions counts survey writes labelled by kind.
func SurveyVersions() *prometheus.CounterVec {
	RegisterMetrics()
	return surveyVersionsTotal
}

// FeedbackReplies counts teacher replies.
func FeedbackReplies() prometheus.Counter {
	RegisterMetrics()
	return feedbackRepliesTotal
}

// StatisticsCacheLookups counts statistics cache hits and misses.
func StatisticsCacheLookups() *prometheus.CounterVec {
	RegisterMetrics()
	return statisticsCacheLookup
}

// MetricsHandler serves the default registry in the Prometheus text format.
// A collector that fails to gather is skipped rather than failing the scrape.
func MetricsHandler() fiber.Handler {
	RegisterMetrics()
	return adaptor.HTTPHandler(promhttp.HandlerFor(prometheus.DefaultGatherer, promhttp.HandlerOpts{
		ErrorHandling: promhttp.ContinueOnError,
	}))
}
