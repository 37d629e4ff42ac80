package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kanso_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kanso_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	RateLimited = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kanso_rate_limited_total",
			Help: "Requests rejected by the rate limiter",
		},
		[]string{"backend"}, // "redis", "local"
	)

	// Analytics engine
	AnalyticsComputations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kanso_analytics_computations_total",
			Help: "Total number of analytics computations",
		},
		[]string{"operation"}, // "report", "calendar", "overview"
	)

	AnalyticsDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kanso_analytics_duration_seconds",
			Help:    "Time spent loading and computing analytics",
			Buckets: []float64{.0005, .001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"operation"},
	)

	// Caches
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kanso_cache_hits_total",
			Help: "Total number of cache hits",
		},
		[]string{"cache"}, // "habits", "reports"
	)

	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kanso_cache_misses_total",
			Help: "Total number of cache misses",
		},
		[]string{"cache"},
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "kanso_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	// Domain
	CheckInsRecorded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "kanso_checkins_recorded_total",
			Help: "Total number of check-ins recorded",
		},
	)

	StreakJobs = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kanso_streak_jobs_total",
			Help: "Streak worker jobs by outcome",
		},
		[]string{"outcome"}, // "updated", "unchanged", "failed", "dropped"
	)
)

func RecordAPIRequest(method, route, status string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, route, status).Inc()
	APIRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

func RecordAnalytics(operation string, duration time.Duration) {
	AnalyticsComputations.WithLabelValues(operation).Inc()
	AnalyticsDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

func RecordCache(cache string, hit bool) {
	if hit {
		CacheHits.WithLabelValues(cache).Inc()
		return
	}
	CacheMisses.WithLabelValues(cache).Inc()
}
