package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	RequestsTotal *prometheus.CounterVec

	CacheEventsTotal *prometheus.CounterVec

	QuotaRejectionsTotal prometheus.Counter

	DegradedResponsesTotal prometheus.Counter

	UpstreamLatency *prometheus.HistogramVec
)

func init() {
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "advisor",
			Subsystem: "gateway",
			Name:      "requests_total",
			Help:      "Total number of query requests",
		},
		[]string{"method", "status"},
	)

	CacheEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "advisor",
			Subsystem: "gateway",
			Name:      "cache_events_total",
			Help:      "Response cache hits and misses",
		},
		[]string{"event"},
	)

	QuotaRejectionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "advisor",
			Subsystem: "gateway",
			Name:      "quota_rejections_total",
			Help:      "Requests rejected because the caller's quota was exhausted",
		},
	)

	DegradedResponsesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "advisor",
			Subsystem: "gateway",
			Name:      "degraded_responses_total",
			Help:      "Responses served from the fixed fallback after upstream failure",
		},
	)

	UpstreamLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "advisor",
			Subsystem: "gateway",
			Name:      "upstream_latency_seconds",
			Help:      "Serper call duration in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 15},
		},
		[]string{"vertical"},
	)

	prometheus.MustRegister(RequestsTotal)
	prometheus.MustRegister(CacheEventsTotal)
	prometheus.MustRegister(QuotaRejectionsTotal)
	prometheus.MustRegister(DegradedResponsesTotal)
	prometheus.MustRegister(UpstreamLatency)
}

// RecordRequest records a completed request.
func RecordRequest(method, status string) {
	RequestsTotal.WithLabelValues(method, status).Inc()
}

// RecordCacheEvent records a cache hit or miss.
func RecordCacheEvent(event string) {
	CacheEventsTotal.WithLabelValues(event).Inc()
}

// RecordUpstream records one upstream call's duration.
func RecordUpstream(vertical string, seconds float64) {
	UpstreamLatency.WithLabelValues(vertical).Observe(seconds)
}
