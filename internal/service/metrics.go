package service

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	opSearch        = "search"
	opSuggestPrefix = "suggest_prefix"
	opSuggestFuzzy  = "suggest_fuzzy"
)

var (
	// EngineRequestsTotal counts search engine round-trips by operation and outcome.
	EngineRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coursesearch_engine_requests_total",
			Help: "Total number of search engine requests",
		},
		[]string{"operation", "outcome"},
	)

	// EngineRequestDuration observes search engine round-trip latency.
	EngineRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "coursesearch_engine_request_duration_seconds",
			Help:    "Duration of search engine requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)
)

func observeEngineRequest(operation string, start time.Time, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	EngineRequestsTotal.WithLabelValues(operation, outcome).Inc()
	EngineRequestDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}
