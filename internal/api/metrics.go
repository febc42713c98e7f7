package api

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Prometheus metrics with bounded label cardinality. Only status codes and
// error kinds become labels; expressions never do.
var (
	requestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "d20dist_requests_total",
		Help: "Total distribution requests by outcome",
	}, []string{"status"})
	evaluationSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "d20dist_evaluation_seconds",
		Help:    "Wall time spent computing a distribution (cache misses only)",
		Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10),
	})
	errorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "d20dist_errors_total",
		Help: "Total evaluation failures by error kind",
	}, []string{"kind"})
	cacheHitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "d20dist_cache_hits_total",
		Help: "Total requests answered from the result cache",
	})
	cacheMissesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "d20dist_cache_misses_total",
		Help: "Total requests that had to be computed",
	})
)

func init() {
	// Register eagerly; harmless if no /metrics endpoint is exposed.
	prometheus.MustRegister(requestsTotal, evaluationSeconds, errorsTotal, cacheHitsTotal, cacheMissesTotal)
}
