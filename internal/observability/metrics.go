// Package observability – synthesis pipeline metrics.
//
// Prometheus collectors for the job ledger and synthesis cache. HTTP-level
// metrics live in the middleware package; the collectors here measure the
// domain pipeline itself: cache effectiveness, job outcomes, engine latency,
// and sweep activity. All collectors are safe for concurrent use.
package observability

import "github.com/prometheus/client_golang/prometheus"

var (
	// CacheLookups counts cache probes by result ("hit" or "miss").
	CacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "synthesis_cache_lookups_total",
			Help: "Total synthesis cache lookups by result.",
		},
		[]string{"result"},
	)

	// CacheEvictions counts entries removed by expiry sweeps.
	CacheEvictions = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "synthesis_cache_evictions_total",
			Help: "Total cache entries removed by expiry sweeps.",
		},
	)

	// JobsFinished counts jobs reaching a terminal state, by state.
	JobsFinished = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "synthesis_jobs_finished_total",
			Help: "Total synthesis jobs reaching a terminal state.",
		},
		[]string{"status"},
	)

	// EngineSeconds records wall-clock engine synthesis latency. Buckets
	// span sub-second cached-model calls up to multi-minute long texts.
	EngineSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "synthesis_engine_duration_seconds",
			Help:    "Wall-clock duration of synthesis engine calls.",
			Buckets: []float64{0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		},
	)
)

func init() {
	prometheus.MustRegister(CacheLookups, CacheEvictions, JobsFinished, EngineSeconds)
}
