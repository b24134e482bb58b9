package metrics

import "github.com/prometheus/client_golang/prometheus"

// History lookup results
const (
	LookupHit     = "hit"
	LookupEmpty   = "empty"
	LookupError   = "error"
	LookupTimeout = "timeout"
)

var (
	HistoryLookupsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "history_lookups_total",
		Help:      "Total number of history store lookups by result",
	}, []string{"result"})

	HistoryCacheFlushesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "history_cache_flushes_total",
		Help:      "Total number of scheduled history cache flushes",
	})
)

var (
	HistoryLookupDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "history_lookup_duration_seconds",
		Help:      "Duration of history store lookups in seconds",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
	})

	HistoryFactor = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "history_factor",
		Help:      "Composite history multiplier applied to base scores",
		Buckets:   []float64{0.5, 0.7, 0.8, 0.9, 0.95, 1, 1.05, 1.1, 1.2, 1.3, 1.5, 2},
	})
)

var (
	HistoryCacheHitRatio = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "history_cache_hit_ratio",
		Help:      "Hit ratio of the history lookup cache",
	})

	HistorySourceUp = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "history_source_up",
		Help:      "1 if the last probe of the history source succeeded, 0 otherwise",
	})
)

// RecordHistoryLookup records one lookup with its result label.
func RecordHistoryLookup(result string, durationSeconds float64) {
	HistoryLookupsTotal.WithLabelValues(result).Inc()
	HistoryLookupDuration.Observe(durationSeconds)
}

// RecordHistoryFactor records an applied history multiplier.
func RecordHistoryFactor(factor float64) {
	HistoryFactor.Observe(factor)
}

// UpdateHistoryCacheHitRatio sets the cache hit ratio gauge.
func UpdateHistoryCacheHitRatio(ratio float64) {
	HistoryCacheHitRatio.Set(ratio)
}

// RecordHistoryCacheFlush records a scheduled cache flush.
func RecordHistoryCacheFlush() {
	HistoryCacheFlushesTotal.Inc()
}

// UpdateHistorySourceUp records the result of a history source probe.
func UpdateHistorySourceUp(up bool) {
	if up {
		HistorySourceUp.Set(1)
		return
	}
	HistorySourceUp.Set(0)
}
