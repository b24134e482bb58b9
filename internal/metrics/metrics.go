// Package metrics provides the Prometheus registry for the prediction engine.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "race_odds"

// Global registry instance
var (
	registry *prometheus.Registry
	once     sync.Once
)

// Counter metrics
var (
	PredictionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "predictions_total",
		Help:      "Total number of prediction requests by outcome",
	}, []string{"outcome"})
	ValidationFailuresTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "validation_failures_total",
		Help:      "Total number of rejected prediction requests by violated precondition",
	}, []string{"code"})
	EntrantsScoredTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "entrants_scored_total",
		Help:      "Total number of entrants scored",
	})
)

// Gauge metrics
var (
	ConfiguredModels = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "configured_models",
		Help:      "Number of scoring models loaded at startup",
	})
)

// Histogram metrics
var (
	PredictionDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "prediction_duration_seconds",
		Help:      "Duration of prediction requests in seconds",
		Buckets:   prometheus.DefBuckets,
	})
	FieldSize = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "field_size",
		Help:      "Number of entrants per prediction request",
		Buckets:   []float64{2, 4, 6, 8, 10, 12, 14, 16, 20, 24},
	})
	TopProbability = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "top_probability",
		Help:      "Blended probability of the favourite in each prediction",
		Buckets:   []float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100},
	})
)

// InitRegistry initializes the global Prometheus registry.
func InitRegistry() *prometheus.Registry {
	once.Do(func() {
		registry = prometheus.NewRegistry()

		// Register prediction metrics
		registry.MustRegister(PredictionsTotal)
		registry.MustRegister(ValidationFailuresTotal)
		registry.MustRegister(EntrantsScoredTotal)
		registry.MustRegister(ConfiguredModels)
		registry.MustRegister(PredictionDuration)
		registry.MustRegister(FieldSize)
		registry.MustRegister(TopProbability)

		// Register history metrics
		registry.MustRegister(HistoryLookupsTotal)
		registry.MustRegister(HistoryLookupDuration)
		registry.MustRegister(HistoryFactor)
		registry.MustRegister(HistoryCacheHitRatio)
		registry.MustRegister(HistoryCacheFlushesTotal)
		registry.MustRegister(HistorySourceUp)
	})
	return registry
}

// GetRegistry returns the global Prometheus registry.
func GetRegistry() *prometheus.Registry {
	if registry == nil {
		return InitRegistry()
	}
	return registry
}

// Handler returns the Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.HandlerFor(GetRegistry(), promhttp.HandlerOpts{})
}

// RecordPrediction records a completed prediction.
func RecordPrediction(durationSeconds float64, entrants int, topProbability float64) {
	PredictionsTotal.WithLabelValues("success").Inc()
	PredictionDuration.Observe(durationSeconds)
	FieldSize.Observe(float64(entrants))
	EntrantsScoredTotal.Add(float64(entrants))
	TopProbability.Observe(topProbability)
}

// RecordPredictionFailure records a prediction that ended in an error.
func RecordPredictionFailure(outcome string) {
	PredictionsTotal.WithLabelValues(outcome).Inc()
}

// RecordValidationFailure records a rejected request.
func RecordValidationFailure(code string) {
	PredictionsTotal.WithLabelValues("rejected").Inc()
	ValidationFailuresTotal.WithLabelValues(code).Inc()
}

// UpdateConfiguredModels sets the number of loaded models.
func UpdateConfiguredModels(count int) {
	ConfiguredModels.Set(float64(count))
}
