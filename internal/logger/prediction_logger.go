package logger

import (
	"github.com/sirupsen/logrus"
)

// PredictionLogger provides dedicated logging for prediction requests.
type PredictionLogger struct {
	*logrus.Entry
}

// NewPredictionLogger creates a new prediction logger.
func NewPredictionLogger(baseLogger *logrus.Logger) *PredictionLogger {
	return &PredictionLogger{
		Entry: baseLogger.WithField("component", "prediction"),
	}
}

// LogPredictionCompleted logs a finished prediction.
func (pl *PredictionLogger) LogPredictionCompleted(predictionID, raceID string, entrants, models int, topEntrant string, topProbability, durationMs float64) {
	pl.WithFields(logrus.Fields{
		"prediction_id":   predictionID,
		"race_id":         raceID,
		"entrants":        entrants,
		"models":          models,
		"top_entrant":     topEntrant,
		"top_probability": topProbability,
		"duration_ms":     durationMs,
	}).Info("Prediction completed")
}

// LogValidationRejected logs a request rejected before scoring.
func (pl *PredictionLogger) LogValidationRejected(raceID, code, message string) {
	pl.WithFields(logrus.Fields{
		"race_id": raceID,
		"code":    code,
		"reason":  message,
	}).Warn("Prediction request rejected")
}

// LogModelDistribution logs one model's normalized distribution at debug level.
func (pl *PredictionLogger) LogModelDistribution(predictionID, model string, probabilities map[string]float64) {
	pl.WithFields(logrus.Fields{
		"prediction_id": predictionID,
		"model":         model,
		"probabilities": probabilities,
	}).Debug("Model distribution computed")
}

// LogInvariantViolation logs a distribution that failed its post-checks.
func (pl *PredictionLogger) LogInvariantViolation(predictionID, stage string, err error) {
	pl.WithFields(logrus.Fields{
		"prediction_id": predictionID,
		"stage":         stage,
	}).WithError(err).Error("Probability invariant violated")
}
