package logger

import (
	"github.com/sirupsen/logrus"
)

// AuditLogger provides dedicated audit trail logging.
type AuditLogger struct {
	*logrus.Entry
}

// NewAuditLogger creates a new audit logger.
func NewAuditLogger(baseLogger *logrus.Logger) *AuditLogger {
	return &AuditLogger{
		Entry: baseLogger.WithField("component", "audit"),
	}
}

// LogModelsLoaded records the model set the engine was built with.
func (al *AuditLogger) LogModelsLoaded(names []string, mixingWeights []float64, source string) {
	al.WithFields(logrus.Fields{
		"models":         names,
		"mixing_weights": mixingWeights,
		"source":         source,
	}).Info("Scoring models loaded")
}

// LogHistoryImport records a bulk import into the history store.
func (al *AuditLogger) LogHistoryImport(backend, file string, imported, skipped int) {
	al.WithFields(logrus.Fields{
		"backend":  backend,
		"file":     file,
		"imported": imported,
		"skipped":  skipped,
	}).Info("History records imported")
}

// LogCacheFlush records a history cache flush.
func (al *AuditLogger) LogCacheFlush(trigger string, itemsDropped int, hitRatio float64) {
	al.WithFields(logrus.Fields{
		"trigger":       trigger,
		"items_dropped": itemsDropped,
		"hit_ratio":     hitRatio,
	}).Info("History cache flushed")
}
