package repository

import (
	"context"

	"github.com/yourusername/race-odds/internal/models"
)

// HistoryRepository stores past starts. Lookups take names already normalized
// with history.NormalizeName and return records ordered by race date, oldest
// first. It satisfies history.RecordSource.
type HistoryRepository interface {
	FindByName(ctx context.Context, normalized string) ([]models.HistoricalRecord, error)
	FindByNamePrefix(ctx context.Context, prefix string) ([]models.HistoricalRecord, error)
	Ping(ctx context.Context) error
}

// HistoryWriter is implemented by repositories that accept imports.
type HistoryWriter interface {
	Insert(ctx context.Context, record *models.HistoricalRecord) error
	// InsertBatch returns the number of new rows; duplicates of an existing
	// (name, date, venue) start are skipped.
	InsertBatch(ctx context.Context, records []models.HistoricalRecord) (int, error)
	Count(ctx context.Context) (int, error)
}

// WritableHistoryRepository is a history store that supports imports.
type WritableHistoryRepository interface {
	HistoryRepository
	HistoryWriter
}
