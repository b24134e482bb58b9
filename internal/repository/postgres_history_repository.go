package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/yourusername/race-odds/internal/database"
	"github.com/yourusername/race-odds/internal/models"
)

const historyColumns = `id, horse_name, normalized_name, race_date, venue, surface,
	distance, position, field_size, class_rating, created_at`

const pgInsertHistory = `
	INSERT INTO history_records (` + historyColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	ON CONFLICT (normalized_name, race_date, venue) DO NOTHING
`

// PostgresHistoryRepository implements WritableHistoryRepository for PostgreSQL
type PostgresHistoryRepository struct {
	db *database.DB
}

// NewPostgresHistoryRepository creates a new history repository
func NewPostgresHistoryRepository(db *database.DB) *PostgresHistoryRepository {
	return &PostgresHistoryRepository{db: db}
}

// FindByName retrieves all starts recorded under an exact normalized name
func (r *PostgresHistoryRepository) FindByName(ctx context.Context, normalized string) ([]models.HistoricalRecord, error) {
	query := `SELECT ` + historyColumns + `
		FROM history_records
		WHERE normalized_name = $1
		ORDER BY race_date, normalized_name`

	return r.query(ctx, query, normalized)
}

// FindByNamePrefix retrieves all starts whose normalized name begins with prefix
func (r *PostgresHistoryRepository) FindByNamePrefix(ctx context.Context, prefix string) ([]models.HistoricalRecord, error) {
	query := `SELECT ` + historyColumns + `
		FROM history_records
		WHERE normalized_name LIKE $1
		ORDER BY race_date, normalized_name`

	return r.query(ctx, query, likePrefix(prefix))
}

func (r *PostgresHistoryRepository) query(ctx context.Context, query string, arg string) ([]models.HistoricalRecord, error) {
	rows, err := r.db.GetPool().Query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to query history records: %w", err)
	}
	defer rows.Close()

	var records []models.HistoricalRecord
	for rows.Next() {
		var rec models.HistoricalRecord
		var surface string
		err := rows.Scan(
			&rec.ID, &rec.HorseName, &rec.NormalizedName, &rec.RaceDate, &rec.Venue, &surface,
			&rec.Distance, &rec.Position, &rec.FieldSize, &rec.ClassRating, &rec.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan history record: %w", err)
		}
		rec.Surface = models.Surface(surface)
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating history records: %w", err)
	}

	return records, nil
}

// Insert stores a single record. A duplicate start is reported as ErrDuplicateKey.
func (r *PostgresHistoryRepository) Insert(ctx context.Context, record *models.HistoricalRecord) error {
	prepareRecord(record, time.Now().UTC())

	tag, err := r.db.GetPool().Exec(ctx, pgInsertHistory, insertArgs(record)...)
	if err != nil {
		return fmt.Errorf("failed to insert history record: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s on %s: %w", record.NormalizedName, record.RaceDate.Format(dateLayout), models.ErrDuplicateKey)
	}

	return nil
}

// InsertBatch inserts records in one transaction using a pgx batch
func (r *PostgresHistoryRepository) InsertBatch(ctx context.Context, records []models.HistoricalRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	now := time.Now().UTC()
	batch := &pgx.Batch{}
	for i := range records {
		prepareRecord(&records[i], now)
		batch.Queue(pgInsertHistory, insertArgs(&records[i])...)
	}

	inserted := 0
	err := r.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		results := tx.SendBatch(ctx, batch)
		for range records {
			tag, err := results.Exec()
			if err != nil {
				results.Close()
				return fmt.Errorf("failed to batch insert history records: %w", err)
			}
			inserted += int(tag.RowsAffected())
		}
		return results.Close()
	})
	if err != nil {
		return 0, err
	}

	return inserted, nil
}

// Count returns the number of stored records
func (r *PostgresHistoryRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.GetPool().QueryRow(ctx, `SELECT COUNT(*) FROM history_records`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count history records: %w", err)
	}
	return n, nil
}

// Ping verifies database connectivity
func (r *PostgresHistoryRepository) Ping(ctx context.Context) error {
	return r.db.Ping(ctx)
}

func insertArgs(rec *models.HistoricalRecord) []interface{} {
	return []interface{}{
		rec.ID, rec.HorseName, rec.NormalizedName, rec.RaceDate, rec.Venue, string(rec.Surface),
		rec.Distance, rec.Position, rec.FieldSize, rec.ClassRating, rec.CreatedAt,
	}
}
