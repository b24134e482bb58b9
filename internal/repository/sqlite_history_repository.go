package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/yourusername/race-odds/internal/models"
)

const sqliteInsertHistory = `
	INSERT INTO history_records (` + historyColumns + `)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (normalized_name, race_date, venue) DO NOTHING
`

// SQLHistoryRepository implements WritableHistoryRepository over the embedded
// SQLite database opened with database.OpenSQLite.
type SQLHistoryRepository struct {
	db *sql.DB
}

// NewSQLHistoryRepository creates a new SQLite-backed history repository
func NewSQLHistoryRepository(db *sql.DB) *SQLHistoryRepository {
	return &SQLHistoryRepository{db: db}
}

// FindByName retrieves all starts recorded under an exact normalized name
func (r *SQLHistoryRepository) FindByName(ctx context.Context, normalized string) ([]models.HistoricalRecord, error) {
	query := `SELECT ` + historyColumns + `
		FROM history_records
		WHERE normalized_name = ?
		ORDER BY race_date, normalized_name`

	return r.query(ctx, query, normalized)
}

// FindByNamePrefix retrieves all starts whose normalized name begins with prefix
func (r *SQLHistoryRepository) FindByNamePrefix(ctx context.Context, prefix string) ([]models.HistoricalRecord, error) {
	query := `SELECT ` + historyColumns + `
		FROM history_records
		WHERE normalized_name LIKE ? ESCAPE '\'
		ORDER BY race_date, normalized_name`

	return r.query(ctx, query, likePrefix(prefix))
}

func (r *SQLHistoryRepository) query(ctx context.Context, query string, arg string) ([]models.HistoricalRecord, error) {
	rows, err := r.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to query history records: %w", err)
	}
	defer rows.Close()

	var records []models.HistoricalRecord
	for rows.Next() {
		var (
			rec       models.HistoricalRecord
			raceDate  string
			surface   string
			class     sql.NullInt64
			createdAt int64
		)
		err := rows.Scan(
			&rec.ID, &rec.HorseName, &rec.NormalizedName, &raceDate, &rec.Venue, &surface,
			&rec.Distance, &rec.Position, &rec.FieldSize, &class, &createdAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan history record: %w", err)
		}

		rec.RaceDate, err = time.Parse(dateLayout, raceDate)
		if err != nil {
			return nil, fmt.Errorf("invalid race date %q for %s: %w", raceDate, rec.NormalizedName, err)
		}
		rec.Surface = models.Surface(surface)
		if class.Valid {
			v := int(class.Int64)
			rec.ClassRating = &v
		}
		rec.CreatedAt = time.Unix(createdAt, 0).UTC()
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating history records: %w", err)
	}

	return records, nil
}

// Insert stores a single record. A duplicate start is reported as ErrDuplicateKey.
func (r *SQLHistoryRepository) Insert(ctx context.Context, record *models.HistoricalRecord) error {
	prepareRecord(record, time.Now().UTC())

	res, err := r.db.ExecContext(ctx, sqliteInsertHistory, sqliteArgs(record)...)
	if err != nil {
		return fmt.Errorf("failed to insert history record: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%s on %s: %w", record.NormalizedName, record.RaceDate.Format(dateLayout), models.ErrDuplicateKey)
	}

	return nil
}

// InsertBatch inserts records in one transaction with a prepared statement
func (r *SQLHistoryRepository) InsertBatch(ctx context.Context, records []models.HistoricalRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, sqliteInsertHistory)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	inserted := 0
	for i := range records {
		prepareRecord(&records[i], now)
		res, err := stmt.ExecContext(ctx, sqliteArgs(&records[i])...)
		if err != nil {
			return 0, fmt.Errorf("failed to insert history record %s: %w", records[i].NormalizedName, err)
		}
		n, _ := res.RowsAffected()
		inserted += int(n)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return inserted, nil
}

// Count returns the number of stored records
func (r *SQLHistoryRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM history_records`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count history records: %w", err)
	}
	return n, nil
}

// Ping verifies database connectivity
func (r *SQLHistoryRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func sqliteArgs(rec *models.HistoricalRecord) []interface{} {
	var class interface{}
	if rec.ClassRating != nil {
		class = *rec.ClassRating
	}
	return []interface{}{
		rec.ID.String(), rec.HorseName, rec.NormalizedName, rec.RaceDate.Format(dateLayout), rec.Venue,
		string(rec.Surface), rec.Distance, rec.Position, rec.FieldSize, class, rec.CreatedAt.Unix(),
	}
}
