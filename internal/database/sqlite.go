package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite" // driver: sqlite
)

// SQLiteDSN turns a file path into a DSN with a busy timeout. Values that are
// already DSNs are returned unchanged.
func SQLiteDSN(path string) string {
	if strings.HasPrefix(path, "file:") || path == ":memory:" {
		return path
	}
	return fmt.Sprintf("file:%s?mode=rwc&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
}

// OpenSQLite opens the embedded history database and ensures its schema exists.
func OpenSQLite(ctx context.Context, path string) (*sql.DB, error) {
	if !strings.HasPrefix(path, "file:") && path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create sqlite directory: %w", err)
			}
		}
	}

	db, err := sql.Open("sqlite", SQLiteDSN(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping sqlite database: %w", err)
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply history schema: %w", err)
	}
	return db, nil
}

// race_date is stored as YYYY-MM-DD text, created_at as unix seconds.
const sqliteSchema = `
CREATE TABLE IF NOT EXISTS history_records (
  id TEXT PRIMARY KEY,
  horse_name TEXT NOT NULL,
  normalized_name TEXT NOT NULL,
  race_date TEXT NOT NULL,
  venue TEXT NOT NULL DEFAULT '',
  surface TEXT NOT NULL DEFAULT '',
  distance INTEGER NOT NULL DEFAULT 0,
  position INTEGER NOT NULL DEFAULT 0,
  field_size INTEGER NOT NULL DEFAULT 0,
  class_rating INTEGER,
  created_at INTEGER NOT NULL,
  UNIQUE (normalized_name, race_date, venue)
);

CREATE INDEX IF NOT EXISTS idx_history_records_name ON history_records (normalized_name);
`
