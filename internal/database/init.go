package database

import (
	"context"
	"fmt"

	"github.com/yourusername/race-odds/internal/config"
)

// Initialize connects to PostgreSQL and creates the history schema when missing.
func Initialize(ctx context.Context, cfg *config.Config) (*DB, error) {
	db, err := NewDB(ctx, &cfg.Database)
	if err != nil {
		return nil, err
	}

	for _, stmt := range postgresSchema {
		if _, err := db.pool.Exec(ctx, stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply history schema: %w", err)
		}
	}

	return db, nil
}

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS history_records (
		id UUID PRIMARY KEY,
		horse_name TEXT NOT NULL,
		normalized_name TEXT NOT NULL,
		race_date DATE NOT NULL,
		venue TEXT NOT NULL DEFAULT '',
		surface TEXT NOT NULL DEFAULT '',
		distance INTEGER NOT NULL DEFAULT 0,
		position INTEGER NOT NULL DEFAULT 0,
		field_size INTEGER NOT NULL DEFAULT 0,
		class_rating INTEGER,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		UNIQUE (normalized_name, race_date, venue)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_history_records_name
		ON history_records (normalized_name text_pattern_ops)`,
}
