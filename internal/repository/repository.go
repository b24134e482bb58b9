// Package repository provides the history record stores: PostgreSQL, SQLite and
// a remote HTTP service.
package repository

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/yourusername/race-odds/internal/history"
	"github.com/yourusername/race-odds/internal/models"
)

const dateLayout = "2006-01-02"

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// likePrefix builds a LIKE pattern matching names that start with prefix.
func likePrefix(prefix string) string {
	return likeEscaper.Replace(prefix) + "%"
}

// prepareRecord fills the derived fields of a record before it is stored.
func prepareRecord(r *models.HistoricalRecord, now time.Time) {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	if r.NormalizedName == "" {
		r.NormalizedName = history.NormalizeName(r.HorseName)
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = now
	}
	r.RaceDate = truncateDay(r.RaceDate)
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
