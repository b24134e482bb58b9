package models

import (
	"time"

	"github.com/google/uuid"
)

// HistoricalRecord is one past start of a horse.
type HistoricalRecord struct {
	ID             uuid.UUID `db:"id" json:"id"`
	HorseName      string    `db:"horse_name" json:"horse_name" validate:"required"`
	NormalizedName string    `db:"normalized_name" json:"normalized_name"`
	RaceDate       time.Time `db:"race_date" json:"race_date" validate:"required"`
	Venue          string    `db:"venue" json:"venue"`
	Surface        Surface   `db:"surface" json:"surface" validate:"omitempty,oneof=dirt turf synthetic"`
	Distance       int       `db:"distance" json:"distance" validate:"gte=0"`
	Position       int       `db:"position" json:"position" validate:"gte=0,lte=40"` // 0 = unplaced
	FieldSize      int       `db:"field_size" json:"field_size" validate:"gte=0"`
	ClassRating    *int      `db:"class_rating" json:"class_rating,omitempty"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// Placed reports whether the horse finished with a recorded position.
func (r *HistoricalRecord) Placed() bool {
	return r.Position > 0
}

// Won reports a first-place finish.
func (r *HistoricalRecord) Won() bool {
	return r.Position == 1
}
