package models

import (
	"strings"
	"time"
)

// Surface is the going type of a track.
type Surface string

// Recognized surfaces
const (
	SurfaceUnknown   Surface = ""
	SurfaceDirt      Surface = "dirt"
	SurfaceTurf      Surface = "turf"
	SurfaceSynthetic Surface = "synthetic"
)

var surfaceAliases = map[string]Surface{
	"dirt":      SurfaceDirt,
	"kum":       SurfaceDirt,
	"turf":      SurfaceTurf,
	"grass":     SurfaceTurf,
	"çim":       SurfaceTurf,
	"cim":       SurfaceTurf,
	"synthetic": SurfaceSynthetic,
	"sentetik":  SurfaceSynthetic,
	"awt":       SurfaceSynthetic,
}

// ParseSurface maps a surface name, including local-language names, to a Surface.
// Unknown names return SurfaceUnknown and false.
func ParseSurface(s string) (Surface, bool) {
	key := strings.ToLower(strings.TrimSpace(s))
	if key == "" {
		return SurfaceUnknown, true
	}
	surface, ok := surfaceAliases[key]
	return surface, ok
}

// RaceContext holds the conditions shared by every entrant of one prediction.
type RaceContext struct {
	RaceID    string    `json:"race_id,omitempty"`
	Venue     string    `json:"venue"`
	Surface   Surface   `json:"surface,omitempty" validate:"omitempty,oneof=dirt turf synthetic"`
	Distance  int       `json:"distance" validate:"gte=0,lte=10000"`
	FieldSize int       `json:"field_size" validate:"gte=0,lte=40"`
	Date      time.Time `json:"date"`
}

// Season returns 1 (winter) to 4 (autumn) for the given date.
func Season(t time.Time) int {
	return (int(t.Month())%12 + 3) / 3
}

// Season returns the season of the race date.
func (r *RaceContext) Season() int {
	return Season(r.Date)
}

// SameVenue compares venue names case-insensitively.
func SameVenue(a, b string) bool {
	a, b = strings.TrimSpace(a), strings.TrimSpace(b)
	return a != "" && strings.EqualFold(a, b)
}
