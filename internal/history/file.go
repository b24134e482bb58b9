package history

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/yourusername/race-odds/internal/models"
)

// LoadRecords decodes a JSON array of past starts. Surface aliases are
// canonicalized, names normalized, and each record validated; the first
// invalid record fails the whole load.
func LoadRecords(r io.Reader) ([]models.HistoricalRecord, error) {
	var records []models.HistoricalRecord
	if err := json.NewDecoder(r).Decode(&records); err != nil {
		return nil, fmt.Errorf("failed to decode history records: %w", err)
	}

	validate := validator.New()
	for i := range records {
		rec := &records[i]
		surface, ok := models.ParseSurface(string(rec.Surface))
		if !ok {
			return nil, fmt.Errorf("record %d (%s): unknown surface %q", i+1, rec.HorseName, rec.Surface)
		}
		rec.Surface = surface
		rec.NormalizedName = NormalizeName(rec.HorseName)

		if err := validate.Struct(rec); err != nil {
			return nil, fmt.Errorf("record %d (%s): %w", i+1, rec.HorseName, err)
		}
	}
	return records, nil
}

// LoadRecordsFile reads LoadRecords input from path.
func LoadRecordsFile(path string) ([]models.HistoricalRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history file: %w", err)
	}
	defer f.Close()

	return LoadRecords(f)
}
