package history

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/yourusername/race-odds/internal/models"
)

// MemorySource is a RecordSource held in memory, loaded from a file or built in
// tests.
type MemorySource struct {
	mu      sync.RWMutex
	records map[string][]models.HistoricalRecord
}

// NewMemorySource indexes records by normalized horse name.
func NewMemorySource(records []models.HistoricalRecord) *MemorySource {
	m := &MemorySource{records: make(map[string][]models.HistoricalRecord)}
	m.Add(records...)
	return m
}

// Add appends records to the index.
func (m *MemorySource) Add(records ...models.HistoricalRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, r := range records {
		key := r.NormalizedName
		if key == "" {
			key = NormalizeName(r.HorseName)
			r.NormalizedName = key
		}
		m.records[key] = append(m.records[key], r)
	}
	for key := range m.records {
		sortByDate(m.records[key])
	}
}

// FindByName implements RecordSource.
func (m *MemorySource) FindByName(_ context.Context, normalized string) ([]models.HistoricalRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return append([]models.HistoricalRecord(nil), m.records[normalized]...), nil
}

// FindByNamePrefix implements RecordSource.
func (m *MemorySource) FindByNamePrefix(_ context.Context, prefix string) ([]models.HistoricalRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []models.HistoricalRecord
	for key, records := range m.records {
		if strings.HasPrefix(key, prefix) {
			out = append(out, records...)
		}
	}
	sortByDate(out)
	return out, nil
}

// Len returns the number of indexed records.
func (m *MemorySource) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	n := 0
	for _, records := range m.records {
		n += len(records)
	}
	return n
}

// Ping implements the health checker's pinger.
func (m *MemorySource) Ping(context.Context) error {
	return nil
}

func sortByDate(records []models.HistoricalRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		if records[i].RaceDate.Equal(records[j].RaceDate) {
			return records[i].NormalizedName < records[j].NormalizedName
		}
		return records[i].RaceDate.Before(records[j].RaceDate)
	})
}
