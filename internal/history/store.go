// Package history looks up past starts of a horse and turns them into score
// multipliers for the race being predicted.
package history

import (
	"context"
	"strings"

	"github.com/yourusername/race-odds/internal/models"
)

// Store returns the past starts of a named horse. Implementations must be safe for
// concurrent use.
type Store interface {
	Query(ctx context.Context, name string) ([]models.HistoricalRecord, error)
}

// RecordSource is the raw lookup a FuzzyStore matches against. Both methods receive
// names that are already normalized with NormalizeName.
type RecordSource interface {
	FindByName(ctx context.Context, normalized string) ([]models.HistoricalRecord, error)
	FindByNamePrefix(ctx context.Context, prefix string) ([]models.HistoricalRecord, error)
}

// Match strategies reported by FuzzyStore.
const (
	MatchExact        = "exact"
	MatchSuffix       = "suffix"
	MatchSuffixPrefix = "suffix_prefix"
	MatchFirstWord    = "first_word"
	MatchNone         = "none"
)

// MatchTables are the heuristics used when an exact name lookup finds nothing.
type MatchTables struct {
	// Suffixes are post-nominal designation tokens appended to the name in turn.
	Suffixes []string `mapstructure:"suffixes" json:"suffixes"`
	// GenericPrefixes are first words too common to use for a prefix fallback.
	GenericPrefixes []string `mapstructure:"generic_prefixes" json:"generic_prefixes"`
}

// DefaultMatchTables returns the stock suffix and generic-prefix lists.
func DefaultMatchTables() MatchTables {
	return MatchTables{
		Suffixes:        []string{"KG", "DB", "SK", "K", "GKR", "SKG", "SGKR"},
		GenericPrefixes: []string{"KING", "PRINCE", "LADY", "LORD", "SUPER", "MEGA", "ULTRA"},
	}
}

// MatchResult is the outcome of a fuzzy lookup.
type MatchResult struct {
	Normalized string                    `json:"normalized"`
	Strategy   string                    `json:"strategy"`
	Key        string                    `json:"key,omitempty"`
	Records    []models.HistoricalRecord `json:"records"`
}

// FuzzyStore implements Store over a RecordSource. It tries the exact normalized
// name, then each suffix (exact, then as a prefix), then the first word of a
// multi-word name unless that word is generic.
type FuzzyStore struct {
	source   RecordSource
	suffixes []string
	generic  map[string]struct{}
}

// NewFuzzyStore creates a FuzzyStore.
func NewFuzzyStore(source RecordSource, tables MatchTables) *FuzzyStore {
	s := &FuzzyStore{
		source:  source,
		generic: make(map[string]struct{}, len(tables.GenericPrefixes)),
	}
	for _, suffix := range tables.Suffixes {
		if n := NormalizeName(suffix); n != "" {
			s.suffixes = append(s.suffixes, n)
		}
	}
	for _, p := range tables.GenericPrefixes {
		s.generic[NormalizeName(p)] = struct{}{}
	}
	return s
}

// Query implements Store.
func (s *FuzzyStore) Query(ctx context.Context, name string) ([]models.HistoricalRecord, error) {
	res, err := s.Match(ctx, name)
	if err != nil {
		return nil, err
	}
	return res.Records, nil
}

// Match runs the lookup cascade and reports which step found the records.
func (s *FuzzyStore) Match(ctx context.Context, name string) (MatchResult, error) {
	normalized := NormalizeName(name)
	res := MatchResult{Normalized: normalized, Strategy: MatchNone}
	if normalized == "" {
		return res, nil
	}

	records, err := s.source.FindByName(ctx, normalized)
	if err != nil {
		return res, err
	}
	if len(records) > 0 {
		return found(res, MatchExact, normalized, records), nil
	}

	for _, suffix := range s.suffixes {
		key := normalized + " " + suffix
		records, err = s.source.FindByName(ctx, key)
		if err != nil {
			return res, err
		}
		if len(records) > 0 {
			return found(res, MatchSuffix, key, records), nil
		}

		records, err = s.source.FindByNamePrefix(ctx, key)
		if err != nil {
			return res, err
		}
		if len(records) > 0 {
			return found(res, MatchSuffixPrefix, key, records), nil
		}
	}

	words := strings.Fields(normalized)
	if len(words) < 2 {
		return res, nil
	}
	if _, skip := s.generic[words[0]]; skip {
		return res, nil
	}

	key := words[0] + " "
	records, err = s.source.FindByNamePrefix(ctx, key)
	if err != nil {
		return res, err
	}
	if len(records) > 0 {
		return found(res, MatchFirstWord, key, records), nil
	}
	return res, nil
}

func found(res MatchResult, strategy, key string, records []models.HistoricalRecord) MatchResult {
	res.Strategy = strategy
	res.Key = key
	res.Records = records
	return res
}
