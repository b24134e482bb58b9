package features

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/yourusername/race-odds/internal/models"
)

// MarketKind tells how a market indicator was interpreted.
type MarketKind int

const (
	// MarketNone means the indicator was absent or unparseable.
	MarketNone MarketKind = iota
	// MarketPrice is a decimal price.
	MarketPrice
	// MarketTime is an elapsed time in seconds.
	MarketTime
)

func (k MarketKind) String() string {
	switch k {
	case MarketPrice:
		return "price"
	case MarketTime:
		return "time"
	default:
		return "none"
	}
}

var tenth = decimal.NewFromInt(10)

// Features is the canonical view of one entrant. It is built once per prediction
// and never mutated afterwards.
type Features struct {
	Name          string
	Form          string
	RecentResults []int // most recent last

	Weight        float64 // total burden in kg including the penalty
	WeightKnown   bool
	PenaltyTenths float64

	MarketKind  MarketKind
	MarketValue float64 // decimal price or elapsed seconds

	Slot int // 0 when absent

	Origin string

	RestDays  int
	RestKnown bool

	Rating      int
	RatingKnown bool
}

// Normalize converts a raw entrant record into Features. It never fails: any field
// that cannot be parsed is left at its neutral value.
func Normalize(rec models.EntrantRecord) Features {
	f := Features{
		Name:          rec.Identifier(),
		Form:          strings.ToUpper(strings.Join(strings.Fields(rec.Form.String()), " ")),
		RecentResults: ParseRecentResults(rec.RecentResults.String()),
		Origin:        strings.ToUpper(strings.TrimSpace(rec.Origin.String())),
	}

	if w, penalty, ok := ParseWeight(rec.Weight.String()); ok {
		f.Weight = w
		f.WeightKnown = true
		f.PenaltyTenths = penalty
	}

	f.MarketKind, f.MarketValue = ParseMarket(rec.Market.String())

	if slot, ok := parseNonNegativeInt(rec.Slot.String()); ok {
		f.Slot = slot
	}
	f.RestDays, f.RestKnown = parseNonNegativeInt(rec.RestDays.String())
	f.Rating, f.RatingKnown = parseNonNegativeInt(rec.Rating.String())

	return f
}

// ParseRecentResults extracts every digit of s in order.
func ParseRecentResults(s string) []int {
	results := make([]int, 0, len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			results = append(results, int(r-'0'))
		}
	}
	return results
}

// ParseWeight reads a burden such as "58", "60,5" or "58+2". The token after "+"
// is a penalty in tenths of a kilogram and is included in the returned weight.
func ParseWeight(s string) (weight float64, penaltyTenths float64, ok bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.TrimSuffix(s, "kg")
	s = strings.ReplaceAll(s, ",", ".")
	if s == "" {
		return 0, 0, false
	}

	parts := strings.SplitN(s, "+", 2)
	base, err := decimal.NewFromString(strings.TrimSpace(parts[0]))
	if err != nil || !base.IsPositive() {
		return 0, 0, false
	}

	penalty := decimal.Zero
	if len(parts) == 2 {
		p, err := decimal.NewFromString(strings.TrimSpace(parts[1]))
		if err == nil && !p.IsNegative() {
			penalty = p
		}
	}

	total := base.Add(penalty.Div(tenth))
	return total.InexactFloat64(), penalty.InexactFloat64(), true
}

// ParseMarket interprets a market indicator. Values with a ":" or two "." separators
// are elapsed times ("1.31.45", "1:31.45"); "a/b" is a fractional price; anything
// else must be a positive decimal price.
func ParseMarket(s string) (MarketKind, float64) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	if s == "" {
		return MarketNone, 0
	}

	switch {
	case strings.Contains(s, ":"):
		parts := strings.SplitN(s, ":", 2)
		return elapsed(parts[0], parts[1], "")
	case strings.Count(s, ".") == 2:
		parts := strings.Split(s, ".")
		return elapsed(parts[0], parts[1], parts[2])
	case strings.Contains(s, "/"):
		return fractional(s)
	}

	price, err := decimal.NewFromString(s)
	if err != nil || !price.IsPositive() {
		return MarketNone, 0
	}
	return MarketPrice, price.InexactFloat64()
}

func elapsed(minutes, seconds, fraction string) (MarketKind, float64) {
	m, err := strconv.Atoi(strings.TrimSpace(minutes))
	if err != nil || m < 0 {
		return MarketNone, 0
	}

	secStr := strings.TrimSpace(seconds)
	if fraction != "" {
		secStr += "." + strings.TrimSpace(fraction)
	}
	sec, err := decimal.NewFromString(secStr)
	if err != nil || sec.IsNegative() || sec.GreaterThanOrEqual(decimal.NewFromInt(60)) {
		return MarketNone, 0
	}

	total := decimal.NewFromInt(int64(m * 60)).Add(sec)
	if !total.IsPositive() {
		return MarketNone, 0
	}
	return MarketTime, total.InexactFloat64()
}

func fractional(s string) (MarketKind, float64) {
	parts := strings.SplitN(s, "/", 2)
	num, err := decimal.NewFromString(strings.TrimSpace(parts[0]))
	if err != nil || num.IsNegative() {
		return MarketNone, 0
	}
	den, err := decimal.NewFromString(strings.TrimSpace(parts[1]))
	if err != nil || !den.IsPositive() {
		return MarketNone, 0
	}
	return MarketPrice, num.Div(den).Add(decimal.NewFromInt(1)).InexactFloat64()
}

func parseNonNegativeInt(s string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}
