package history

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// NormalizeName upper-cases a horse name, folds accented letters to their base
// Latin letter and collapses whitespace. "Şahin Bey" and "SAHIN  BEY" normalize
// to the same key.
func NormalizeName(name string) string {
	upper := strings.ToUpper(strings.TrimSpace(name))

	// the chain is stateful, so build one per call
	fold := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(fold, upper)
	if err != nil {
		folded = upper
	}

	// dotless ı upper-cases to I already; İ decomposes to I plus a combining dot
	return strings.Join(strings.Fields(folded), " ")
}
