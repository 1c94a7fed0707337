package convert

import "fxwatch/internal/domain"

// fallbackRates is the static offline dataset used when the rates service is
// unreachable. Values are indicative only and marked as such on results.
var fallbackRates = map[string]map[string]float64{
	"USD": {"KRW": 1335.50, "EUR": 0.85, "JPY": 110.20},
	"KRW": {"USD": 0.00075, "EUR": 0.00064, "JPY": 0.083},
	"EUR": {"USD": 1.17, "KRW": 1445.20, "JPY": 129.50},
	"JPY": {"USD": 0.009, "KRW": 12.05, "EUR": 0.0077},
}

// FallbackTable serves offline multipliers for pairs. Unknown pairs get a
// neutral multiplier of 1 so a conversion always produces a number.
type FallbackTable struct {
	rates map[string]map[string]float64
}

// NewFallbackTable returns a table seeded with the built-in dataset.
func NewFallbackTable() *FallbackTable {
	return &FallbackTable{rates: fallbackRates}
}

// Rate returns the offline multiplier for a pair and whether the pair was
// present in the dataset.
func (t *FallbackTable) Rate(pair domain.Pair) (float64, bool) {
	if inner, ok := t.rates[pair.From]; ok {
		if rate, ok := inner[pair.To]; ok {
			return rate, true
		}
	}
	return 1, false
}
