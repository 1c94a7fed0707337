package domain

import (
	"fmt"
	"math"
	"time"
)

// Tolerance applied when checking that convertedAmount == amount * rate.
const conversionTolerance = 1e-6

// RateQuote is the current exchange rate for a single pair.
type RateQuote struct {
	Pair      Pair      `json:"pair"`
	Rate      float64   `json:"rate"`
	Timestamp time.Time `json:"timestamp"`
}

// RateUpdate is a push-feed message announcing a fresh rate for a pair.
type RateUpdate struct {
	From      string    `json:"from"`
	To        string    `json:"to"`
	Rate      float64   `json:"rate"`
	Timestamp time.Time `json:"timestamp"`
}

// Pair returns the update's currency pair.
func (u RateUpdate) Pair() Pair {
	return NewPair(u.From, u.To)
}

// ConversionResult is a single validated currency conversion.
//
// Offline marks results computed from the static fallback table rather than a
// live quote. Projected marks synchronous local recomputations made from the
// last known rate while an authoritative refresh is still pending; a projected
// result is display state, never a quote.
type ConversionResult struct {
	Amount          float64   `json:"amount"`
	ConvertedAmount float64   `json:"convertedAmount"`
	FromCurrency    string    `json:"fromCurrency"`
	ToCurrency      string    `json:"toCurrency"`
	Rate            float64   `json:"rate"`
	Timestamp       time.Time `json:"timestamp"`
	Offline         bool      `json:"offline,omitempty"`
	Projected       bool      `json:"-"`

	// PreviousRate is the rate held for this pair before this result replaced
	// it. Zero when no earlier rate was known.
	PreviousRate float64 `json:"-"`
}

// Pair returns the result's currency pair.
func (r *ConversionResult) Pair() Pair {
	return NewPair(r.FromCurrency, r.ToCurrency)
}

// Validate checks the invariants a result must satisfy before it may enter
// display state: finite numbers, a positive rate, and convertedAmount equal to
// amount*rate within floating tolerance.
func (r *ConversionResult) Validate() error {
	if !isFinite(r.Amount) || !isFinite(r.Rate) || !isFinite(r.ConvertedAmount) {
		return fmt.Errorf("conversion result contains non-finite values (amount=%v rate=%v converted=%v)",
			r.Amount, r.Rate, r.ConvertedAmount)
	}
	if r.Rate <= 0 {
		return fmt.Errorf("conversion rate must be positive, got %v", r.Rate)
	}
	expected := r.Amount * r.Rate
	if diff := math.Abs(r.ConvertedAmount - expected); diff > conversionTolerance*math.Max(1, math.Abs(expected)) {
		return fmt.Errorf("convertedAmount %v does not match amount*rate %v", r.ConvertedAmount, expected)
	}
	return nil
}

// RateChangePercent returns the percentage move of Rate against PreviousRate.
// Zero when no previous rate is known.
func (r *ConversionResult) RateChangePercent() float64 {
	if r.PreviousRate == 0 {
		return 0
	}
	return (r.Rate - r.PreviousRate) / r.PreviousRate * 100
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
