package domain

import (
	"fmt"
	"strings"
)

// Pair is an ordered (from, to) currency code tuple.
type Pair struct {
	From string
	To   string
}

// NewPair builds a pair from two currency codes, normalising case.
func NewPair(from, to string) Pair {
	return Pair{
		From: strings.ToUpper(strings.TrimSpace(from)),
		To:   strings.ToUpper(strings.TrimSpace(to)),
	}
}

// ParsePair parses a "USD/KRW" style string.
func ParsePair(s string) (Pair, error) {
	parts := strings.Split(s, "/")
	if len(parts) != 2 {
		return Pair{}, fmt.Errorf("invalid currency pair %q", s)
	}
	p := NewPair(parts[0], parts[1])
	if !p.IsValid() {
		return Pair{}, fmt.Errorf("invalid currency pair %q", s)
	}
	return p, nil
}

// String renders the pair in the conventional "USD/KRW" form.
func (p Pair) String() string {
	return p.From + "/" + p.To
}

// Swapped returns the pair with from and to exchanged.
func (p Pair) Swapped() Pair {
	return Pair{From: p.To, To: p.From}
}

// IsValid reports whether both codes look like ISO 4217 currency codes.
func (p Pair) IsValid() bool {
	return len(p.From) == 3 && len(p.To) == 3
}

// Currency describes one supported currency as reported by the rates service.
type Currency struct {
	Code   string `json:"code"`
	Name   string `json:"name"`
	Symbol string `json:"symbol,omitempty"`
}
