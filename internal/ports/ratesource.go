package ports

import (
	"context"

	"fxwatch/internal/domain"
)

// RateSource defines the interface for the remote exchange-rates service.
// This abstraction allows decoupling the conversion and chart logic from the
// concrete HTTP client, and lets a caching layer wrap the real source.
type RateSource interface {
	// CurrentRates retrieves the current rates for every pair the service
	// publishes against its default base.
	CurrentRates(ctx context.Context) ([]domain.RateQuote, error)

	// GetRate retrieves the current rate for a single pair.
	GetRate(ctx context.Context, pair domain.Pair) (*domain.RateQuote, error)

	// Convert asks the service to convert an amount between two currencies.
	Convert(ctx context.Context, pair domain.Pair, amount float64) (*domain.ConversionResult, error)

	// History retrieves the historical series for a pair over a preset period.
	History(ctx context.Context, pair domain.Pair, period domain.Period) (*domain.HistorySnapshot, error)

	// HistoryRange retrieves the historical series for a pair between two
	// calendar days, both in "2006-01-02" form.
	HistoryRange(ctx context.Context, pair domain.Pair, startDate, endDate string) (*domain.HistorySnapshot, error)

	// Currencies lists the currencies the service supports.
	Currencies(ctx context.Context) ([]domain.Currency, error)
}
