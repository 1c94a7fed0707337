package convert

import (
	"context"
	"math"
	"sync"
	"time"

	"fxwatch/internal/domain"
	"fxwatch/internal/ports"
)

// Engine performs currency conversions. The remote source is the primary
// path; any source failure or invalid payload degrades silently to the static
// fallback table. Conversion never surfaces an error to the caller: the only
// non-result outcome is the cleared state for non-positive amounts.
type Engine struct {
	source   ports.RateSource
	fallback *FallbackTable
	logger   ports.Logger

	mu        sync.Mutex
	lastRates map[domain.Pair]float64
}

// NewEngine creates a conversion engine.
func NewEngine(source ports.RateSource, fallback *FallbackTable, logger ports.Logger) *Engine {
	if fallback == nil {
		fallback = NewFallbackTable()
	}
	return &Engine{
		source:    source,
		fallback:  fallback,
		logger:    logger,
		lastRates: make(map[domain.Pair]float64),
	}
}

// Convert converts amount between the pair's currencies.
//
// A non-finite or non-positive amount means the input is cleared: the engine
// returns (nil, nil) without contacting the source. Source failure returns an
// offline result computed from the fallback table, never an error.
func (e *Engine) Convert(ctx context.Context, pair domain.Pair, amount float64) (*domain.ConversionResult, error) {
	if math.IsNaN(amount) || math.IsInf(amount, 0) || amount <= 0 {
		return nil, nil
	}

	result, err := e.source.Convert(ctx, pair, amount)
	if err == nil && result != nil {
		if vErr := result.Validate(); vErr == nil {
			e.finish(result)
			return result, nil
		} else {
			e.logger.Warn(ctx, "discarding invalid conversion payload",
				map[string]interface{}{"pair": pair.String(), "reason": vErr.Error()})
		}
	} else if err != nil {
		e.logger.Warn(ctx, "conversion source unavailable, using offline rates",
			map[string]interface{}{"pair": pair.String(), "error": err.Error()})
	}

	return e.offline(pair, amount), nil
}

// KnownRate returns the rate last held for a pair, or 0 when none is known.
func (e *Engine) KnownRate(pair domain.Pair) float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastRates[pair]
}

// offline builds a result from the fallback table.
func (e *Engine) offline(pair domain.Pair, amount float64) *domain.ConversionResult {
	rate, _ := e.fallback.Rate(pair)
	result := &domain.ConversionResult{
		Amount:          amount,
		ConvertedAmount: amount * rate,
		FromCurrency:    pair.From,
		ToCurrency:      pair.To,
		Rate:            rate,
		Timestamp:       time.Now(),
		Offline:         true,
	}
	e.finish(result)
	return result
}

// finish records the previous rate for the pair and replaces it with the
// result's rate.
func (e *Engine) finish(result *domain.ConversionResult) {
	pair := result.Pair()
	e.mu.Lock()
	result.PreviousRate = e.lastRates[pair]
	e.lastRates[pair] = result.Rate
	e.mu.Unlock()
}
