package ratecache

import (
	"context"
	"time"

	"fxwatch/internal/domain"
	"fxwatch/internal/ports"
)

// CachedSource decorates a ports.RateSource with a quote cache. Only single
// pair lookups and the current-rates sweep are cached; conversions and history
// always go to the source. Cache failures degrade to direct lookups.
type CachedSource struct {
	source ports.RateSource
	cache  ports.RateCache
	ttl    time.Duration
	logger ports.Logger
}

// NewCachedSource wraps source with cache. A non-positive ttl disables
// caching entirely.
func NewCachedSource(source ports.RateSource, cache ports.RateCache, ttl time.Duration, logger ports.Logger) *CachedSource {
	return &CachedSource{source: source, cache: cache, ttl: ttl, logger: logger}
}

// GetRate returns a cached quote when one is fresh, otherwise fetches and
// caches.
func (c *CachedSource) GetRate(ctx context.Context, pair domain.Pair) (*domain.RateQuote, error) {
	if c.cache != nil && c.ttl > 0 {
		cached, err := c.cache.Get(ctx, pair)
		if err != nil {
			c.logger.Warn(ctx, "quote cache lookup failed, falling through to source",
				map[string]interface{}{"pair": pair.String(), "error": err.Error()})
		} else if cached != nil {
			return cached, nil
		}
	}

	quote, err := c.source.GetRate(ctx, pair)
	if err != nil {
		return nil, err
	}
	c.store(ctx, quote)
	return quote, nil
}

// CurrentRates fetches the full sweep and refreshes the cache with every
// quote it returns.
func (c *CachedSource) CurrentRates(ctx context.Context) ([]domain.RateQuote, error) {
	quotes, err := c.source.CurrentRates(ctx)
	if err != nil {
		return nil, err
	}
	for i := range quotes {
		c.store(ctx, &quotes[i])
	}
	return quotes, nil
}

// Convert always goes to the source.
func (c *CachedSource) Convert(ctx context.Context, pair domain.Pair, amount float64) (*domain.ConversionResult, error) {
	return c.source.Convert(ctx, pair, amount)
}

// History always goes to the source.
func (c *CachedSource) History(ctx context.Context, pair domain.Pair, period domain.Period) (*domain.HistorySnapshot, error) {
	return c.source.History(ctx, pair, period)
}

// HistoryRange always goes to the source.
func (c *CachedSource) HistoryRange(ctx context.Context, pair domain.Pair, startDate, endDate string) (*domain.HistorySnapshot, error) {
	return c.source.HistoryRange(ctx, pair, startDate, endDate)
}

// Currencies always goes to the source.
func (c *CachedSource) Currencies(ctx context.Context) ([]domain.Currency, error) {
	return c.source.Currencies(ctx)
}

func (c *CachedSource) store(ctx context.Context, quote *domain.RateQuote) {
	if c.cache == nil || c.ttl <= 0 || quote == nil {
		return
	}
	if err := c.cache.Set(ctx, quote, c.ttl); err != nil {
		c.logger.Warn(ctx, "failed to cache quote",
			map[string]interface{}{"pair": quote.Pair.String(), "error": err.Error()})
	}
}
