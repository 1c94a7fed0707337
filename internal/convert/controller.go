package convert

import (
	"context"
	"math"
	"sync"
	"time"

	"fxwatch/internal/domain"
	"fxwatch/internal/ports"
)

const defaultDebounce = 500 * time.Millisecond

// Controller mediates between rapid amount edits and the conversion engine.
//
// Amount edits are debounced: each edit shows an immediate local projection
// from the last known rate, then schedules one authoritative conversion for
// after the quiet period, cancelling any previously scheduled one. Pair
// changes, swaps and manual refreshes bypass the debounce entirely.
type Controller struct {
	engine   *Engine
	logger   ports.Logger
	onResult func(*domain.ConversionResult)
	debounce time.Duration

	ctx    context.Context
	cancel context.CancelFunc

	mu        sync.Mutex
	pair      domain.Pair
	amount    float64
	timer     *time.Timer
	refreshes int
	closed    bool
}

// ControllerConfig holds configuration for the input controller.
type ControllerConfig struct {
	Engine   *Engine
	Pair     domain.Pair
	Debounce time.Duration
	Logger   ports.Logger

	// OnResult receives every state change: authoritative results, offline
	// results, projections, and nil for the cleared state.
	OnResult func(*domain.ConversionResult)
}

// NewController creates an input controller around an engine.
func NewController(cfg ControllerConfig) *Controller {
	debounce := cfg.Debounce
	if debounce <= 0 {
		debounce = defaultDebounce
	}
	onResult := cfg.OnResult
	if onResult == nil {
		onResult = func(*domain.ConversionResult) {}
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Controller{
		engine:   cfg.Engine,
		logger:   cfg.Logger,
		onResult: onResult,
		debounce: debounce,
		ctx:      ctx,
		cancel:   cancel,
		pair:     cfg.Pair,
	}
}

// Pair returns the currently selected pair.
func (c *Controller) Pair() domain.Pair {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pair
}

// SetAmount records an amount edit. Non-positive and non-finite amounts clear
// the result immediately and cancel any pending conversion.
func (c *Controller) SetAmount(amount float64) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.amount = amount

	if math.IsNaN(amount) || math.IsInf(amount, 0) || amount <= 0 {
		c.stopTimerLocked()
		c.mu.Unlock()
		c.onResult(nil)
		return
	}

	pair := c.pair
	var projection *domain.ConversionResult
	if rate := c.engine.KnownRate(pair); rate > 0 {
		projection = &domain.ConversionResult{
			Amount:          amount,
			ConvertedAmount: amount * rate,
			FromCurrency:    pair.From,
			ToCurrency:      pair.To,
			Rate:            rate,
			Timestamp:       time.Now(),
			Projected:       true,
		}
	}

	c.stopTimerLocked()
	c.timer = time.AfterFunc(c.debounce, c.fire)
	c.mu.Unlock()

	if projection != nil {
		c.onResult(projection)
	}
}

// SetPair switches the pair and converts immediately; pair changes are never
// debounced.
func (c *Controller) SetPair(pair domain.Pair) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.pair = pair
	c.stopTimerLocked()
	amount := c.amount
	c.mu.Unlock()

	c.convertNow(pair, amount, false)
}

// Swap exchanges the pair's sides and converts immediately.
func (c *Controller) Swap() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.pair = c.pair.Swapped()
	pair := c.pair
	c.stopTimerLocked()
	amount := c.amount
	c.mu.Unlock()

	c.convertNow(pair, amount, false)
}

// Refresh forces an immediate authoritative conversion. IsRefreshing reports
// true until it completes.
func (c *Controller) Refresh() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.stopTimerLocked()
	pair, amount := c.pair, c.amount
	c.refreshes++
	c.mu.Unlock()

	c.convertNow(pair, amount, true)
}

// IsRefreshing reports whether at least one manual refresh is outstanding.
func (c *Controller) IsRefreshing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.refreshes > 0
}

// Close cancels any pending conversion. No callbacks fire after Close.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.stopTimerLocked()
	c.mu.Unlock()
	c.cancel()
	c.logger.Debug(context.Background(), "input controller closed")
}

// fire runs when the debounce timer elapses.
func (c *Controller) fire() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	pair, amount := c.pair, c.amount
	c.mu.Unlock()

	c.convertNow(pair, amount, false)
}

func (c *Controller) convertNow(pair domain.Pair, amount float64, refresh bool) {
	result, _ := c.engine.Convert(c.ctx, pair, amount)

	c.mu.Lock()
	if refresh {
		c.refreshes--
	}
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	c.onResult(result)
}

func (c *Controller) stopTimerLocked() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}
