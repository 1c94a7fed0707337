package ports

import (
	"context"
	"time"

	"fxwatch/internal/domain"
)

// AlertStore defines the interface for persisting the user's alert list.
// The whole list is loaded at startup and rewritten on every mutation.
type AlertStore interface {
	// LoadAlerts retrieves the stored alert list. An empty store yields an
	// empty slice, not an error.
	LoadAlerts(ctx context.Context) ([]*domain.Alert, error)
	// SaveAlerts replaces the stored alert list.
	SaveAlerts(ctx context.Context, alerts []*domain.Alert) error
}

// RateCache defines the interface for a short-lived quote cache in front of
// the rate source. A miss returns nil, nil.
type RateCache interface {
	Get(ctx context.Context, pair domain.Pair) (*domain.RateQuote, error)
	Set(ctx context.Context, quote *domain.RateQuote, ttl time.Duration) error
}
