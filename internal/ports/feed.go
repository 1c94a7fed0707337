package ports

import (
	"context"

	"fxwatch/internal/domain"
)

// Subscription is a handle to one registered rate-update listener. Unsubscribe
// is idempotent.
type Subscription interface {
	Unsubscribe()
}

// RateFeed defines the interface for the push channel delivering live rate
// updates. Implementations reconnect on their own; consumers observe
// connectivity through IsConnected and keep working from polled data while the
// feed is down.
type RateFeed interface {
	// Start connects the feed and keeps it connected until ctx is cancelled
	// or Close is called. It returns once the connection loop is running.
	Start(ctx context.Context) error

	// Subscribe registers a handler for every rate update the feed delivers.
	Subscribe(handler func(update domain.RateUpdate)) Subscription

	// SubscribePair registers a handler for updates of a single pair and asks
	// the server to stream that pair while at least one subscriber remains.
	SubscribePair(pair domain.Pair, handler func(update domain.RateUpdate)) Subscription

	// IsConnected reports whether the underlying connection is currently up.
	IsConnected() bool

	// Close tears down the connection and stops reconnecting.
	Close() error
}
