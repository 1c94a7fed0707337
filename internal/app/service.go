package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fxwatch/config"
	"fxwatch/internal/alert"
	"fxwatch/internal/domain"
	"fxwatch/internal/ports"
)

// WatchService owns the runtime: it keeps the push feed connected, runs the
// periodic poll of current rates, and drives alert evaluation from both.
type WatchService struct {
	cfg    *config.Config
	logger ports.Logger
	source ports.RateSource
	feed   ports.RateFeed
	alerts *alert.Manager
}

// NewWatchService creates a new application service instance.
func NewWatchService(
	cfg *config.Config,
	logger ports.Logger,
	source ports.RateSource,
	feed ports.RateFeed,
	alerts *alert.Manager,
) (*WatchService, error) {
	if cfg == nil || logger == nil || source == nil || feed == nil || alerts == nil {
		return nil, fmt.Errorf("missing required dependencies for WatchService")
	}
	if cfg.PollInterval <= 0 {
		return nil, fmt.Errorf("configuration PollInterval must be positive")
	}
	return &WatchService{
		cfg:    cfg,
		logger: logger,
		source: source,
		feed:   feed,
		alerts: alerts,
	}, nil
}

// Start runs the service until the context is cancelled or a shutdown signal
// arrives.
func (s *WatchService) Start(ctx context.Context) error {
	s.logger.Info(ctx, "Starting watch service...")

	// Create a context that can be canceled by signals
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Handle graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case sig := <-sigCh:
			s.logger.Info(ctx, "Received shutdown signal", map[string]interface{}{"signal": sig.String()})
			cancel()
		case <-ctx.Done():
		}
	}()

	// Prime alert rates so statuses are meaningful before the first tick.
	s.pollOnce(ctx)

	// Live updates flow straight into alert evaluation.
	feedSub := s.feed.Subscribe(func(update domain.RateUpdate) {
		fired, err := s.alerts.ApplyUpdate(ctx, update)
		if err != nil {
			s.logger.Error(ctx, err, "Failed to apply feed update to alerts",
				map[string]interface{}{"pair": update.Pair().String()})
		}
		s.logTriggered(ctx, fired)
	})
	defer feedSub.Unsubscribe()

	if err := s.feed.Start(ctx); err != nil {
		return fmt.Errorf("failed to start rate feed: %w", err)
	}
	defer s.feed.Close()
	s.logger.Info(ctx, "Rate feed started", map[string]interface{}{
		"headlinePair": s.cfg.DefaultFrom + "/" + s.cfg.DefaultTo,
	})

	headline := domain.NewPair(s.cfg.DefaultFrom, s.cfg.DefaultTo)
	pairSub := s.feed.SubscribePair(headline, func(update domain.RateUpdate) {
		s.logger.Debug(ctx, "Headline rate update", map[string]interface{}{
			"pair": update.Pair().String(), "rate": update.Rate,
		})
	})
	defer pairSub.Unsubscribe()

	// The poll ticker covers gaps while the feed is down and pairs the feed
	// never streams.
	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info(ctx, "Watch service stopping...")
			return nil
		case <-ticker.C:
			s.pollOnce(ctx)
		}
	}
}

// pollOnce fetches the current rate sweep and feeds it to the alert manager.
func (s *WatchService) pollOnce(ctx context.Context) {
	quotes, err := s.source.CurrentRates(ctx)
	if err != nil {
		s.logger.Warn(ctx, "Current rates poll failed", map[string]interface{}{
			"error": err.Error(), "feedConnected": s.feed.IsConnected(),
		})
		return
	}

	fired, err := s.alerts.RefreshRates(ctx, quotes)
	if err != nil {
		s.logger.Error(ctx, err, "Failed to refresh alert rates")
	}
	s.logTriggered(ctx, fired)
	s.logger.Debug(ctx, "Current rates refreshed", map[string]interface{}{"quotes": len(quotes)})
}

func (s *WatchService) logTriggered(ctx context.Context, fired []*domain.Alert) {
	for _, a := range fired {
		s.logger.Info(ctx, "Alert triggered", map[string]interface{}{
			"id":   a.ID,
			"pair": a.Pair().String(),
			"type": string(a.Type),
			"rate": a.CurrentRate,
		})
	}
}
