package chart

import (
	"context"
	"sync"

	"fxwatch/internal/domain"
	"fxwatch/internal/ports"
)

// Service owns the chart view state: the raw fetched series, the active
// filter, and the derived points and statistics. Unlike conversion, a history
// fetch failure is an explicit error state with a retry affordance, because
// no local approximation of a historical series exists.
type Service struct {
	source     ports.RateSource
	aggregator *Aggregator
	logger     ports.Logger

	mu       sync.Mutex
	pair     domain.Pair
	filter   Filter
	snapshot *domain.HistorySnapshot
	points   []domain.ChartPoint
	stats    *domain.ChartStatistics
	loadErr  error
}

// NewService creates a chart service.
func NewService(source ports.RateSource, aggregator *Aggregator, logger ports.Logger) *Service {
	return &Service{source: source, aggregator: aggregator, logger: logger}
}

// Load fetches the series for a pair and period and rebuilds the view.
func (s *Service) Load(ctx context.Context, pair domain.Pair, period domain.Period) error {
	s.mu.Lock()
	s.pair = pair
	s.filter.Period = period
	s.mu.Unlock()
	return s.fetch(ctx)
}

// SetPeriod switches the period and refetches. The client-only filters still
// refetch so the underlying window is wide enough to slice from.
func (s *Service) SetPeriod(ctx context.Context, period domain.Period) error {
	s.mu.Lock()
	s.filter.Period = period
	s.mu.Unlock()
	return s.fetch(ctx)
}

// SetCustomRange applies a custom day range to the already-fetched series
// without refetching. No snapshot yet means a fetch first.
func (s *Service) SetCustomRange(ctx context.Context, rng domain.CustomRange) error {
	s.mu.Lock()
	s.filter.Period = domain.PeriodCustom
	s.filter.Custom = rng
	needFetch := s.snapshot == nil
	s.mu.Unlock()

	if needFetch {
		return s.fetch(ctx)
	}
	s.rebuild()
	return nil
}

// Retry refetches after a failure using the current pair and filter.
func (s *Service) Retry(ctx context.Context) error {
	return s.fetch(ctx)
}

// Points returns the current filtered series.
func (s *Service) Points() []domain.ChartPoint {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.points
}

// Statistics returns the current summary, nil when the filtered series is
// empty or nothing is loaded.
func (s *Service) Statistics() *domain.ChartStatistics {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// Snapshot returns the last successfully fetched payload.
func (s *Service) Snapshot() *domain.HistorySnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot
}

// Err returns the current error state, nil when the last fetch succeeded.
func (s *Service) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadErr
}

func (s *Service) fetch(ctx context.Context) error {
	s.mu.Lock()
	pair := s.pair
	period := s.filter.Period
	s.mu.Unlock()

	snapshot, err := s.source.History(ctx, pair, period)
	if err != nil {
		s.logger.Warn(ctx, "history fetch failed",
			map[string]interface{}{"pair": pair.String(), "period": string(period), "error": err.Error()})
		s.mu.Lock()
		s.loadErr = err
		s.points = nil
		s.stats = nil
		s.mu.Unlock()
		return err
	}

	s.mu.Lock()
	s.snapshot = snapshot
	s.loadErr = nil
	s.mu.Unlock()
	s.rebuild()

	s.logger.Debug(ctx, "history loaded", map[string]interface{}{
		"pair": pair.String(), "period": string(period), "points": len(snapshot.Points),
	})
	return nil
}

// rebuild re-derives points and statistics from the raw snapshot and filter.
func (s *Service) rebuild() {
	s.mu.Lock()
	defer s.mu.Unlock()
	transformed := s.aggregator.TransformSeries(s.snapshot, s.filter.Period)
	s.points = s.aggregator.ApplyFilter(transformed, s.filter)
	s.stats = s.aggregator.Aggregate(s.points)
}
