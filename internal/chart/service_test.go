package chart

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fxwatch/internal/domain"
	"fxwatch/internal/ports"
)

// mockLogger implements ports.Logger for testing
type mockLogger struct{}

func (m *mockLogger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {}
func (m *mockLogger) Info(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Warn(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
}

// stubHistorySource serves a canned snapshot and counts fetches.
type stubHistorySource struct {
	snapshot     *domain.HistorySnapshot
	err          error
	historyCalls int
}

func (s *stubHistorySource) History(ctx context.Context, pair domain.Pair, period domain.Period) (*domain.HistorySnapshot, error) {
	s.historyCalls++
	if s.err != nil {
		return nil, s.err
	}
	return s.snapshot, nil
}

func (s *stubHistorySource) HistoryRange(ctx context.Context, pair domain.Pair, startDate, endDate string) (*domain.HistorySnapshot, error) {
	return s.History(ctx, pair, domain.PeriodCustom)
}

func (s *stubHistorySource) CurrentRates(ctx context.Context) ([]domain.RateQuote, error) {
	return nil, nil
}
func (s *stubHistorySource) GetRate(ctx context.Context, pair domain.Pair) (*domain.RateQuote, error) {
	return nil, nil
}
func (s *stubHistorySource) Convert(ctx context.Context, pair domain.Pair, amount float64) (*domain.ConversionResult, error) {
	return nil, nil
}
func (s *stubHistorySource) Currencies(ctx context.Context) ([]domain.Currency, error) {
	return nil, nil
}

func newTestService(source *stubHistorySource) *Service {
	return NewService(source, NewAggregator(time.UTC), &mockLogger{})
}

func TestService_Load(t *testing.T) {
	source := &stubHistorySource{snapshot: dailySnapshot(1400, 1300, 1450, 1450)}
	svc := newTestService(source)

	err := svc.Load(context.Background(), domain.NewPair("USD", "KRW"), domain.PeriodMonth)
	require.NoError(t, err)
	require.NoError(t, svc.Err())

	assert.Len(t, svc.Points(), 4)
	stats := svc.Statistics()
	require.NotNil(t, stats)
	assert.InDelta(t, 1450, stats.High, 1e-9)
	assert.InDelta(t, 1300, stats.Low, 1e-9)
	assert.InDelta(t, 1400, stats.Average, 1e-9)
}

func TestService_LoadFailureSetsErrorState(t *testing.T) {
	source := &stubHistorySource{err: ports.ErrSourceUnavailable}
	svc := newTestService(source)

	err := svc.Load(context.Background(), domain.NewPair("USD", "KRW"), domain.PeriodMonth)
	require.Error(t, err)
	assert.ErrorIs(t, svc.Err(), ports.ErrSourceUnavailable)
	assert.Nil(t, svc.Points())
	assert.Nil(t, svc.Statistics())
}

func TestService_RetryClearsErrorState(t *testing.T) {
	source := &stubHistorySource{err: ports.ErrSourceUnavailable}
	svc := newTestService(source)

	require.Error(t, svc.Load(context.Background(), domain.NewPair("USD", "KRW"), domain.PeriodMonth))

	source.err = nil
	source.snapshot = dailySnapshot(1400, 1410)
	require.NoError(t, svc.Retry(context.Background()))

	assert.NoError(t, svc.Err())
	assert.Len(t, svc.Points(), 2)
}

func TestService_SetPeriodRefetches(t *testing.T) {
	source := &stubHistorySource{snapshot: dailySnapshot(1400, 1410)}
	svc := newTestService(source)

	require.NoError(t, svc.Load(context.Background(), domain.NewPair("USD", "KRW"), domain.PeriodMonth))
	require.NoError(t, svc.SetPeriod(context.Background(), domain.PeriodWeek))

	assert.Equal(t, 2, source.historyCalls)
}

func TestService_SetCustomRangeFiltersLocally(t *testing.T) {
	source := &stubHistorySource{snapshot: dailySnapshot(1400, 1410, 1420)}
	svc := newTestService(source)

	require.NoError(t, svc.Load(context.Background(), domain.NewPair("USD", "KRW"), domain.PeriodYear))
	require.Equal(t, 1, source.historyCalls)

	err := svc.SetCustomRange(context.Background(), domain.CustomRange{Start: "2025-05-02", End: "2025-05-03"})
	require.NoError(t, err)

	assert.Equal(t, 1, source.historyCalls, "custom range slices the fetched series without a refetch")
	require.Len(t, svc.Points(), 2)
	assert.Equal(t, "2025-05-02", svc.Points()[0].Date)
}

func TestService_SetCustomRangeWithoutSnapshotFetchesFirst(t *testing.T) {
	source := &stubHistorySource{snapshot: dailySnapshot(1400, 1410)}
	svc := newTestService(source)

	svc.pair = domain.NewPair("USD", "KRW")
	err := svc.SetCustomRange(context.Background(), domain.CustomRange{})
	require.NoError(t, err)
	assert.Equal(t, 1, source.historyCalls)
}
