package sqlite

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fxwatch/internal/domain"
)

// mockLogger implements ports.Logger for testing
type mockLogger struct{}

func (m *mockLogger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {}
func (m *mockLogger) Info(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Warn(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
}

// setupTestStore creates a temporary database for testing
func setupTestStore(t *testing.T) (*Store, func()) {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "fxwatch-test-*")
	require.NoError(t, err)

	store, err := NewStore(Config{
		DBPath: filepath.Join(tmpDir, "test.db"),
		Logger: &mockLogger{},
	})
	require.NoError(t, err)

	cleanup := func() {
		store.Close()
		os.RemoveAll(tmpDir)
	}
	return store, cleanup
}

func TestStore_LoadAlerts_Empty(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	alerts, err := store.LoadAlerts(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, alerts)
	assert.Empty(t, alerts)
}

func TestStore_SaveAndLoadAlerts(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	created := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	alerts := []*domain.Alert{
		{
			ID:           "a1",
			FromCurrency: "USD",
			ToCurrency:   "KRW",
			Type:         domain.AlertAbsolute,
			TargetRate:   1400,
			CurrentRate:  1335.5,
			IsActive:     true,
			CreatedAt:    created,
		},
		{
			ID:           "a2",
			FromCurrency: "EUR",
			ToCurrency:   "USD",
			Type:         domain.AlertThreshold,
			ThresholdRate: 1.10,
			Direction:     domain.DirectionBelow,
			IsActive:      false,
			CreatedAt:     created,
		},
	}

	require.NoError(t, store.SaveAlerts(ctx, alerts))

	loaded, err := store.LoadAlerts(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	assert.Equal(t, "a1", loaded[0].ID)
	assert.Equal(t, domain.AlertAbsolute, loaded[0].Type)
	assert.InDelta(t, 1400, loaded[0].TargetRate, 1e-9)
	assert.True(t, loaded[0].CreatedAt.Equal(created))
	assert.Equal(t, domain.DirectionBelow, loaded[1].Direction)
	assert.False(t, loaded[1].IsActive)
}

func TestStore_SaveAlerts_RewritesWholeList(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	first := []*domain.Alert{{ID: "a1", FromCurrency: "USD", ToCurrency: "KRW", Type: domain.AlertAbsolute, TargetRate: 1400}}
	require.NoError(t, store.SaveAlerts(ctx, first))

	second := []*domain.Alert{{ID: "a2", FromCurrency: "USD", ToCurrency: "JPY", Type: domain.AlertAbsolute, TargetRate: 150}}
	require.NoError(t, store.SaveAlerts(ctx, second))

	loaded, err := store.LoadAlerts(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, "a2", loaded[0].ID)
}

func TestStore_SaveAlerts_NilListClears(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	require.NoError(t, store.SaveAlerts(ctx, []*domain.Alert{{ID: "a1", FromCurrency: "USD", ToCurrency: "KRW"}}))
	require.NoError(t, store.SaveAlerts(ctx, nil))

	loaded, err := store.LoadAlerts(ctx)
	require.NoError(t, err)
	assert.Empty(t, loaded)
}
