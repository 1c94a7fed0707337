package ratesapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

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

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, func()) {
	t.Helper()
	srv := httptest.NewServer(handler)
	client, err := New(Config{
		BaseURL:    srv.URL,
		HTTPClient: srv.Client(),
		Logger:     &mockLogger{},
	})
	require.NoError(t, err)
	return client, srv.Close
}

func TestNew_RequiresConfig(t *testing.T) {
	_, err := New(Config{BaseURL: "http://localhost"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ports.ErrConfigurationError)

	_, err = New(Config{Logger: &mockLogger{}})
	require.Error(t, err)
	assert.ErrorIs(t, err, ports.ErrConfigurationError)
}

func TestClient_GetRate(t *testing.T) {
	client, closeSrv := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/exchange-rates/USD/KRW", r.URL.Path)
		w.Write([]byte(`{"status":"success","data":{"fromCurrency":"USD","toCurrency":"KRW","rate":1335.5,"timestamp":"2025-06-01T12:00:00Z"}}`))
	})
	defer closeSrv()

	quote, err := client.GetRate(context.Background(), domain.NewPair("USD", "KRW"))
	require.NoError(t, err)
	assert.Equal(t, domain.NewPair("USD", "KRW"), quote.Pair)
	assert.InDelta(t, 1335.5, quote.Rate, 1e-9)
	assert.Equal(t, 2025, quote.Timestamp.Year())
}

func TestClient_GetRate_Errors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		wantErr error
	}{
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			},
			wantErr: ports.ErrSourceUnavailable,
		},
		{
			name: "rate limited",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusTooManyRequests)
			},
			wantErr: ports.ErrRateLimited,
		},
		{
			name: "not found",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusNotFound)
			},
			wantErr: ports.ErrNotFound,
		},
		{
			name: "malformed body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"status":"success","data":`))
			},
			wantErr: ports.ErrInvalidPayload,
		},
		{
			name: "envelope failure status",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"status":"error","message":"boom"}`))
			},
			wantErr: ports.ErrSourceUnavailable,
		},
		{
			name: "zero rate rejected",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"status":"success","data":{"fromCurrency":"USD","toCurrency":"KRW","rate":0}}`))
			},
			wantErr: ports.ErrInvalidPayload,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, closeSrv := newTestClient(t, tt.handler)
			defer closeSrv()

			_, err := client.GetRate(context.Background(), domain.NewPair("USD", "KRW"))
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestClient_Convert(t *testing.T) {
	client, closeSrv := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/exchange-rates/convert", r.URL.Path)
		w.Write([]byte(`{"status":"success","data":{"amount":100,"convertedAmount":133550,"fromCurrency":"USD","toCurrency":"KRW","rate":1335.5,"timestamp":"2025-06-01T12:00:00Z"}}`))
	})
	defer closeSrv()

	result, err := client.Convert(context.Background(), domain.NewPair("USD", "KRW"), 100)
	require.NoError(t, err)
	assert.InDelta(t, 133550, result.ConvertedAmount, 1e-6)
	assert.InDelta(t, 1335.5, result.Rate, 1e-9)
	assert.False(t, result.Offline)
}

func TestClient_Convert_InconsistentPayload(t *testing.T) {
	client, closeSrv := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		// convertedAmount does not match amount*rate
		w.Write([]byte(`{"status":"success","data":{"amount":100,"convertedAmount":5,"fromCurrency":"USD","toCurrency":"KRW","rate":1335.5}}`))
	})
	defer closeSrv()

	_, err := client.Convert(context.Background(), domain.NewPair("USD", "KRW"), 100)
	require.Error(t, err)
	assert.ErrorIs(t, err, ports.ErrInvalidPayload)
}

func TestClient_History(t *testing.T) {
	client, closeSrv := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/exchange-rates/chart/USD/KRW", r.URL.Path)
		assert.Equal(t, "1m", r.URL.Query().Get("period"))
		w.Write([]byte(`{"status":"success","data":{
			"baseCurrency":"USD","targetCurrency":"KRW","period":"1m",
			"currentRate":1335.5,"change":10.2,"changePercent":0.77,
			"lastUpdated":"2025-06-01T12:00:00Z",
			"chartData":[
				{"date":"2025-05-30","rate":1325.3,"dayChange":-0.2},
				{"date":"2025-05-31","rate":1335.5,"dayChange":0.77}
			],
			"statistics":{"high":1335.5,"low":1325.3,"average":1330.4}}}`))
	})
	defer closeSrv()

	snapshot, err := client.History(context.Background(), domain.NewPair("USD", "KRW"), domain.PeriodMonth)
	require.NoError(t, err)
	assert.Equal(t, "USD", snapshot.BaseCurrency)
	assert.Len(t, snapshot.Points, 2)
	assert.Equal(t, "2025-05-31", snapshot.Points[1].Date)
	assert.InDelta(t, 1335.5, snapshot.Points[1].Rate, 1e-9)
}

func TestClient_History_YTDFetchesYearOfData(t *testing.T) {
	client, closeSrv := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		// client-only filters request the widest preset window
		assert.Equal(t, "1y", r.URL.Query().Get("period"))
		w.Write([]byte(`{"status":"success","data":{"baseCurrency":"USD","targetCurrency":"KRW","period":"1y","chartData":[]}}`))
	})
	defer closeSrv()

	_, err := client.History(context.Background(), domain.NewPair("USD", "KRW"), domain.PeriodYearToDate)
	require.NoError(t, err)
}

func TestClient_HistoryRange(t *testing.T) {
	client, closeSrv := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "2025-01-01", r.URL.Query().Get("startDate"))
		assert.Equal(t, "2025-03-31", r.URL.Query().Get("endDate"))
		w.Write([]byte(`{"status":"success","data":{"baseCurrency":"USD","targetCurrency":"KRW","period":"custom","chartData":[]}}`))
	})
	defer closeSrv()

	snapshot, err := client.HistoryRange(context.Background(), domain.NewPair("USD", "KRW"), "2025-01-01", "2025-03-31")
	require.NoError(t, err)
	assert.Equal(t, "custom", snapshot.Period)
	assert.Empty(t, snapshot.Points)
}

func TestClient_CurrentRatesAndCurrencies(t *testing.T) {
	client, closeSrv := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/exchange-rates/current":
			w.Write([]byte(`{"status":"success","data":[
				{"fromCurrency":"USD","toCurrency":"KRW","rate":1335.5},
				{"fromCurrency":"USD","toCurrency":"EUR","rate":0.85}]}`))
		case "/exchange-rates/currencies":
			w.Write([]byte(`{"status":"success","data":[
				{"code":"USD","name":"US Dollar","symbol":"$"},
				{"code":"KRW","name":"South Korean Won","symbol":"₩"}]}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
	defer closeSrv()

	quotes, err := client.CurrentRates(context.Background())
	require.NoError(t, err)
	require.Len(t, quotes, 2)
	assert.Equal(t, "EUR", quotes[1].Pair.To)

	currencies, err := client.Currencies(context.Background())
	require.NoError(t, err)
	require.Len(t, currencies, 2)
	assert.Equal(t, "₩", currencies[1].Symbol)
}
