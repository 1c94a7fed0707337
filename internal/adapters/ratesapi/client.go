package ratesapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"fxwatch/internal/domain"
	"fxwatch/internal/ports"
)

const defaultTimeout = 10 * time.Second

// Client implements the ports.RateSource interface against the exchange-rates
// HTTP API. Every endpoint wraps its payload in a {status,data} envelope.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     ports.Logger
}

// Config holds configuration specific to the rates API adapter.
type Config struct {
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client // optional; tests inject one
	Logger     ports.Logger
}

// New creates a new rates API adapter.
func New(cfg Config) (*Client, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for rates API client: %w", ports.ErrConfigurationError)
	}
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base URL is required for rates API client: %w", ports.ErrConfigurationError)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: httpClient,
		logger:     cfg.Logger,
	}, nil
}

// handleError translates transport and HTTP failures into standardized ports errors.
func (c *Client) handleError(ctx context.Context, err error, operation string) error {
	fields := map[string]interface{}{"operation": operation, "originalError": err.Error()}

	var finalErr error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		finalErr = fmt.Errorf("%s failed: %w: %w", operation, ports.ErrTimeout, err)
	case errors.Is(err, context.Canceled):
		finalErr = fmt.Errorf("%s canceled: %w: %w", operation, ports.ErrContextCanceled, err)
	default:
		finalErr = fmt.Errorf("%s failed: %w: %w", operation, ports.ErrConnectionFailed, err)
	}

	c.logger.Error(ctx, err, fmt.Sprintf("%s failed", operation), fields)
	return finalErr
}

// statusError maps a non-2xx response to a standardized ports error.
func (c *Client) statusError(ctx context.Context, status int, operation string) error {
	var mappedErr error
	switch {
	case status == http.StatusTooManyRequests:
		mappedErr = ports.ErrRateLimited
	case status == http.StatusNotFound:
		mappedErr = ports.ErrNotFound
	case status >= 400 && status < 500:
		mappedErr = ports.ErrInvalidRequest
	default:
		mappedErr = ports.ErrSourceUnavailable
	}
	err := fmt.Errorf("%s failed: %w: unexpected status %d", operation, mappedErr, status)
	c.logger.Error(ctx, err, fmt.Sprintf("%s returned non-success status", operation),
		map[string]interface{}{"operation": operation, "status": status})
	return err
}

// get performs a GET and returns the envelope's data element.
func (c *Client) get(ctx context.Context, path string, query url.Values, operation string) (gjson.Result, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("%s failed to build request: %w", operation, err)
	}
	return c.do(ctx, req, operation)
}

// post performs a POST with a JSON body and returns the envelope's data element.
func (c *Client) post(ctx context.Context, path string, body interface{}, operation string) (gjson.Result, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("%s failed to encode request body: %w", operation, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return gjson.Result{}, fmt.Errorf("%s failed to build request: %w", operation, err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(ctx, req, operation)
}

func (c *Client) do(ctx context.Context, req *http.Request, operation string) (gjson.Result, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return gjson.Result{}, c.handleError(ctx, err, operation)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return gjson.Result{}, c.statusError(ctx, resp.StatusCode, operation)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return gjson.Result{}, c.handleError(ctx, err, operation)
	}
	if !gjson.ValidBytes(raw) {
		err := fmt.Errorf("%s failed: %w: response is not valid JSON", operation, ports.ErrInvalidPayload)
		c.logger.Error(ctx, err, fmt.Sprintf("%s returned malformed body", operation),
			map[string]interface{}{"operation": operation})
		return gjson.Result{}, err
	}

	envelope := gjson.ParseBytes(raw)
	if status := envelope.Get("status").String(); status != "" && status != "success" {
		err := fmt.Errorf("%s failed: %w: envelope status %q", operation, ports.ErrSourceUnavailable, status)
		c.logger.Error(ctx, err, fmt.Sprintf("%s envelope reported failure", operation),
			map[string]interface{}{"operation": operation, "envelopeStatus": status})
		return gjson.Result{}, err
	}
	data := envelope.Get("data")
	if !data.Exists() {
		err := fmt.Errorf("%s failed: %w: envelope has no data element", operation, ports.ErrInvalidPayload)
		c.logger.Error(ctx, err, fmt.Sprintf("%s envelope missing data", operation),
			map[string]interface{}{"operation": operation})
		return gjson.Result{}, err
	}
	return data, nil
}

// CurrentRates retrieves the full set of current rates.
func (c *Client) CurrentRates(ctx context.Context) ([]domain.RateQuote, error) {
	op := "CurrentRates"
	data, err := c.get(ctx, "/exchange-rates/current", nil, op)
	if err != nil {
		return nil, err
	}
	if !data.IsArray() {
		return nil, fmt.Errorf("%s failed: %w: data is not an array", op, ports.ErrInvalidPayload)
	}

	var quotes []domain.RateQuote
	var parseErr error
	data.ForEach(func(_, entry gjson.Result) bool {
		quote, err := parseQuote(entry, op)
		if err != nil {
			parseErr = err
			return false
		}
		quotes = append(quotes, *quote)
		return true
	})
	if parseErr != nil {
		return nil, parseErr
	}
	c.logger.Debug(ctx, op+" successful", map[string]interface{}{"count": len(quotes)})
	return quotes, nil
}

// GetRate retrieves the current rate for a single pair.
func (c *Client) GetRate(ctx context.Context, pair domain.Pair) (*domain.RateQuote, error) {
	op := "GetRate"
	data, err := c.get(ctx, fmt.Sprintf("/exchange-rates/%s/%s", pair.From, pair.To), nil, op)
	if err != nil {
		return nil, err
	}
	quote, err := parseQuote(data, op)
	if err != nil {
		return nil, err
	}
	c.logger.Debug(ctx, op+" successful", map[string]interface{}{"pair": pair.String(), "rate": quote.Rate})
	return quote, nil
}

// Convert asks the service to convert an amount between two currencies.
func (c *Client) Convert(ctx context.Context, pair domain.Pair, amount float64) (*domain.ConversionResult, error) {
	op := "Convert"
	body := map[string]interface{}{
		"from":   pair.From,
		"to":     pair.To,
		"amount": amount,
	}
	data, err := c.post(ctx, "/exchange-rates/convert", body, op)
	if err != nil {
		return nil, err
	}

	result := &domain.ConversionResult{
		Amount:          data.Get("amount").Float(),
		ConvertedAmount: data.Get("convertedAmount").Float(),
		FromCurrency:    data.Get("fromCurrency").String(),
		ToCurrency:      data.Get("toCurrency").String(),
		Rate:            data.Get("rate").Float(),
		Timestamp:       parseTimestamp(data.Get("timestamp")),
	}
	if err := result.Validate(); err != nil {
		return nil, fmt.Errorf("%s failed: %w: %w", op, ports.ErrInvalidPayload, err)
	}
	c.logger.Debug(ctx, op+" successful", map[string]interface{}{
		"pair": pair.String(), "amount": amount, "converted": result.ConvertedAmount,
	})
	return result, nil
}

// History retrieves the historical series for a pair over a preset period.
func (c *Client) History(ctx context.Context, pair domain.Pair, period domain.Period) (*domain.HistorySnapshot, error) {
	query := url.Values{}
	query.Set("period", period.RequestCode())
	return c.history(ctx, pair, query, "History")
}

// HistoryRange retrieves the historical series for a pair between two days.
func (c *Client) HistoryRange(ctx context.Context, pair domain.Pair, startDate, endDate string) (*domain.HistorySnapshot, error) {
	query := url.Values{}
	query.Set("startDate", startDate)
	query.Set("endDate", endDate)
	return c.history(ctx, pair, query, "HistoryRange")
}

func (c *Client) history(ctx context.Context, pair domain.Pair, query url.Values, op string) (*domain.HistorySnapshot, error) {
	path := fmt.Sprintf("/exchange-rates/chart/%s/%s", pair.From, pair.To)
	data, err := c.get(ctx, path, query, op)
	if err != nil {
		return nil, err
	}

	snapshot := &domain.HistorySnapshot{
		BaseCurrency:   data.Get("baseCurrency").String(),
		TargetCurrency: data.Get("targetCurrency").String(),
		Period:         data.Get("period").String(),
		CurrentRate:    data.Get("currentRate").Float(),
		Change:         data.Get("change").Float(),
		ChangePercent:  data.Get("changePercent").Float(),
		LastUpdated:    parseTimestamp(data.Get("lastUpdated")),
	}

	var parseErr error
	data.Get("chartData").ForEach(func(_, entry gjson.Result) bool {
		rate := entry.Get("rate").Float()
		if !finite(rate) {
			parseErr = fmt.Errorf("%s failed: %w: non-finite rate in series", op, ports.ErrInvalidPayload)
			return false
		}
		snapshot.Points = append(snapshot.Points, domain.HistoryPoint{
			Date:      entry.Get("date").String(),
			Time:      entry.Get("time").String(),
			Rate:      rate,
			DayChange: entry.Get("dayChange").Float(),
		})
		return true
	})
	if parseErr != nil {
		return nil, parseErr
	}
	c.logger.Debug(ctx, op+" successful", map[string]interface{}{
		"pair": pair.String(), "points": len(snapshot.Points),
	})
	return snapshot, nil
}

// Currencies lists the currencies the service supports.
func (c *Client) Currencies(ctx context.Context) ([]domain.Currency, error) {
	op := "Currencies"
	data, err := c.get(ctx, "/exchange-rates/currencies", nil, op)
	if err != nil {
		return nil, err
	}
	var currencies []domain.Currency
	data.ForEach(func(_, entry gjson.Result) bool {
		currencies = append(currencies, domain.Currency{
			Code:   entry.Get("code").String(),
			Name:   entry.Get("name").String(),
			Symbol: entry.Get("symbol").String(),
		})
		return true
	})
	c.logger.Debug(ctx, op+" successful", map[string]interface{}{"count": len(currencies)})
	return currencies, nil
}

func parseQuote(entry gjson.Result, op string) (*domain.RateQuote, error) {
	rate := entry.Get("rate").Float()
	if !finite(rate) || rate <= 0 {
		return nil, fmt.Errorf("%s failed: %w: rate %v out of range", op, ports.ErrInvalidPayload, rate)
	}
	return &domain.RateQuote{
		Pair:      domain.NewPair(entry.Get("fromCurrency").String(), entry.Get("toCurrency").String()),
		Rate:      rate,
		Timestamp: parseTimestamp(entry.Get("timestamp")),
	}, nil
}

func parseTimestamp(v gjson.Result) time.Time {
	if !v.Exists() {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339, v.String()); err == nil {
		return t
	}
	// Some endpoints emit epoch milliseconds.
	if ms := v.Int(); ms > 0 {
		return time.UnixMilli(ms)
	}
	return time.Time{}
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
