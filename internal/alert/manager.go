package alert

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"fxwatch/internal/domain"
	"fxwatch/internal/ports"
)

// Manager owns the user's alert list. The full list is loaded from the store
// once at startup and rewritten on every mutation, including rate refreshes.
type Manager struct {
	store  ports.AlertStore
	source ports.RateSource
	logger ports.Logger

	mu     sync.Mutex
	alerts []*domain.Alert
}

// NewManager creates a manager and loads the persisted alert list.
func NewManager(ctx context.Context, store ports.AlertStore, source ports.RateSource, logger ports.Logger) (*Manager, error) {
	alerts, err := store.LoadAlerts(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading persisted alerts: %w", err)
	}
	logger.Info(ctx, "alert list loaded", map[string]interface{}{"count": len(alerts)})
	return &Manager{store: store, source: source, logger: logger, alerts: alerts}, nil
}

// CreateRequest carries the user-supplied fields of a new alert.
type CreateRequest struct {
	Pair          domain.Pair
	Type          domain.AlertType
	TargetRate    float64
	Percentage    float64
	ThresholdRate float64
	Direction     domain.ThresholdDirection
}

// Create builds, validates and persists a new alert. Percentage alerts sample
// their base rate from the source at creation time.
func (m *Manager) Create(ctx context.Context, req CreateRequest) (*domain.Alert, error) {
	alert := &domain.Alert{
		ID:            uuid.NewString(),
		FromCurrency:  req.Pair.From,
		ToCurrency:    req.Pair.To,
		Type:          req.Type,
		TargetRate:    req.TargetRate,
		Percentage:    req.Percentage,
		ThresholdRate: req.ThresholdRate,
		Direction:     req.Direction,
		IsActive:      true,
		CreatedAt:     time.Now(),
	}

	if quote, err := m.source.GetRate(ctx, req.Pair); err == nil && quote != nil {
		alert.CurrentRate = quote.Rate
		if req.Type == domain.AlertPercentage {
			alert.BaseRate = quote.Rate
		}
	} else if req.Type == domain.AlertPercentage {
		return nil, fmt.Errorf("percentage alert needs a live base rate for %s: %w", req.Pair, err)
	}

	if err := alert.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ports.ErrInvalidRequest, err)
	}

	m.mu.Lock()
	next := append(append([]*domain.Alert(nil), m.alerts...), alert)
	if err := m.saveLocked(ctx, next); err != nil {
		m.mu.Unlock()
		return nil, err
	}
	m.alerts = next
	m.mu.Unlock()
	m.logger.Info(ctx, "alert created", map[string]interface{}{
		"id": alert.ID, "pair": alert.Pair().String(), "type": string(alert.Type),
	})
	return alert, nil
}

// Update replaces the stored fields of an existing alert.
func (m *Manager) Update(ctx context.Context, updated *domain.Alert) error {
	if err := updated.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ports.ErrInvalidRequest, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for i, a := range m.alerts {
		if a.ID == updated.ID {
			next := append([]*domain.Alert(nil), m.alerts...)
			next[i] = updated
			if err := m.saveLocked(ctx, next); err != nil {
				return err
			}
			m.alerts = next
			return nil
		}
	}
	return fmt.Errorf("alert %s: %w", updated.ID, ports.ErrNotFound)
}

// Toggle flips an alert's active flag.
func (m *Manager) Toggle(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, a := range m.alerts {
		if a.ID == id {
			flipped := *a
			flipped.IsActive = !flipped.IsActive
			next := append([]*domain.Alert(nil), m.alerts...)
			next[i] = &flipped
			if err := m.saveLocked(ctx, next); err != nil {
				return err
			}
			m.alerts = next
			return nil
		}
	}
	return fmt.Errorf("alert %s: %w", id, ports.ErrNotFound)
}

// Delete removes an alert.
func (m *Manager) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, a := range m.alerts {
		if a.ID == id {
			next := append([]*domain.Alert(nil), m.alerts[:i]...)
			next = append(next, m.alerts[i+1:]...)
			if err := m.saveLocked(ctx, next); err != nil {
				return err
			}
			m.alerts = next
			return nil
		}
	}
	return fmt.Errorf("alert %s: %w", id, ports.ErrNotFound)
}

// List returns a copy of the alert list with each alert's evaluated status.
func (m *Manager) List() []Entry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entries := make([]Entry, 0, len(m.alerts))
	for _, a := range m.alerts {
		copied := *a
		entries = append(entries, Entry{
			Alert:  &copied,
			Status: Evaluate(a, a.CurrentRate),
		})
	}
	return entries
}

// Entry pairs an alert with its evaluated display status.
type Entry struct {
	Alert  *domain.Alert
	Status domain.AlertStatus
}

// RefreshRates updates each alert's current rate from the given quotes and
// persists the refreshed list. Returns the alerts that newly transitioned to
// triggered.
func (m *Manager) RefreshRates(ctx context.Context, quotes []domain.RateQuote) ([]*domain.Alert, error) {
	byPair := make(map[domain.Pair]float64, len(quotes))
	for _, q := range quotes {
		byPair[q.Pair] = q.Rate
	}

	var fired []*domain.Alert
	m.mu.Lock()
	changed := false
	for _, a := range m.alerts {
		rate, ok := byPair[a.Pair()]
		if !ok || rate == a.CurrentRate {
			continue
		}
		before := Evaluate(a, a.CurrentRate)
		a.CurrentRate = rate
		changed = true
		if before != domain.StatusTriggered && Evaluate(a, rate) == domain.StatusTriggered {
			copied := *a
			fired = append(fired, &copied)
		}
	}
	if !changed {
		m.mu.Unlock()
		return nil, nil
	}
	err := m.saveLocked(ctx, m.alerts)
	m.mu.Unlock()

	if err != nil {
		return fired, err
	}
	return fired, nil
}

// ApplyUpdate feeds one push-stream rate into the list, same semantics as
// RefreshRates.
func (m *Manager) ApplyUpdate(ctx context.Context, update domain.RateUpdate) ([]*domain.Alert, error) {
	return m.RefreshRates(ctx, []domain.RateQuote{{
		Pair:      update.Pair(),
		Rate:      update.Rate,
		Timestamp: update.Timestamp,
	}})
}

// saveLocked rewrites the whole list. Callers hold m.mu, which serializes
// store writes; each alert is copied by value so the store never observes
// fields mutated after the call returns.
func (m *Manager) saveLocked(ctx context.Context, alerts []*domain.Alert) error {
	snapshot := make([]*domain.Alert, len(alerts))
	for i, a := range alerts {
		copied := *a
		snapshot[i] = &copied
	}
	if err := m.store.SaveAlerts(ctx, snapshot); err != nil {
		m.logger.Error(ctx, err, "failed to persist alert list")
		return err
	}
	return nil
}
