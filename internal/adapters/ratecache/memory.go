package ratecache

import (
	"context"
	"sync"
	"time"

	"fxwatch/internal/domain"
)

type memoryEntry struct {
	quote     domain.RateQuote
	expiresAt time.Time
}

// Memory is an in-process ports.RateCache with per-entry TTL.
type Memory struct {
	mu      sync.RWMutex
	entries map[domain.Pair]memoryEntry
	now     func() time.Time
}

// NewMemory creates an empty in-process cache.
func NewMemory() *Memory {
	return &Memory{
		entries: make(map[domain.Pair]memoryEntry),
		now:     time.Now,
	}
}

// Get returns the cached quote for a pair, or nil on a miss. Expired entries
// are dropped lazily.
func (m *Memory) Get(_ context.Context, pair domain.Pair) (*domain.RateQuote, error) {
	m.mu.RLock()
	entry, ok := m.entries[pair]
	m.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	if m.now().After(entry.expiresAt) {
		m.mu.Lock()
		if current, ok := m.entries[pair]; ok && current.expiresAt.Equal(entry.expiresAt) {
			delete(m.entries, pair)
		}
		m.mu.Unlock()
		return nil, nil
	}
	quote := entry.quote
	return &quote, nil
}

// Set stores a quote under its pair for ttl.
func (m *Memory) Set(_ context.Context, quote *domain.RateQuote, ttl time.Duration) error {
	if quote == nil || ttl <= 0 {
		return nil
	}
	m.mu.Lock()
	m.entries[quote.Pair] = memoryEntry{quote: *quote, expiresAt: m.now().Add(ttl)}
	m.mu.Unlock()
	return nil
}
