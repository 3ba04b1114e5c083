package store

import (
	"sort"
	"sync"
	"time"

	"TrendScout/internal/model"
)

// MemoryStore is an in-memory Store used by tests and dry runs.
type MemoryStore struct {
	mu          sync.RWMutex
	bars        map[string]map[string]model.Bar // symbol -> date key -> bar
	lastFetched map[string]time.Time

	Now func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		bars:        make(map[string]map[string]model.Bar),
		lastFetched: make(map[string]time.Time),
		Now:         time.Now,
	}
}

func (m *MemoryStore) Put(symbol string, bars []model.Bar) error {
	if len(bars) == 0 {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	byDate, ok := m.bars[symbol]
	if !ok {
		byDate = make(map[string]model.Bar)
		m.bars[symbol] = byDate
	}
	now := m.Now()
	for _, b := range bars {
		if b.FetchedAt.IsZero() {
			b.FetchedAt = now
		}
		b.Date = model.Day(b.Date)
		byDate[b.Date.Format(model.DateKey)] = b
	}
	m.lastFetched[symbol] = now
	return nil
}

func (m *MemoryStore) Get(symbol string, from, to time.Time) ([]model.Bar, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	from, to = model.Day(from), model.Day(to)
	var out []model.Bar
	for _, b := range m.bars[symbol] {
		if b.Date.Before(from) || b.Date.After(to) {
			continue
		}
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (m *MemoryStore) IsFresh(symbol string, window time.Duration) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	fetched, ok := m.lastFetched[symbol]
	if !ok {
		return false, nil
	}
	return m.Now().Sub(fetched) <= window, nil
}

func (m *MemoryStore) Close() error { return nil }
