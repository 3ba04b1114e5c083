package fetcher

import (
	"sync"
	"time"

	"TrendScout/internal/model"
)

// MockFetcher returns controllable fixed data for development and testing.
type MockFetcher struct {
	mu    sync.Mutex
	Bars  map[string][]model.Bar
	// Errs is consumed one per call before Bars is served, so tests can
	// script fail-fail-succeed sequences.
	Errs  []error
	Calls int
}

func (m *MockFetcher) Name() string { return "mock" }

func (m *MockFetcher) FetchDailyBars(symbol string, from, to time.Time) ([]model.Bar, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls++
	if len(m.Errs) > 0 {
		err := m.Errs[0]
		m.Errs = m.Errs[1:]
		if err != nil {
			return nil, err
		}
	}
	if bars, ok := m.Bars[symbol]; ok {
		var out []model.Bar
		for _, b := range bars {
			if b.Date.Before(model.Day(from)) || b.Date.After(model.Day(to)) {
				continue
			}
			out = append(out, b)
		}
		return out, nil
	}
	return GenerateBars(symbol, model.Day(to), 120, 100), nil
}

// GenerateBars builds count weekday bars ending at end with a gentle
// upward drift, for development runs without a live data source.
func GenerateBars(symbol string, end time.Time, count int, basePrice float64) []model.Bar {
	bars := make([]model.Bar, 0, count)
	date := model.Day(end)
	for len(bars) < count {
		if date.Weekday() != time.Saturday && date.Weekday() != time.Sunday {
			i := count - len(bars)
			p := basePrice * (1 + float64(count/2-i)*0.001)
			bars = append(bars, model.Bar{
				Symbol: symbol,
				Date:   date,
				Open:   p * 0.999,
				High:   p * 1.005,
				Low:    p * 0.995,
				Close:  p,
				Volume: 1000000,
			})
		}
		date = date.AddDate(0, 0, -1)
	}
	// generated newest-first, reverse to ascending
	for i, j := 0, len(bars)-1; i < j; i, j = i+1, j-1 {
		bars[i], bars[j] = bars[j], bars[i]
	}
	return bars
}
