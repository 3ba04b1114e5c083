package orchestrator

import (
	"context"
	"errors"
	"testing"
	"time"

	"TrendScout/internal/fetcher"
	"TrendScout/internal/model"
	"TrendScout/internal/store"
)

func day(s string) time.Time {
	t, err := time.ParseInLocation(model.DateKey, s, time.UTC)
	if err != nil {
		panic(err)
	}
	return t
}

func weekdayBars(symbol string, from, to time.Time) []model.Bar {
	var bars []model.Bar
	for d := model.Day(from); !d.After(model.Day(to)); d = d.AddDate(0, 0, 1) {
		if d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
			continue
		}
		bars = append(bars, model.Bar{
			Symbol: symbol, Date: d,
			Open: 100, High: 101, Low: 99, Close: 100, Volume: 100000,
		})
	}
	return bars
}

func testOptions() Options {
	return Options{
		Freshness:   24 * time.Hour,
		MaxAttempts: 3,
		BackoffBase: time.Millisecond,
		BackoffMax:  2 * time.Millisecond,
		MinInterval: time.Microsecond,
	}
}

func TestGetBars_FreshCacheSkipsNetwork(t *testing.T) {
	from, to := day("2024-03-04"), day("2024-04-30")
	mem := store.NewMemoryStore()
	if err := mem.Put("AAPL", weekdayBars("AAPL", from, to)); err != nil {
		t.Fatal(err)
	}
	mock := &fetcher.MockFetcher{}
	o := New(mem, mock, testOptions())

	bars, err := o.GetBars(context.Background(), "AAPL", from, to)
	if err != nil {
		t.Fatalf("get bars: %v", err)
	}
	if len(bars) == 0 {
		t.Fatal("expected cached bars")
	}
	if mock.Calls != 0 {
		t.Errorf("fresh covered cache must not hit the network, got %d calls", mock.Calls)
	}
}

func TestGetBars_StaleCacheRefetches(t *testing.T) {
	from, to := day("2024-03-04"), day("2024-04-30")
	mem := store.NewMemoryStore()
	clock := to
	mem.Now = func() time.Time { return clock }
	if err := mem.Put("AAPL", weekdayBars("AAPL", from, to)); err != nil {
		t.Fatal(err)
	}
	clock = clock.Add(48 * time.Hour) // past the freshness window

	mock := &fetcher.MockFetcher{Bars: map[string][]model.Bar{
		"AAPL": weekdayBars("AAPL", from, to),
	}}
	o := New(mem, mock, testOptions())

	if _, err := o.GetBars(context.Background(), "AAPL", from, to); err != nil {
		t.Fatalf("get bars: %v", err)
	}
	if mock.Calls != 1 {
		t.Errorf("stale cache should trigger exactly one fetch, got %d", mock.Calls)
	}
}

func TestGetBars_TransientRetriesThenSucceeds(t *testing.T) {
	from, to := day("2024-03-04"), day("2024-04-30")
	mem := store.NewMemoryStore()
	timeout := fetcher.Transient("AAPL", errors.New("timeout"))
	mock := &fetcher.MockFetcher{
		Errs: []error{timeout, timeout},
		Bars: map[string][]model.Bar{"AAPL": weekdayBars("AAPL", from, to)},
	}
	o := New(mem, mock, testOptions())

	bars, err := o.GetBars(context.Background(), "AAPL", from, to)
	if err != nil {
		t.Fatalf("expected success on third attempt: %v", err)
	}
	if mock.Calls != 3 {
		t.Errorf("expected 3 attempts, got %d", mock.Calls)
	}

	// Cache state must match a first-attempt success.
	cached, err := mem.Get("AAPL", from, to)
	if err != nil {
		t.Fatal(err)
	}
	if len(cached) != len(bars) {
		t.Errorf("cache write after retries differs: %d cached vs %d returned", len(cached), len(bars))
	}
}

func TestGetBars_TransientExhaustsRetries(t *testing.T) {
	mem := store.NewMemoryStore()
	timeout := fetcher.Transient("AAPL", errors.New("timeout"))
	mock := &fetcher.MockFetcher{Errs: []error{timeout, timeout, timeout}}
	o := New(mem, mock, testOptions())

	_, err := o.GetBars(context.Background(), "AAPL", day("2024-03-04"), day("2024-04-30"))
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if fetcher.IsPermanent(err) {
		t.Error("exhausted transient error must not be classified permanent")
	}
	if mock.Calls != 3 {
		t.Errorf("expected exactly max attempts (3), got %d", mock.Calls)
	}
	if cached, _ := mem.Get("AAPL", day("2024-03-04"), day("2024-04-30")); len(cached) != 0 {
		t.Error("failed fetch must not mutate the cache")
	}
}

func TestGetBars_PermanentNeverRetried(t *testing.T) {
	mem := store.NewMemoryStore()
	notFound := fetcher.Permanent("GONE", errors.New("symbol not found"))
	mock := &fetcher.MockFetcher{Errs: []error{notFound, notFound, notFound}}
	o := New(mem, mock, testOptions())

	_, err := o.GetBars(context.Background(), "GONE", day("2024-03-04"), day("2024-04-30"))
	if !fetcher.IsPermanent(err) {
		t.Fatalf("expected permanent error, got %v", err)
	}
	if mock.Calls != 1 {
		t.Errorf("permanent errors must not be retried, got %d calls", mock.Calls)
	}
}

func TestGetBars_CancelStopsRetryLoop(t *testing.T) {
	mem := store.NewMemoryStore()
	timeout := fetcher.Transient("AAPL", errors.New("timeout"))
	mock := &fetcher.MockFetcher{Errs: []error{timeout, timeout, timeout}}
	opts := testOptions()
	opts.BackoffBase = time.Hour // retry wait would hang without cancellation
	o := New(mem, mock, opts)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := o.GetBars(ctx, "AAPL", day("2024-03-04"), day("2024-04-30"))
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected context deadline error, got %v", err)
	}
}
