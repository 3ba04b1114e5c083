package store

import (
	"path/filepath"
	"testing"
	"time"

	"TrendScout/internal/model"
)

func day(s string) time.Time {
	t, err := time.ParseInLocation(model.DateKey, s, time.UTC)
	if err != nil {
		panic(err)
	}
	return t
}

func testBars(symbol string, closes map[string]float64) []model.Bar {
	var bars []model.Bar
	for date, c := range closes {
		bars = append(bars, model.Bar{
			Symbol: symbol, Date: day(date),
			Open: c, High: c + 1, Low: c - 1, Close: c, Volume: 100000,
		})
	}
	return bars
}

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "bars.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteStore_PutGetOrdering(t *testing.T) {
	s := openTestStore(t)
	bars := testBars("AAPL", map[string]float64{
		"2024-03-06": 102, "2024-03-04": 100, "2024-03-05": 101,
	})
	if err := s.Put("AAPL", bars); err != nil {
		t.Fatalf("put: %v", err)
	}

	got, err := s.Get("AAPL", day("2024-03-01"), day("2024-03-31"))
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 bars, got %d", len(got))
	}
	for i := 1; i < len(got); i++ {
		if !got[i].Date.After(got[i-1].Date) {
			t.Errorf("bars not strictly ascending at %d: %v then %v", i, got[i-1].Date, got[i].Date)
		}
	}
}

func TestSQLiteStore_MergeNewerWriteWins(t *testing.T) {
	s := openTestStore(t)
	if err := s.Put("MSFT", testBars("MSFT", map[string]float64{"2024-03-04": 100})); err != nil {
		t.Fatalf("first put: %v", err)
	}
	// Verified re-fetch replaces the single date's values.
	if err := s.Put("MSFT", testBars("MSFT", map[string]float64{"2024-03-04": 105, "2024-03-05": 106})); err != nil {
		t.Fatalf("second put: %v", err)
	}

	got, err := s.Get("MSFT", day("2024-03-01"), day("2024-03-31"))
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 bars after merge, got %d", len(got))
	}
	if got[0].Close != 105 {
		t.Errorf("expected newer write to win (close=105), got %g", got[0].Close)
	}
}

func TestSQLiteStore_Freshness(t *testing.T) {
	s := openTestStore(t)
	clock := day("2024-03-04").Add(18 * time.Hour)
	s.now = func() time.Time { return clock }

	fresh, err := s.IsFresh("GOOG", 24*time.Hour)
	if err != nil {
		t.Fatalf("is fresh: %v", err)
	}
	if fresh {
		t.Error("never-fetched symbol must not be fresh")
	}

	if err := s.Put("GOOG", testBars("GOOG", map[string]float64{"2024-03-04": 100})); err != nil {
		t.Fatalf("put: %v", err)
	}
	if fresh, _ = s.IsFresh("GOOG", 24*time.Hour); !fresh {
		t.Error("just-fetched symbol should be fresh")
	}

	clock = clock.Add(25 * time.Hour)
	if fresh, _ = s.IsFresh("GOOG", 24*time.Hour); fresh {
		t.Error("symbol should go stale after the freshness window")
	}
}

func TestSQLiteStore_PruneBySymbolCount(t *testing.T) {
	s := openTestStore(t)
	clock := day("2024-03-04")
	s.now = func() time.Time { return clock }

	for _, sym := range []string{"OLD", "MID", "NEW"} {
		if err := s.Put(sym, testBars(sym, map[string]float64{"2024-03-04": 100})); err != nil {
			t.Fatalf("put %s: %v", sym, err)
		}
		clock = clock.Add(time.Hour)
	}

	removed, err := s.Prune(2, 0, PruneByLastFetched)
	if err != nil {
		t.Fatalf("prune: %v", err)
	}
	if len(removed) != 1 || removed[0] != "OLD" {
		t.Fatalf("expected [OLD] evicted, got %v", removed)
	}
	st, err := s.GetStats()
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if st.TotalSymbols != 2 {
		t.Errorf("expected 2 symbols after prune, got %d", st.TotalSymbols)
	}
}

func TestMemoryStore_MatchesContract(t *testing.T) {
	m := NewMemoryStore()
	if err := m.Put("TCS", testBars("TCS", map[string]float64{"2024-03-05": 50, "2024-03-04": 49})); err != nil {
		t.Fatalf("put: %v", err)
	}
	got, err := m.Get("TCS", day("2024-03-04"), day("2024-03-05"))
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got) != 2 || got[0].Close != 49 || got[1].Close != 50 {
		t.Fatalf("unexpected bars: %+v", got)
	}
	fresh, _ := m.IsFresh("TCS", time.Hour)
	if !fresh {
		t.Error("expected fresh after put")
	}
}
