package runlog

import (
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func openTestLog(t *testing.T) *Log {
	t.Helper()
	l, err := Open(filepath.Join(t.TempDir(), "runs.db"))
	if err != nil {
		t.Fatalf("open run log: %v", err)
	}
	t.Cleanup(func() { l.Close() })
	return l
}

func TestNewRunID_DatePrefixedAndUnique(t *testing.T) {
	at := time.Date(2025, 6, 6, 18, 0, 0, 0, time.UTC)
	a, b := NewRunID(at), NewRunID(at)
	if !strings.HasPrefix(a, "20250606-") {
		t.Errorf("expected date prefix, got %q", a)
	}
	if a == b {
		t.Errorf("run IDs must be unique, got %q twice", a)
	}
}

func TestRecordAndRecent(t *testing.T) {
	l := openTestLog(t)

	base := time.Date(2025, 6, 6, 18, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		err := l.Record(Run{
			ID:         NewRunID(base.AddDate(0, 0, i)),
			StartedAt:  base.AddDate(0, 0, i),
			FinishedAt: base.AddDate(0, 0, i).Add(40 * time.Second),
			Status:     StatusOK,
			Scanned:    50,
			Candidates: 3 + i,
			Skipped:    2,
			CSVPath:    "outputs/candidates_x.csv",
			JSONPath:   "outputs/candidates_x.json",
		})
		if err != nil {
			t.Fatalf("record run %d: %v", i, err)
		}
	}

	runs, err := l.Recent(2)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}
	if !runs[0].StartedAt.After(runs[1].StartedAt) {
		t.Errorf("runs must be newest first: %v then %v", runs[0].StartedAt, runs[1].StartedAt)
	}
	if runs[0].Candidates != 5 {
		t.Errorf("expected newest run with 5 candidates, got %d", runs[0].Candidates)
	}
	if runs[0].Status != StatusOK {
		t.Errorf("unexpected status %q", runs[0].Status)
	}
}

func TestRecord_FailedRunKeepsDetail(t *testing.T) {
	l := openTestLog(t)

	now := time.Now().UTC().Truncate(time.Second)
	err := l.Record(Run{
		ID: NewRunID(now), StartedAt: now, FinishedAt: now,
		Status: StatusFailed, Detail: "watchlist file missing",
	})
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	runs, err := l.Recent(1)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(runs) != 1 || runs[0].Detail != "watchlist file missing" {
		t.Fatalf("expected failure detail preserved, got %+v", runs)
	}
}
