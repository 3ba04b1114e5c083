// Package scanner runs the per-symbol pipeline across a watchlist with
// a bounded worker pool: fetch, validate, compute indicators, evaluate
// the latest bar and score it.
package scanner

import (
	"context"
	"log"
	"sort"
	"sync"
	"time"

	"TrendScout/internal/config"
	"TrendScout/internal/detector"
	"TrendScout/internal/fetcher"
	"TrendScout/internal/indicator"
	"TrendScout/internal/model"
	"TrendScout/internal/orchestrator"
	"TrendScout/internal/scorer"
	"TrendScout/internal/validator"
)

// BarSource abstracts the cache-first fetch path.
type BarSource interface {
	GetBars(ctx context.Context, symbol string, from, to time.Time) ([]model.Bar, error)
}

var _ BarSource = (*orchestrator.Orchestrator)(nil)

// Result aggregates one scan run. Candidates are sorted by score
// descending, ties broken by symbol.
type Result struct {
	Candidates []model.Candidate
	Skips      []model.Skip
	Scanned    int
	Started    time.Time
	Finished   time.Time
}

// Scanner drives scan runs. One symbol never affects another: every
// per-symbol failure becomes a skip entry, not a run failure.
type Scanner struct {
	source BarSource
	cfg    *config.Config

	// Now is injectable for tests; it anchors the history window.
	Now func() time.Time
}

func New(source BarSource, cfg *config.Config) *Scanner {
	return &Scanner{source: source, cfg: cfg, Now: time.Now}
}

type outcome struct {
	candidate *model.Candidate
	skip      *model.Skip
}

// Run scans all symbols and returns the aggregated result. Cancelling
// the context stops dispatching new symbols; in-flight symbols finish.
func (s *Scanner) Run(ctx context.Context, symbols []string) (*Result, error) {
	res := &Result{Started: s.Now()}
	to := model.Day(res.Started)
	from := to.AddDate(0, 0, -s.cfg.Fetch.HistoryDays)

	workers := s.cfg.Scan.Workers
	if workers > len(symbols) {
		workers = len(symbols)
	}
	if workers < 1 {
		workers = 1
	}

	jobs := make(chan string)
	outcomes := make(chan outcome, len(symbols))

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for symbol := range jobs {
				outcomes <- s.scanSymbol(ctx, symbol, from, to)
			}
		}()
	}

	dispatched := 0
dispatch:
	for _, symbol := range symbols {
		select {
		case <-ctx.Done():
			log.Printf("[WARN] scan cancelled after dispatching %d/%d symbols", dispatched, len(symbols))
			break dispatch
		case jobs <- symbol:
			dispatched++
		}
	}
	close(jobs)
	wg.Wait()
	close(outcomes)

	for out := range outcomes {
		res.Scanned++
		if out.candidate != nil {
			res.Candidates = append(res.Candidates, *out.candidate)
		}
		if out.skip != nil {
			res.Skips = append(res.Skips, *out.skip)
		}
	}
	sort.Slice(res.Candidates, func(i, j int) bool {
		if res.Candidates[i].Score != res.Candidates[j].Score {
			return res.Candidates[i].Score > res.Candidates[j].Score
		}
		return res.Candidates[i].Symbol < res.Candidates[j].Symbol
	})
	sort.Slice(res.Skips, func(i, j int) bool {
		return res.Skips[i].Symbol < res.Skips[j].Symbol
	})
	res.Finished = s.Now()

	if err := ctx.Err(); err != nil {
		return res, err
	}
	return res, nil
}

// scanSymbol runs the full pipeline for one symbol. A panic in the
// computation stages is contained here so it cannot take down the run.
func (s *Scanner) scanSymbol(ctx context.Context, symbol string, from, to time.Time) (out outcome) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[ERROR] scan %s: panic: %v", symbol, r)
			out = outcome{skip: &model.Skip{
				Symbol: symbol,
				Reason: model.SkipValidationGap,
				Detail: "internal computation failure",
			}}
		}
	}()

	bars, err := s.source.GetBars(ctx, symbol, from, to)
	if err != nil {
		reason := model.SkipFetchExhausted
		if fetcher.IsPermanent(err) {
			reason = model.SkipDelistedOrNotFound
		}
		log.Printf("[WARN] scan %s: %v", symbol, err)
		return outcome{skip: &model.Skip{Symbol: symbol, Reason: reason, Detail: err.Error()}}
	}

	valid, skip := validator.Validate(symbol, bars, s.cfg.Scan.MinHistoryDays, s.cfg.Scan.MaxGapDays)
	if skip != nil {
		return outcome{skip: skip}
	}

	frame := indicator.Frame(valid, indicator.Periods{
		SMAFast:   s.cfg.Scan.SMAFast,
		SMASlow:   s.cfg.Scan.SMASlow,
		RSIPeriod: s.cfg.Scan.RSIPeriod,
		VolWindow: s.cfg.Scan.SMAFast,
	})

	last := len(valid) - 1
	sig, ok := detector.Evaluate(valid, frame, last, detector.Config{
		RSIMin:                  s.cfg.Scan.RSIMin,
		RSIMax:                  s.cfg.Scan.RSIMax,
		PullbackLookbackDays:    s.cfg.Scan.PullbackLookbackDays,
		PullbackTolerancePct:    s.cfg.Scan.PullbackTolerancePct,
		BreakoutLookbackDays:    s.cfg.Scan.BreakoutLookbackDays,
		VolumeConfirmationRatio: s.cfg.Scan.VolumeConfirmationRatio,
	})
	if !ok {
		return outcome{}
	}

	bar := valid[last]
	score, tags := scorer.Score(scorer.Inputs{
		Close:    bar.Close,
		SMA20:    frame.SMA20[last],
		SMA50:    frame.SMA50[last],
		RSI14:    frame.RSI14[last],
		Volume:   bar.Volume,
		VolAvg20: frame.VolAvg20[last],
	}, sig, scorer.Config{
		RSIMin:                s.cfg.Scan.RSIMin,
		RSIMax:                s.cfg.Scan.RSIMax,
		PullbackTolerancePct:  s.cfg.Scan.PullbackTolerancePct,
		LiquidityMinAvgVolume: s.cfg.Scan.LiquidityMinAvgVolume,
	})

	return outcome{candidate: &model.Candidate{
		Symbol:     symbol,
		Date:       bar.Date,
		Close:      bar.Close,
		SMA20:      frame.SMA20[last],
		SMA50:      frame.SMA50[last],
		RSI14:      frame.RSI14[last],
		VolAvg20:   frame.VolAvg20[last],
		ReasonTags: tags,
		Score:      score,
	}}
}
