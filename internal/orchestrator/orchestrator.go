// Package orchestrator decides when cached bars suffice and when to go
// to the network, applying the shared rate limit and the retry policy.
package orchestrator

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"time"

	"golang.org/x/time/rate"

	"TrendScout/internal/fetcher"
	"TrendScout/internal/model"
	"TrendScout/internal/store"
)

// rangeGraceDays allows cached coverage checks to tolerate weekends and
// holidays at the edges of the requested range.
const rangeGraceDays = 5

// Options configures the retry and freshness policy.
type Options struct {
	Freshness   time.Duration
	MaxAttempts int
	BackoffBase time.Duration
	BackoffMax  time.Duration
	// MinInterval is the minimum spacing between outbound requests,
	// shared across every symbol and worker.
	MinInterval time.Duration
}

// Orchestrator serves bar ranges cache-first and writes fetched data
// through to the store. A single instance is shared by all workers so
// the rate limiter covers every outbound request.
type Orchestrator struct {
	store   store.Store
	fetcher fetcher.Fetcher
	limiter *rate.Limiter
	opts    Options
}

func New(s store.Store, f fetcher.Fetcher, opts Options) *Orchestrator {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 1
	}
	interval := opts.MinInterval
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	return &Orchestrator{
		store:   s,
		fetcher: f,
		limiter: rate.NewLimiter(rate.Every(interval), 1),
		opts:    opts,
	}
}

// GetBars returns bars covering [from, to] for symbol. If the cache is
// fresh and covers the range no network call is made; otherwise the
// range is fetched, merged into the store, and re-read.
func (o *Orchestrator) GetBars(ctx context.Context, symbol string, from, to time.Time) ([]model.Bar, error) {
	fresh, err := o.store.IsFresh(symbol, o.opts.Freshness)
	if err != nil {
		return nil, fmt.Errorf("freshness check %s: %w", symbol, err)
	}
	if fresh {
		bars, err := o.store.Get(symbol, from, to)
		if err != nil {
			return nil, fmt.Errorf("cache read %s: %w", symbol, err)
		}
		if rangeCovered(bars, from, to) {
			return bars, nil
		}
	}

	fetched, err := o.fetchWithRetry(ctx, symbol, from, to)
	if err != nil {
		return nil, err
	}
	if err := o.store.Put(symbol, fetched); err != nil {
		return nil, fmt.Errorf("cache write %s: %w", symbol, err)
	}
	bars, err := o.store.Get(symbol, from, to)
	if err != nil {
		return nil, fmt.Errorf("cache re-read %s: %w", symbol, err)
	}
	return bars, nil
}

func (o *Orchestrator) fetchWithRetry(ctx context.Context, symbol string, from, to time.Time) ([]model.Bar, error) {
	var lastErr error
	for attempt := 1; attempt <= o.opts.MaxAttempts; attempt++ {
		if attempt > 1 {
			delay := o.backoff(attempt - 1)
			log.Printf("[WARN] fetch %s failed (attempt %d/%d): %v, retrying in %v",
				symbol, attempt-1, o.opts.MaxAttempts, lastErr, delay)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}
		if err := o.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		bars, err := o.fetcher.FetchDailyBars(symbol, from, to)
		if err == nil {
			return bars, nil
		}
		if fetcher.IsPermanent(err) {
			return nil, err
		}
		lastErr = err
	}
	return nil, fmt.Errorf("fetch %s: all %d attempts exhausted: %w", symbol, o.opts.MaxAttempts, lastErr)
}

// backoff doubles the base delay per attempt, clips at the maximum and
// adds up to 50% random jitter.
func (o *Orchestrator) backoff(attempt int) time.Duration {
	base := o.opts.BackoffBase
	if base <= 0 {
		base = 500 * time.Millisecond
	}
	d := base << uint(attempt-1)
	if o.opts.BackoffMax > 0 && d > o.opts.BackoffMax {
		d = o.opts.BackoffMax
	}
	return d + time.Duration(rand.Int63n(int64(d)/2+1))
}

// rangeCovered reports whether cached bars span the requested range,
// tolerating non-trading days at the edges.
func rangeCovered(bars []model.Bar, from, to time.Time) bool {
	if len(bars) == 0 {
		return false
	}
	first := bars[0].Date
	last := bars[len(bars)-1].Date
	return !first.After(model.Day(from).AddDate(0, 0, rangeGraceDays)) &&
		!last.Before(model.Day(to).AddDate(0, 0, -rangeGraceDays))
}
