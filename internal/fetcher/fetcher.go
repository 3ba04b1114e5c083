// Package fetcher retrieves daily OHLCV bars from remote data sources
// and classifies failures as transient (retryable) or permanent.
package fetcher

import (
	"errors"
	"fmt"
	"time"

	"TrendScout/internal/model"
)

// Fetcher defines the interface for fetching market data.
type Fetcher interface {
	// FetchDailyBars returns daily bars for symbol covering [from, to],
	// ordered by date ascending.
	FetchDailyBars(symbol string, from, to time.Time) ([]model.Bar, error)
	Name() string
}

// ErrorKind distinguishes retryable failures from terminal ones.
type ErrorKind int

const (
	// KindTransient covers timeouts, connection resets and server-side
	// errors; callers retry these with backoff.
	KindTransient ErrorKind = iota
	// KindPermanent covers unknown/delisted symbols and malformed
	// responses; callers never retry these.
	KindPermanent
)

// FetchError carries the failure classification for a fetch attempt.
type FetchError struct {
	Kind   ErrorKind
	Symbol string
	Err    error
}

func (e *FetchError) Error() string {
	kind := "transient"
	if e.Kind == KindPermanent {
		kind = "permanent"
	}
	return fmt.Sprintf("fetch %s (%s): %v", e.Symbol, kind, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Transient wraps err as a retryable fetch failure.
func Transient(symbol string, err error) *FetchError {
	return &FetchError{Kind: KindTransient, Symbol: symbol, Err: err}
}

// Permanent wraps err as a terminal fetch failure.
func Permanent(symbol string, err error) *FetchError {
	return &FetchError{Kind: KindPermanent, Symbol: symbol, Err: err}
}

// IsPermanent reports whether err is classified as non-retryable.
// Unclassified errors are treated as transient.
func IsPermanent(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe) && fe.Kind == KindPermanent
}
