// Package store persists per-symbol daily bars and answers freshness
// queries. Writes are merge-only: a re-fetch replaces a date's values,
// never deletes history.
package store

import (
	"time"

	"TrendScout/internal/model"
)

// Store is the bar cache contract used by the fetch orchestrator.
type Store interface {
	// Get returns the cached bars for symbol within [from, to],
	// ordered by date ascending.
	Get(symbol string, from, to time.Time) ([]model.Bar, error)
	// Put merges bars into the cache, de-duplicating by date with the
	// newer write winning, and stamps the symbol's fetch time.
	Put(symbol string, bars []model.Bar) error
	// IsFresh reports whether the symbol's last fetch is within window.
	// A symbol never fetched is not fresh.
	IsFresh(symbol string, window time.Duration) (bool, error)
	Close() error
}

// Stats summarizes cache usage.
type Stats struct {
	Path         string
	SizeBytes    int64
	TotalSymbols int
	TotalRows    int
}

// Prune policies: evict symbols oldest by fetch time or by access time.
const (
	PruneByLastFetched  = "last_fetched"
	PruneByLastAccessed = "last_accessed"
)
