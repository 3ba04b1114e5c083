package model

import "time"

// Reason tags attached to a candidate, one per rule that contributed
// a non-zero scoring component.
const (
	TagUptrend         = "uptrend"
	TagPullback        = "pullback"
	TagBreakout        = "breakout"
	TagVolumeConfirmed = "volume-confirmed"
	TagLowLiquidity    = "low-liquidity"
)

// Candidate is the final output record for one (symbol, date) that
// triggered at least one setup rule. Never mutated after creation.
type Candidate struct {
	Symbol     string    `json:"symbol"`
	Date       time.Time `json:"date"`
	Close      float64   `json:"close"`
	SMA20      float64   `json:"sma20"`
	SMA50      float64   `json:"sma50"`
	RSI14      float64   `json:"rsi14"`
	VolAvg20   float64   `json:"vol_avg20"`
	ReasonTags []string  `json:"reason_tags"`
	Score      int       `json:"score"`
}

// SkipReason classifies why a symbol produced no candidate.
type SkipReason string

const (
	SkipInsufficientHistory SkipReason = "insufficient_history"
	SkipFetchExhausted      SkipReason = "fetch_exhausted"
	SkipDelistedOrNotFound  SkipReason = "delisted_or_not_found"
	SkipValidationGap       SkipReason = "validation_gap"
)

// Skip is an event recording a symbol excluded from the run.
type Skip struct {
	Symbol string     `json:"symbol"`
	Reason SkipReason `json:"reason"`
	Detail string     `json:"detail,omitempty"`
}
