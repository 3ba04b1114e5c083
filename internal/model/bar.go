package model

import "time"

// Bar represents one daily OHLCV bar for a symbol. Bars are immutable
// once persisted; (Symbol, Date) is unique.
type Bar struct {
	Symbol    string
	Date      time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
	FetchedAt time.Time
}

// DateKey is the canonical storage format for trading dates.
const DateKey = "2006-01-02"

// Day truncates a timestamp to its UTC trading date.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Closes extracts the close series from a bar sequence.
func Closes(bars []Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Close
	}
	return out
}

// Volumes extracts the volume series from a bar sequence.
func Volumes(bars []Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Volume
	}
	return out
}
