package model

import "math"

// IndicatorFrame holds per-symbol indicator sequences aligned to the
// validated bar sequence. Entries before the required window length
// are NaN and must not be consumed by downstream rules; use Defined
// before reading any index.
type IndicatorFrame struct {
	SMA20    []float64
	SMA50    []float64
	RSI14    []float64
	VolAvg20 []float64
}

// Defined reports whether every indicator is valid at index i.
func (f *IndicatorFrame) Defined(i int) bool {
	if i < 0 || i >= len(f.SMA20) {
		return false
	}
	return !math.IsNaN(f.SMA20[i]) && !math.IsNaN(f.SMA50[i]) &&
		!math.IsNaN(f.RSI14[i]) && !math.IsNaN(f.VolAvg20[i])
}

// Len returns the number of aligned entries.
func (f *IndicatorFrame) Len() int { return len(f.SMA20) }
