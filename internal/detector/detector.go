// Package detector evaluates the uptrend/pullback/breakout rule set
// against one bar of a validated sequence and its indicator frame.
package detector

import (
	"math"

	"TrendScout/internal/model"
)

// Config holds the rule thresholds. Zero values are not defaulted here;
// callers pass the validated configuration.
type Config struct {
	RSIMin                  float64
	RSIMax                  float64
	PullbackLookbackDays    int
	PullbackTolerancePct    float64
	BreakoutLookbackDays    int
	VolumeConfirmationRatio float64
}

// Signal is the detector verdict for one (symbol, date). Pullback and
// breakout are non-exclusive; a date may carry both.
type Signal struct {
	Pullback bool
	Breakout bool
	// TouchDistancePct is how close the pullback touch came to sma20,
	// as a percentage. Valid only when Pullback is set.
	TouchDistancePct float64
	// BreakoutPct is the close's margin over the trailing high, as a
	// percentage. Valid only when Breakout is set.
	BreakoutPct float64
}

// Evaluate applies the rule set at index i. ok is false when the
// indicators are undefined at i, a gating condition fails, or neither
// setup fires; no candidate is emitted in any of those cases.
func Evaluate(bars []model.Bar, frame *model.IndicatorFrame, i int, cfg Config) (sig Signal, ok bool) {
	if i < 0 || i >= len(bars) || !frame.Defined(i) {
		return Signal{}, false
	}
	bar := bars[i]
	sma20, sma50, rsi := frame.SMA20[i], frame.SMA50[i], frame.RSI14[i]

	// Uptrend and momentum band gate everything.
	if !(bar.Close > sma20 && bar.Close > sma50 && sma20 > sma50) {
		return Signal{}, false
	}
	if rsi < cfg.RSIMin || rsi > cfg.RSIMax {
		return Signal{}, false
	}

	sig.Pullback, sig.TouchDistancePct = detectPullback(bars, frame, i, cfg)
	sig.Breakout, sig.BreakoutPct = detectBreakout(bars, frame, i, cfg)
	return sig, sig.Pullback || sig.Breakout
}

// detectPullback looks for a touch of sma20 within the lookback window
// (inclusive of i) followed by a recovery close above sma20 on volume
// at or above the confirmation ratio.
func detectPullback(bars []model.Bar, frame *model.IndicatorFrame, i int, cfg Config) (bool, float64) {
	start := i - cfg.PullbackLookbackDays + 1
	if start < 0 {
		start = 0
	}
	for d := start; d < i; d++ {
		if !frame.Defined(d) || frame.SMA20[d] == 0 {
			continue
		}
		distPct := math.Abs(bars[d].Close-frame.SMA20[d]) / frame.SMA20[d] * 100
		if distPct > cfg.PullbackTolerancePct {
			continue
		}
		for j := d + 1; j <= i; j++ {
			if !frame.Defined(j) {
				continue
			}
			if bars[j].Close > frame.SMA20[j] &&
				bars[j].Volume >= cfg.VolumeConfirmationRatio*frame.VolAvg20[j] {
				return true, distPct
			}
		}
	}
	return false, 0
}

// detectBreakout checks a close at or above the trailing high with
// rising RSI above 50 and confirming volume.
func detectBreakout(bars []model.Bar, frame *model.IndicatorFrame, i int, cfg Config) (bool, float64) {
	if i < cfg.BreakoutLookbackDays || i < 1 {
		return false, 0
	}
	priorHigh := math.Inf(-1)
	for d := i - cfg.BreakoutLookbackDays; d < i; d++ {
		if bars[d].Close > priorHigh {
			priorHigh = bars[d].Close
		}
	}
	if priorHigh <= 0 || bars[i].Close < priorHigh {
		return false, 0
	}
	prevRSI := frame.RSI14[i-1]
	if math.IsNaN(prevRSI) {
		return false, 0
	}
	rsi := frame.RSI14[i]
	if !(rsi > prevRSI && rsi > 50) {
		return false, 0
	}
	if bars[i].Volume < cfg.VolumeConfirmationRatio*frame.VolAvg20[i] {
		return false, 0
	}
	return true, (bars[i].Close - priorHigh) / priorHigh * 100
}
