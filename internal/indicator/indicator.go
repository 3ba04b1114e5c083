// Package indicator computes moving-average and momentum series as
// pure functions of a validated bar sequence. Outputs are aligned to
// the input; entries before the required window are NaN.
package indicator

import (
	"math"

	"TrendScout/internal/model"
)

// SMA computes the simple moving average of values over period.
// Index i holds the mean of values[i-period+1 .. i]; earlier indices
// are NaN.
func SMA(values []float64, period int) []float64 {
	out := make([]float64, len(values))
	for i := range out {
		out[i] = math.NaN()
	}
	if period <= 0 || len(values) < period {
		return out
	}
	var sum float64
	for i, v := range values {
		sum += v
		if i >= period {
			sum -= values[i-period]
		}
		if i >= period-1 {
			out[i] = sum / float64(period)
		}
	}
	return out
}

// RSI computes the Wilder-smoothed Relative Strength Index of closes.
// The first `period` indices are NaN. The seed average gain/loss is the
// simple mean of the first `period` close-to-close differences; later
// values use avg = (prev*(period-1) + x) / period. RSI is 100 when the
// average loss is exactly zero.
func RSI(closes []float64, period int) []float64 {
	out := make([]float64, len(closes))
	for i := range out {
		out[i] = math.NaN()
	}
	if period <= 0 || len(closes) < period+1 {
		return out
	}

	var avgGain, avgLoss float64
	for i := 1; i <= period; i++ {
		change := closes[i] - closes[i-1]
		if change > 0 {
			avgGain += change
		} else {
			avgLoss -= change
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)
	out[period] = rsiValue(avgGain, avgLoss)

	for i := period + 1; i < len(closes); i++ {
		change := closes[i] - closes[i-1]
		gain, loss := 0.0, 0.0
		if change > 0 {
			gain = change
		} else {
			loss = -change
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
		out[i] = rsiValue(avgGain, avgLoss)
	}
	return out
}

func rsiValue(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		return 100.0
	}
	rs := avgGain / avgLoss
	return 100.0 - 100.0/(1.0+rs)
}

// Periods selects the indicator windows for a frame.
type Periods struct {
	SMAFast   int
	SMASlow   int
	RSIPeriod int
	VolWindow int
}

// DefaultPeriods matches the production configuration.
var DefaultPeriods = Periods{SMAFast: 20, SMASlow: 50, RSIPeriod: 14, VolWindow: 20}

// Frame computes all indicator sequences for a validated bar sequence.
// Recomputing from identical inputs always yields identical outputs.
func Frame(bars []model.Bar, p Periods) *model.IndicatorFrame {
	closes := model.Closes(bars)
	volumes := model.Volumes(bars)
	return &model.IndicatorFrame{
		SMA20:    SMA(closes, p.SMAFast),
		SMA50:    SMA(closes, p.SMASlow),
		RSI14:    RSI(closes, p.RSIPeriod),
		VolAvg20: SMA(volumes, p.VolWindow),
	}
}
