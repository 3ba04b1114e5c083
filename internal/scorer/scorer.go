// Package scorer maps a detected signal and its indicator values to a
// 0-100 score with the reason tags that explain it. Identical inputs
// always produce identical scores.
package scorer

import (
	"fmt"
	"math"

	"TrendScout/internal/detector"
	"TrendScout/internal/model"
)

// Component weights. The score is an additive sum of independent
// components clamped to [0, 100].
const (
	uptrendPoints    = 30.0
	rsiMaxPoints     = 20.0
	qualityMaxPoints = 20.0
	volumeMaxPoints  = 20.0
	liquidityPenalty = 10.0

	// Volume component saturates at this multiple of average volume.
	volumeSaturationRatio = 2.0
	// Breakout quality saturates at this margin over the trailing high.
	breakoutSaturationPct = 2.0
)

// Config holds the scoring thresholds shared with the detector.
type Config struct {
	RSIMin                float64
	RSIMax                float64
	PullbackTolerancePct  float64
	LiquidityMinAvgVolume float64
}

// Inputs carries the evaluated bar's values.
type Inputs struct {
	Close    float64
	SMA20    float64
	SMA50    float64
	RSI14    float64
	Volume   float64
	VolAvg20 float64
}

// Score computes the candidate score and reason tags for a date whose
// uptrend and momentum gates already passed.
func Score(in Inputs, sig detector.Signal, cfg Config) (int, []string) {
	tags := []string{model.TagUptrend}
	total := uptrendPoints

	// RSI quality peaks at the band center and decays to 0 at the edges.
	center := (cfg.RSIMin + cfg.RSIMax) / 2
	halfWidth := (cfg.RSIMax - cfg.RSIMin) / 2
	if halfWidth > 0 {
		q := rsiMaxPoints * (1 - math.Abs(in.RSI14-center)/halfWidth)
		if q > 0 {
			total += q
			tags = append(tags, fmt.Sprintf("rsi-%d", int(math.Round(in.RSI14))))
		}
	}

	// Setup quality: both setups contribute independently, capped.
	var quality float64
	if sig.Pullback {
		tags = append(tags, model.TagPullback)
		if cfg.PullbackTolerancePct > 0 {
			closeness := (cfg.PullbackTolerancePct - sig.TouchDistancePct) / cfg.PullbackTolerancePct
			if closeness > 0 {
				quality += qualityMaxPoints * closeness
			}
		}
	}
	if sig.Breakout {
		tags = append(tags, model.TagBreakout)
		quality += qualityMaxPoints * math.Min(1, sig.BreakoutPct/breakoutSaturationPct)
	}
	if quality > qualityMaxPoints {
		quality = qualityMaxPoints
	}
	total += quality

	// Volume confirmation: linear from ratio 1.0 (0 points) to the
	// saturation ratio (full points).
	if in.VolAvg20 > 0 {
		ratio := in.Volume / in.VolAvg20
		v := volumeMaxPoints * (ratio - 1) / (volumeSaturationRatio - 1)
		if v > volumeMaxPoints {
			v = volumeMaxPoints
		}
		if v > 0 {
			total += v
			tags = append(tags, model.TagVolumeConfirmed)
		}
	}

	// Liquidity penalty scales linearly to the maximum at zero volume.
	if cfg.LiquidityMinAvgVolume > 0 && in.VolAvg20 < cfg.LiquidityMinAvgVolume {
		total -= liquidityPenalty * (1 - in.VolAvg20/cfg.LiquidityMinAvgVolume)
		tags = append(tags, model.TagLowLiquidity)
	}

	score := int(math.Floor(total))
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	return score, tags
}
