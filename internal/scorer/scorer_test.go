package scorer

import (
	"reflect"
	"testing"

	"TrendScout/internal/detector"
)

func testConfig() Config {
	return Config{
		RSIMin:                40,
		RSIMax:                70,
		PullbackTolerancePct:  1.0,
		LiquidityMinAvgVolume: 100000,
	}
}

func TestScore_AllComponentsAtMaximum(t *testing.T) {
	// Center-band RSI, exact touch, saturated volume, ample liquidity.
	in := Inputs{Close: 100, SMA20: 95, SMA50: 90, RSI14: 55, Volume: 400000, VolAvg20: 200000}
	sig := detector.Signal{Pullback: true, TouchDistancePct: 0}

	score, tags := Score(in, sig, testConfig())
	if score != 90 {
		t.Errorf("expected score 90, got %d", score)
	}
	want := []string{"uptrend", "rsi-55", "pullback", "volume-confirmed"}
	if !reflect.DeepEqual(tags, want) {
		t.Errorf("expected tags %v, got %v", want, tags)
	}
}

func TestScore_BandEdgeRSIContributesNothing(t *testing.T) {
	in := Inputs{Close: 100, SMA20: 95, SMA50: 90, RSI14: 70, Volume: 200000, VolAvg20: 200000}
	sig := detector.Signal{Pullback: true, TouchDistancePct: 0}

	score, tags := Score(in, sig, testConfig())
	// uptrend 30 + quality 20, no RSI points, no volume points.
	if score != 50 {
		t.Errorf("expected score 50, got %d", score)
	}
	for _, tag := range tags {
		if tag == "rsi-70" {
			t.Error("edge-of-band RSI must not carry an rsi tag")
		}
	}
}

func TestScore_SetupQualityCappedWithBothSignals(t *testing.T) {
	in := Inputs{Close: 102, SMA20: 95, SMA50: 90, RSI14: 55, Volume: 200000, VolAvg20: 200000}
	both := detector.Signal{Pullback: true, TouchDistancePct: 0, Breakout: true, BreakoutPct: 2.0}
	only := detector.Signal{Pullback: true, TouchDistancePct: 0}

	scoreBoth, tags := Score(in, both, testConfig())
	scoreOne, _ := Score(in, only, testConfig())
	if scoreBoth != scoreOne {
		t.Errorf("setup quality must cap at its maximum: both=%d pullback-only=%d", scoreBoth, scoreOne)
	}
	want := []string{"uptrend", "rsi-55", "pullback", "breakout"}
	if !reflect.DeepEqual(tags, want) {
		t.Errorf("expected tags %v, got %v", want, tags)
	}
}

func TestScore_LowLiquidityPenalized(t *testing.T) {
	// vol_avg20 at half the floor costs half the maximum penalty.
	in := Inputs{Close: 100, SMA20: 95, SMA50: 90, RSI14: 55, Volume: 50000, VolAvg20: 50000}
	sig := detector.Signal{Pullback: true, TouchDistancePct: 0.5}

	score, tags := Score(in, sig, testConfig())
	// 30 uptrend + 20 rsi + 10 quality + 0 volume - 5 liquidity.
	if score != 55 {
		t.Errorf("expected score 55, got %d", score)
	}
	found := false
	for _, tag := range tags {
		if tag == "low-liquidity" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected low-liquidity tag, got %v", tags)
	}
}

func TestScore_FractionalTotalFlooredToInt(t *testing.T) {
	in := Inputs{Close: 100, SMA20: 95, SMA50: 90, RSI14: 58, Volume: 266000, VolAvg20: 200000}
	sig := detector.Signal{Pullback: true, TouchDistancePct: 0.25}

	// 30 + 16 (rsi) + 15 (quality) + 6.6 (volume) = 67.6, floored.
	score, _ := Score(in, sig, testConfig())
	if score != 67 {
		t.Errorf("expected score 67, got %d", score)
	}
}

func TestScore_Deterministic(t *testing.T) {
	in := Inputs{Close: 100, SMA20: 95, SMA50: 90, RSI14: 61, Volume: 150000, VolAvg20: 120000}
	sig := detector.Signal{Breakout: true, BreakoutPct: 0.7}

	s1, t1 := Score(in, sig, testConfig())
	s2, t2 := Score(in, sig, testConfig())
	if s1 != s2 || !reflect.DeepEqual(t1, t2) {
		t.Errorf("identical inputs scored differently: %d%v vs %d%v", s1, t1, s2, t2)
	}
}
