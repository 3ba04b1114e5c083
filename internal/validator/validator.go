// Package validator canonicalizes raw bar sequences before indicator
// computation: sorted, de-duplicated, contiguous enough, long enough.
package validator

import (
	"fmt"
	"sort"

	"TrendScout/internal/model"
)

// Validate sorts bars by date ascending, drops duplicate dates keeping
// the most recently fetched row, and enforces the trading-calendar gap
// tolerance and the minimum history length. On rejection the returned
// skip carries the reason; the bars are then nil.
func Validate(symbol string, bars []model.Bar, minHistoryDays, maxGapDays int) ([]model.Bar, *model.Skip) {
	if len(bars) < minHistoryDays {
		return nil, &model.Skip{
			Symbol: symbol,
			Reason: model.SkipInsufficientHistory,
			Detail: fmt.Sprintf("%d of %d required trading days", len(bars), minHistoryDays),
		}
	}

	sorted := make([]model.Bar, len(bars))
	copy(sorted, bars)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date.Before(sorted[j].Date)
	})

	// Dedupe by date, preferring the newer fetch.
	out := sorted[:0]
	for _, b := range sorted {
		b.Date = model.Day(b.Date)
		if n := len(out); n > 0 && out[n-1].Date.Equal(b.Date) {
			if !b.FetchedAt.Before(out[n-1].FetchedAt) {
				out[n-1] = b
			}
			continue
		}
		out = append(out, b)
	}

	// Holidays are legitimate gaps; multi-week absences are not.
	for i := 1; i < len(out); i++ {
		gap := int(out[i].Date.Sub(out[i-1].Date).Hours() / 24)
		if gap > maxGapDays {
			return nil, &model.Skip{
				Symbol: symbol,
				Reason: model.SkipValidationGap,
				Detail: fmt.Sprintf("%d-day gap between %s and %s", gap,
					out[i-1].Date.Format(model.DateKey), out[i].Date.Format(model.DateKey)),
			}
		}
	}

	if len(out) < minHistoryDays {
		return nil, &model.Skip{
			Symbol: symbol,
			Reason: model.SkipInsufficientHistory,
			Detail: fmt.Sprintf("%d of %d required trading days", len(out), minHistoryDays),
		}
	}
	return out, nil
}
