package engine

import (
	"context"

	"rsibacktester/types"

	"github.com/shopspring/decimal"
)

// StaticFeed serves bars already held in memory.
type StaticFeed []types.Bar

func (f StaticFeed) Bars(_ context.Context) ([]types.Bar, error) {
	return f, nil
}

// validateBars rejects a series the replay cannot trust: non-positive prices,
// negative volume, an open or close outside [low, high], or timestamps that do
// not strictly increase.
func validateBars(bars []types.Bar) error {
	for i, bar := range bars {
		row := i + 1
		if bar.Timestamp.IsZero() {
			return &types.DataFormatError{Row: row, Field: "timestamp", Reason: "missing"}
		}
		prices := []struct {
			field string
			value bool
		}{
			{"open", bar.Open.IsPositive()},
			{"high", bar.High.IsPositive()},
			{"low", bar.Low.IsPositive()},
			{"close", bar.Close.IsPositive()},
		}
		for _, p := range prices {
			if !p.value {
				return &types.DataFormatError{Row: row, Field: p.field, Reason: "price must be positive"}
			}
		}
		if bar.Volume.IsNegative() {
			return &types.DataFormatError{Row: row, Field: "volume", Reason: "volume must not be negative"}
		}
		if bar.High.LessThan(bar.Low) {
			return &types.DataFormatError{Row: row, Field: "high", Reason: "high is below low"}
		}
		if bar.High.LessThan(decimal.Max(bar.Open, bar.Close)) {
			return &types.DataFormatError{Row: row, Field: "high", Reason: "high is below open or close"}
		}
		if bar.Low.GreaterThan(decimal.Min(bar.Open, bar.Close)) {
			return &types.DataFormatError{Row: row, Field: "low", Reason: "low is above open or close"}
		}
		if i > 0 && !bar.Timestamp.After(bars[i-1].Timestamp) {
			return &types.DataFormatError{Row: row, Field: "timestamp", Reason: "timestamps must strictly increase"}
		}
	}
	return nil
}
