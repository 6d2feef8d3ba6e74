package repository

import (
	"context"
	"errors"
	"time"

	"rsibacktester/types"

	"github.com/jackc/pgx/v5"
)

var bucketToInterval = map[types.Interval]string{
	types.OneMinute:     "1 minute",
	types.FiveMinutes:   "5 minutes",
	types.ThirtyMinutes: "30 minutes",
	types.Hour:          "1 hour",
	types.FourHours:     "4 hours",
	types.Day:           "1 day",
	types.Week:          "1 week",
}

// GetAggregates returns the asset's candles bucketed to interval, oldest first,
// for timestamps in [start, end).
func (db *Database) GetAggregates(ctx context.Context, assetId int, interval types.Interval, start, end time.Time) ([]types.Bar, error) {
	bucket, ok := bucketToInterval[interval]
	if !ok {
		return nil, ErrIntervalNotSupported
	}
	args := aggregateParams{
		TimeBucket: bucket,
		AssetID:    int32(assetId),
		Start:      start,
		End:        end,
	}
	candles, err := db.candles.GetAggregates(ctx, args)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNoCandles
		}
		return nil, err
	}
	if len(candles) == 0 {
		return nil, ErrNoCandles
	}
	return convertCandles(candles), nil
}

// InsertBars stores raw bars for an asset.
func (db *Database) InsertBars(ctx context.Context, assetId int, bars []types.Bar) (int64, error) {
	rows := make([]candleRow, 0, len(bars))
	for _, b := range bars {
		rows = append(rows, candleRow{
			AssetID:   int32(assetId),
			Timestamp: b.Timestamp,
			Open:      b.Open,
			High:      b.High,
			Low:       b.Low,
			Close:     b.Close,
			Volume:    b.Volume,
		})
	}
	return db.candles.InsertCandles(ctx, rows)
}

func convertCandles(candleDAOs []aggregateRow) []types.Bar {
	bars := make([]types.Bar, 0, len(candleDAOs))
	for _, dao := range candleDAOs {
		bars = append(bars, types.NewBar(dao.Bucket.UTC(), dao.Open, dao.High, dao.Low, dao.Close, dao.Volume))
	}
	return bars
}
