package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"rsibacktester/types"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

var testInterval = types.OneMinute
var startTime = time.UnixMilli(0).UTC()
var endTime = startTime.Add(time.Minute * 5)

type mockCandlesRepository struct {
	sqlError error
	lastArgs *aggregateParams
	inserted *[]candleRow
}

func TestDatabase_GetAggregates(t *testing.T) {
	type args struct {
		assetId  int
		interval types.Interval
		start    time.Time
		end      time.Time
	}
	tests := []struct {
		name    string
		args    args
		want    []types.Bar
		sqlErr  error
		wantErr error
	}{
		{"should throw ErrNoCandles on empty range", args{999, testInterval, startTime, startTime}, nil, nil, ErrNoCandles},
		{"should throw ErrNoCandles on no rows", args{999, testInterval, startTime, endTime}, nil, pgx.ErrNoRows, ErrNoCandles},
		{"should throw ErrIntervalNotSupported", args{999, types.Interval("M"), startTime, endTime}, nil, nil, ErrIntervalNotSupported},
		{"should return candles", args{999, testInterval, startTime, endTime}, mockBars(startTime, endTime), nil, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var seen aggregateParams
			db := &Database{
				candles: mockCandlesRepository{
					sqlError: tt.sqlErr,
					lastArgs: &seen,
				},
			}
			got, err := db.GetAggregates(context.Background(), tt.args.assetId, tt.args.interval, tt.args.start, tt.args.end)

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("GetAggregates() error = %v, wantErr %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("GetAggregates() error = %v", err)
			}
			if seen.TimeBucket != "1 minute" || seen.AssetID != int32(tt.args.assetId) {
				t.Errorf("GetAggregates() args = %+v", seen)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("GetAggregates() len = %d, want %d", len(got), len(tt.want))
			}
			for i := 0; i < len(tt.want); i++ {
				if !got[i].Timestamp.Equal(tt.want[i].Timestamp) {
					t.Errorf("GetAggregates() %d timestamp got = %v, want %v", i, got[i].Timestamp, tt.want[i].Timestamp)
					break
				}
				if !got[i].High.Equal(tt.want[i].High) {
					t.Errorf("GetAggregates() %s high got = %v, want %v", got[i].Timestamp, got[i].High, tt.want[i].High)
					break
				}
			}
		})
	}
}

func TestDatabase_InsertBars(t *testing.T) {
	var inserted []candleRow
	db := &Database{candles: mockCandlesRepository{inserted: &inserted}}

	bars := mockBars(startTime, endTime)
	n, err := db.InsertBars(context.Background(), 7, bars)
	if err != nil {
		t.Fatalf("InsertBars() error = %v", err)
	}
	if n != int64(len(bars)) || len(inserted) != len(bars) {
		t.Fatalf("InsertBars() = %d rows, inserted %d, want %d", n, len(inserted), len(bars))
	}
	if inserted[0].AssetID != 7 || !inserted[2].Close.Equal(bars[2].Close) {
		t.Errorf("inserted rows = %+v", inserted[:3])
	}
}

func (m mockCandlesRepository) GetAggregates(_ context.Context, arg aggregateParams) ([]aggregateRow, error) {
	if m.lastArgs != nil {
		*m.lastArgs = arg
	}
	if m.sqlError != nil {
		return []aggregateRow{}, m.sqlError
	}
	var candles []aggregateRow
	i := arg.Start
	for i.Before(arg.End) {
		candles = append(candles, aggregateRow{
			Bucket:  i,
			AssetID: arg.AssetID,
			Open:    decimal.NewFromInt(i.UnixMilli()),
			High:    decimal.NewFromInt(i.UnixMilli()),
			Low:     decimal.NewFromInt(i.UnixMilli()),
			Close:   decimal.NewFromInt(i.UnixMilli()),
			Volume:  decimal.NewFromInt(i.UnixMilli()),
		})
		i = i.Add(types.IntervalToTime[testInterval])
	}
	return candles, nil
}

func (m mockCandlesRepository) InsertCandles(_ context.Context, rows []candleRow) (int64, error) {
	if m.sqlError != nil {
		return 0, m.sqlError
	}
	if m.inserted != nil {
		*m.inserted = append(*m.inserted, rows...)
	}
	return int64(len(rows)), nil
}

func mockBars(start, end time.Time) []types.Bar {
	var bars []types.Bar
	i := start
	for i.Before(end) {
		v := decimal.NewFromInt(i.UnixMilli())
		bars = append(bars, types.NewBar(i, v, v, v, v, v))
		i = i.Add(types.IntervalToTime[testInterval])
	}
	return bars
}
