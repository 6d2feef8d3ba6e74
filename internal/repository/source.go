package repository

import (
	"context"
	"fmt"
	"time"

	"rsibacktester/types"
)

type barStore interface {
	GetAssetByTicker(ctx context.Context, ticker string) (*types.Asset, error)
	GetAggregates(ctx context.Context, assetId int, interval types.Interval, start, end time.Time) ([]types.Bar, error)
}

// Source serves one ticker's bucketed candles as a bar series.
type Source struct {
	db       barStore
	ticker   string
	interval types.Interval
	start    time.Time
	end      time.Time
}

func NewSource(db *Database, ticker string, interval types.Interval, start, end time.Time) *Source {
	return &Source{
		db:       db,
		ticker:   ticker,
		interval: interval,
		start:    start,
		end:      end,
	}
}

func (s *Source) Bars(ctx context.Context) ([]types.Bar, error) {
	asset, err := s.db.GetAssetByTicker(ctx, s.ticker)
	if err != nil {
		return nil, err
	}
	bars, err := s.db.GetAggregates(ctx, asset.Id, s.interval, s.start, s.end)
	if err != nil {
		return nil, fmt.Errorf("candles for %s: %w", s.ticker, err)
	}
	return bars, nil
}
