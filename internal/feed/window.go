package feed

import (
	"context"
	"time"

	"rsibacktester/types"
)

type barSource interface {
	Bars(ctx context.Context) ([]types.Bar, error)
}

// Window narrows another source to bars with Start <= timestamp <= End. A
// zero bound is open.
type Window struct {
	Source barSource
	Start  time.Time
	End    time.Time
}

func (w Window) Bars(ctx context.Context) ([]types.Bar, error) {
	bars, err := w.Source.Bars(ctx)
	if err != nil {
		return nil, err
	}
	return Between(bars, w.Start, w.End), nil
}

func Between(bars []types.Bar, start, end time.Time) []types.Bar {
	out := make([]types.Bar, 0, len(bars))
	for _, b := range bars {
		if !start.IsZero() && b.Timestamp.Before(start) {
			continue
		}
		if !end.IsZero() && b.Timestamp.After(end) {
			continue
		}
		out = append(out, b)
	}
	return out
}
