package feed

import (
	"context"
	"errors"
	"testing"
	"time"

	"rsibacktester/types"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticSource struct {
	bars []types.Bar
	err  error
}

func (s staticSource) Bars(context.Context) ([]types.Bar, error) {
	return s.bars, s.err
}

func dailyBars(n int) []types.Bar {
	one := decimal.NewFromInt(1)
	bars := make([]types.Bar, n)
	for i := range bars {
		bars[i] = types.NewBar(time.Date(2024, 1, 1+i, 0, 0, 0, 0, time.UTC), one, one, one, one, one)
	}
	return bars
}

func TestWindow(t *testing.T) {
	bars := dailyBars(10)
	tests := []struct {
		name       string
		start, end time.Time
		want       int
	}{
		{"open both ends", time.Time{}, time.Time{}, 10},
		{"start only", time.Date(2024, 1, 4, 0, 0, 0, 0, time.UTC), time.Time{}, 7},
		{"end only, inclusive", time.Time{}, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), 2},
		{"both", time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC), time.Date(2024, 1, 5, 12, 0, 0, 0, time.UTC), 3},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Window{Source: staticSource{bars: bars}, Start: tc.start, End: tc.end}.Bars(context.Background())
			require.NoError(t, err)
			assert.Len(t, got, tc.want)
		})
	}
}

func TestWindow_PropagatesError(t *testing.T) {
	boom := errors.New("boom")
	_, err := Window{Source: staticSource{err: boom}}.Bars(context.Background())
	assert.ErrorIs(t, err, boom)
}
