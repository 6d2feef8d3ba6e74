package results

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"rsibacktester/internal/engine"
	"rsibacktester/types"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleResult() *engine.Result {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	fill := types.NewFill(3, start.Add(72*time.Hour), decimal.NewFromInt(30), decimal.RequireFromString("3.3333333333333333"), decimal.Zero)
	return &engine.Result{
		StartingValue: decimal.NewFromInt(1000),
		EndingValue:   decimal.RequireFromString("1283.3333333333333305"),
		Start:         start,
		End:           start.Add(40 * 24 * time.Hour),
		BarCount:      41,
		Orders: []types.Order{
			{ID: 1, Side: types.SideTypeBuy, Size: fill.Size, Status: types.OrderCompleted, CreatedBar: 3, Execution: &fill},
			{ID: 2, Side: types.SideTypeBuy, Size: decimal.NewFromInt(100), Status: types.OrderRejected, CreatedBar: 5, RejectReason: "insufficient cash"},
			{ID: 3, Side: types.SideTypeSell, Size: fill.Size, Status: types.OrderCompleted, CreatedBar: 20, Execution: &fill},
		},
		Trades: []types.Trade{{
			ID:           1,
			EntryOrderID: 1,
			ExitOrderID:  3,
			Size:         fill.Size,
			EntryPrice:   decimal.NewFromInt(30),
			ExitPrice:    decimal.NewFromInt(115),
			GrossPnL:     decimal.RequireFromString("283.3333333333333305"),
			NetPnL:       decimal.RequireFromString("283.3333333333333305"),
			Commission:   decimal.Zero,
			OpenedBar:    3,
			ClosedBar:    20,
		}},
	}
}

func TestStore_SaveAndLoad(t *testing.T) {
	ctx := context.Background()
	store, err := Open(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	defer store.Close()

	result := sampleResult()
	id, err := store.SaveRun(ctx, "btc-rsi-14", result)
	require.NoError(t, err)

	run, err := store.GetRun(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "btc-rsi-14", run.Label)
	assert.True(t, run.EndingValue.Equal(result.EndingValue))
	assert.Equal(t, 41, run.BarCount)
	assert.True(t, run.Start.Equal(result.Start))

	trades, err := store.ListTrades(ctx, id)
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.True(t, trades[0].GrossPnL.Equal(result.Trades[0].GrossPnL))
	assert.True(t, trades[0].Size.Equal(result.Trades[0].Size))
	assert.Equal(t, 20, trades[0].ClosedBar)

	completed, err := store.CountOrders(ctx, id, types.OrderCompleted)
	require.NoError(t, err)
	assert.Equal(t, 2, completed)
	rejected, err := store.CountOrders(ctx, id, types.OrderRejected)
	require.NoError(t, err)
	assert.Equal(t, 1, rejected)
}

func TestStore_ListRuns(t *testing.T) {
	ctx := context.Background()
	store, err := Open(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	defer store.Close()

	for _, label := range []string{"first", "second"} {
		_, err := store.SaveRun(ctx, label, sampleResult())
		require.NoError(t, err)
	}

	runs, err := store.ListRuns(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "first", runs[0].Label)
	assert.Equal(t, "second", runs[1].Label)
}

func TestStore_GetRunMissing(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	defer store.Close()

	_, err = store.GetRun(context.Background(), 99)
	assert.True(t, errors.Is(err, ErrRunNotFound))
}
