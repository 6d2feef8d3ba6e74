package engine

import (
	"context"

	"rsibacktester/internal/indicator"
	"rsibacktester/types"
)

type dataSource interface {
	Bars(ctx context.Context) ([]types.Bar, error)
}

type strategy interface {
	RSIPeriod() int
	// Decide returns at most one request for the bar. pending is the order
	// still waiting for a fill, if any; view is read-only.
	Decide(bar types.Bar, rsi indicator.Reading, view types.PortfolioView, pending *types.Order) *types.OrderRequest
}
