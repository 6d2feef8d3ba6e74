package types

import (
	"time"

	"github.com/shopspring/decimal"
)

type Position struct {
	Size     decimal.Decimal
	AvgPrice decimal.Decimal
}

func (p Position) IsFlat() bool {
	return p.Size.IsZero()
}

// PortfolioView is a read-only copy of the ledger at one bar.
type PortfolioView struct {
	Bar         int
	Time        time.Time
	Cash        decimal.Decimal
	RealizedPnL decimal.Decimal
	Position    Position
	LastPrice   decimal.Decimal
	// OpenOrders counts orders in a non-terminal state at snapshot time.
	OpenOrders int
}

// Value marks the position to LastPrice.
func (v PortfolioView) Value() decimal.Decimal {
	return v.Cash.Add(v.Position.Size.Mul(v.LastPrice))
}
