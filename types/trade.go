package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// Trade is a closed round trip: a position opened from flat and taken back to flat.
type Trade struct {
	ID           int
	EntryOrderID int
	ExitOrderID  int
	Size         decimal.Decimal
	EntryPrice   decimal.Decimal
	ExitPrice    decimal.Decimal
	GrossPnL     decimal.Decimal
	NetPnL       decimal.Decimal
	Commission   decimal.Decimal
	OpenedBar    int
	ClosedBar    int
	OpenedAt     time.Time
	ClosedAt     time.Time
}

func (t Trade) IsWin() bool {
	return t.NetPnL.IsPositive()
}
