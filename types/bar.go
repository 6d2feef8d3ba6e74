package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// Bar is one OHLCV observation. Bars are immutable once ingested.
type Bar struct {
	Timestamp time.Time       `json:"timestamp"`
	Open      decimal.Decimal `json:"open"`
	High      decimal.Decimal `json:"high"`
	Low       decimal.Decimal `json:"low"`
	Close     decimal.Decimal `json:"close"`
	Volume    decimal.Decimal `json:"volume"`
}

func NewBar(ts time.Time, open, high, low, close, volume decimal.Decimal) Bar {
	return Bar{
		Timestamp: ts,
		Open:      open,
		High:      high,
		Low:       low,
		Close:     close,
		Volume:    volume,
	}
}
