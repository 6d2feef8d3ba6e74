package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderRequest is what a strategy asks for. It becomes an Order once submitted.
type OrderRequest struct {
	Side   Side
	Size   decimal.Decimal
	Reason string
}

func NewOrderRequest(side Side, size decimal.Decimal, reason string) *OrderRequest {
	return &OrderRequest{
		Side:   side,
		Size:   size,
		Reason: reason,
	}
}

type Order struct {
	ID         int
	Side       Side
	Type       OrderType
	Size       decimal.Decimal
	Status     OrderStatus
	Reason     string
	CreatedBar int
	CreatedAt  time.Time
	// Execution is set once the order is Completed.
	Execution    *Fill
	RejectReason string
}

func (o *Order) IsBuy() bool {
	return o.Side == SideTypeBuy
}

func (o *Order) IsSell() bool {
	return o.Side == SideTypeSell
}

type Fill struct {
	Bar        int
	Time       time.Time
	Price      decimal.Decimal
	Size       decimal.Decimal
	Commission decimal.Decimal
}

func NewFill(bar int, time time.Time, price, size, commission decimal.Decimal) Fill {
	return Fill{
		Bar:        bar,
		Time:       time,
		Price:      price,
		Size:       size,
		Commission: commission,
	}
}

// Value is price * size, commission excluded.
func (f Fill) Value() decimal.Decimal {
	return f.Price.Mul(f.Size)
}
