package types

import "fmt"

type Side string

type OrderType string

type OrderStatus string

type FillTiming string

const (
	OrderSubmitted OrderStatus = "ORDER_SUBMITTED"
	OrderAccepted  OrderStatus = "ORDER_ACCEPTED"
	OrderCompleted OrderStatus = "ORDER_COMPLETED"
	OrderCanceled  OrderStatus = "ORDER_CANCELED"
	OrderMargin    OrderStatus = "ORDER_MARGIN"
	OrderRejected  OrderStatus = "ORDER_REJECTED"

	SideTypeBuy  Side = "BUY"
	SideTypeSell Side = "SELL"

	TypeMarket OrderType = "MARKET"

	// FillOnClose fills a market order at the close of the bar it was submitted on.
	FillOnClose FillTiming = "on_close"
	// FillOnNextOpen fills a market order at the open of the following bar.
	FillOnNextOpen FillTiming = "on_next_open"
)

// Terminal reports whether no further transition is possible from s.
func (s OrderStatus) Terminal() bool {
	switch s {
	case OrderCompleted, OrderCanceled, OrderMargin, OrderRejected:
		return true
	}
	return false
}

func ParseFillTiming(s string) (FillTiming, error) {
	switch FillTiming(s) {
	case FillOnClose, "":
		return FillOnClose, nil
	case FillOnNextOpen:
		return FillOnNextOpen, nil
	}
	return "", fmt.Errorf("unknown fill timing %q", s)
}
