package engine

import (
	"errors"
	"time"

	"rsibacktester/types"

	"github.com/shopspring/decimal"
)

var UnknownSideErr = errors.New("unknown fill side")
var InsufficientBalanceErr = errors.New("insufficient balance when applying fill")
var ShortSellNotAllowedErr = errors.New("short sell not allowed, sell exceeds position")

// portfolio is the ledger: cash, realized PnL and the single position. Only
// the order manager mutates it, through applyFill.
type portfolio struct {
	cash        decimal.Decimal
	position    types.Position
	realizedPnL decimal.Decimal
	commissions decimal.Decimal
	lastPrice   decimal.Decimal
	// filledSize is the signed sum of every completed fill.
	filledSize decimal.Decimal
	snapshots  []types.PortfolioView
}

func newPortfolio(initialCash decimal.Decimal) *portfolio {
	return &portfolio{
		cash: initialCash,
	}
}

func (p *portfolio) view(bar int, t time.Time, openOrders int) types.PortfolioView {
	return types.PortfolioView{
		Bar:         bar,
		Time:        t,
		Cash:        p.cash,
		RealizedPnL: p.realizedPnL,
		Position:    p.position,
		LastPrice:   p.lastPrice,
		OpenOrders:  openOrders,
	}
}

func (p *portfolio) markPrice(price decimal.Decimal) {
	p.lastPrice = price
}

func (p *portfolio) value() decimal.Decimal {
	return p.cash.Add(p.position.Size.Mul(p.lastPrice))
}

// applyFill books a completed fill and returns the gross PnL realized by the
// quantity it closed. Nothing is mutated when an error is returned.
func (p *portfolio) applyFill(side types.Side, fill types.Fill) (decimal.Decimal, error) {
	quantity := fill.Size
	switch side {
	case types.SideTypeBuy:
	case types.SideTypeSell:
		quantity = quantity.Neg()
	default:
		return decimal.Zero, UnknownSideErr
	}

	oldQty := p.position.Size
	newQty := oldQty.Add(quantity)
	if newQty.IsNegative() {
		return decimal.Zero, ShortSellNotAllowedErr
	}

	cashDelta := fill.Price.Mul(quantity).Neg()
	newCash := p.cash.Add(cashDelta).Sub(fill.Commission)
	if newCash.IsNegative() {
		return decimal.Zero, InsufficientBalanceErr
	}

	realized := decimal.Zero
	switch {
	case oldQty.IsZero():
		p.position = types.Position{Size: newQty, AvgPrice: fill.Price}

	case newQty.IsZero():
		realized = fill.Price.Sub(p.position.AvgPrice).Mul(oldQty)
		p.position = types.Position{}

	case newQty.GreaterThan(oldQty):
		p.position.AvgPrice = weightedAvg(p.position.AvgPrice, oldQty, fill.Price, quantity)
		p.position.Size = newQty

	default:
		// partial reduce, entry price unchanged
		realized = fill.Price.Sub(p.position.AvgPrice).Mul(quantity.Abs())
		p.position.Size = newQty
	}

	p.cash = newCash
	p.realizedPnL = p.realizedPnL.Add(realized)
	p.commissions = p.commissions.Add(fill.Commission)
	p.filledSize = p.filledSize.Add(quantity)
	p.lastPrice = fill.Price
	return realized, nil
}

func weightedAvg(existingAvgPrice, existingQty, newPrice, newQty decimal.Decimal) decimal.Decimal {
	if existingQty.IsZero() {
		return newPrice
	}
	return existingAvgPrice.Mul(existingQty).
		Add(newPrice.Mul(newQty)).
		Div(existingQty.Add(newQty))
}
