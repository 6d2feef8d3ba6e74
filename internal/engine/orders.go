package engine

import (
	"fmt"

	"rsibacktester/internal/journal"
	"rsibacktester/types"

	"github.com/shopspring/decimal"
)

// openLeg accumulates what a round trip has cost so far, from the fill that
// took the position off flat until the fill that brings it back.
type openLeg struct {
	entryOrderID int
	bar          int
	fill         types.Fill
	size         decimal.Decimal
	realized     decimal.Decimal
	commission   decimal.Decimal
}

// orderManager owns the order lifecycle. At most one order is ever outside a
// terminal state and it lives in the pending slot.
type orderManager struct {
	fillTiming types.FillTiming
	commission decimal.Decimal
	portfolio  *portfolio
	journal    *journal.Journal

	nextID  int
	pending *types.Order
	archive []*types.Order
	trades  []types.Trade
	leg     *openLeg
}

func newOrderManager(execution *ExecutionConfig, commission decimal.Decimal, p *portfolio, j *journal.Journal) *orderManager {
	return &orderManager{
		fillTiming: execution.fillTiming,
		commission: commission,
		portfolio:  p,
		journal:    j,
		nextID:     1,
	}
}

func (m *orderManager) commissionFor(size, price decimal.Decimal) decimal.Decimal {
	return size.Mul(price).Mul(m.commission)
}

func (m *orderManager) openOrders() int {
	if m.pending != nil {
		return 1
	}
	return 0
}

// submit turns a strategy request into an order. Buys the ledger cannot pay
// for at the bar's close are rejected synchronously with an
// *types.InsufficientCashError and never reach the pending slot. On close
// fills happen before submit returns; on next open the order waits in the slot.
func (m *orderManager) submit(req *types.OrderRequest, bar types.Bar, idx int) (*types.Order, error) {
	if m.pending != nil {
		return nil, &types.InvariantViolation{
			Invariant: fmt.Sprintf("at most one order may be outstanding: order %d is still %s", m.pending.ID, m.pending.Status),
			Bar:       idx,
		}
	}

	order := &types.Order{
		ID:         m.nextID,
		Side:       req.Side,
		Type:       types.TypeMarket,
		Size:       req.Size,
		Status:     types.OrderSubmitted,
		Reason:     req.Reason,
		CreatedBar: idx,
		CreatedAt:  bar.Timestamp,
	}
	m.nextID++
	m.record(journal.OrderCreated, order, bar, idx, bar.Close, fmt.Sprintf("%s CREATE, %s", order.Side, bar.Close.StringFixed(2)))
	m.record(journal.OrderSubmitted, order, bar, idx, decimal.Zero, fmt.Sprintf("order %d submitted: %s", order.ID, order.Reason))

	switch {
	case order.Side != types.SideTypeBuy && order.Side != types.SideTypeSell:
		m.reject(order, bar, idx, fmt.Sprintf("unknown side %q", order.Side))
		return order, nil
	case !order.Size.IsPositive():
		m.reject(order, bar, idx, "size must be positive")
		return order, nil
	case order.IsSell() && order.Size.GreaterThan(m.portfolio.position.Size):
		m.reject(order, bar, idx, "short selling is not supported")
		return order, nil
	}

	if order.IsBuy() {
		required := order.Size.Mul(bar.Close).Add(m.commissionFor(order.Size, bar.Close))
		if required.GreaterThan(m.portfolio.cash) {
			err := &types.InsufficientCashError{OrderID: order.ID, Required: required, Available: m.portfolio.cash}
			m.reject(order, bar, idx, err.Error())
			return order, err
		}
	}

	order.Status = types.OrderAccepted
	m.record(journal.OrderAccepted, order, bar, idx, decimal.Zero, fmt.Sprintf("order %d accepted", order.ID))
	m.pending = order

	if m.fillTiming == types.FillOnClose {
		return order, m.execute(order, bar.Close, bar, idx)
	}
	return order, nil
}

// resolve fills the pending order, if any, against bar. Only on next open
// orders survive into a later bar.
func (m *orderManager) resolve(bar types.Bar, idx int) error {
	if m.pending == nil {
		return nil
	}
	if m.fillTiming != types.FillOnNextOpen {
		return &types.InvariantViolation{
			Invariant: fmt.Sprintf("order %d survived its bar under %s fills", m.pending.ID, m.fillTiming),
			Bar:       idx,
		}
	}
	return m.execute(m.pending, bar.Open, bar, idx)
}

func (m *orderManager) execute(order *types.Order, price decimal.Decimal, bar types.Bar, idx int) error {
	if order == nil || order != m.pending {
		return &types.InvariantViolation{Invariant: "fill against an order that is not pending", Bar: idx}
	}
	if order.Status != types.OrderAccepted {
		return &types.InvariantViolation{
			Invariant: fmt.Sprintf("fill requires an accepted order: order %d is %s", order.ID, order.Status),
			Bar:       idx,
		}
	}

	commission := m.commissionFor(order.Size, price)
	if order.IsBuy() {
		cost := order.Size.Mul(price).Add(commission)
		if cost.GreaterThan(m.portfolio.cash) {
			order.Status = types.OrderMargin
			order.RejectReason = fmt.Sprintf("cash %s cannot cover %s at fill", m.portfolio.cash.StringFixed(2), cost.StringFixed(2))
			m.finish(order)
			m.record(journal.OrderMargin, order, bar, idx, price, "Order Canceled/Margin/Rejected: "+order.RejectReason)
			return nil
		}
	}

	wasFlat := m.portfolio.position.IsFlat()
	entryPrice := m.portfolio.position.AvgPrice
	fill := types.NewFill(idx, bar.Timestamp, price, order.Size, commission)
	realized, err := m.portfolio.applyFill(order.Side, fill)
	if err != nil {
		return &types.InvariantViolation{
			Invariant: fmt.Sprintf("ledger refused fill of order %d: %v", order.ID, err),
			Bar:       idx,
		}
	}

	order.Status = types.OrderCompleted
	order.Execution = &fill
	m.finish(order)
	m.record(journal.OrderCompleted, order, bar, idx, price, fmt.Sprintf("%s EXECUTED, %s", order.Side, price.StringFixed(2)))

	m.trackLeg(order, fill, wasFlat, entryPrice, realized, bar, idx)
	return nil
}

func (m *orderManager) trackLeg(order *types.Order, fill types.Fill, wasFlat bool, entryPrice, realized decimal.Decimal, bar types.Bar, idx int) {
	if wasFlat {
		m.leg = &openLeg{
			entryOrderID: order.ID,
			bar:          idx,
			fill:         fill,
			size:         fill.Size,
			commission:   fill.Commission,
		}
		return
	}

	m.leg.commission = m.leg.commission.Add(fill.Commission)
	m.leg.realized = m.leg.realized.Add(realized)
	if order.IsBuy() {
		m.leg.size = m.leg.size.Add(fill.Size)
	}
	if !m.portfolio.position.IsFlat() {
		return
	}

	trade := types.Trade{
		ID:           len(m.trades) + 1,
		EntryOrderID: m.leg.entryOrderID,
		ExitOrderID:  order.ID,
		Size:         m.leg.size,
		EntryPrice:   entryPrice,
		ExitPrice:    fill.Price,
		GrossPnL:     m.leg.realized,
		NetPnL:       m.leg.realized.Sub(m.leg.commission),
		Commission:   m.leg.commission,
		OpenedBar:    m.leg.bar,
		ClosedBar:    idx,
		OpenedAt:     m.leg.fill.Time,
		ClosedAt:     fill.Time,
	}
	m.trades = append(m.trades, trade)
	m.leg = nil

	outcome := fmt.Sprintf("WINNING TRADE - PROFIT: %s", trade.GrossPnL.StringFixed(2))
	if !trade.GrossPnL.IsPositive() {
		outcome = fmt.Sprintf("LOSING TRADE - LOSS: %s", trade.GrossPnL.StringFixed(2))
	}
	m.journal.Record(journal.Event{
		Bar:     idx,
		Time:    bar.Timestamp,
		Kind:    journal.TradeClosed,
		TradeID: trade.ID,
		OrderID: order.ID,
		Size:    trade.Size,
		Price:   trade.ExitPrice,
		Gross:   trade.GrossPnL,
		Net:     trade.NetPnL,
		Message: fmt.Sprintf("TRADE CLOSED - GROSS PnL: %s, NET PnL: %s, %s",
			trade.GrossPnL.StringFixed(2), trade.NetPnL.StringFixed(2), outcome),
	})
}

// cancelPending cancels whatever is still waiting when the bars run out.
func (m *orderManager) cancelPending(bar types.Bar, idx int) {
	if m.pending == nil {
		return
	}
	order := m.pending
	order.Status = types.OrderCanceled
	order.RejectReason = "no bar left to fill against"
	m.finish(order)
	m.record(journal.OrderCanceled, order, bar, idx, decimal.Zero, "Order Canceled/Margin/Rejected: "+order.RejectReason)
}

func (m *orderManager) reject(order *types.Order, bar types.Bar, idx int, reason string) {
	order.Status = types.OrderRejected
	order.RejectReason = reason
	m.archive = append(m.archive, order)
	m.record(journal.OrderRejected, order, bar, idx, decimal.Zero, "Order Canceled/Margin/Rejected: "+reason)
}

// finish moves a terminal order from the pending slot to the archive.
func (m *orderManager) finish(order *types.Order) {
	m.archive = append(m.archive, order)
	if m.pending == order {
		m.pending = nil
	}
}

func (m *orderManager) record(kind journal.Kind, order *types.Order, bar types.Bar, idx int, price decimal.Decimal, msg string) {
	m.journal.Record(journal.Event{
		Bar:     idx,
		Time:    bar.Timestamp,
		Kind:    kind,
		OrderID: order.ID,
		Side:    string(order.Side),
		Size:    order.Size,
		Price:   price,
		Message: msg,
	})
}

// orders returns every order in id order, the pending one included.
func (m *orderManager) orders() []types.Order {
	out := make([]types.Order, 0, len(m.archive)+1)
	for _, o := range m.archive {
		out = append(out, *o)
	}
	if m.pending != nil {
		out = append(out, *m.pending)
	}
	return out
}

func (m *orderManager) closedTrades() []types.Trade {
	out := make([]types.Trade, len(m.trades))
	copy(out, m.trades)
	return out
}

func (m *orderManager) completedCount() int {
	n := 0
	for _, o := range m.archive {
		if o.Status == types.OrderCompleted {
			n++
		}
	}
	return n
}
