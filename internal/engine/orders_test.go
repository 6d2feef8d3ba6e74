package engine

import (
	"errors"
	"strings"
	"testing"

	"rsibacktester/internal/journal"
	"rsibacktester/types"

	"github.com/shopspring/decimal"
)

func newTestOrderManager(cash string, timing types.FillTiming, commission string) (*orderManager, *journal.Journal) {
	j := journal.New(nil)
	p := newPortfolio(decimal.RequireFromString(cash))
	return newOrderManager(NewExecutionConfig(timing), decimal.RequireFromString(commission), p, j), j
}

func TestOrderManager_SubmitTransitions(t *testing.T) {
	bar := mockBars(10)[0]
	tests := []struct {
		name       string
		timing     types.FillTiming
		position   string
		req        *types.OrderRequest
		wantStatus types.OrderStatus
		wantErr    bool
		wantKinds  []journal.Kind
	}{
		{
			name:       "on close buy completes in bar",
			timing:     types.FillOnClose,
			req:        buyReq("2"),
			wantStatus: types.OrderCompleted,
			wantKinds:  []journal.Kind{journal.OrderCreated, journal.OrderSubmitted, journal.OrderAccepted, journal.OrderCompleted},
		},
		{
			name:       "on next open buy waits accepted",
			timing:     types.FillOnNextOpen,
			req:        buyReq("2"),
			wantStatus: types.OrderAccepted,
			wantKinds:  []journal.Kind{journal.OrderCreated, journal.OrderSubmitted, journal.OrderAccepted},
		},
		{
			name:       "buy beyond cash is rejected",
			timing:     types.FillOnClose,
			req:        buyReq("11"),
			wantStatus: types.OrderRejected,
			wantErr:    true,
			wantKinds:  []journal.Kind{journal.OrderCreated, journal.OrderSubmitted, journal.OrderRejected},
		},
		{
			name:       "sell without position is rejected",
			timing:     types.FillOnClose,
			req:        sellReq("1"),
			wantStatus: types.OrderRejected,
			wantKinds:  []journal.Kind{journal.OrderCreated, journal.OrderSubmitted, journal.OrderRejected},
		},
		{
			name:       "zero size is rejected",
			timing:     types.FillOnClose,
			req:        buyReq("0"),
			wantStatus: types.OrderRejected,
			wantKinds:  []journal.Kind{journal.OrderCreated, journal.OrderSubmitted, journal.OrderRejected},
		},
		{
			name:       "unknown side is rejected",
			timing:     types.FillOnClose,
			req:        types.NewOrderRequest(types.Side("HOLD"), decimal.NewFromInt(1), "bad"),
			wantStatus: types.OrderRejected,
			wantKinds:  []journal.Kind{journal.OrderCreated, journal.OrderSubmitted, journal.OrderRejected},
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			m, j := newTestOrderManager("100", tc.timing, "0")
			order, err := m.submit(tc.req, bar, 0)

			var cashErr *types.InsufficientCashError
			if tc.wantErr != errors.As(err, &cashErr) {
				t.Fatalf("submit() err = %v, want insufficient cash %v", err, tc.wantErr)
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("submit() err = %v", err)
			}
			if order.Status != tc.wantStatus {
				t.Errorf("status = %s, want %s", order.Status, tc.wantStatus)
			}

			events := j.Events()
			if len(events) != len(tc.wantKinds) {
				t.Fatalf("events = %d, want %d", len(events), len(tc.wantKinds))
			}
			for i, k := range tc.wantKinds {
				if events[i].Kind != k {
					t.Errorf("event %d kind = %s, want %s", i, events[i].Kind, k)
				}
			}

			wantPending := tc.wantStatus == types.OrderAccepted
			if (m.pending != nil) != wantPending {
				t.Errorf("pending = %v, want pending %v", m.pending, wantPending)
			}
		})
	}
}

func TestOrderManager_InsufficientCashCarriesAmounts(t *testing.T) {
	m, _ := newTestOrderManager("100", types.FillOnClose, "0.01")
	_, err := m.submit(buyReq("10"), mockBars(10)[0], 0)

	var cashErr *types.InsufficientCashError
	if !errors.As(err, &cashErr) {
		t.Fatalf("submit() err = %v, want InsufficientCashError", err)
	}
	// 10 * 10 plus 1% commission
	if !cashErr.Required.Equal(decimal.NewFromInt(101)) || !cashErr.Available.Equal(decimal.NewFromInt(100)) {
		t.Errorf("error = %+v, want required 101 available 100", cashErr)
	}
	if m.pending != nil || !m.portfolio.cash.Equal(decimal.NewFromInt(100)) {
		t.Errorf("rejected order left state behind")
	}
}

func TestOrderManager_InsufficientCashMessageKeepsPrecision(t *testing.T) {
	m, _ := newTestOrderManager("100", types.FillOnClose, "0")
	_, err := m.submit(buyReq("10.0001"), mockBars(10)[0], 0)

	var cashErr *types.InsufficientCashError
	if !errors.As(err, &cashErr) {
		t.Fatalf("submit() err = %v, want InsufficientCashError", err)
	}
	if want := "required 100.001, available 100"; !strings.Contains(err.Error(), want) {
		t.Errorf("error = %q, want it to contain %q", err.Error(), want)
	}
}

func TestOrderManager_SecondSubmitWhilePendingIsInvariantViolation(t *testing.T) {
	m, _ := newTestOrderManager("100", types.FillOnNextOpen, "0")
	bar := mockBars(10)[0]
	if _, err := m.submit(buyReq("1"), bar, 0); err != nil {
		t.Fatalf("first submit() err = %v", err)
	}

	_, err := m.submit(buyReq("1"), bar, 0)
	var iv *types.InvariantViolation
	if !errors.As(err, &iv) {
		t.Fatalf("second submit() err = %v, want InvariantViolation", err)
	}
	if !strings.Contains(iv.Error(), "at most one order") {
		t.Errorf("violation = %q", iv.Error())
	}
}

func TestOrderManager_ResolveUnderOnCloseIsInvariantViolation(t *testing.T) {
	m, _ := newTestOrderManager("100", types.FillOnClose, "0")
	m.pending = &types.Order{ID: 7, Side: types.SideTypeBuy, Size: decimal.NewFromInt(1), Status: types.OrderAccepted}

	err := m.resolve(mockBars(10)[0], 3)
	var iv *types.InvariantViolation
	if !errors.As(err, &iv) || iv.Bar != 3 {
		t.Fatalf("resolve() err = %v, want InvariantViolation at bar 3", err)
	}
}

func TestOrderManager_ExecuteRequiresPendingAcceptedOrder(t *testing.T) {
	m, _ := newTestOrderManager("100", types.FillOnNextOpen, "0")
	bar := mockBars(10)[0]

	stray := &types.Order{ID: 1, Side: types.SideTypeBuy, Size: decimal.NewFromInt(1), Status: types.OrderAccepted}
	var iv *types.InvariantViolation
	if err := m.execute(stray, bar.Close, bar, 0); !errors.As(err, &iv) {
		t.Fatalf("execute(stray) err = %v, want InvariantViolation", err)
	}

	submitted := &types.Order{ID: 2, Side: types.SideTypeBuy, Size: decimal.NewFromInt(1), Status: types.OrderSubmitted}
	m.pending = submitted
	if err := m.execute(submitted, bar.Close, bar, 0); !errors.As(err, &iv) {
		t.Fatalf("execute(submitted) err = %v, want InvariantViolation", err)
	}
}

func TestOrderManager_RoundTripBuildsTrade(t *testing.T) {
	m, j := newTestOrderManager("1000", types.FillOnClose, "0.001")
	bars := mockBars(100, 110, 120)

	if _, err := m.submit(buyReq("2"), bars[0], 0); err != nil {
		t.Fatalf("buy err = %v", err)
	}
	if _, err := m.submit(buyReq("1"), bars[1], 1); err != nil {
		t.Fatalf("scale-in err = %v", err)
	}
	if _, err := m.submit(sellReq("3"), bars[2], 2); err != nil {
		t.Fatalf("sell err = %v", err)
	}

	trades := m.closedTrades()
	if len(trades) != 1 {
		t.Fatalf("trades = %d, want 1", len(trades))
	}
	tr := trades[0]

	// avg entry (200 + 110) / 3, exit 120
	wantEntry := decimal.NewFromInt(310).Div(decimal.NewFromInt(3))
	wantGross := decimal.NewFromInt(120).Sub(wantEntry).Mul(decimal.NewFromInt(3))
	wantCommission := decimal.RequireFromString("0.2").Add(decimal.RequireFromString("0.11")).Add(decimal.RequireFromString("0.36"))
	if !tr.EntryPrice.Equal(wantEntry) {
		t.Errorf("entry price = %s, want %s", tr.EntryPrice, wantEntry)
	}
	if !tr.GrossPnL.Equal(wantGross) {
		t.Errorf("gross = %s, want %s", tr.GrossPnL, wantGross)
	}
	if !tr.Commission.Equal(wantCommission) || !tr.NetPnL.Equal(wantGross.Sub(wantCommission)) {
		t.Errorf("commission/net = %s/%s, want %s/%s", tr.Commission, tr.NetPnL, wantCommission, wantGross.Sub(wantCommission))
	}
	if !tr.Size.Equal(decimal.NewFromInt(3)) || tr.EntryOrderID != 1 || tr.ExitOrderID != 3 || tr.OpenedBar != 0 || tr.ClosedBar != 2 {
		t.Errorf("trade = %+v", tr)
	}

	if m.completedCount() != 3 {
		t.Errorf("completed = %d, want 3", m.completedCount())
	}
	if j.Count(journal.TradeClosed) != 1 {
		t.Errorf("trade closed events = %d, want 1", j.Count(journal.TradeClosed))
	}
	last := j.Events()[j.Len()-1]
	if last.Kind != journal.TradeClosed || !strings.Contains(last.Message, "WINNING TRADE") {
		t.Errorf("last event = %+v", last)
	}
}

func TestOrderManager_CancelPending(t *testing.T) {
	m, j := newTestOrderManager("100", types.FillOnNextOpen, "0")
	bar := mockBars(10)[0]
	if _, err := m.submit(buyReq("1"), bar, 0); err != nil {
		t.Fatalf("submit() err = %v", err)
	}

	m.cancelPending(bar, 0)
	orders := m.orders()
	if len(orders) != 1 || orders[0].Status != types.OrderCanceled {
		t.Fatalf("orders = %+v, want one canceled", orders)
	}
	if m.pending != nil || m.openOrders() != 0 {
		t.Errorf("pending slot not cleared")
	}
	if j.Count(journal.OrderCanceled) != 1 {
		t.Errorf("canceled events = %d, want 1", j.Count(journal.OrderCanceled))
	}

	// no-op when nothing is pending
	m.cancelPending(bar, 0)
	if j.Count(journal.OrderCanceled) != 1 {
		t.Errorf("cancelPending on empty slot recorded an event")
	}
}
