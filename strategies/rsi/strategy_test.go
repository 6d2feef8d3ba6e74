package rsi

import (
	"errors"
	"testing"
	"time"

	"rsibacktester/internal/indicator"
	"rsibacktester/types"

	"github.com/shopspring/decimal"
)

func barAt(closePrice string) types.Bar {
	c := decimal.RequireFromString(closePrice)
	return types.NewBar(time.UnixMilli(0), c, c, c, c, decimal.NewFromInt(1))
}

func flatView(cash string) types.PortfolioView {
	return types.PortfolioView{Cash: decimal.RequireFromString(cash)}
}

func longView(cash, size string) types.PortfolioView {
	v := flatView(cash)
	v.Position = types.Position{Size: decimal.RequireFromString(size), AvgPrice: decimal.NewFromInt(10)}
	return v
}

func ready(v float64) indicator.Reading {
	return indicator.Reading{Value: v, Ready: true}
}

func TestStrategyDecide(t *testing.T) {
	tests := []struct {
		name     string
		bar      types.Bar
		rsi      indicator.Reading
		view     types.PortfolioView
		pending  *types.Order
		wantSide types.Side
		wantSize string
	}{
		{
			name:     "oversold and flat buys target cash",
			bar:      barAt("50"),
			rsi:      ready(25),
			view:     flatView("1000"),
			wantSide: types.SideTypeBuy,
			wantSize: "2",
		},
		{
			name:     "small cash still yields fractional size",
			bar:      barAt("1000"),
			rsi:      ready(10),
			view:     flatView("5"),
			wantSide: types.SideTypeBuy,
			wantSize: "0.0005",
		},
		{
			name: "oversold while long holds",
			bar:  barAt("50"),
			rsi:  ready(25),
			view: longView("900", "2"),
		},
		{
			name:     "overbought while long sells everything",
			bar:      barAt("80"),
			rsi:      ready(75),
			view:     longView("900", "2.5"),
			wantSide: types.SideTypeSell,
			wantSize: "2.5",
		},
		{
			name: "overbought while flat holds",
			bar:  barAt("80"),
			rsi:  ready(75),
			view: flatView("1000"),
		},
		{
			name: "thresholds are strict",
			bar:  barAt("80"),
			rsi:  ready(30),
			view: flatView("1000"),
		},
		{
			name: "cold start never trades",
			bar:  barAt("50"),
			rsi:  indicator.Reading{Value: 0, Ready: false},
			view: flatView("1000"),
		},
		{
			name:    "pending order blocks new requests",
			bar:     barAt("50"),
			rsi:     ready(5),
			view:    flatView("1000"),
			pending: &types.Order{ID: 1, Status: types.OrderAccepted},
		},
		{
			name: "no cash no order",
			bar:  barAt("50"),
			rsi:  ready(5),
			view: flatView("0"),
		},
	}

	s, err := NewStrategy(DefaultParams())
	if err != nil {
		t.Fatalf("NewStrategy() err = %v", err)
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			got := s.Decide(tc.bar, tc.rsi, tc.view, tc.pending)
			if tc.wantSide == "" {
				if got != nil {
					t.Fatalf("Decide() = %+v, want nil", got)
				}
				return
			}
			if got == nil {
				t.Fatalf("Decide() = nil, want %s %s", tc.wantSide, tc.wantSize)
			}
			if got.Side != tc.wantSide || !got.Size.Equal(decimal.RequireFromString(tc.wantSize)) {
				t.Errorf("Decide() = %s %s, want %s %s", got.Side, got.Size, tc.wantSide, tc.wantSize)
			}
			if got.Reason == "" {
				t.Errorf("request has no reason")
			}
		})
	}
}

func TestParamsValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(p *Params)
		wantErr bool
	}{
		{"defaults", func(p *Params) {}, false},
		{"period too small", func(p *Params) { p.RSIPeriod = 1 }, true},
		{"oversold above overbought", func(p *Params) { p.Oversold = 80 }, true},
		{"overbought above 100", func(p *Params) { p.Overbought = 101 }, true},
		{"zero target", func(p *Params) { p.TargetPercentage = decimal.Zero }, true},
		{"target above one", func(p *Params) { p.TargetPercentage = decimal.RequireFromString("1.5") }, true},
		{"full target", func(p *Params) { p.TargetPercentage = decimal.NewFromInt(1) }, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p := DefaultParams()
			tc.mutate(&p)
			_, err := NewStrategy(p)
			if got := errors.Is(err, ErrInvalidParams); got != tc.wantErr {
				t.Errorf("NewStrategy() err = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func TestTargetSizer(t *testing.T) {
	sizer := NewTargetSizer(decimal.RequireFromString("0.1"))

	size, ok := sizer.Size(decimal.NewFromInt(30), decimal.NewFromInt(1000))
	if !ok || !size.Equal(decimal.RequireFromString("3.3333333333333333")) {
		t.Errorf("Size() = %s %v, want 3.3333333333333333", size, ok)
	}
	if _, ok := sizer.Size(decimal.Zero, decimal.NewFromInt(1000)); ok {
		t.Errorf("Size() at zero price should fail")
	}
	if _, ok := sizer.Size(decimal.NewFromInt(10), decimal.NewFromInt(-5)); ok {
		t.Errorf("Size() with negative cash should fail")
	}
	if got := sizer.TargetCash(decimal.NewFromInt(250)); !got.Equal(decimal.NewFromInt(25)) {
		t.Errorf("TargetCash() = %s, want 25", got)
	}
}

func TestTargetSizer_FullTargetStaysWithinCash(t *testing.T) {
	sizer := NewTargetSizer(decimal.NewFromInt(1))
	cash := decimal.NewFromInt(1000)

	for _, p := range []string{"6", "7", "3", "29.7", "0.0003"} {
		price := decimal.RequireFromString(p)
		size, ok := sizer.Size(price, cash)
		if !ok {
			t.Fatalf("Size(%s) ok = false", p)
		}
		if size.Mul(price).GreaterThan(cash) {
			t.Errorf("Size(%s) = %s costs %s, more than cash %s", p, size, size.Mul(price), cash)
		}
	}

	size, _ := sizer.Size(decimal.NewFromInt(6), cash)
	if !size.Equal(decimal.RequireFromString("166.6666666666666666")) {
		t.Errorf("Size(6) = %s, want 166.6666666666666666", size)
	}
}
