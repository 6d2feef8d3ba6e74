package rsi

import (
	"errors"
	"fmt"

	"rsibacktester/internal/indicator"
	"rsibacktester/types"

	"github.com/shopspring/decimal"
)

var ErrInvalidParams = errors.New("invalid rsi strategy params")

type Params struct {
	RSIPeriod        int
	Oversold         float64
	Overbought       float64
	TargetPercentage decimal.Decimal
}

func DefaultParams() Params {
	return Params{
		RSIPeriod:        indicator.DefaultRSIPeriod,
		Oversold:         30,
		Overbought:       70,
		TargetPercentage: decimal.RequireFromString("0.1"),
	}
}

func (p Params) Validate() error {
	if p.RSIPeriod < 2 {
		return fmt.Errorf("%w: rsi period %d must be at least 2", ErrInvalidParams, p.RSIPeriod)
	}
	if p.Oversold < 0 || p.Overbought > 100 || p.Oversold >= p.Overbought {
		return fmt.Errorf("%w: thresholds %.2f/%.2f must satisfy 0 <= oversold < overbought <= 100",
			ErrInvalidParams, p.Oversold, p.Overbought)
	}
	if !p.TargetPercentage.IsPositive() || p.TargetPercentage.GreaterThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("%w: target percentage %s must be in (0, 1]", ErrInvalidParams, p.TargetPercentage)
	}
	return nil
}

// Strategy buys a slice of cash when RSI is oversold and the book is flat,
// and liquidates the whole position when RSI turns overbought.
type Strategy struct {
	params Params
	sizer  *TargetSizer
}

func NewStrategy(params Params) (*Strategy, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &Strategy{
		params: params,
		sizer:  NewTargetSizer(params.TargetPercentage),
	}, nil
}

func (s *Strategy) RSIPeriod() int {
	return s.params.RSIPeriod
}

func (s *Strategy) Params() Params {
	return s.params
}

// Decide emits at most one request. Nothing is emitted while an order is
// pending or while RSI is still warming up.
func (s *Strategy) Decide(bar types.Bar, rsi indicator.Reading, view types.PortfolioView, pending *types.Order) *types.OrderRequest {
	if pending != nil || !rsi.Ready {
		return nil
	}

	if rsi.Value < s.params.Oversold && view.Position.IsFlat() {
		size, ok := s.sizer.Size(bar.Close, view.Cash)
		if !ok {
			return nil
		}
		return types.NewOrderRequest(types.SideTypeBuy, size,
			fmt.Sprintf("RSI %.2f below %.2f while flat", rsi.Value, s.params.Oversold))
	}

	if rsi.Value > s.params.Overbought && view.Position.Size.IsPositive() {
		return types.NewOrderRequest(types.SideTypeSell, view.Position.Size,
			fmt.Sprintf("RSI %.2f above %.2f, closing long", rsi.Value, s.params.Overbought))
	}
	return nil
}
