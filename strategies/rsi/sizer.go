package rsi

import (
	"github.com/shopspring/decimal"
)

const sizePrecision = 16

// TargetSizer turns a fraction of available cash into an order size at a
// given price. Sizes are fractional, truncated to sizePrecision places.
type TargetSizer struct {
	targetPercentage decimal.Decimal
}

func NewTargetSizer(targetPercentage decimal.Decimal) *TargetSizer {
	return &TargetSizer{
		targetPercentage: targetPercentage,
	}
}

func (s *TargetSizer) TargetCash(cash decimal.Decimal) decimal.Decimal {
	return cash.Mul(s.targetPercentage)
}

// Size returns cash*target/price. ok is false when the target is not covered
// by cash or the size would not be positive.
func (s *TargetSizer) Size(price, cash decimal.Decimal) (decimal.Decimal, bool) {
	if !price.IsPositive() {
		return decimal.Zero, false
	}
	targetCash := s.TargetCash(cash)
	if cash.LessThan(targetCash) {
		return decimal.Zero, false
	}
	size := getQuantityForPrice(price, targetCash)
	if !size.IsPositive() {
		return decimal.Zero, false
	}
	return size, true
}

func getQuantityForPrice(price, capitalToUse decimal.Decimal) decimal.Decimal {
	if price.IsZero() {
		return decimal.Zero
	}
	// truncate so size*price never exceeds capitalToUse
	quantity, _ := capitalToUse.QuoRem(price, sizePrecision)
	return quantity
}
