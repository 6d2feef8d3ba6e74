package types

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// DataFormatError reports a malformed or missing bar field. Row is the 1-based
// data row (header excluded) or bar position, 0 when unknown.
type DataFormatError struct {
	Row    int
	Field  string
	Reason string
}

func (e *DataFormatError) Error() string {
	if e.Row > 0 {
		return fmt.Sprintf("data format: row %d field %q: %s", e.Row, e.Field, e.Reason)
	}
	return fmt.Sprintf("data format: field %q: %s", e.Field, e.Reason)
}

// InsufficientCashError rejects a buy order at submission. It is not fatal.
type InsufficientCashError struct {
	OrderID   int
	Required  decimal.Decimal
	Available decimal.Decimal
}

func (e *InsufficientCashError) Error() string {
	return fmt.Sprintf("order %d: insufficient cash: required %s, available %s",
		e.OrderID, e.Required.String(), e.Available.String())
}

// InvariantViolation means the engine reached a state that correct composition
// cannot produce. The run halts.
type InvariantViolation struct {
	Invariant string
	Bar       int
}

func (e *InvariantViolation) Error() string {
	return fmt.Sprintf("invariant violated at bar %d: %s", e.Bar, e.Invariant)
}
