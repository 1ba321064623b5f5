/*
total.go - Total calculator: subtotal, discount and manual override

PURPOSE:
  Combines the ledger subtotal, an optional discount, and an optional manual
  admin override into the authoritative finalTotal.

PRECEDENCE:
  manual override > active discount > plain subtotal
  The override holds until explicitly cleared; the discount captures its base
  at the moment of application and is not re-derived as the ledger changes.

ROUNDING:
  Discounted totals round to the nearest whole currency unit via RoundWhole.
*/
package booking

import (
	"github.com/shopspring/decimal"
)

type DiscountMode string

const (
	DiscountPercent DiscountMode = "percent"
	DiscountFixed   DiscountMode = "fixed"
)

// Discount is an applied discount with the subtotal base captured at the
// moment of application.
type Discount struct {
	Mode       DiscountMode
	Value      decimal.Decimal
	Base       decimal.Decimal
	Discounted decimal.Decimal
}

// TotalCalculator derives finalTotal from the ledger subtotal, an optional
// discount and an optional manual override.
type TotalCalculator struct {
	Subtotal decimal.Decimal
	Discount *Discount
	Override *decimal.Decimal
}

// FinalTotal returns the current authoritative total.
func (t *TotalCalculator) FinalTotal() decimal.Decimal {
	if t.Override != nil {
		return *t.Override
	}
	if t.Discount != nil {
		return t.Discount.Discounted
	}
	return t.Subtotal
}

// SetSubtotal records a new ledger subtotal. An active discount keeps the
// base it captured when applied; an active override keeps precedence.
func (t *TotalCalculator) SetSubtotal(subtotal decimal.Decimal) {
	t.Subtotal = subtotal
}

// ApplyDiscount applies a percent or fixed discount against the subtotal
// captured right now. The result is floored at zero and rounded to whole
// currency units.
func (t *TotalCalculator) ApplyDiscount(mode DiscountMode, value decimal.Decimal) error {
	if err := validateAmount("discount value", value); err != nil {
		return err
	}
	base := t.Subtotal

	var off decimal.Decimal
	switch mode {
	case DiscountPercent:
		if value.GreaterThan(decimal.NewFromInt(100)) {
			return &InvalidAmountError{Field: "discount percent", Value: value, Reason: "exceeds 100"}
		}
		off = base.Mul(value).Div(decimal.NewFromInt(100))
	case DiscountFixed:
		off = value
	default:
		return &InvalidAmountError{Field: "discount mode", Value: value, Reason: "unknown mode"}
	}

	discounted := RoundWhole(base.Sub(off))
	if discounted.IsNegative() {
		discounted = decimal.Zero
	}
	t.Discount = &Discount{Mode: mode, Value: value, Base: base, Discounted: discounted}
	return nil
}

// ClearDiscount restores finalTotal to the undiscounted subtotal.
func (t *TotalCalculator) ClearDiscount() {
	t.Discount = nil
}

// SetManualTotal sets an admin-supplied override, bypassing subtotal and
// discount until cleared. Negative or over-limit values are rejected before
// any mutation.
func (t *TotalCalculator) SetManualTotal(value decimal.Decimal) error {
	if err := validateAmount("manual total", value); err != nil {
		return err
	}
	v := value
	t.Override = &v
	return nil
}

// ClearManualTotal removes the override, returning precedence to the
// discount/subtotal formula.
func (t *TotalCalculator) ClearManualTotal() {
	t.Override = nil
}
