/*
reconcile.go - The reconciliation engine: AYTP and refund under slab rules

PURPOSE:
  Derives amountYetToPay and refundAmount for a booking from its category,
  finalTotal and stage tracker. This file is the ONLY place slab thresholds
  may be written; every mutation path reaches it through the Booking
  aggregate's recalculation choke point instead of re-deriving the numbers
  inline.

RULES:
  DeepCleaning (First 20% / Final 80%):
    - Before the first stage is paid, the minimum due is the first-stage
      slab of the current finalTotal, however the total has been edited.
    - Between first and final, due is finalTotal minus everything paid,
      floored at zero. No refund is ever computed before the final stage;
      that floor is policy, not an omission.
    - After the final stage, the signed difference settles as AYTP or refund.

  HousePainting (First 40% / Second 40% / Final 20%):
    - Each unpaid stage in turn exposes its nominal slab of the current
      finalTotal as the amount due.
    - Refund settles only once all three stages are Paid, even when a
      reduced finalTotal makes an intermediate slab numerically exceed it.
      Promising refunds while a job is in progress is deliberately avoided.

PURITY:
  Reconcile holds no state and performs no I/O. Identical inputs yield
  identical outputs. At most one of the two outputs is non-zero.
*/
package booking

import (
	"github.com/shopspring/decimal"
)

// Reconciliation is the engine's output pair. At most one field is non-zero.
type Reconciliation struct {
	AmountYetToPay decimal.Decimal
	RefundAmount   decimal.Decimal
}

// Reconcile derives AYTP and refund for an installment-mode booking.
// siteVisitCharges is the House-Painting flat fee; it is carried with the
// booking's financial state and surfaced to callers but never folded into
// slab arithmetic, which works on finalTotal alone.
func Reconcile(category ServiceCategory, finalTotal, siteVisitCharges decimal.Decimal, tracker *PaymentStageTracker) Reconciliation {
	switch category {
	case CategoryDeepCleaning:
		return reconcileDeepCleaning(finalTotal, tracker)
	case CategoryHousePainting:
		return reconcileHousePainting(finalTotal, tracker)
	default:
		return Reconciliation{AmountYetToPay: decimal.Zero, RefundAmount: decimal.Zero}
	}
}

func reconcileDeepCleaning(finalTotal decimal.Decimal, tracker *PaymentStageTracker) Reconciliation {
	first, _ := tracker.Stage(StageFirst)
	final, _ := tracker.Stage(StageFinal)
	totalPaid := tracker.TotalPaid()

	switch {
	case first.Status != StagePaid:
		// Before any money moves the minimum due is the first-stage slab,
		// regardless of finalTotal edits.
		return Reconciliation{
			AmountYetToPay: RoundWhole(finalTotal.Mul(pct20)),
			RefundAmount:   decimal.Zero,
		}

	case final.Status != StagePaid:
		due := finalTotal.Sub(totalPaid)
		if due.IsNegative() {
			due = decimal.Zero
		}
		return Reconciliation{AmountYetToPay: due, RefundAmount: decimal.Zero}

	default:
		diff := finalTotal.Sub(totalPaid)
		if diff.IsNegative() {
			return Reconciliation{AmountYetToPay: decimal.Zero, RefundAmount: diff.Neg()}
		}
		return Reconciliation{AmountYetToPay: diff, RefundAmount: decimal.Zero}
	}
}

func reconcileHousePainting(finalTotal decimal.Decimal, tracker *PaymentStageTracker) Reconciliation {
	slab40 := RoundWhole(finalTotal.Mul(pct40))
	slab20 := RoundWhole(finalTotal.Mul(pct20))

	first, _ := tracker.Stage(StageFirst)
	second, _ := tracker.Stage(StageSecond)
	final, _ := tracker.Stage(StageFinal)

	switch {
	case first.Status != StagePaid:
		return Reconciliation{AmountYetToPay: slab40, RefundAmount: decimal.Zero}

	case second.Status != StagePaid:
		return Reconciliation{AmountYetToPay: slab40, RefundAmount: decimal.Zero}

	case final.Status != StagePaid:
		return Reconciliation{AmountYetToPay: slab20, RefundAmount: decimal.Zero}

	default:
		totalPaid := tracker.TotalPaid()
		if totalPaid.GreaterThan(finalTotal) {
			return Reconciliation{
				AmountYetToPay: decimal.Zero,
				RefundAmount:   totalPaid.Sub(finalTotal),
			}
		}
		return Reconciliation{AmountYetToPay: decimal.Zero, RefundAmount: decimal.Zero}
	}
}

// EnquiryBookingAmount is the flat booking-amount rule for bookings not yet
// confirmed into the installment schedule: 20% of finalTotal, rounded.
func EnquiryBookingAmount(finalTotal decimal.Decimal) decimal.Decimal {
	return RoundWhole(finalTotal.Mul(bookingAmountShare))
}
