/*
due.go - Installment due resolver

PURPOSE:
  Given the stage tracker, finds the single stage currently payable and the
  amount payable now. The output always carries a stage name, an amount, a
  can-pay flag and, when not payable, a waiting reason for the caller to
  surface.

PREPAYMENT:
  A Pending final stage with no requested amount while the booking still
  owes money is treated as a prepayment: the whole outstanding balance is
  payable ahead of an explicit payment request.
*/
package booking

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Due is the resolver's answer: which stage is payable and for how much.
type Due struct {
	Stage         StageName
	Payable       decimal.Decimal
	CanPay        bool
	WaitingReason string
}

// ResolveDue inspects the tracker's current stage and the booking-level
// amount yet to pay, and decides what can be collected right now.
func ResolveDue(tracker *PaymentStageTracker, amountYetToPay decimal.Decimal) Due {
	current, ok := tracker.CurrentStage()
	if !ok {
		return Due{
			Payable:       decimal.Zero,
			WaitingReason: "all installments are paid",
		}
	}

	waiting := fmt.Sprintf("awaiting payment request for %s installment", current.Name)

	switch current.Status {
	case StagePending:
		if current.RequestedAmount.IsPositive() {
			return Due{Stage: current.Name, Payable: current.RequestedAmount, CanPay: true}
		}
		// Prepayment: the final stage with nothing requested while the
		// booking still owes money lets an admin collect the outstanding
		// balance ahead of an explicit request.
		if tracker.IsFinal(current.Name) && amountYetToPay.IsPositive() {
			return Due{Stage: current.Name, Payable: amountYetToPay, CanPay: true}
		}
		return Due{Stage: current.Name, Payable: decimal.Zero, WaitingReason: waiting}

	case StagePartial:
		remaining := current.Remaining()
		if remaining.IsPositive() {
			return Due{Stage: current.Name, Payable: remaining, CanPay: true}
		}
		return Due{Stage: current.Name, Payable: decimal.Zero, WaitingReason: waiting}

	default:
		return Due{Stage: current.Name, Payable: decimal.Zero, WaitingReason: waiting}
	}
}
