/*
stages.go - Payment stage tracker: ordered installment stages per category

PURPOSE:
  Tracks the category-fixed sequence of installment stages, each with a
  status, a requested amount and a paid amount.

INVARIANTS:
  - Stage k+1 may only leave Pending once stage k is Paid (StageOutOfOrder)
  - A stage transitions Pending -> Partial -> Paid and never regresses
  - PaidAmount <= RequestedAmount unless the stage was closed by an explicit
    final settlement, which may overpay
*/
package booking

import (
	"github.com/shopspring/decimal"
)

// PaymentStage is one installment in a booking's schedule.
type PaymentStage struct {
	Name            StageName
	Status          StageStatus
	RequestedAmount decimal.Decimal
	PaidAmount      decimal.Decimal
}

// Remaining returns the unpaid part of the requested amount, floored at zero.
func (s PaymentStage) Remaining() decimal.Decimal {
	r := s.RequestedAmount.Sub(s.PaidAmount)
	if r.IsNegative() {
		return decimal.Zero
	}
	return r
}

// PaymentStageTracker holds the ordered stages for one booking.
type PaymentStageTracker struct {
	Stages []PaymentStage
}

// NewStageTracker builds the fixed stage sequence for the category, all
// stages Pending with nothing requested or paid.
func NewStageTracker(category ServiceCategory) *PaymentStageTracker {
	defs := category.StageSchedule()
	stages := make([]PaymentStage, len(defs))
	for i, d := range defs {
		stages[i] = PaymentStage{
			Name:            d.Name,
			Status:          StagePending,
			RequestedAmount: decimal.Zero,
			PaidAmount:      decimal.Zero,
		}
	}
	return &PaymentStageTracker{Stages: stages}
}

// CurrentStage returns the first stage not yet Paid, or false when all
// stages are Paid.
func (t *PaymentStageTracker) CurrentStage() (PaymentStage, bool) {
	for _, s := range t.Stages {
		if s.Status != StagePaid {
			return s, true
		}
	}
	return PaymentStage{}, false
}

// Stage returns the stage with the given name.
func (t *PaymentStageTracker) Stage(name StageName) (PaymentStage, bool) {
	idx := t.indexOf(name)
	if idx < 0 {
		return PaymentStage{}, false
	}
	return t.Stages[idx], true
}

// IsFinal reports whether name is the last stage of the schedule.
func (t *PaymentStageTracker) IsFinal(name StageName) bool {
	if len(t.Stages) == 0 {
		return false
	}
	return t.Stages[len(t.Stages)-1].Name == name
}

// TotalPaid returns the sum of paid amounts across all stages.
func (t *PaymentStageTracker) TotalPaid() decimal.Decimal {
	sum := decimal.Zero
	for _, s := range t.Stages {
		sum = sum.Add(s.PaidAmount)
	}
	return sum
}

// AllPaid reports whether every stage has status Paid.
func (t *PaymentStageTracker) AllPaid() bool {
	for _, s := range t.Stages {
		if s.Status != StagePaid {
			return false
		}
	}
	return len(t.Stages) > 0
}

// SetRequestedAmount records how much is currently due for a stage. Called
// by the external payment-request workflow; moves no money. Requested
// amounts on a Paid stage are rejected: the stage never regresses.
func (t *PaymentStageTracker) SetRequestedAmount(name StageName, amount decimal.Decimal) error {
	if err := validateAmount("requested amount", amount); err != nil {
		return err
	}
	idx := t.indexOf(name)
	if idx < 0 {
		return ErrStageNotFound
	}
	if t.Stages[idx].Status == StagePaid {
		return ErrInvariantViolation
	}
	t.Stages[idx].RequestedAmount = amount
	return nil
}

// MarkStagePaid applies a collected amount to a stage. The stage becomes
// Paid once PaidAmount reaches RequestedAmount, or immediately on an
// explicit final settlement; otherwise Partial. An earlier unpaid stage
// blocks the attempt with StageOutOfOrder.
func (t *PaymentStageTracker) MarkStagePaid(name StageName, amount decimal.Decimal, finalSettlement bool) error {
	if err := validateAmount("payment amount", amount); err != nil {
		return err
	}
	if amount.IsZero() {
		return &InvalidAmountError{Field: "payment amount", Value: amount, Reason: "must be positive"}
	}
	idx := t.indexOf(name)
	if idx < 0 {
		return ErrStageNotFound
	}
	for i := 0; i < idx; i++ {
		if t.Stages[i].Status != StagePaid {
			return &StageOutOfOrderError{Stage: name, Blocking: t.Stages[i].Name}
		}
	}
	stage := &t.Stages[idx]
	if stage.Status == StagePaid {
		return ErrInvariantViolation
	}

	newPaid := stage.PaidAmount.Add(amount)
	if !finalSettlement && newPaid.GreaterThan(stage.RequestedAmount) && stage.RequestedAmount.IsPositive() {
		return &InvalidAmountError{Field: "payment amount", Value: amount, Reason: "exceeds requested amount"}
	}

	stage.PaidAmount = newPaid
	if finalSettlement || newPaid.GreaterThanOrEqual(stage.RequestedAmount) {
		stage.Status = StagePaid
	} else {
		stage.Status = StagePartial
	}
	return nil
}

// Clone returns a deep copy of the tracker.
func (t *PaymentStageTracker) Clone() *PaymentStageTracker {
	if t == nil {
		return nil
	}
	stages := make([]PaymentStage, len(t.Stages))
	copy(stages, t.Stages)
	return &PaymentStageTracker{Stages: stages}
}

func (t *PaymentStageTracker) indexOf(name StageName) int {
	for i, s := range t.Stages {
		if s.Name == name {
			return i
		}
	}
	return -1
}
