/*
booking.go - The Booking aggregate root and its mutation choke point

PURPOSE:
  Ties the line-item ledger, total calculator and stage tracker together and
  enforces the hard contract: every mutation ends with exactly one pass
  through the reconciliation engine before control returns to the caller.
  No caller may read AYTP/refund except through this aggregate.

OWNERSHIP:
  The aggregate exclusively owns all nested structures; nothing is shared
  across bookings. All operations are synchronous and run to completion; a
  failed validation leaves the booking untouched.

MODES:
  Enquiry bookings carry no installment schedule; only the flat 20% booking
  amount is maintained. Confirm() promotes an enquiry to a lead, creating
  the category's stage tracker.
*/
package booking

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Financials is the derived money state of a booking. AmountYetToPay and
// RefundAmount are outputs of the reconciliation engine and mutually
// exclusive: at most one is non-zero at any time.
type Financials struct {
	OriginalTotalAmount decimal.Decimal
	FinalTotal          decimal.Decimal
	BookingAmount       decimal.Decimal
	PaidAmount          decimal.Decimal
	SiteVisitCharges    decimal.Decimal
	AmountYetToPay      decimal.Decimal
	RefundAmount        decimal.Decimal
}

// Booking is the aggregate root.
type Booking struct {
	ID           string
	CustomerName string
	Category     ServiceCategory
	Mode         BookingMode
	State        LifecycleState

	Ledger LineItemLedger
	Totals TotalCalculator
	Stages *PaymentStageTracker

	Financials  Financials
	PriceChange *PriceChangeRecord

	// PersistedTotal is the finalTotal as of the last save; the reference
	// point for price-change records.
	PersistedTotal decimal.Decimal

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewBookingParams carries everything needed to create a booking.
type NewBookingParams struct {
	ID               string
	CustomerName     string
	Category         ServiceCategory
	Mode             BookingMode
	Items            []ServiceLineItem
	SiteVisitCharges decimal.Decimal
	Now              time.Time
}

// NewBooking validates and builds a booking in Draft state, reconciled once.
func NewBooking(p NewBookingParams) (*Booking, error) {
	if !p.Category.Valid() {
		return nil, &InvalidAmountError{Field: "category", Value: decimal.Zero, Reason: "unknown service category"}
	}
	if len(p.Items) == 0 {
		return nil, ErrInvariantViolation
	}
	if err := validateAmount("site visit charges", p.SiteVisitCharges); err != nil {
		return nil, err
	}
	if p.Category != CategoryHousePainting && p.SiteVisitCharges.IsPositive() {
		return nil, &InvalidAmountError{Field: "site visit charges", Value: p.SiteVisitCharges, Reason: "only house painting carries a site visit fee"}
	}

	mode := p.Mode
	if mode == "" {
		mode = ModeEnquiry
	}
	id := p.ID
	if id == "" {
		id = uuid.NewString()
	}

	b := &Booking{
		ID:           id,
		CustomerName: p.CustomerName,
		Category:     p.Category,
		Mode:         mode,
		State:        StateDraft,
		CreatedAt:    p.Now,
		UpdatedAt:    p.Now,
	}
	b.Financials.SiteVisitCharges = p.SiteVisitCharges

	for _, it := range p.Items {
		item := it
		if item.ID == "" {
			item.ID = uuid.NewString()
		}
		if err := b.Ledger.AddItem(item); err != nil {
			return nil, err
		}
	}
	b.Totals.SetSubtotal(b.Ledger.Subtotal())

	if mode == ModeLead {
		b.Stages = NewStageTracker(p.Category)
	}

	b.Financials.OriginalTotalAmount = b.Totals.FinalTotal()
	b.PersistedTotal = b.Totals.FinalTotal()
	b.recalculate()
	return b, nil
}

// MarkLoaded flips the lifecycle flag after the first persist/load cycle.
// Price-change records are only emitted for loaded bookings; creation
// itself is not an adjustment.
func (b *Booking) MarkLoaded() {
	b.State = StateLoaded
}

// Confirm promotes an enquiry into the installment schedule (lead mode),
// creating the category's stage tracker.
func (b *Booking) Confirm() error {
	if b.Mode == ModeLead {
		return ErrInvariantViolation
	}
	b.Mode = ModeLead
	b.Stages = NewStageTracker(b.Category)
	b.recalculate()
	return nil
}

// =============================================================================
// LINE ITEM MUTATIONS - each one reconciles exactly once
// =============================================================================

// AddItem appends a service line item.
func (b *Booking) AddItem(item ServiceLineItem) error {
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	if err := b.Ledger.AddItem(item); err != nil {
		return err
	}
	b.onSubtotalChanged()
	return nil
}

// RemoveItem removes a service line item. Removing the only remaining item
// fails and leaves finalTotal unchanged.
func (b *Booking) RemoveItem(id string) error {
	if _, err := b.Ledger.RemoveItem(id); err != nil {
		return err
	}
	b.onSubtotalChanged()
	return nil
}

// SetItemPrice is a free-text price edit of an existing item.
func (b *Booking) SetItemPrice(id string, newPrice decimal.Decimal) error {
	if _, err := b.Ledger.SetItemPrice(id, newPrice); err != nil {
		return err
	}
	b.onSubtotalChanged()
	return nil
}

// ReplaceItem is a catalog reselect: a single price replacement in place.
func (b *Booking) ReplaceItem(id string, item ServiceLineItem) error {
	if _, err := b.Ledger.ReplaceItem(id, item); err != nil {
		return err
	}
	b.onSubtotalChanged()
	return nil
}

// =============================================================================
// TOTAL MUTATIONS
// =============================================================================

// ApplyDiscount applies a percent or fixed discount against the current
// subtotal.
func (b *Booking) ApplyDiscount(mode DiscountMode, value decimal.Decimal) error {
	if err := b.Totals.ApplyDiscount(mode, value); err != nil {
		return err
	}
	b.recalculate()
	return nil
}

// ClearDiscount restores finalTotal to the undiscounted subtotal.
func (b *Booking) ClearDiscount() {
	b.Totals.ClearDiscount()
	b.recalculate()
}

// SetManualTotal applies an admin override of the total.
func (b *Booking) SetManualTotal(value decimal.Decimal) error {
	if err := b.Totals.SetManualTotal(value); err != nil {
		return err
	}
	b.recalculate()
	return nil
}

// =============================================================================
// PAYMENT STAGE OPERATIONS
// =============================================================================

// SetStageRequested records the amount currently due for a stage, announced
// by the external payment-request workflow.
func (b *Booking) SetStageRequested(stage StageName, amount decimal.Decimal) error {
	if b.Stages == nil {
		return ErrInvariantViolation
	}
	if err := b.Stages.SetRequestedAmount(stage, amount); err != nil {
		return err
	}
	b.recalculate()
	return nil
}

// Due returns the installment due resolver's answer for this booking.
func (b *Booking) Due() Due {
	if b.Stages == nil {
		return Due{Payable: decimal.Zero, WaitingReason: "booking is not in the installment schedule"}
	}
	return ResolveDue(b.Stages, b.Financials.AmountYetToPay)
}

// CashCollection is the outbound shape for a completed cash collection.
// IsAdditionalAmount is true exactly when an unrequested pre-settlement
// top-up is collected against the final stage after the earlier stages
// settled in full.
type CashCollection struct {
	ID                 string
	BookingID          string
	PaymentMethod      string
	PaidAmount         decimal.Decimal
	IsAdditionalAmount bool
	InstallmentStage   StageName
	CollectedAt        time.Time
}

// CollectCash validates a cash payment against the due resolver, applies it
// to the stage and reconciles. finalSettlement closes the stage explicitly
// and, on the final stage, may overpay the requested amount.
func (b *Booking) CollectCash(stage StageName, amount decimal.Decimal, finalSettlement bool, now time.Time) (*CashCollection, error) {
	if b.Stages == nil {
		return nil, ErrInvariantViolation
	}
	due := b.Due()
	if !due.CanPay || due.Stage != stage {
		reason := due.WaitingReason
		if reason == "" {
			reason = "a different installment is due"
		}
		return nil, &NotPayableError{Stage: stage, WaitingReason: reason}
	}
	if err := validateAmount("payment amount", amount); err != nil {
		return nil, err
	}
	overpay := finalSettlement && b.Stages.IsFinal(stage)
	if amount.GreaterThan(due.Payable) && !overpay {
		return nil, &InvalidAmountError{Field: "payment amount", Value: amount, Reason: "exceeds the payable amount for this stage"}
	}

	current, _ := b.Stages.Stage(stage)
	additional := b.Stages.IsFinal(stage) && current.RequestedAmount.IsZero()

	if err := b.Stages.MarkStagePaid(stage, amount, finalSettlement); err != nil {
		return nil, err
	}
	b.recalculate()

	return &CashCollection{
		ID:                 uuid.NewString(),
		BookingID:          b.ID,
		PaymentMethod:      "Cash",
		PaidAmount:         amount,
		IsAdditionalAmount: additional,
		InstallmentStage:   stage,
		CollectedAt:        now,
	}, nil
}

// =============================================================================
// PRICE CHANGE
// =============================================================================

// RecordPriceChange compares the current finalTotal against the last
// persisted total and emits an adjustment record when they differ. Draft
// bookings never emit records. Administrative edits auto-approve and move
// the persisted total immediately; anything else stays Pending for the
// external approval action.
func (b *Booking) RecordPriceChange(actor string, adminEdit bool, now time.Time) *PriceChangeRecord {
	if b.State == StateDraft {
		return nil
	}
	rec := RecordIfChanged(b.ID, b.PersistedTotal, b.Totals.FinalTotal(), actor, adminEdit, now)
	if rec == nil {
		return nil
	}
	if rec.Status == PriceChangeApproved {
		b.PersistedTotal = rec.ProposedTotal
	}
	b.PriceChange = rec
	return rec
}

// ResolvePriceChange applies the external approve/reject decision to the
// pending record. Approval re-applies the proposed total as the persisted
// total and reconciles; rejection restores the previously persisted total
// and discards the proposal.
func (b *Booking) ResolvePriceChange(approve bool, now time.Time) error {
	if b.PriceChange == nil {
		return ErrPriceChangeResolved
	}
	if approve {
		if err := b.PriceChange.Approve(now); err != nil {
			return err
		}
		b.PersistedTotal = b.PriceChange.ProposedTotal
		b.recalculate()
		return nil
	}
	if err := b.PriceChange.Reject(now); err != nil {
		return err
	}
	// Pin the booking back to the previously persisted total.
	if err := b.Totals.SetManualTotal(b.PriceChange.PreviousTotal); err != nil {
		return err
	}
	b.recalculate()
	return nil
}

// =============================================================================
// RECALCULATION CHOKE POINT
// =============================================================================

// onSubtotalChanged propagates a ledger mutation into the total calculator
// and reconciles. This is the subtotal-changed event in function form.
func (b *Booking) onSubtotalChanged() {
	b.Totals.SetSubtotal(b.Ledger.Subtotal())
	b.recalculate()
}

// recalculate refreshes every derived financial field. It is the ONLY
// caller of the reconciliation engine; no other code path may read or
// display AYTP/refund without passing through here first.
func (b *Booking) recalculate() {
	b.Financials.FinalTotal = b.Totals.FinalTotal()

	if b.Mode == ModeEnquiry || b.Stages == nil {
		// Enquiry mode keeps the flat booking-amount rule; staged AYTP and
		// refund do not apply.
		b.Financials.BookingAmount = EnquiryBookingAmount(b.Financials.FinalTotal)
		b.Financials.PaidAmount = decimal.Zero
		b.Financials.AmountYetToPay = decimal.Zero
		b.Financials.RefundAmount = decimal.Zero
		return
	}

	// Installment mode: the booking amount is superseded by the first-stage
	// slab target.
	schedule := b.Category.StageSchedule()
	b.Financials.BookingAmount = RoundWhole(b.Financials.FinalTotal.Mul(schedule[0].Share))
	b.Financials.PaidAmount = b.Stages.TotalPaid()

	rec := Reconcile(b.Category, b.Financials.FinalTotal, b.Financials.SiteVisitCharges, b.Stages)
	b.Financials.AmountYetToPay = rec.AmountYetToPay
	b.Financials.RefundAmount = rec.RefundAmount
}
