/*
pricechange.go - Auditable price-change records and their approval lifecycle

PURPOSE:
  Compares a newly computed finalTotal against the last persisted total at
  save time and, when they differ, emits an adjustment record for the
  approval workflow.

LIFECYCLE:
  created (Pending or auto-Approved for administrative edits)
    -> Approved: the proposed total becomes the persisted total
    -> Rejected: the previously persisted total is restored, the proposal
       is discarded

ATTRIBUTION POLICY:
  Increases are attributed to customer-driven scope changes, decreases to
  admin discretion: approvedBy is "customer" for Added and "admin" for
  Reduced.
*/
package booking

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type ScopeType string

const (
	ScopeAdded   ScopeType = "added"
	ScopeReduced ScopeType = "reduced"
)

type PriceChangeStatus string

const (
	PriceChangePending  PriceChangeStatus = "pending"
	PriceChangeApproved PriceChangeStatus = "approved"
	PriceChangeRejected PriceChangeStatus = "rejected"
)

// PriceChangeRecord is the auditable delta between a booking's previously
// persisted total and a newly proposed one.
type PriceChangeRecord struct {
	ID               string
	BookingID        string
	AdjustmentAmount decimal.Decimal
	PreviousTotal    decimal.Decimal
	ProposedTotal    decimal.Decimal
	ScopeType        ScopeType
	Status           PriceChangeStatus
	RequestedBy      string
	ApprovedBy       string
	RequestedAt      time.Time
	ApprovedAt       *time.Time
}

// RecordIfChanged returns nil when the totals are equal. Otherwise it builds
// the adjustment record: Approved immediately when the change originates
// from an administrative total edit, Pending when it requires external
// sign-off.
func RecordIfChanged(bookingID string, previousPersistedTotal, newFinalTotal decimal.Decimal, actor string, adminEdit bool, now time.Time) *PriceChangeRecord {
	if newFinalTotal.Equal(previousPersistedTotal) {
		return nil
	}

	scope := ScopeReduced
	approvedBy := "admin"
	if newFinalTotal.GreaterThan(previousPersistedTotal) {
		scope = ScopeAdded
		approvedBy = "customer"
	}

	rec := &PriceChangeRecord{
		ID:               uuid.NewString(),
		BookingID:        bookingID,
		AdjustmentAmount: newFinalTotal.Sub(previousPersistedTotal).Abs(),
		PreviousTotal:    previousPersistedTotal,
		ProposedTotal:    newFinalTotal,
		ScopeType:        scope,
		Status:           PriceChangePending,
		RequestedBy:      actor,
		ApprovedBy:       approvedBy,
		RequestedAt:      now,
	}
	if adminEdit {
		rec.Status = PriceChangeApproved
		at := now
		rec.ApprovedAt = &at
	}
	return rec
}

// Approve flips a pending record to Approved.
func (r *PriceChangeRecord) Approve(now time.Time) error {
	if r.Status != PriceChangePending {
		return ErrPriceChangeResolved
	}
	r.Status = PriceChangeApproved
	at := now
	r.ApprovedAt = &at
	return nil
}

// Reject flips a pending record to Rejected. The proposed total is discarded
// by the aggregate, not here.
func (r *PriceChangeRecord) Reject(now time.Time) error {
	if r.Status != PriceChangePending {
		return ErrPriceChangeResolved
	}
	r.Status = PriceChangeRejected
	at := now
	r.ApprovedAt = &at
	return nil
}
