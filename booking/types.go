/*
Package booking provides the financial reconciliation core for service bookings.

PURPOSE:
  This package contains the domain types and algorithms that derive a booking's
  financial outputs: amount yet to pay (AYTP), refund amount, booking amount and
  price-change deltas. All slab arithmetic lives in one place (reconcile.go) and
  every mutation path reaches it through the Booking aggregate's single
  recalculation choke point.

KEY CONCEPTS IN THIS FILE (types.go):
  - ServiceCategory: Closed variant selecting the installment schedule
  - StageName/StageStatus: Installment stage identity and lifecycle
  - ServiceLineItem: A purchased service with its price
  - RoundWhole: The single rounding rule for currency amounts

DESIGN PRINCIPLES:
  1. Precision: Uses decimal.Decimal to avoid floating-point errors
  2. Closed variants: Categories and stages are typed constants with a schedule
     table, never string comparisons scattered across call sites
  3. Purity: Reconciliation is a pure function of booking state
  4. Validate-then-mutate: No operation partially applies

SEE ALSO:
  - reconcile.go: Slab arithmetic (the only owner of slab thresholds)
  - stages.go: Payment stage tracker
  - booking.go: Aggregate root and mutation choke point
*/
package booking

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// SERVICE CATEGORY - Closed variant, determines schedule and slab rules
// =============================================================================

type ServiceCategory string

const (
	CategoryHousePainting ServiceCategory = "house_painting"
	CategoryDeepCleaning  ServiceCategory = "deep_cleaning"
)

// Valid reports whether c is one of the known categories.
func (c ServiceCategory) Valid() bool {
	return c == CategoryHousePainting || c == CategoryDeepCleaning
}

// StageSchedule returns the fixed installment schedule for the category.
// This table is the only source of stage names and slab shares; callers must
// never re-derive percentages.
func (c ServiceCategory) StageSchedule() []StageDef {
	switch c {
	case CategoryDeepCleaning:
		return []StageDef{
			{Name: StageFirst, Share: pct20},
			{Name: StageFinal, Share: pct80},
		}
	case CategoryHousePainting:
		return []StageDef{
			{Name: StageFirst, Share: pct40},
			{Name: StageSecond, Share: pct40},
			{Name: StageFinal, Share: pct20},
		}
	default:
		return nil
	}
}

// StageDef names a stage and its nominal percentage-of-total target (slab).
type StageDef struct {
	Name  StageName
	Share decimal.Decimal
}

// =============================================================================
// STAGES
// =============================================================================

type StageName string

const (
	StageFirst  StageName = "first"
	StageSecond StageName = "second"
	StageFinal  StageName = "final"
)

type StageStatus string

const (
	StagePending StageStatus = "pending"
	StagePartial StageStatus = "partial"
	StagePaid    StageStatus = "paid"
)

// =============================================================================
// LINE ITEMS
// =============================================================================

// ServiceLineItem is one purchased service on a booking.
type ServiceLineItem struct {
	ID                  string
	Category            string
	SubCategory         string
	ServiceName         string
	Price               decimal.Decimal
	TeamMembersRequired int
}

// =============================================================================
// MODE & LIFECYCLE
// =============================================================================

// BookingMode distinguishes enquiries (flat 20% booking amount, no installment
// schedule) from confirmed leads (staged installments).
type BookingMode string

const (
	ModeEnquiry BookingMode = "enquiry"
	ModeLead    BookingMode = "lead"
)

// LifecycleState gates first-load behavior explicitly instead of an ambient
// "is this the first load" flag held by the caller.
type LifecycleState string

const (
	StateDraft  LifecycleState = "draft"
	StateLoaded LifecycleState = "loaded"
)

// =============================================================================
// MONEY HELPERS - Single currency, whole-unit rounding
// =============================================================================

var (
	pct20 = decimal.NewFromFloat(0.20)
	pct40 = decimal.NewFromFloat(0.40)
	pct80 = decimal.NewFromFloat(0.80)

	// bookingAmountShare is the flat booking-amount rule for enquiry-mode
	// bookings (20% of finalTotal).
	bookingAmountShare = pct20

	// MaxAmount is the over-limit guard for any single monetary input.
	MaxAmount = decimal.NewFromInt(1_000_000_000)
)

// RoundWhole rounds to the nearest whole currency unit (half away from zero).
// Every derived amount in this package goes through this one rule.
func RoundWhole(d decimal.Decimal) decimal.Decimal {
	return d.Round(0)
}

// MustParseDecimal parses s, returning zero on malformed input.
func MustParseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}
