/*
errors.go - Centralized error types for the reconciliation core

PURPOSE:
  All error types in one place for consistency and discoverability.
  Callers match with errors.Is / errors.As; the API layer maps these to
  HTTP statuses.

ERROR CATEGORIES:
  1. InvariantViolation - structural rules (last line item, stage order)
  2. InvalidAmount      - negative, non-finite or over-limit monetary input
  3. StageNotPayable    - collecting against a stage the due resolver rejects

PROPAGATION POLICY:
  All rejections are local and synchronous. The core never retries and
  never partially applies a mutation: inputs are validated before any
  state changes.
*/
package booking

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvariantViolation is returned when a mutation would break a
	// structural rule, e.g. removing the last line item of an editable
	// booking or settling stages out of order.
	ErrInvariantViolation = errors.New("invariant violation")

	// ErrInvalidAmount is returned for negative, non-finite or over-limit
	// monetary input. The operation is rejected before any mutation.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrStageNotPayable is returned when money is collected against a stage
	// the due resolver marked not payable. Callers must surface WaitingReason.
	ErrStageNotPayable = errors.New("stage not payable")

	// ErrStageOutOfOrder is returned when a stage would leave Pending before
	// all earlier stages are Paid.
	ErrStageOutOfOrder = errors.New("stage out of order")

	// ErrBookingNotFound is returned when a referenced booking doesn't exist.
	ErrBookingNotFound = errors.New("booking not found")

	// ErrPriceChangeResolved is returned when approving or rejecting a price
	// change that is no longer pending.
	ErrPriceChangeResolved = errors.New("price change already resolved")

	// ErrItemNotFound is returned when a referenced line item doesn't exist.
	ErrItemNotFound = errors.New("line item not found")

	// ErrStageNotFound is returned for a stage name outside the category's
	// schedule.
	ErrStageNotFound = errors.New("stage not found")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// InvalidAmountError reports which input was rejected and why.
type InvalidAmountError struct {
	Field  string
	Value  decimal.Decimal
	Reason string
}

func (e *InvalidAmountError) Error() string {
	return fmt.Sprintf("invalid amount for %s: %s (%s)", e.Field, e.Value, e.Reason)
}

func (e *InvalidAmountError) Unwrap() error { return ErrInvalidAmount }

// StageOutOfOrderError reports which earlier stage blocks the attempted one.
type StageOutOfOrderError struct {
	Stage    StageName
	Blocking StageName
}

func (e *StageOutOfOrderError) Error() string {
	return fmt.Sprintf("stage %q cannot advance: stage %q is not paid", e.Stage, e.Blocking)
}

func (e *StageOutOfOrderError) Unwrap() error { return ErrStageOutOfOrder }

// NotPayableError carries the due resolver's waiting reason so callers can
// surface it verbatim.
type NotPayableError struct {
	Stage         StageName
	WaitingReason string
}

func (e *NotPayableError) Error() string {
	return fmt.Sprintf("stage %q is not payable: %s", e.Stage, e.WaitingReason)
}

func (e *NotPayableError) Unwrap() error { return ErrStageNotPayable }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid caller input
// rather than an internal failure.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrInvariantViolation) ||
		errors.Is(err, ErrStageOutOfOrder) ||
		errors.Is(err, ErrStageNotPayable) ||
		errors.Is(err, ErrPriceChangeResolved)
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrBookingNotFound) ||
		errors.Is(err, ErrItemNotFound) ||
		errors.Is(err, ErrStageNotFound)
}

// validateAmount enforces the shared monetary input rules: finite (guaranteed
// by decimal), non-negative and under the over-limit guard.
func validateAmount(field string, v decimal.Decimal) error {
	if v.IsNegative() {
		return &InvalidAmountError{Field: field, Value: v, Reason: "must not be negative"}
	}
	if v.GreaterThan(MaxAmount) {
		return &InvalidAmountError{Field: field, Value: v, Reason: "exceeds maximum"}
	}
	return nil
}
