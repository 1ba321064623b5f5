package booking_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/homjee/booking-engine/booking"
)

var changeTime = time.Date(2026, time.March, 14, 10, 30, 0, 0, time.UTC)

func TestRecordIfChanged_NoOpWhenEqual(t *testing.T) {
	// GIVEN: Identical previous and new totals
	// WHEN: Recording
	// THEN: No record is emitted

	rec := booking.RecordIfChanged("b1", dec(5000), dec(5000), "admin", false, changeTime)

	assert.Nil(t, rec)
}

func TestRecordIfChanged_IncreaseIsAddedScope(t *testing.T) {
	// GIVEN: The total moved from 5000 to 6000
	// WHEN: Recording
	// THEN: Scope "added", attributed to the customer, pending approval

	rec := booking.RecordIfChanged("b1", dec(5000), dec(6000), "ops", false, changeTime)

	require.NotNil(t, rec)
	assert.Equal(t, booking.ScopeAdded, rec.ScopeType)
	assert.Equal(t, "customer", rec.ApprovedBy)
	assert.Equal(t, booking.PriceChangePending, rec.Status)
	assert.True(t, rec.AdjustmentAmount.Equal(dec(1000)))
	assert.True(t, rec.PreviousTotal.Equal(dec(5000)))
	assert.True(t, rec.ProposedTotal.Equal(dec(6000)))
	assert.Equal(t, "ops", rec.RequestedBy)
	assert.Nil(t, rec.ApprovedAt)
}

func TestRecordIfChanged_DecreaseIsReducedScope(t *testing.T) {
	// GIVEN: The total moved from 5000 to 4200
	// WHEN: Recording
	// THEN: Scope "reduced", attributed to admin, adjustment stored absolute

	rec := booking.RecordIfChanged("b1", dec(5000), dec(4200), "ops", false, changeTime)

	require.NotNil(t, rec)
	assert.Equal(t, booking.ScopeReduced, rec.ScopeType)
	assert.Equal(t, "admin", rec.ApprovedBy)
	assert.True(t, rec.AdjustmentAmount.Equal(dec(800)))
}

func TestRecordIfChanged_AdminEditAutoApproves(t *testing.T) {
	// GIVEN: An administrative total edit
	// WHEN: Recording
	// THEN: The record is born Approved with an approval timestamp

	rec := booking.RecordIfChanged("b1", dec(5000), dec(4200), "ops", true, changeTime)

	require.NotNil(t, rec)
	assert.Equal(t, booking.PriceChangeApproved, rec.Status)
	require.NotNil(t, rec.ApprovedAt)
	assert.Equal(t, changeTime, *rec.ApprovedAt)
}

func TestPriceChange_ApproveLifecycle(t *testing.T) {
	// GIVEN: A pending record
	// WHEN: Approving it, then approving again
	// THEN: First succeeds, second reports already resolved

	rec := booking.RecordIfChanged("b1", dec(5000), dec(6000), "ops", false, changeTime)
	require.NotNil(t, rec)

	later := changeTime.Add(time.Hour)
	require.NoError(t, rec.Approve(later))
	assert.Equal(t, booking.PriceChangeApproved, rec.Status)
	require.NotNil(t, rec.ApprovedAt)
	assert.Equal(t, later, *rec.ApprovedAt)

	assert.ErrorIs(t, rec.Approve(later), booking.ErrPriceChangeResolved)
	assert.ErrorIs(t, rec.Reject(later), booking.ErrPriceChangeResolved)
}

func TestPriceChange_RejectLifecycle(t *testing.T) {
	// GIVEN: A pending record
	// WHEN: Rejecting it
	// THEN: Status flips to Rejected and further decisions are refused

	rec := booking.RecordIfChanged("b1", dec(5000), dec(6000), "ops", false, changeTime)
	require.NotNil(t, rec)

	require.NoError(t, rec.Reject(changeTime))
	assert.Equal(t, booking.PriceChangeRejected, rec.Status)
	assert.ErrorIs(t, rec.Approve(changeTime), booking.ErrPriceChangeResolved)
}
