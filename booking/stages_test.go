package booking_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/homjee/booking-engine/booking"
)

// =============================================================================
// SCHEDULE CONSTRUCTION
// =============================================================================

func TestNewStageTracker_SchedulesPerCategory(t *testing.T) {
	// GIVEN: The two service categories
	// WHEN: Building their trackers
	// THEN: Each carries its fixed stage sequence, all Pending

	dc := booking.NewStageTracker(booking.CategoryDeepCleaning)
	require.Len(t, dc.Stages, 2)
	assert.Equal(t, booking.StageFirst, dc.Stages[0].Name)
	assert.Equal(t, booking.StageFinal, dc.Stages[1].Name)

	hp := booking.NewStageTracker(booking.CategoryHousePainting)
	require.Len(t, hp.Stages, 3)
	assert.Equal(t, booking.StageFirst, hp.Stages[0].Name)
	assert.Equal(t, booking.StageSecond, hp.Stages[1].Name)
	assert.Equal(t, booking.StageFinal, hp.Stages[2].Name)

	for _, s := range append(dc.Stages, hp.Stages...) {
		assert.Equal(t, booking.StagePending, s.Status)
		assert.True(t, s.RequestedAmount.IsZero())
		assert.True(t, s.PaidAmount.IsZero())
	}
}

// =============================================================================
// ORDERING AND TRANSITIONS
// =============================================================================

func TestMarkStagePaid_EnforcesOrder(t *testing.T) {
	// GIVEN: A house painting tracker with the first stage unpaid
	// WHEN: Paying the second stage
	// THEN: The attempt is blocked, naming the blocking stage

	tracker := booking.NewStageTracker(booking.CategoryHousePainting)
	require.NoError(t, tracker.SetRequestedAmount(booking.StageSecond, dec(4000)))

	err := tracker.MarkStagePaid(booking.StageSecond, dec(4000), false)

	require.Error(t, err)
	var outOfOrder *booking.StageOutOfOrderError
	require.ErrorAs(t, err, &outOfOrder)
	assert.Equal(t, booking.StageFirst, outOfOrder.Blocking)
}

func TestMarkStagePaid_PartialThenPaid(t *testing.T) {
	// GIVEN: 1000 requested on the first stage
	// WHEN: Paying 400 and then 600
	// THEN: The stage moves Pending -> Partial -> Paid

	tracker := booking.NewStageTracker(booking.CategoryDeepCleaning)
	require.NoError(t, tracker.SetRequestedAmount(booking.StageFirst, dec(1000)))

	require.NoError(t, tracker.MarkStagePaid(booking.StageFirst, dec(400), false))
	stage, _ := tracker.Stage(booking.StageFirst)
	assert.Equal(t, booking.StagePartial, stage.Status)
	assert.True(t, stage.Remaining().Equal(dec(600)))

	require.NoError(t, tracker.MarkStagePaid(booking.StageFirst, dec(600), false))
	stage, _ = tracker.Stage(booking.StageFirst)
	assert.Equal(t, booking.StagePaid, stage.Status)
	assert.True(t, stage.Remaining().IsZero())
}

func TestMarkStagePaid_RejectsZeroAmount(t *testing.T) {
	// GIVEN: A fresh tracker
	// WHEN: Paying zero
	// THEN: Rejected as an invalid amount

	tracker := booking.NewStageTracker(booking.CategoryDeepCleaning)

	err := tracker.MarkStagePaid(booking.StageFirst, decimal.Zero, false)

	assert.ErrorIs(t, err, booking.ErrInvalidAmount)
}

func TestMarkStagePaid_RejectsOverpayWithoutSettlement(t *testing.T) {
	// GIVEN: 1000 requested on the first stage
	// WHEN: Paying 1200 without a final settlement
	// THEN: Rejected; with finalSettlement the same payment closes the stage

	tracker := booking.NewStageTracker(booking.CategoryDeepCleaning)
	require.NoError(t, tracker.SetRequestedAmount(booking.StageFirst, dec(1000)))

	err := tracker.MarkStagePaid(booking.StageFirst, dec(1200), false)
	assert.ErrorIs(t, err, booking.ErrInvalidAmount)

	require.NoError(t, tracker.MarkStagePaid(booking.StageFirst, dec(1200), true))
	stage, _ := tracker.Stage(booking.StageFirst)
	assert.Equal(t, booking.StagePaid, stage.Status)
	assert.True(t, stage.PaidAmount.Equal(dec(1200)))
}

func TestMarkStagePaid_PaidStageNeverRegresses(t *testing.T) {
	// GIVEN: A fully paid first stage
	// WHEN: Paying it again or changing its requested amount
	// THEN: Both are invariant violations

	tracker := booking.NewStageTracker(booking.CategoryDeepCleaning)
	require.NoError(t, tracker.SetRequestedAmount(booking.StageFirst, dec(1000)))
	require.NoError(t, tracker.MarkStagePaid(booking.StageFirst, dec(1000), false))

	assert.ErrorIs(t, tracker.MarkStagePaid(booking.StageFirst, dec(1), false), booking.ErrInvariantViolation)
	assert.ErrorIs(t, tracker.SetRequestedAmount(booking.StageFirst, dec(500)), booking.ErrInvariantViolation)
}

func TestMarkStagePaid_UnknownStage(t *testing.T) {
	// GIVEN: A deep cleaning tracker (no second stage)
	// WHEN: Addressing the second stage
	// THEN: Stage not found

	tracker := booking.NewStageTracker(booking.CategoryDeepCleaning)

	assert.ErrorIs(t, tracker.MarkStagePaid(booking.StageSecond, dec(100), false), booking.ErrStageNotFound)
	assert.ErrorIs(t, tracker.SetRequestedAmount(booking.StageSecond, dec(100)), booking.ErrStageNotFound)
}

// =============================================================================
// AGGREGATION HELPERS
// =============================================================================

func TestTracker_TotalPaidAndAllPaid(t *testing.T) {
	// GIVEN: A deep cleaning tracker settled in two payments
	// WHEN: Checking the aggregates along the way
	// THEN: TotalPaid sums both stages and AllPaid flips at the end

	tracker := booking.NewStageTracker(booking.CategoryDeepCleaning)
	assert.False(t, tracker.AllPaid())

	payStage(t, tracker, booking.StageFirst, dec(1000))
	assert.True(t, tracker.TotalPaid().Equal(dec(1000)))
	assert.False(t, tracker.AllPaid())

	current, ok := tracker.CurrentStage()
	require.True(t, ok)
	assert.Equal(t, booking.StageFinal, current.Name)

	payStage(t, tracker, booking.StageFinal, dec(4000))
	assert.True(t, tracker.TotalPaid().Equal(dec(5000)))
	assert.True(t, tracker.AllPaid())

	_, ok = tracker.CurrentStage()
	assert.False(t, ok)
}

func TestTracker_CloneIsIndependent(t *testing.T) {
	// GIVEN: A tracker with one paid stage
	// WHEN: Mutating a clone
	// THEN: The original is untouched

	tracker := booking.NewStageTracker(booking.CategoryDeepCleaning)
	payStage(t, tracker, booking.StageFirst, dec(1000))

	clone := tracker.Clone()
	require.NoError(t, clone.MarkStagePaid(booking.StageFinal, dec(4000), true))

	final, _ := tracker.Stage(booking.StageFinal)
	assert.Equal(t, booking.StagePending, final.Status)
	assert.True(t, tracker.TotalPaid().Equal(dec(1000)))
}
