package sqlite_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/homjee/booking-engine/booking"
	"github.com/homjee/booking-engine/store/sqlite"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func newTestStore(t *testing.T) *sqlite.Store {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func dec(n int64) decimal.Decimal {
	return decimal.NewFromInt(n)
}

func seedLead(t *testing.T, prices ...int64) *booking.Booking {
	t.Helper()
	items := make([]booking.ServiceLineItem, len(prices))
	for i, p := range prices {
		items[i] = booking.ServiceLineItem{
			Category:    "deep_cleaning",
			SubCategory: "full_home",
			ServiceName: "Deep Clean Service",
			Price:       dec(p),
		}
	}
	b, err := booking.NewBooking(booking.NewBookingParams{
		CustomerName: "Asha Verma",
		Category:     booking.CategoryDeepCleaning,
		Mode:         booking.ModeLead,
		Items:        items,
		Now:          time.Date(2026, time.February, 2, 9, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	return b
}

// =============================================================================
// BOOKING ROUND TRIPS
// =============================================================================

func TestSaveAndGetBooking(t *testing.T) {
	// GIVEN: A lead with items, stages and financials
	// WHEN: Saving and loading it
	// THEN: Every field survives the round trip exactly

	store := newTestStore(t)
	ctx := context.Background()
	b := seedLead(t, 3000, 2000)

	require.NoError(t, store.SaveBooking(ctx, b))
	got, err := store.GetBooking(ctx, b.ID)
	require.NoError(t, err)
	require.NotNil(t, got)

	assert.Equal(t, b.ID, got.ID)
	assert.Equal(t, "Asha Verma", got.CustomerName)
	assert.Equal(t, booking.CategoryDeepCleaning, got.Category)
	assert.Equal(t, booking.ModeLead, got.Mode)
	assert.Equal(t, booking.StateDraft, got.State)

	require.Len(t, got.Ledger.Items, 2)
	assert.Equal(t, b.Ledger.Items[0].ID, got.Ledger.Items[0].ID)
	assert.True(t, got.Ledger.Items[0].Price.Equal(dec(3000)))
	assert.True(t, got.Totals.Subtotal.Equal(dec(5000)))

	require.NotNil(t, got.Stages)
	require.Len(t, got.Stages.Stages, 2)
	assert.Equal(t, booking.StageFirst, got.Stages.Stages[0].Name)
	assert.Equal(t, booking.StagePending, got.Stages.Stages[0].Status)

	assert.True(t, got.Financials.FinalTotal.Equal(dec(5000)))
	assert.True(t, got.Financials.BookingAmount.Equal(dec(1000)))
	assert.True(t, got.Financials.AmountYetToPay.Equal(dec(1000)))
	assert.True(t, got.PersistedTotal.Equal(dec(5000)))
}

func TestGetBooking_MissingReturnsNil(t *testing.T) {
	// GIVEN: An empty store
	// WHEN: Loading an unknown ID
	// THEN: nil booking, nil error

	store := newTestStore(t)

	got, err := store.GetBooking(context.Background(), "nope")

	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSaveBooking_SnapshotReplacesItemsAndStages(t *testing.T) {
	// GIVEN: A saved lead
	// WHEN: Mutating items and stage state, then saving again
	// THEN: The reload reflects only the latest snapshot

	store := newTestStore(t)
	ctx := context.Background()
	b := seedLead(t, 3000, 2000)
	require.NoError(t, store.SaveBooking(ctx, b))

	require.NoError(t, b.RemoveItem(b.Ledger.Items[1].ID))
	require.NoError(t, b.SetStageRequested(booking.StageFirst, dec(600)))
	_, err := b.CollectCash(booking.StageFirst, dec(600), false, time.Now())
	require.NoError(t, err)
	require.NoError(t, store.SaveBooking(ctx, b))

	got, err := store.GetBooking(ctx, b.ID)
	require.NoError(t, err)
	require.Len(t, got.Ledger.Items, 1)
	first, _ := got.Stages.Stage(booking.StageFirst)
	assert.Equal(t, booking.StagePaid, first.Status)
	assert.True(t, first.PaidAmount.Equal(dec(600)))
	assert.True(t, got.Financials.PaidAmount.Equal(dec(600)))
}

func TestSaveBooking_DiscountAndOverrideSurvive(t *testing.T) {
	// GIVEN: A booking with an active discount and a manual override
	// WHEN: Round-tripping it
	// THEN: The calculator state and precedence come back intact

	store := newTestStore(t)
	ctx := context.Background()
	b := seedLead(t, 5000)
	require.NoError(t, b.ApplyDiscount(booking.DiscountPercent, dec(10)))
	require.NoError(t, b.SetManualTotal(dec(4000)))
	require.NoError(t, store.SaveBooking(ctx, b))

	got, err := store.GetBooking(ctx, b.ID)
	require.NoError(t, err)

	require.NotNil(t, got.Totals.Discount)
	assert.Equal(t, booking.DiscountPercent, got.Totals.Discount.Mode)
	assert.True(t, got.Totals.Discount.Value.Equal(dec(10)))
	assert.True(t, got.Totals.Discount.Base.Equal(dec(5000)))
	require.NotNil(t, got.Totals.Override)
	assert.True(t, got.Totals.FinalTotal().Equal(dec(4000)))
}

func TestListBookings_OrderedByCreation(t *testing.T) {
	// GIVEN: Two bookings created at different times
	// WHEN: Listing
	// THEN: Oldest first

	store := newTestStore(t)
	ctx := context.Background()

	older := seedLead(t, 1000)
	older.CreatedAt = time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
	newer := seedLead(t, 2000)
	newer.CreatedAt = time.Date(2026, time.June, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, store.SaveBooking(ctx, newer))
	require.NoError(t, store.SaveBooking(ctx, older))

	list, err := store.ListBookings(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, older.ID, list[0].ID)
	assert.Equal(t, newer.ID, list[1].ID)
}

// =============================================================================
// PRICE CHANGES
// =============================================================================

func TestPriceChange_SavedWithBookingAndResolvable(t *testing.T) {
	// GIVEN: A loaded booking whose total moved, emitting a pending record
	// WHEN: Saving the booking and later resolving the record
	// THEN: The record is loadable by ID and its status update persists

	store := newTestStore(t)
	ctx := context.Background()
	b := seedLead(t, 5000)
	require.NoError(t, store.SaveBooking(ctx, b))

	b.MarkLoaded()
	require.NoError(t, b.AddItem(booking.ServiceLineItem{ServiceName: "Balcony Clean", Price: dec(1000)}))
	rec := b.RecordPriceChange("ops", false, time.Now().UTC())
	require.NotNil(t, rec)
	require.NoError(t, store.SaveBooking(ctx, b))

	loaded, err := store.GetPriceChange(ctx, rec.ID)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, booking.PriceChangePending, loaded.Status)
	assert.True(t, loaded.ProposedTotal.Equal(dec(6000)))

	require.NoError(t, b.ResolvePriceChange(true, time.Now().UTC()))
	require.NoError(t, store.SaveBooking(ctx, b))

	loaded, err = store.GetPriceChange(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, booking.PriceChangeApproved, loaded.Status)
	assert.NotNil(t, loaded.ApprovedAt)

	reloaded, err := store.GetBooking(ctx, b.ID)
	require.NoError(t, err)
	require.NotNil(t, reloaded.PriceChange)
	assert.Equal(t, rec.ID, reloaded.PriceChange.ID)
	assert.True(t, reloaded.PersistedTotal.Equal(dec(6000)))
}

func TestListPriceChanges_AuditTrail(t *testing.T) {
	// GIVEN: Two adjustments recorded at different times
	// WHEN: Listing the booking's trail
	// THEN: Oldest first, both present

	store := newTestStore(t)
	ctx := context.Background()
	b := seedLead(t, 5000)

	t0 := time.Date(2026, time.March, 1, 10, 0, 0, 0, time.UTC)
	first := booking.RecordIfChanged(b.ID, dec(5000), dec(6000), "ops", false, t0)
	second := booking.RecordIfChanged(b.ID, dec(6000), dec(5500), "ops", false, t0.Add(time.Hour))
	require.NoError(t, store.SavePriceChange(ctx, *first))
	require.NoError(t, store.SavePriceChange(ctx, *second))

	trail, err := store.ListPriceChanges(ctx, b.ID)
	require.NoError(t, err)
	require.Len(t, trail, 2)
	assert.Equal(t, first.ID, trail[0].ID)
	assert.Equal(t, booking.ScopeAdded, trail[0].ScopeType)
	assert.Equal(t, second.ID, trail[1].ID)
	assert.Equal(t, booking.ScopeReduced, trail[1].ScopeType)
}

// =============================================================================
// PAYMENTS
// =============================================================================

func TestPayments_AppendOnlyHistory(t *testing.T) {
	// GIVEN: Two cash collections on one booking
	// WHEN: Recording and listing them
	// THEN: Both rows come back oldest first with their flags intact

	store := newTestStore(t)
	ctx := context.Background()
	b := seedLead(t, 5000)
	require.NoError(t, store.SaveBooking(ctx, b))

	require.NoError(t, b.SetStageRequested(booking.StageFirst, dec(1000)))
	t0 := time.Date(2026, time.April, 1, 12, 0, 0, 0, time.UTC)
	c1, err := b.CollectCash(booking.StageFirst, dec(1000), false, t0)
	require.NoError(t, err)
	c2, err := b.CollectCash(booking.StageFinal, dec(4000), false, t0.Add(time.Hour))
	require.NoError(t, err)

	require.NoError(t, store.RecordPayment(ctx, *c1))
	require.NoError(t, store.RecordPayment(ctx, *c2))

	payments, err := store.ListPayments(ctx, b.ID)
	require.NoError(t, err)
	require.Len(t, payments, 2)
	assert.Equal(t, booking.StageFirst, payments[0].InstallmentStage)
	assert.False(t, payments[0].IsAdditionalAmount)
	assert.Equal(t, booking.StageFinal, payments[1].InstallmentStage)
	assert.True(t, payments[1].IsAdditionalAmount, "unrequested final collection is an additional amount")
	assert.Equal(t, "Cash", payments[1].PaymentMethod)
	assert.True(t, payments[1].PaidAmount.Equal(dec(4000)))
}
