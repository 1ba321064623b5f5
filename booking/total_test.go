package booking_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/homjee/booking-engine/booking"
)

func TestTotalCalculator_PlainSubtotal(t *testing.T) {
	// GIVEN: No discount and no override
	// WHEN: Reading the final total
	// THEN: It is the subtotal

	var calc booking.TotalCalculator
	calc.SetSubtotal(dec(5000))

	assert.True(t, calc.FinalTotal().Equal(dec(5000)))
}

func TestTotalCalculator_PercentDiscount(t *testing.T) {
	// GIVEN: A 5000 subtotal
	// WHEN: Applying 10% off
	// THEN: The final total is 4500, rounded to a whole unit

	var calc booking.TotalCalculator
	calc.SetSubtotal(dec(5000))

	require.NoError(t, calc.ApplyDiscount(booking.DiscountPercent, dec(10)))

	assert.True(t, calc.FinalTotal().Equal(dec(4500)))
}

func TestTotalCalculator_PercentDiscountRounds(t *testing.T) {
	// GIVEN: A subtotal whose discount lands on a fraction
	// WHEN: Applying 15% off 333
	// THEN: 283.05 rounds to 283

	var calc booking.TotalCalculator
	calc.SetSubtotal(dec(333))

	require.NoError(t, calc.ApplyDiscount(booking.DiscountPercent, dec(15)))

	assert.True(t, calc.FinalTotal().Equal(dec(283)), "got %s", calc.FinalTotal())
}

func TestTotalCalculator_FixedDiscountFloorsAtZero(t *testing.T) {
	// GIVEN: A fixed discount larger than the subtotal
	// WHEN: Applying it
	// THEN: The final total floors at zero, never negative

	var calc booking.TotalCalculator
	calc.SetSubtotal(dec(1000))

	require.NoError(t, calc.ApplyDiscount(booking.DiscountFixed, dec(1500)))

	assert.True(t, calc.FinalTotal().IsZero())
}

func TestTotalCalculator_PercentOver100Rejected(t *testing.T) {
	// GIVEN: A percent discount above 100
	// WHEN: Applying it
	// THEN: Rejected; the previous total stands

	var calc booking.TotalCalculator
	calc.SetSubtotal(dec(1000))

	err := calc.ApplyDiscount(booking.DiscountPercent, dec(120))

	assert.ErrorIs(t, err, booking.ErrInvalidAmount)
	assert.True(t, calc.FinalTotal().Equal(dec(1000)))
}

func TestTotalCalculator_DiscountKeepsCapturedBase(t *testing.T) {
	// GIVEN: A 10% discount applied against a 5000 subtotal
	// WHEN: The subtotal later changes
	// THEN: The discount keeps the base captured at application time

	var calc booking.TotalCalculator
	calc.SetSubtotal(dec(5000))
	require.NoError(t, calc.ApplyDiscount(booking.DiscountPercent, dec(10)))

	calc.SetSubtotal(dec(8000))

	assert.True(t, calc.FinalTotal().Equal(dec(4500)))
	require.NotNil(t, calc.Discount)
	assert.True(t, calc.Discount.Base.Equal(dec(5000)))
}

func TestTotalCalculator_ClearDiscountRestoresSubtotal(t *testing.T) {
	// GIVEN: An applied discount
	// WHEN: Clearing it
	// THEN: The final total returns to the current subtotal

	var calc booking.TotalCalculator
	calc.SetSubtotal(dec(5000))
	require.NoError(t, calc.ApplyDiscount(booking.DiscountFixed, dec(500)))

	calc.ClearDiscount()

	assert.True(t, calc.FinalTotal().Equal(dec(5000)))
}

func TestTotalCalculator_OverrideTakesPrecedence(t *testing.T) {
	// GIVEN: A subtotal and an active discount
	// WHEN: Setting a manual total
	// THEN: The override wins until cleared

	var calc booking.TotalCalculator
	calc.SetSubtotal(dec(5000))
	require.NoError(t, calc.ApplyDiscount(booking.DiscountPercent, dec(10)))

	require.NoError(t, calc.SetManualTotal(dec(4200)))
	assert.True(t, calc.FinalTotal().Equal(dec(4200)))

	calc.ClearManualTotal()
	assert.True(t, calc.FinalTotal().Equal(dec(4500)), "precedence returns to the discount")
}

func TestTotalCalculator_OverrideRejectsInvalidAmounts(t *testing.T) {
	// GIVEN: A calculator with a valid total
	// WHEN: Overriding with a negative or over-limit value
	// THEN: Rejected; the total stands

	var calc booking.TotalCalculator
	calc.SetSubtotal(dec(5000))

	assert.ErrorIs(t, calc.SetManualTotal(dec(-1)), booking.ErrInvalidAmount)
	assert.ErrorIs(t, calc.SetManualTotal(booking.MaxAmount.Add(decimal.NewFromInt(1))), booking.ErrInvalidAmount)
	assert.True(t, calc.FinalTotal().Equal(dec(5000)))
}
