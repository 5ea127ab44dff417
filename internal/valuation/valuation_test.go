package valuation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValueAppreciatedHolding(t *testing.T) {
	pos := Value(Holding{
		TokenAmount:        200,
		TotalPurchasePrice: 3000,
		DividendsReceived:  150,
	}, 18.50)

	assert.Equal(t, 3700.0, pos.CurrentValue)
	assert.Equal(t, 850.0, pos.TotalReturn)
	assert.InDelta(t, 28.3333, pos.ReturnPercentage, 0.0001)
	assert.Equal(t, 5.0, pos.DividendYield)
}

func TestValueDepreciatedHolding(t *testing.T) {
	pos := Value(Holding{
		TokenAmount:        100,
		TotalPurchasePrice: 1000,
	}, 8.00)

	assert.Equal(t, 800.0, pos.CurrentValue)
	assert.Equal(t, -200.0, pos.TotalReturn)
	assert.Equal(t, -20.0, pos.ReturnPercentage)
}

func TestValueZeroCostHolding(t *testing.T) {
	pos := Value(Holding{TokenAmount: 0, TotalPurchasePrice: 0}, 10.00)

	assert.Equal(t, 0.0, pos.CurrentValue)
	assert.Equal(t, 0.0, pos.TotalReturn)
	assert.Equal(t, 0.0, pos.ReturnPercentage)
	assert.Equal(t, 0.0, pos.DividendYield)
}

func TestValueDividendsOnlyReturn(t *testing.T) {
	// Flat price, all return comes from dividends.
	pos := Value(Holding{
		TokenAmount:        50,
		TotalPurchasePrice: 500,
		DividendsReceived:  25,
	}, 10.00)

	assert.Equal(t, 500.0, pos.CurrentValue)
	assert.Equal(t, 25.0, pos.TotalReturn)
	assert.Equal(t, 5.0, pos.ReturnPercentage)
	assert.Equal(t, 5.0, pos.DividendYield)
}

func TestPurchaseAmounts(t *testing.T) {
	amount, fee, total := PurchaseAmounts(50, 100.0, 2.0)

	assert.Equal(t, 5000.0, amount)
	assert.Equal(t, 100.0, fee)
	assert.Equal(t, 5100.0, total)
}

func TestPurchaseAmountsZeroFee(t *testing.T) {
	amount, fee, total := PurchaseAmounts(10, 25.50, 0)

	assert.Equal(t, 255.0, amount)
	assert.Equal(t, 0.0, fee)
	assert.Equal(t, 255.0, total)
}

func TestPurchaseAmountsFractionalFeeRoundsToCents(t *testing.T) {
	amount, fee, total := PurchaseAmounts(3, 33.33, 2.5)

	assert.Equal(t, 99.99, amount)
	assert.Equal(t, 2.5, fee)
	assert.Equal(t, 102.49, total)
}

func TestPurchaseAmountsComponentsReconcile(t *testing.T) {
	// A sub-cent gross rounds before the fee is taken, so the stored
	// amount, fee and net always add up to the cent.
	amount, fee, total := PurchaseAmounts(1, 9.995, 2.0)

	assert.Equal(t, 10.0, amount)
	assert.Equal(t, 0.2, fee)
	assert.Equal(t, 10.2, total)
	assert.InDelta(t, amount+fee, total, 1e-9)
}

func TestAnnualDividendEstimate(t *testing.T) {
	assert.Equal(t, 425.0, AnnualDividendEstimate(5000, 8.5))
	assert.Equal(t, 0.0, AnnualDividendEstimate(5000, 0))
}
