// Package valuation computes position values and returns for token holdings.
// All arithmetic runs on decimals and results are rounded to cents, so
// aggregating many positions cannot drift the way float accumulation does.
package valuation

import "github.com/shopspring/decimal"

// Holding is the input to a position valuation: what the investor holds and
// what they paid for it.
type Holding struct {
	TokenAmount        int64
	TotalPurchasePrice float64
	DividendsReceived  float64
}

// Position is the valued form of a holding at a given per-token price.
type Position struct {
	CurrentValue     float64
	TotalReturn      float64
	ReturnPercentage float64
	DividendYield    float64
}

var hundred = decimal.NewFromInt(100)

// Value prices a holding at currentPricePerToken. TotalReturn counts both the
// unrealized price move and dividends already received. ReturnPercentage is
// zero for a zero-cost holding rather than a division error.
func Value(h Holding, currentPricePerToken float64) Position {
	price := decimal.NewFromFloat(currentPricePerToken)
	tokens := decimal.NewFromInt(h.TokenAmount)
	cost := decimal.NewFromFloat(h.TotalPurchasePrice)
	dividends := decimal.NewFromFloat(h.DividendsReceived)

	current := tokens.Mul(price)
	totalReturn := current.Sub(cost).Add(dividends)

	var pct, yield decimal.Decimal
	if cost.IsPositive() {
		pct = totalReturn.Div(cost).Mul(hundred)
		yield = dividends.Div(cost).Mul(hundred)
	}

	return Position{
		CurrentValue:     round2(current),
		TotalReturn:      round2(totalReturn),
		ReturnPercentage: roundPct(pct),
		DividendYield:    roundPct(yield),
	}
}

// PurchaseAmounts derives the money amounts of a purchase: gross price,
// platform fee and the total the investor is charged. feePercentage is a
// percentage, e.g. 2.0 means two percent. The components are rounded to cents
// first and the total is their sum, so amount + fee == total always holds.
func PurchaseAmounts(tokenAmount int64, pricePerToken, feePercentage float64) (amount, fee, total float64) {
	gross := decimal.NewFromInt(tokenAmount).Mul(decimal.NewFromFloat(pricePerToken)).Round(2)
	feeDec := gross.Mul(decimal.NewFromFloat(feePercentage)).Div(hundred).Round(2)
	return round2(gross), round2(feeDec), round2(gross.Add(feeDec))
}

// AnnualDividendEstimate projects a year of dividends from the position's
// current value and the property's expected yield percentage.
func AnnualDividendEstimate(currentValue, expectedAnnualYield float64) float64 {
	estimate := decimal.NewFromFloat(currentValue).
		Mul(decimal.NewFromFloat(expectedAnnualYield)).
		Div(hundred)
	return round2(estimate)
}

func round2(d decimal.Decimal) float64 {
	f, _ := d.Round(2).Float64()
	return f
}

func roundPct(d decimal.Decimal) float64 {
	f, _ := d.Round(4).Float64()
	return f
}
