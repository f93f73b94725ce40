// Package pricing computes the annual base premium of a plan for a
// household.
package pricing

import (
	"github.com/shopspring/decimal"

	"cotizador/internal/models"
)

// MaxPricingAge is the oldest age band in the price table. Older members
// are priced at this band.
const MaxPricingAge = 81

// PriceBook looks up a single (insurer, plan, age) premium row.
type PriceBook interface {
	PriceRow(insurer, plan string, age int) (models.PriceRow, bool)
}

// ClampAge caps age at MaxPricingAge.
func ClampAge(age int) int {
	if age > MaxPricingAge {
		return MaxPricingAge
	}
	return age
}

// Price sums every member's premium. It returns false when any member has
// no row or a non-positive premium; the plan is then not offered at all.
func Price(book PriceBook, insurer, plan string, members models.Household) (decimal.Decimal, bool) {
	if len(members) == 0 {
		return decimal.Zero, false
	}

	total := decimal.Zero
	for _, m := range members {
		row, ok := book.PriceRow(insurer, plan, ClampAge(m.Age))
		if !ok {
			return decimal.Zero, false
		}
		premium := row.Premium(m.Health)
		if !premium.IsPositive() {
			return decimal.Zero, false
		}
		total = total.Add(premium)
	}
	return total, true
}

// Breakdown is the outcome of applying a discount to a base price.
type Breakdown struct {
	List    decimal.Decimal
	Percent int
	Final   decimal.Decimal
	Savings decimal.Decimal
	Monthly decimal.Decimal
}

var hundred = decimal.NewFromInt(100)
var twelve = decimal.NewFromInt(12)

// ApplyDiscount computes final = base × (1 − pct/100), the savings and the
// monthly price. Percentages outside 0–100 are clamped.
func ApplyDiscount(base decimal.Decimal, pct int) Breakdown {
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	final := base.Mul(decimal.NewFromInt(int64(100 - pct))).Div(hundred)
	return Breakdown{
		List:    base,
		Percent: pct,
		Final:   final,
		Savings: base.Sub(final),
		Monthly: final.Div(twelve),
	}
}
