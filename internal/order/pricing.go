package order

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// ItemSubtotal is (price + sum of extras) * qty.
func ItemSubtotal(price decimal.Decimal, extras []decimal.Decimal, qty int) decimal.Decimal {
	unit := price
	for _, e := range extras {
		unit = unit.Add(e)
	}
	return unit.Mul(decimal.NewFromInt(int64(qty))).Round(2)
}

// Totals returns subtotal, tax and total for the given item subtotals.
// taxPercentage is a percentage, so 10 means 10%.
func Totals(itemSubtotals []decimal.Decimal, taxPercentage decimal.Decimal) (decimal.Decimal, decimal.Decimal, decimal.Decimal) {
	subtotal := decimal.Zero
	for _, s := range itemSubtotals {
		subtotal = subtotal.Add(s)
	}
	tax := decimal.Zero
	if taxPercentage.IsPositive() {
		tax = subtotal.Mul(taxPercentage).Div(hundred).Round(2)
	}
	return subtotal.Round(2), tax, subtotal.Add(tax).Round(2)
}
