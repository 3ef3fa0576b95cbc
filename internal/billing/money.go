package billing

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Round rounds half away from zero to two decimal places.
func Round(v float64) float64 {
	return decimal.NewFromFloat(finite(v)).Round(2).InexactFloat64()
}

// RoundTotals rounds each component and derives the grand total from the
// rounded parts, so the persisted figures reconcile exactly.
func RoundTotals(t Totals) Totals {
	sub := decimal.NewFromFloat(finite(t.SubTotal)).Round(2)
	discount := decimal.NewFromFloat(finite(t.TotalDiscount)).Round(2)
	tax := decimal.NewFromFloat(finite(t.TotalTax)).Round(2)
	return Totals{
		SubTotal:      sub.InexactFloat64(),
		TotalDiscount: discount.InexactFloat64(),
		TotalTax:      tax.InexactFloat64(),
		GrandTotal:    sub.Add(tax).InexactFloat64(),
	}
}

// Format renders an amount for display, e.g. "₨ 1680.00".
func Format(symbol string, v float64) string {
	amount := decimal.NewFromFloat(finite(v)).StringFixed(2)
	symbol = strings.TrimSpace(symbol)
	if symbol == "" {
		return amount
	}
	return symbol + " " + amount
}
