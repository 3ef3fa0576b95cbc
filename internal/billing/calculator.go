package billing

import "math"

// Line is the numeric view of one cart line. Quantity is a float so that
// unvalidated cart input can flow through the same arithmetic.
type Line struct {
	UnitPrice       float64
	Quantity        float64
	DiscountPercent float64
	TaxPercent      float64
}

type LineAmounts struct {
	Base     float64 `json:"base"`
	Discount float64 `json:"discount"`
	Taxable  float64 `json:"taxable"`
	Tax      float64 `json:"tax"`
	Final    float64 `json:"final"`
}

type Totals struct {
	SubTotal      float64 `json:"subTotal"`
	TotalDiscount float64 `json:"totalDiscount"`
	TotalTax      float64 `json:"totalTax"`
	GrandTotal    float64 `json:"grandTotal"`
}

// Amounts computes the per-line breakdown. Discount percentages are applied
// as given, so a discount above 100 yields a negative taxable amount.
func Amounts(l Line) LineAmounts {
	base := finite(l.UnitPrice) * finite(l.Quantity)
	discount := base * finite(l.DiscountPercent) / 100
	taxable := base - discount
	tax := taxable * finite(l.TaxPercent) / 100
	return LineAmounts{
		Base:     base,
		Discount: discount,
		Taxable:  taxable,
		Tax:      tax,
		Final:    taxable + tax,
	}
}

// Compute aggregates lines. SubTotal is the sum of taxable amounts, so it is
// already net of discount and GrandTotal is SubTotal plus TotalTax.
func Compute(lines []Line) Totals {
	var t Totals
	for _, l := range lines {
		a := Amounts(l)
		t.SubTotal += a.Taxable
		t.TotalDiscount += a.Discount
		t.TotalTax += a.Tax
	}
	t.GrandTotal = t.SubTotal + t.TotalTax
	return t
}

func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
