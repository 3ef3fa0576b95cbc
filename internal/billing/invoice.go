package billing

import (
	"math"
	"strings"
	"time"

	"organisekaro/backend/internal/domain"
	"organisekaro/backend/internal/xid"
)

const DateLayout = "2006-01-02"

// Factory turns a finalized cart into an immutable invoice value. It never
// touches application state.
type Factory struct {
	newID func() string
	now   func() time.Time
}

func NewFactory(newID func() string, now func() time.Time) *Factory {
	if newID == nil {
		newID = func() string { return xid.New("INV") }
	}
	if now == nil {
		now = time.Now
	}
	return &Factory{newID: newID, now: now}
}

func (f *Factory) Build(party *domain.Party, items []domain.CartItem, date string) (domain.Invoice, error) {
	if party == nil || strings.TrimSpace(party.ID) == "" {
		return domain.Invoice{}, Invalid(ErrPartyRequired, "")
	}
	if len(items) == 0 {
		return domain.Invoice{}, Invalid(ErrEmptyCart, "add at least one item")
	}

	date = strings.TrimSpace(date)
	if date == "" {
		date = f.now().Format(DateLayout)
	} else if _, err := time.Parse(DateLayout, date); err != nil {
		return domain.Invoice{}, Invalid(ErrInvalidDate, date)
	}

	lines := make([]domain.CartItem, len(items))
	calc := make([]Line, len(items))
	for i, item := range items {
		item = Sanitize(item)
		lines[i] = item
		calc[i] = LineOf(item)
	}
	totals := RoundTotals(Compute(calc))

	return domain.Invoice{
		ID:            f.newID(),
		Date:          date,
		PartyID:       party.ID,
		PartyName:     party.Name,
		Items:         lines,
		SubTotal:      totals.SubTotal,
		TotalTax:      totals.TotalTax,
		TotalDiscount: totals.TotalDiscount,
		GrandTotal:    totals.GrandTotal,
	}, nil
}

// Sanitize replaces unusable numbers with their checkout defaults:
// quantity 1, price 0, discount 0, tax 0. Finite values are kept as entered,
// negatives included, so the invoice matches the live cart totals.
func Sanitize(item domain.CartItem) domain.CartItem {
	if item.Quantity < 1 {
		item.Quantity = 1
	}
	if !isUsable(item.SellPrice) {
		item.SellPrice = 0
	}
	if !isUsable(item.DiscountPercent) {
		item.DiscountPercent = 0
	}
	if !isUsable(item.TaxPercent) {
		item.TaxPercent = 0
	}
	return item
}

func LineOf(item domain.CartItem) Line {
	return Line{
		UnitPrice:       item.SellPrice,
		Quantity:        float64(item.Quantity),
		DiscountPercent: item.DiscountPercent,
		TaxPercent:      item.TaxPercent,
	}
}

func isUsable(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
