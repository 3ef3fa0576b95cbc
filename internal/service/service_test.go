package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"organisekaro/backend/internal/billing"
	"organisekaro/backend/internal/cart"
	"organisekaro/backend/internal/domain"
	"organisekaro/backend/internal/report"
	"organisekaro/backend/internal/state"
	"organisekaro/backend/internal/store"
	"organisekaro/backend/internal/store/memory"
)

func newTestService() *Service {
	st := memory.NewSeeded()
	reports := report.NewEngine(nil, time.Second, 10)
	clock := func() time.Time { return time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC) }
	return New(st, reports, WithClock(clock))
}

func findItem(t *testing.T, items []domain.InventoryItem, id string) domain.InventoryItem {
	t.Helper()
	for _, item := range items {
		if item.ID == id {
			return item
		}
	}
	t.Fatalf("item %s not found", id)
	return domain.InventoryItem{}
}

func findParty(t *testing.T, parties []domain.Party, id string) domain.Party {
	t.Helper()
	for _, p := range parties {
		if p.ID == id {
			return p
		}
	}
	t.Fatalf("party %s not found", id)
	return domain.Party{}
}

func TestCheckoutAppliesStockAndBalance(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	if _, err := svc.AddToCart(ctx, "1"); err != nil {
		t.Fatalf("add to cart: %v", err)
	}
	if _, err := svc.UpdateCartLine(ctx, "1", "quantity", "2"); err != nil {
		t.Fatalf("update quantity: %v", err)
	}

	resp, err := svc.Checkout(ctx, domain.CheckoutRequest{PartyID: "1", Date: "2026-03-14"})
	if err != nil {
		t.Fatalf("checkout failed: %v", err)
	}

	inv := resp.Invoice
	if inv.SubTotal != 1600 || inv.TotalTax != 80 || inv.TotalDiscount != 0 || inv.GrandTotal != 1680 {
		t.Fatalf("unexpected totals: %+v", inv)
	}
	if !strings.HasPrefix(inv.ID, "INV-") {
		t.Fatalf("expected INV- prefix, got %s", inv.ID)
	}
	if inv.PartyName != "Tech Solutions Ltd" || inv.Date != "2026-03-14" {
		t.Fatalf("unexpected invoice header: %+v", inv)
	}
	if resp.Display != "₨ 1680.00" {
		t.Fatalf("unexpected display %q", resp.Display)
	}

	snap := svc.State()
	if got := findItem(t, snap.Inventory, "1").Stock; got != 48 {
		t.Fatalf("expected stock 48, got %d", got)
	}
	if got := findParty(t, snap.Parties, "1").Balance; got != 1680 {
		t.Fatalf("expected balance 1680, got %v", got)
	}
	if len(snap.Invoices) != 1 || snap.Invoices[0].ID != inv.ID {
		t.Fatalf("expected invoice to be recorded first, got %+v", snap.Invoices)
	}
	if len(svc.CartView().Lines) != 0 {
		t.Fatalf("expected cart to be cleared after checkout")
	}
}

func TestCheckoutWithDiscount(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	_, _ = svc.AddToCart(ctx, "1")
	_, _ = svc.UpdateCartLine(ctx, "1", "quantity", "2")
	view, err := svc.UpdateCartLine(ctx, "1", "discountPercent", "10")
	if err != nil {
		t.Fatalf("update discount: %v", err)
	}
	if view.Lines[0].Final != 1512 {
		t.Fatalf("expected live line final 1512, got %v", view.Lines[0].Final)
	}

	resp, err := svc.Checkout(ctx, domain.CheckoutRequest{PartyID: "1"})
	if err != nil {
		t.Fatalf("checkout failed: %v", err)
	}
	if resp.Invoice.SubTotal != 1440 || resp.Invoice.TotalDiscount != 160 || resp.Invoice.TotalTax != 72 || resp.Invoice.GrandTotal != 1512 {
		t.Fatalf("unexpected totals: %+v", resp.Invoice)
	}
	if resp.Invoice.Date != "2026-03-14" {
		t.Fatalf("expected date to default to today, got %s", resp.Invoice.Date)
	}
}

func TestCheckoutRequiresPartyAndItems(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	_, err := svc.Checkout(ctx, domain.CheckoutRequest{PartyID: "1"})
	if !errors.Is(err, billing.ErrEmptyCart) {
		t.Fatalf("expected ErrEmptyCart, got %v", err)
	}

	_, _ = svc.AddToCart(ctx, "1")
	_, err = svc.Checkout(ctx, domain.CheckoutRequest{})
	if !errors.Is(err, billing.ErrPartyRequired) {
		t.Fatalf("expected ErrPartyRequired, got %v", err)
	}
	_, err = svc.Checkout(ctx, domain.CheckoutRequest{PartyID: "missing"})
	var verr *billing.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error for unknown party, got %v", err)
	}
	if len(svc.State().Invoices) != 0 {
		t.Fatalf("expected no invoice after rejected checkouts")
	}
	if len(svc.CartView().Lines) != 1 {
		t.Fatalf("expected cart to survive rejected checkout")
	}
}

func TestCheckoutRechecksStock(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	_, _ = svc.AddToCart(ctx, "2")
	_, _ = svc.UpdateCartLine(ctx, "2", "quantity", "5")

	if _, err := svc.UpdateItem(ctx, "2", domain.ItemRequest{
		Name: "Mechanical Keyboard", BuyPrice: 3000, SellPrice: 4500, TaxPercent: 10, Stock: 3, Unit: "pcs",
	}); err != nil {
		t.Fatalf("update item: %v", err)
	}

	_, err := svc.Checkout(ctx, domain.CheckoutRequest{PartyID: "1"})
	if !errors.Is(err, store.ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}
	snap := svc.State()
	if len(snap.Invoices) != 0 {
		t.Fatalf("expected no invoice")
	}
	if got := findItem(t, snap.Inventory, "2").Stock; got != 3 {
		t.Fatalf("expected stock untouched at 3, got %d", got)
	}
}

func TestCheckoutSupplierBalanceUnchanged(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	_, _ = svc.AddToCart(ctx, "1")
	if _, err := svc.Checkout(ctx, domain.CheckoutRequest{PartyID: "2"}); err != nil {
		t.Fatalf("checkout failed: %v", err)
	}
	if got := findParty(t, svc.State().Parties, "2").Balance; got != 50000 {
		t.Fatalf("expected supplier balance 50000, got %v", got)
	}
	if got := findItem(t, svc.State().Inventory, "1").Stock; got != 49 {
		t.Fatalf("expected stock 49, got %d", got)
	}
}

func TestCheckoutToleratesDeletedItem(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	_, _ = svc.AddToCart(ctx, "1")
	_, _ = svc.AddToCart(ctx, "2")
	if err := svc.DeleteItem(ctx, "2"); err != nil {
		t.Fatalf("delete item: %v", err)
	}

	resp, err := svc.Checkout(ctx, domain.CheckoutRequest{PartyID: "1"})
	if err != nil {
		t.Fatalf("checkout failed: %v", err)
	}
	if len(resp.Invoice.Items) != 2 {
		t.Fatalf("expected both lines on invoice, got %d", len(resp.Invoice.Items))
	}
	snap := svc.State()
	if got := findItem(t, snap.Inventory, "1").Stock; got != 49 {
		t.Fatalf("expected stock 49, got %d", got)
	}
	if got := findParty(t, snap.Parties, "1").Balance; got != resp.Invoice.GrandTotal {
		t.Fatalf("expected balance %v, got %v", resp.Invoice.GrandTotal, got)
	}
}

func TestCheckoutSanitizesInvalidInput(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	_, _ = svc.AddToCart(ctx, "1")
	if _, err := svc.UpdateCartLine(ctx, "1", "quantity", ""); err != nil {
		t.Fatalf("empty quantity should be tolerated: %v", err)
	}
	if _, err := svc.UpdateCartLine(ctx, "1", "discountPercent", "abc"); err != nil {
		t.Fatalf("invalid discount should be tolerated: %v", err)
	}

	resp, err := svc.Checkout(ctx, domain.CheckoutRequest{PartyID: "1"})
	if err != nil {
		t.Fatalf("checkout failed: %v", err)
	}
	line := resp.Invoice.Items[0]
	if line.Quantity != 1 || line.DiscountPercent != 0 {
		t.Fatalf("expected sanitized line, got %+v", line)
	}
	if resp.Invoice.GrandTotal != 840 {
		t.Fatalf("expected grand total 840, got %v", resp.Invoice.GrandTotal)
	}
}

func TestAddToCartRejections(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	created, err := svc.CreateItem(ctx, domain.ItemRequest{Name: "USB Cable", SellPrice: 300, Stock: 0, Unit: "pcs"})
	if err != nil {
		t.Fatalf("create item: %v", err)
	}
	_, err = svc.AddToCart(ctx, created.ID)
	if !errors.Is(err, cart.ErrOutOfStock) {
		t.Fatalf("expected ErrOutOfStock, got %v", err)
	}
	if len(svc.CartView().Lines) != 0 {
		t.Fatalf("expected empty cart")
	}

	_, err = svc.AddToCart(ctx, "nope")
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	_, _ = svc.AddToCart(ctx, "1")
	_, err = svc.UpdateCartLine(ctx, "1", "quantity", "999")
	if !errors.Is(err, cart.ErrStockExceeded) {
		t.Fatalf("expected ErrStockExceeded, got %v", err)
	}
	if got := svc.CartView().Lines[0].Quantity; got != "1" {
		t.Fatalf("expected quantity unchanged at 1, got %s", got)
	}
}

func TestRestoreRejectsIncompleteDocument(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	before := svc.State()

	_, err := svc.Restore(ctx, []byte(`{"inventory":[]}`))
	if !errors.Is(err, state.ErrInvalidDocument) {
		t.Fatalf("expected ErrInvalidDocument, got %v", err)
	}
	after := svc.State()
	if len(after.Inventory) != len(before.Inventory) || len(after.Parties) != len(before.Parties) {
		t.Fatalf("expected state unchanged after rejected restore")
	}

	_, err = svc.Restore(ctx, []byte(`not json`))
	if !errors.Is(err, state.ErrInvalidDocument) {
		t.Fatalf("expected ErrInvalidDocument for malformed json, got %v", err)
	}
}

func TestBackupRestoreRoundTrip(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	_, _ = svc.AddToCart(ctx, "1")
	if _, err := svc.Checkout(ctx, domain.CheckoutRequest{PartyID: "1"}); err != nil {
		t.Fatalf("checkout failed: %v", err)
	}

	name, doc, err := svc.Backup(ctx)
	if err != nil {
		t.Fatalf("backup: %v", err)
	}
	if name != "organise_karo_backup_2026-03-14T09-30-00Z.json" {
		t.Fatalf("unexpected backup name %s", name)
	}

	svc.Reset(ctx)
	if len(svc.State().Invoices) != 0 {
		t.Fatalf("expected reset to clear invoices")
	}

	_, _ = svc.AddToCart(ctx, "2")
	resp, err := svc.Restore(ctx, doc)
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	if resp.Invoices != 1 || resp.Inventory != 2 || resp.Parties != 2 {
		t.Fatalf("unexpected restore counts %+v", resp)
	}
	if got := findItem(t, svc.State().Inventory, "1").Stock; got != 49 {
		t.Fatalf("expected restored stock 49, got %d", got)
	}
	if len(svc.CartView().Lines) != 0 {
		t.Fatalf("expected restore to clear the cart")
	}
}

func TestResetIsIdempotent(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	_, _ = svc.CreateParty(ctx, domain.PartyRequest{Name: "Walk-in", Type: domain.PartyCustomer})
	first := svc.Reset(ctx)
	second := svc.Reset(ctx)

	seed := state.Seed()
	if len(first.Parties) != len(seed.Parties) || len(second.Parties) != len(seed.Parties) {
		t.Fatalf("expected seed parties after reset")
	}
	if first.Settings != second.Settings {
		t.Fatalf("expected identical settings after repeated reset")
	}
}

func TestItemAndPartyValidation(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	_, err := svc.CreateItem(ctx, domain.ItemRequest{Name: "", SellPrice: -1, Unit: "pcs"})
	var verr *billing.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}

	_, err = svc.CreateParty(ctx, domain.PartyRequest{Name: "Vendor", Type: "Partner"})
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error for party type, got %v", err)
	}

	_, err = svc.UpdateParty(ctx, "missing", domain.PartyRequest{Name: "X", Type: domain.PartyCustomer})
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := svc.DeleteItem(ctx, "missing"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on delete, got %v", err)
	}
}

func TestQuickAddPartyCreatesCustomer(t *testing.T) {
	svc := newTestService()

	party, err := svc.QuickAddParty(context.Background(), domain.QuickPartyRequest{Name: "  Ali Traders ", Phone: "0300"})
	if err != nil {
		t.Fatalf("quick add: %v", err)
	}
	if party.Type != domain.PartyCustomer || party.Balance != 0 || party.Name != "Ali Traders" {
		t.Fatalf("unexpected party %+v", party)
	}
	if len(svc.ListParties()) != 3 {
		t.Fatalf("expected 3 parties, got %d", len(svc.ListParties()))
	}
}

func TestUpdateSettingsMergesPatch(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	usd := domain.CurrencyUSD
	settings, err := svc.UpdateSettings(ctx, domain.SettingsPatch{Currency: &usd})
	if err != nil {
		t.Fatalf("update settings: %v", err)
	}
	if settings.Currency != domain.CurrencyUSD || settings.TaxName != "GST" {
		t.Fatalf("unexpected settings %+v", settings)
	}

	bad := domain.Currency("EUR")
	if _, err := svc.UpdateSettings(ctx, domain.SettingsPatch{Currency: &bad}); err == nil {
		t.Fatalf("expected unsupported currency to be rejected")
	}
	if svc.GetSettings().Currency != domain.CurrencyUSD {
		t.Fatalf("expected settings unchanged after rejected patch")
	}
}

func TestDashboardSummary(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	_, _ = svc.AddToCart(ctx, "1")
	_, _ = svc.UpdateCartLine(ctx, "1", "quantity", "2")
	if _, err := svc.Checkout(ctx, domain.CheckoutRequest{PartyID: "1", Date: "2026-03-14"}); err != nil {
		t.Fatalf("checkout failed: %v", err)
	}

	summary := svc.Dashboard(ctx)
	if summary.TotalSales != 1680 || summary.Receivables != 1680 || summary.CashInHand != 0 {
		t.Fatalf("unexpected summary %+v", summary)
	}
	if summary.InvoiceCount != 1 || len(summary.SalesByDate) != 1 {
		t.Fatalf("unexpected invoice stats %+v", summary)
	}

	snap := svc.BusinessSnapshot(ctx)
	if snap.TotalSales != 1680 || len(snap.RecentInvoices) != 1 {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
}

func TestCheckoutMatchesLivePreview(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	_, _ = svc.AddToCart(ctx, "1")
	_, _ = svc.UpdateCartLine(ctx, "1", "quantity", "2")
	preview, err := svc.UpdateCartLine(ctx, "1", "discountPercent", "-10")
	if err != nil {
		t.Fatalf("update discount: %v", err)
	}

	resp, err := svc.Checkout(ctx, domain.CheckoutRequest{PartyID: "1"})
	if err != nil {
		t.Fatalf("checkout failed: %v", err)
	}
	if resp.Invoice.GrandTotal != preview.GrandTotal || resp.Invoice.SubTotal != preview.SubTotal {
		t.Fatalf("invoice totals %+v differ from preview %+v", resp.Invoice, preview)
	}
	if resp.Invoice.GrandTotal != 1848 {
		t.Fatalf("expected grand total 1848, got %v", resp.Invoice.GrandTotal)
	}
}

func TestCheckoutRejectsRecordedInvoiceID(t *testing.T) {
	clock := func() time.Time { return time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC) }
	factory := billing.NewFactory(func() string { return "INV-fixed" }, clock)
	svc := New(memory.NewSeeded(), nil, WithClock(clock), WithInvoiceFactory(factory))
	ctx := context.Background()

	_, _ = svc.AddToCart(ctx, "1")
	if _, err := svc.Checkout(ctx, domain.CheckoutRequest{PartyID: "1"}); err != nil {
		t.Fatalf("first checkout: %v", err)
	}

	_, _ = svc.AddToCart(ctx, "1")
	_, err := svc.Checkout(ctx, domain.CheckoutRequest{PartyID: "1"})
	if !errors.Is(err, store.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}

	if got := len(svc.CartView().Lines); got != 1 {
		t.Fatalf("expected cart to be kept after rejection, got %d lines", got)
	}
	snap := svc.State()
	if len(snap.Invoices) != 1 {
		t.Fatalf("expected one recorded invoice, got %d", len(snap.Invoices))
	}
	if got := findItem(t, snap.Inventory, "1").Stock; got != 49 {
		t.Fatalf("expected stock 49, got %d", got)
	}
}

func TestCartChangesDuringCheckoutAreNotLost(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	const adds = 15

	var wg sync.WaitGroup
	wg.Add(1)
	added := 0
	go func() {
		defer wg.Done()
		for n := 0; n < adds; n++ {
			if _, err := svc.AddToCart(ctx, "2"); err == nil {
				added++
			}
		}
	}()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	for running := true; running; {
		select {
		case <-done:
			running = false
		default:
		}
		_, _ = svc.Checkout(ctx, domain.CheckoutRequest{PartyID: "1"})
	}

	invoiced := 0
	for _, inv := range svc.State().Invoices {
		for _, line := range inv.Items {
			invoiced += line.Quantity
		}
	}
	inCart := 0
	for _, line := range svc.cart.Lines() {
		inCart += int(line.Quantity.Number())
	}
	if added != adds {
		t.Fatalf("expected every add to succeed, got %d", added)
	}
	if invoiced+inCart != added {
		t.Fatalf("invoiced %d + in cart %d != added %d", invoiced, inCart, added)
	}
	if got := findItem(t, svc.State().Inventory, "2").Stock; got != 20-invoiced {
		t.Fatalf("expected stock %d, got %d", 20-invoiced, got)
	}
}
