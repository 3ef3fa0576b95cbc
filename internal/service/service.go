package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"organisekaro/backend/internal/billing"
	"organisekaro/backend/internal/cart"
	"organisekaro/backend/internal/domain"
	"organisekaro/backend/internal/obs"
	"organisekaro/backend/internal/report"
	"organisekaro/backend/internal/state"
	"organisekaro/backend/internal/store"
	"organisekaro/backend/internal/store/memory"
	"organisekaro/backend/internal/xid"
)

const backupPrefix = "organise_karo_backup_"

type Service struct {
	store    *memory.Store
	cart     *cart.Cart
	invoices *billing.Factory
	reports  *report.Engine
	validate *validator.Validate
	log      zerolog.Logger
	metrics  *obs.Metrics
	now      func() time.Time

	// billingMu serializes cart commands with checkout, restore and reset so
	// the cart cannot change between finalizing it and clearing it.
	billingMu sync.Mutex
}

type Option func(*Service)

func WithLogger(l zerolog.Logger) Option {
	return func(s *Service) { s.log = l }
}

func WithMetrics(m *obs.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func WithInvoiceFactory(f *billing.Factory) Option {
	return func(s *Service) {
		if f != nil {
			s.invoices = f
		}
	}
}

func New(st *memory.Store, reports *report.Engine, opts ...Option) *Service {
	if reports == nil {
		reports = report.NewEngine(nil, 0, 0)
	}
	s := &Service{
		store:    st,
		cart:     cart.New(st),
		reports:  reports,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		log:      zerolog.Nop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.invoices == nil {
		s.invoices = billing.NewFactory(nil, s.now)
	}
	return s
}

func (s *Service) State() domain.AppState {
	return s.store.Snapshot()
}

// Cart

func (s *Service) CartView() domain.CartView {
	lines := s.cart.Lines()
	totals := s.cart.Totals()
	symbol := s.store.Settings().Currency.Symbol()

	view := domain.CartView{
		Lines:         make([]domain.CartLineView, 0, len(lines)),
		SubTotal:      totals.SubTotal,
		TotalDiscount: totals.TotalDiscount,
		TotalTax:      totals.TotalTax,
		GrandTotal:    totals.GrandTotal,
		Display:       billing.Format(symbol, totals.GrandTotal),
	}
	for _, line := range lines {
		stock := line.Item.Stock
		if live, ok := s.store.LookupItem(line.Item.ID); ok {
			stock = live.Stock
		}
		view.Lines = append(view.Lines, domain.CartLineView{
			ItemID:          line.Item.ID,
			Name:            line.Item.Name,
			Unit:            line.Item.Unit,
			Stock:           stock,
			Quantity:        line.Quantity.String(),
			SellPrice:       line.SellPrice.String(),
			DiscountPercent: line.DiscountPercent.String(),
			TaxPercent:      line.Item.TaxPercent,
			Valid:           line.Quantity.Valid && line.SellPrice.Valid && line.DiscountPercent.Valid,
			Final:           line.Amounts().Final,
		})
	}
	return view
}

func (s *Service) AddToCart(_ context.Context, itemID string) (domain.CartView, error) {
	itemID = strings.TrimSpace(itemID)
	s.billingMu.Lock()
	defer s.billingMu.Unlock()

	if err := s.cart.Add(itemID); err != nil {
		return domain.CartView{}, s.cartError("add", itemID, err)
	}
	return s.CartView(), nil
}

func (s *Service) UpdateCartLine(_ context.Context, itemID string, field string, value string) (domain.CartView, error) {
	s.billingMu.Lock()
	defer s.billingMu.Unlock()

	if err := s.cart.Update(itemID, cart.Field(field), value); err != nil {
		return domain.CartView{}, s.cartError("update", itemID, err)
	}
	return s.CartView(), nil
}

func (s *Service) AdjustCartQuantity(_ context.Context, itemID string, delta int) (domain.CartView, error) {
	s.billingMu.Lock()
	defer s.billingMu.Unlock()

	if err := s.cart.Adjust(itemID, delta); err != nil {
		return domain.CartView{}, s.cartError("adjust", itemID, err)
	}
	return s.CartView(), nil
}

func (s *Service) RemoveCartLine(_ context.Context, itemID string) (domain.CartView, error) {
	s.billingMu.Lock()
	defer s.billingMu.Unlock()

	if err := s.cart.Remove(itemID); err != nil {
		return domain.CartView{}, s.cartError("remove", itemID, err)
	}
	return s.CartView(), nil
}

func (s *Service) ClearCart(_ context.Context) domain.CartView {
	s.billingMu.Lock()
	defer s.billingMu.Unlock()

	s.cart.Clear()
	return s.CartView()
}

// Checkout turns the cart into an invoice for partyID and applies it.
// Stock is re-checked against the live inventory under the store lock; lines
// for items deleted since they were added are kept on the invoice and skip
// the stock decrement.
func (s *Service) Checkout(ctx context.Context, req domain.CheckoutRequest) (domain.CheckoutResponse, error) {
	s.billingMu.Lock()
	defer s.billingMu.Unlock()

	partyID := strings.TrimSpace(req.PartyID)
	if partyID == "" {
		return domain.CheckoutResponse{}, billing.Invalid(billing.ErrPartyRequired, "")
	}
	party, ok := s.store.LookupParty(partyID)
	if !ok {
		return domain.CheckoutResponse{}, billing.Invalid(billing.ErrPartyRequired, fmt.Sprintf("unknown party %s", partyID))
	}

	invoice, err := s.invoices.Build(&party, s.cart.Finalize(), req.Date)
	if err != nil {
		return domain.CheckoutResponse{}, err
	}

	err = s.store.DispatchChecked(func(current domain.AppState) error {
		return checkInvoice(current, invoice)
	}, state.CreateInvoice{Invoice: invoice})
	if err != nil {
		s.metrics.ObserveCartRejection("checkout_rejected")
		s.log.Warn().Err(err).Str("party_id", partyID).Msg("checkout rejected")
		return domain.CheckoutResponse{}, err
	}

	s.cart.Clear()
	s.metrics.ObserveInvoice(invoice.GrandTotal)
	s.log.Info().
		Str("invoice_id", invoice.ID).
		Str("party_id", invoice.PartyID).
		Int("lines", len(invoice.Items)).
		Float64("grand_total", invoice.GrandTotal).
		Msg("invoice created")

	return domain.CheckoutResponse{
		Invoice: invoice,
		Display: billing.Format(s.store.Settings().Currency.Symbol(), invoice.GrandTotal),
	}, nil
}

// checkInvoice rejects an invoice whose id is already recorded or whose
// lines exceed live stock. Lines for deleted items are skipped.
func checkInvoice(current domain.AppState, invoice domain.Invoice) error {
	for _, existing := range current.Invoices {
		if existing.ID == invoice.ID {
			return fmt.Errorf("invoice %s: %w", invoice.ID, store.ErrDuplicate)
		}
	}

	stock := make(map[string]int, len(current.Inventory))
	for _, item := range current.Inventory {
		stock[item.ID] = item.Stock
	}
	for _, line := range invoice.Items {
		available, ok := stock[line.ID]
		if !ok {
			continue
		}
		if line.Quantity > available {
			return billing.Invalid(store.ErrInsufficientStock, fmt.Sprintf("%s: requested %d, available %d", line.Name, line.Quantity, available))
		}
	}
	return nil
}

// Inventory

func (s *Service) ListItems() []domain.InventoryItem {
	return s.store.Snapshot().Inventory
}

func (s *Service) CreateItem(_ context.Context, req domain.ItemRequest) (domain.InventoryItem, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Unit = strings.TrimSpace(req.Unit)
	if err := s.check(req); err != nil {
		return domain.InventoryItem{}, err
	}

	item := itemFromRequest(xid.New("ITM"), req)
	s.store.Dispatch(state.AddItem{Item: item})
	return item, nil
}

func (s *Service) UpdateItem(_ context.Context, id string, req domain.ItemRequest) (domain.InventoryItem, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Unit = strings.TrimSpace(req.Unit)
	if err := s.check(req); err != nil {
		return domain.InventoryItem{}, err
	}
	if _, ok := s.store.LookupItem(id); !ok {
		return domain.InventoryItem{}, fmt.Errorf("item %s: %w", id, store.ErrNotFound)
	}

	item := itemFromRequest(id, req)
	s.store.Dispatch(state.UpdateItem{Item: item})
	return item, nil
}

func (s *Service) DeleteItem(_ context.Context, id string) error {
	if _, ok := s.store.LookupItem(id); !ok {
		return fmt.Errorf("item %s: %w", id, store.ErrNotFound)
	}
	s.store.Dispatch(state.DeleteItem{ID: id})
	return nil
}

// Parties

func (s *Service) ListParties() []domain.Party {
	return s.store.Snapshot().Parties
}

func (s *Service) CreateParty(_ context.Context, req domain.PartyRequest) (domain.Party, error) {
	req = trimParty(req)
	if err := s.check(req); err != nil {
		return domain.Party{}, err
	}

	party := partyFromRequest(xid.New("PTY"), req)
	s.store.Dispatch(state.AddParty{Party: party})
	return party, nil
}

// QuickAddParty registers a walk-in customer from the billing screen.
func (s *Service) QuickAddParty(ctx context.Context, req domain.QuickPartyRequest) (domain.Party, error) {
	return s.CreateParty(ctx, domain.PartyRequest{
		Name:  req.Name,
		Phone: req.Phone,
		Type:  domain.PartyCustomer,
	})
}

func (s *Service) UpdateParty(_ context.Context, id string, req domain.PartyRequest) (domain.Party, error) {
	req = trimParty(req)
	if err := s.check(req); err != nil {
		return domain.Party{}, err
	}
	if _, ok := s.store.LookupParty(id); !ok {
		return domain.Party{}, fmt.Errorf("party %s: %w", id, store.ErrNotFound)
	}

	party := partyFromRequest(id, req)
	s.store.Dispatch(state.UpdateParty{Party: party})
	return party, nil
}

func (s *Service) DeleteParty(_ context.Context, id string) error {
	if _, ok := s.store.LookupParty(id); !ok {
		return fmt.Errorf("party %s: %w", id, store.ErrNotFound)
	}
	s.store.Dispatch(state.DeleteParty{ID: id})
	return nil
}

// Invoices and settings

func (s *Service) ListInvoices() []domain.Invoice {
	return s.store.Snapshot().Invoices
}

func (s *Service) GetInvoice(id string) (domain.Invoice, error) {
	inv, ok := s.store.FindInvoice(id)
	if !ok {
		return domain.Invoice{}, fmt.Errorf("invoice %s: %w", id, store.ErrNotFound)
	}
	return inv, nil
}

func (s *Service) GetSettings() domain.Settings {
	return s.store.Settings()
}

func (s *Service) UpdateSettings(_ context.Context, patch domain.SettingsPatch) (domain.Settings, error) {
	if err := s.check(patch); err != nil {
		return domain.Settings{}, err
	}
	s.store.Dispatch(state.UpdateSettings{Patch: patch})
	return s.store.Settings(), nil
}

// Data management

// Backup returns the current document and a timestamped file name for it.
func (s *Service) Backup(_ context.Context) (string, []byte, error) {
	doc, err := state.Encode(s.store.Snapshot())
	if err != nil {
		return "", nil, err
	}
	name := backupPrefix + s.now().UTC().Format("2006-01-02T15-04-05Z") + ".json"
	return name, doc, nil
}

// Restore replaces the whole state with data. Documents without inventory
// and parties arrays are rejected and nothing changes.
func (s *Service) Restore(_ context.Context, data []byte) (domain.RestoreResponse, error) {
	restored, err := state.Decode(data)
	if err != nil {
		s.log.Warn().Err(err).Msg("restore rejected")
		return domain.RestoreResponse{}, err
	}

	s.billingMu.Lock()
	s.store.Dispatch(state.RestoreData{State: restored})
	s.cart.Clear()
	s.billingMu.Unlock()

	s.log.Info().
		Int("inventory", len(restored.Inventory)).
		Int("parties", len(restored.Parties)).
		Int("invoices", len(restored.Invoices)).
		Msg("data restored")
	return domain.RestoreResponse{
		Inventory: len(restored.Inventory),
		Parties:   len(restored.Parties),
		Invoices:  len(restored.Invoices),
	}, nil
}

func (s *Service) Reset(_ context.Context) domain.AppState {
	s.billingMu.Lock()
	s.store.Dispatch(state.ResetData{})
	s.cart.Clear()
	s.billingMu.Unlock()

	s.log.Warn().Msg("data reset to defaults")
	return s.store.Snapshot()
}

// Reports

func (s *Service) Dashboard(ctx context.Context) domain.DashboardSummary {
	return s.reports.Dashboard(ctx, s.store.Snapshot())
}

func (s *Service) BusinessSnapshot(_ context.Context) domain.BusinessSnapshot {
	return s.reports.Snapshot(s.store.Snapshot())
}

func (s *Service) check(req any) error {
	err := s.validate.Struct(req)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return billing.Invalid(store.ErrInvalidTransaction, err.Error())
	}
	details := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		details = append(details, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
	}
	return billing.Invalid(store.ErrInvalidTransaction, strings.Join(details, ", "))
}

// cartError records a rejected cart mutation and wraps it for callers. Missing
// items map to store.ErrNotFound; everything else is a validation failure.
func (s *Service) cartError(op string, itemID string, err error) error {
	reason := "invalid"
	switch {
	case errors.Is(err, cart.ErrOutOfStock):
		reason = "out_of_stock"
	case errors.Is(err, cart.ErrStockExceeded):
		reason = "stock_exceeded"
	case errors.Is(err, cart.ErrItemNotFound), errors.Is(err, cart.ErrLineNotFound):
		s.log.Debug().Err(err).Str("op", op).Str("item_id", itemID).Msg("cart item missing")
		return fmt.Errorf("%w: %w", store.ErrNotFound, err)
	}
	s.metrics.ObserveCartRejection(reason)
	s.log.Warn().Err(err).Str("op", op).Str("item_id", itemID).Msg("cart change rejected")
	return &billing.ValidationError{Err: err}
}

func itemFromRequest(id string, req domain.ItemRequest) domain.InventoryItem {
	return domain.InventoryItem{
		ID:         id,
		Name:       req.Name,
		BuyPrice:   req.BuyPrice,
		SellPrice:  req.SellPrice,
		TaxPercent: req.TaxPercent,
		Stock:      req.Stock,
		Unit:       req.Unit,
	}
}

func partyFromRequest(id string, req domain.PartyRequest) domain.Party {
	return domain.Party{
		ID:      id,
		Name:    req.Name,
		Phone:   req.Phone,
		Type:    req.Type,
		Balance: req.Balance,
		Address: req.Address,
	}
}

func trimParty(req domain.PartyRequest) domain.PartyRequest {
	req.Name = strings.TrimSpace(req.Name)
	req.Phone = strings.TrimSpace(req.Phone)
	req.Address = strings.TrimSpace(req.Address)
	return req
}
