package state

import "organisekaro/backend/internal/domain"

func DefaultSettings() domain.Settings {
	return domain.Settings{
		Currency:        domain.CurrencyPKR,
		TaxName:         "GST",
		BusinessName:    "My Business Store",
		BusinessAddress: "123 Market Road, City Center",
		Theme:           domain.ThemeLight,
	}
}

// Seed returns a fresh copy of the starting dataset on every call.
func Seed() domain.AppState {
	return domain.AppState{
		Inventory: []domain.InventoryItem{
			{ID: "1", Name: "Wireless Mouse", BuyPrice: 500, SellPrice: 800, TaxPercent: 5, Stock: 50, Unit: "pcs"},
			{ID: "2", Name: "Mechanical Keyboard", BuyPrice: 3000, SellPrice: 4500, TaxPercent: 10, Stock: 20, Unit: "pcs"},
		},
		Parties: []domain.Party{
			{ID: "1", Name: "Tech Solutions Ltd", Phone: "+92 300 1234567", Type: domain.PartyCustomer, Balance: 0, Address: "Lahore, Pakistan"},
			{ID: "2", Name: "Global Importers", Phone: "+92 321 7654321", Type: domain.PartySupplier, Balance: 50000, Address: "Karachi, Pakistan"},
		},
		Invoices: []domain.Invoice{},
		Settings: DefaultSettings(),
	}
}

func Clone(s domain.AppState) domain.AppState {
	out := domain.AppState{
		Inventory: make([]domain.InventoryItem, len(s.Inventory)),
		Parties:   make([]domain.Party, len(s.Parties)),
		Invoices:  make([]domain.Invoice, len(s.Invoices)),
		Settings:  s.Settings,
	}
	copy(out.Inventory, s.Inventory)
	copy(out.Parties, s.Parties)
	for i, inv := range s.Invoices {
		out.Invoices[i] = cloneInvoice(inv)
	}
	return out
}

func cloneInvoice(inv domain.Invoice) domain.Invoice {
	dup := inv
	dup.Items = make([]domain.CartItem, len(inv.Items))
	copy(dup.Items, inv.Items)
	return dup
}
