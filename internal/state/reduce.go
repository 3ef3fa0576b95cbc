package state

import (
	"slices"

	"organisekaro/backend/internal/domain"
)

// Reduce returns the state after applying action. The input is never
// mutated and the reducer never fails: references to missing entities are
// skipped.
func Reduce(s domain.AppState, action Action) domain.AppState {
	switch a := action.(type) {
	case AddItem:
		next := Clone(s)
		next.Inventory = upsertItem(next.Inventory, a.Item)
		return next
	case UpdateItem:
		next := Clone(s)
		if idx := itemIndex(next.Inventory, a.Item.ID); idx >= 0 {
			next.Inventory[idx] = a.Item
		}
		return next
	case DeleteItem:
		next := Clone(s)
		next.Inventory = slices.DeleteFunc(next.Inventory, func(it domain.InventoryItem) bool { return it.ID == a.ID })
		return next
	case AddParty:
		next := Clone(s)
		next.Parties = upsertParty(next.Parties, a.Party)
		return next
	case UpdateParty:
		next := Clone(s)
		if idx := partyIndex(next.Parties, a.Party.ID); idx >= 0 {
			next.Parties[idx] = a.Party
		}
		return next
	case DeleteParty:
		next := Clone(s)
		next.Parties = slices.DeleteFunc(next.Parties, func(p domain.Party) bool { return p.ID == a.ID })
		return next
	case CreateInvoice:
		return applyInvoice(s, a.Invoice)
	case UpdateSettings:
		next := Clone(s)
		next.Settings = MergeSettings(next.Settings, a.Patch)
		return next
	case RestoreData:
		return Normalize(Clone(a.State))
	case ResetData:
		return Seed()
	default:
		return s
	}
}

// applyInvoice decrements stock for each line, credits a customer's
// balance with the grand total and prepends the invoice. Supplier balances
// are managed by hand and left untouched. An id already on record is ignored.
func applyInvoice(s domain.AppState, inv domain.Invoice) domain.AppState {
	if slices.ContainsFunc(s.Invoices, func(existing domain.Invoice) bool { return existing.ID == inv.ID }) {
		return s
	}

	next := Clone(s)
	for _, line := range inv.Items {
		idx := itemIndex(next.Inventory, line.ID)
		if idx < 0 {
			continue
		}
		stock := next.Inventory[idx].Stock - line.Quantity
		if stock < 0 {
			stock = 0
		}
		next.Inventory[idx].Stock = stock
	}

	if idx := partyIndex(next.Parties, inv.PartyID); idx >= 0 && next.Parties[idx].Type == domain.PartyCustomer {
		next.Parties[idx].Balance += inv.GrandTotal
	}

	next.Invoices = append([]domain.Invoice{cloneInvoice(inv)}, next.Invoices...)
	return next
}

func MergeSettings(current domain.Settings, patch domain.SettingsPatch) domain.Settings {
	if patch.Currency != nil {
		current.Currency = *patch.Currency
	}
	if patch.TaxName != nil {
		current.TaxName = *patch.TaxName
	}
	if patch.BusinessName != nil {
		current.BusinessName = *patch.BusinessName
	}
	if patch.BusinessAddress != nil {
		current.BusinessAddress = *patch.BusinessAddress
	}
	if patch.Theme != nil {
		current.Theme = *patch.Theme
	}
	return current
}

func upsertItem(items []domain.InventoryItem, item domain.InventoryItem) []domain.InventoryItem {
	if idx := itemIndex(items, item.ID); idx >= 0 {
		items[idx] = item
		return items
	}
	return append(items, item)
}

func upsertParty(parties []domain.Party, party domain.Party) []domain.Party {
	if idx := partyIndex(parties, party.ID); idx >= 0 {
		parties[idx] = party
		return parties
	}
	return append(parties, party)
}

func itemIndex(items []domain.InventoryItem, id string) int {
	return slices.IndexFunc(items, func(it domain.InventoryItem) bool { return it.ID == id })
}

func partyIndex(parties []domain.Party, id string) int {
	return slices.IndexFunc(parties, func(p domain.Party) bool { return p.ID == id })
}
