package state

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"organisekaro/backend/internal/domain"
)

var ErrInvalidDocument = errors.New("invalid data document")

// document mirrors domain.AppState with pointer collections so that a
// missing array can be told apart from an empty one.
type document struct {
	Inventory *[]domain.InventoryItem `json:"inventory"`
	Parties   *[]domain.Party         `json:"parties"`
	Invoices  []domain.Invoice        `json:"invoices"`
	Settings  json.RawMessage         `json:"settings"`
}

func Encode(s domain.AppState) ([]byte, error) {
	return json.Marshal(Normalize(Clone(s)))
}

// Decode parses a persisted or uploaded document. Inventory and parties must
// both be present as arrays. Missing invoices become empty and missing
// settings fields fall back to the defaults.
func Decode(data []byte) (domain.AppState, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return domain.AppState{}, fmt.Errorf("%w: empty document", ErrInvalidDocument)
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return domain.AppState{}, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	if doc.Inventory == nil {
		return domain.AppState{}, fmt.Errorf("%w: inventory array is required", ErrInvalidDocument)
	}
	if doc.Parties == nil {
		return domain.AppState{}, fmt.Errorf("%w: parties array is required", ErrInvalidDocument)
	}

	settings := DefaultSettings()
	if len(doc.Settings) > 0 && !bytes.Equal(doc.Settings, []byte("null")) {
		if err := json.Unmarshal(doc.Settings, &settings); err != nil {
			return domain.AppState{}, fmt.Errorf("%w: settings: %v", ErrInvalidDocument, err)
		}
	}

	return Normalize(domain.AppState{
		Inventory: *doc.Inventory,
		Parties:   *doc.Parties,
		Invoices:  doc.Invoices,
		Settings:  settings,
	}), nil
}

// Normalize replaces nil collections with empty ones and blank settings
// with defaults.
func Normalize(s domain.AppState) domain.AppState {
	if s.Inventory == nil {
		s.Inventory = []domain.InventoryItem{}
	}
	if s.Parties == nil {
		s.Parties = []domain.Party{}
	}
	if s.Invoices == nil {
		s.Invoices = []domain.Invoice{}
	}
	for i := range s.Invoices {
		if s.Invoices[i].Items == nil {
			s.Invoices[i].Items = []domain.CartItem{}
		}
	}

	defaults := DefaultSettings()
	if s.Settings.Currency == "" {
		s.Settings.Currency = defaults.Currency
	}
	if s.Settings.TaxName == "" {
		s.Settings.TaxName = defaults.TaxName
	}
	if s.Settings.Theme == "" {
		s.Settings.Theme = defaults.Theme
	}
	return s
}
