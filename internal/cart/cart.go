package cart

import (
	"errors"
	"fmt"
	"sync"

	"organisekaro/backend/internal/billing"
	"organisekaro/backend/internal/domain"
)

var (
	ErrItemNotFound    = errors.New("item not found")
	ErrLineNotFound    = errors.New("item is not in the cart")
	ErrOutOfStock      = errors.New("item is out of stock")
	ErrStockExceeded   = errors.New("quantity exceeds available stock")
	ErrInvalidQuantity = errors.New("quantity must be a whole number of at least 1")
	ErrUnknownField    = errors.New("unknown cart field")
)

type Field string

const (
	FieldQuantity        Field = "quantity"
	FieldSellPrice       Field = "sellPrice"
	FieldDiscountPercent Field = "discountPercent"
)

// Catalog resolves live inventory so stock ceilings reflect the latest state.
type Catalog interface {
	LookupItem(id string) (domain.InventoryItem, bool)
}

type Line struct {
	Item            domain.InventoryItem
	Quantity        Input
	SellPrice       Input
	DiscountPercent Input
}

// Cart is the in-progress bill. Lines are unique per item id and kept in
// insertion order.
type Cart struct {
	mu      sync.Mutex
	catalog Catalog
	lines   []Line
}

func New(catalog Catalog) *Cart {
	return &Cart{catalog: catalog}
}

func (c *Cart) Add(itemID string) error {
	item, ok := c.catalog.LookupItem(itemID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrItemNotFound, itemID)
	}
	if item.Stock <= 0 {
		return fmt.Errorf("%w: %s", ErrOutOfStock, item.Name)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if idx := c.indexOf(itemID); idx >= 0 {
		next := int(c.lines[idx].Quantity.Number()) + 1
		if next > item.Stock {
			return fmt.Errorf("%w: only %d %s available", ErrStockExceeded, item.Stock, item.Unit)
		}
		c.lines[idx].Quantity = NumberInput(float64(next))
		return nil
	}

	c.lines = append(c.lines, Line{
		Item:            item,
		Quantity:        NumberInput(1),
		SellPrice:       NumberInput(item.SellPrice),
		DiscountPercent: NumberInput(0),
	})
	return nil
}

// Update sets one numeric field from raw text. Unparseable text is kept as
// a transient invalid value. A parseable quantity must be a whole number
// within the current stock, otherwise the line is left unchanged.
func (c *Cart) Update(itemID string, field Field, raw string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	idx := c.indexOf(itemID)
	if idx < 0 {
		return fmt.Errorf("%w: %s", ErrLineNotFound, itemID)
	}
	in := ParseInput(raw)

	switch field {
	case FieldQuantity:
		if in.Valid {
			if !in.isWhole() || in.Value < 1 {
				return ErrInvalidQuantity
			}
			if stock := c.stockOf(c.lines[idx]); in.Value > float64(stock) {
				return fmt.Errorf("%w: only %d %s available", ErrStockExceeded, stock, c.lines[idx].Item.Unit)
			}
		}
		c.lines[idx].Quantity = in
	case FieldSellPrice:
		c.lines[idx].SellPrice = in
	case FieldDiscountPercent:
		c.lines[idx].DiscountPercent = in
	default:
		return fmt.Errorf("%w: %q", ErrUnknownField, field)
	}
	return nil
}

// Adjust moves the quantity by delta, clamped to [1, stock].
func (c *Cart) Adjust(itemID string, delta int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	idx := c.indexOf(itemID)
	if idx < 0 {
		return fmt.Errorf("%w: %s", ErrLineNotFound, itemID)
	}
	line := c.lines[idx]
	next := int(line.Quantity.Number()) + delta
	if stock := c.stockOf(line); next > stock {
		next = stock
	}
	if next < 1 {
		next = 1
	}
	c.lines[idx].Quantity = NumberInput(float64(next))
	return nil
}

func (c *Cart) Remove(itemID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	idx := c.indexOf(itemID)
	if idx < 0 {
		return fmt.Errorf("%w: %s", ErrLineNotFound, itemID)
	}
	c.lines = append(c.lines[:idx], c.lines[idx+1:]...)
	return nil
}

func (c *Cart) Clear() {
	c.mu.Lock()
	c.lines = nil
	c.mu.Unlock()
}

func (c *Cart) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.lines)
}

func (c *Cart) Lines() []Line {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Line, len(c.lines))
	copy(out, c.lines)
	return out
}

// Totals are the live figures shown while billing, invalid input counted as zero.
func (c *Cart) Totals() billing.Totals {
	c.mu.Lock()
	defer c.mu.Unlock()
	calc := make([]billing.Line, len(c.lines))
	for i, line := range c.lines {
		calc[i] = line.calcLine()
	}
	return billing.Compute(calc)
}

// Finalize returns sanitized invoice lines: invalid quantity becomes 1,
// invalid price and discount become 0.
func (c *Cart) Finalize() []domain.CartItem {
	c.mu.Lock()
	defer c.mu.Unlock()
	items := make([]domain.CartItem, 0, len(c.lines))
	for _, line := range c.lines {
		item := domain.CartItem{
			InventoryItem:   line.Item,
			Quantity:        int(line.Quantity.Number()),
			DiscountPercent: line.DiscountPercent.Number(),
		}
		item.SellPrice = line.SellPrice.Number()
		items = append(items, billing.Sanitize(item))
	}
	return items
}

func (l Line) calcLine() billing.Line {
	return billing.Line{
		UnitPrice:       l.SellPrice.Number(),
		Quantity:        l.Quantity.Number(),
		DiscountPercent: l.DiscountPercent.Number(),
		TaxPercent:      l.Item.TaxPercent,
	}
}

// Amounts is the live per-line breakdown.
func (l Line) Amounts() billing.LineAmounts {
	return billing.Amounts(l.calcLine())
}

func (c *Cart) indexOf(itemID string) int {
	for i := range c.lines {
		if c.lines[i].Item.ID == itemID {
			return i
		}
	}
	return -1
}

func (c *Cart) stockOf(line Line) int {
	if item, ok := c.catalog.LookupItem(line.Item.ID); ok {
		return item.Stock
	}
	return line.Item.Stock
}
