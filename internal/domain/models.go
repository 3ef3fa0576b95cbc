package domain

type PartyType string

const (
	PartyCustomer PartyType = "Customer"
	PartySupplier PartyType = "Supplier"
)

func (t PartyType) Valid() bool {
	return t == PartyCustomer || t == PartySupplier
}

type Currency string

const (
	CurrencyPKR Currency = "PKR"
	CurrencyINR Currency = "INR"
	CurrencyUSD Currency = "USD"
	CurrencyAED Currency = "AED"
)

var currencySymbols = map[Currency]string{
	CurrencyPKR: "₨",
	CurrencyINR: "₹",
	CurrencyUSD: "$",
	CurrencyAED: "AED",
}

// Symbol returns the display symbol, falling back to the currency code.
func (c Currency) Symbol() string {
	if symbol, ok := currencySymbols[c]; ok {
		return symbol
	}
	return string(c)
}

func (c Currency) Valid() bool {
	_, ok := currencySymbols[c]
	return ok
}

type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

func (t Theme) Valid() bool {
	return t == ThemeLight || t == ThemeDark
}

type InventoryItem struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	BuyPrice   float64 `json:"buyPrice"`
	SellPrice  float64 `json:"sellPrice"`
	TaxPercent float64 `json:"taxPercent"`
	Stock      int     `json:"stock"`
	Unit       string  `json:"unit"`
}

type Party struct {
	ID      string    `json:"id"`
	Name    string    `json:"name"`
	Phone   string    `json:"phone"`
	Type    PartyType `json:"type"`
	Balance float64   `json:"balance"`
	Address string    `json:"address,omitempty"`
}

// CartItem is an inventory snapshot taken at billing time plus the
// quantity and discount the cashier entered.
type CartItem struct {
	InventoryItem
	Quantity        int     `json:"quantity"`
	DiscountPercent float64 `json:"discountPercent"`
}

type Invoice struct {
	ID            string     `json:"id"`
	Date          string     `json:"date"`
	PartyID       string     `json:"partyId"`
	PartyName     string     `json:"partyName"`
	Items         []CartItem `json:"items"`
	SubTotal      float64    `json:"subTotal"`
	TotalTax      float64    `json:"totalTax"`
	TotalDiscount float64    `json:"totalDiscount"`
	GrandTotal    float64    `json:"grandTotal"`
}

type Settings struct {
	Currency        Currency `json:"currency"`
	TaxName         string   `json:"taxName"`
	BusinessName    string   `json:"businessName"`
	BusinessAddress string   `json:"businessAddress"`
	Theme           Theme    `json:"theme"`
}

// SettingsPatch carries only the fields a caller wants to change.
type SettingsPatch struct {
	Currency        *Currency `json:"currency,omitempty" validate:"omitempty,oneof=PKR INR USD AED"`
	TaxName         *string   `json:"taxName,omitempty" validate:"omitempty,max=32"`
	BusinessName    *string   `json:"businessName,omitempty" validate:"omitempty,max=120"`
	BusinessAddress *string   `json:"businessAddress,omitempty" validate:"omitempty,max=240"`
	Theme           *Theme    `json:"theme,omitempty" validate:"omitempty,oneof=light dark"`
}

type AppState struct {
	Inventory []InventoryItem `json:"inventory"`
	Parties   []Party         `json:"parties"`
	Invoices  []Invoice       `json:"invoices"`
	Settings  Settings        `json:"settings"`
}

type ItemRequest struct {
	Name       string  `json:"name" validate:"required,max=120"`
	BuyPrice   float64 `json:"buy_price" validate:"gte=0"`
	SellPrice  float64 `json:"sell_price" validate:"gte=0"`
	TaxPercent float64 `json:"tax_percent" validate:"gte=0,lte=100"`
	Stock      int     `json:"stock" validate:"gte=0"`
	Unit       string  `json:"unit" validate:"required,max=16"`
}

type PartyRequest struct {
	Name    string    `json:"name" validate:"required,max=120"`
	Phone   string    `json:"phone" validate:"max=32"`
	Type    PartyType `json:"type" validate:"required,oneof=Customer Supplier"`
	Balance float64   `json:"balance"`
	Address string    `json:"address" validate:"max=240"`
}

type QuickPartyRequest struct {
	Name  string `json:"name" validate:"required,max=120"`
	Phone string `json:"phone" validate:"max=32"`
}

type AddToCartRequest struct {
	ItemID string `json:"item_id"`
}

type UpdateCartLineRequest struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

type AdjustCartRequest struct {
	Delta int `json:"delta"`
}

type CheckoutRequest struct {
	PartyID string `json:"party_id"`
	Date    string `json:"date"`
}

type CartLineView struct {
	ItemID          string  `json:"item_id"`
	Name            string  `json:"name"`
	Unit            string  `json:"unit"`
	Stock           int     `json:"stock"`
	Quantity        string  `json:"quantity"`
	SellPrice       string  `json:"sell_price"`
	DiscountPercent string  `json:"discount_percent"`
	TaxPercent      float64 `json:"tax_percent"`
	Valid           bool    `json:"valid"`
	Final           float64 `json:"final"`
}

type CartView struct {
	Lines         []CartLineView `json:"lines"`
	SubTotal      float64        `json:"sub_total"`
	TotalDiscount float64        `json:"total_discount"`
	TotalTax      float64        `json:"total_tax"`
	GrandTotal    float64        `json:"grand_total"`
	Display       string         `json:"display"`
}

type CheckoutResponse struct {
	Invoice Invoice `json:"invoice"`
	Display string  `json:"display"`
}

type RestoreResponse struct {
	Inventory int `json:"inventory"`
	Parties   int `json:"parties"`
	Invoices  int `json:"invoices"`
}

type DailySales struct {
	Date  string  `json:"date"`
	Total float64 `json:"total"`
}

type DashboardSummary struct {
	TotalSales    float64      `json:"total_sales"`
	Receivables   float64      `json:"receivables"`
	CashInHand    float64      `json:"cash_in_hand"`
	LowStockCount int          `json:"low_stock_count"`
	LowStockItems []string     `json:"low_stock_items"`
	InvoiceCount  int          `json:"invoice_count"`
	SalesByDate   []DailySales `json:"sales_by_date"`
	Currency      Currency     `json:"currency"`
}

type RecentInvoice struct {
	ID         string  `json:"id"`
	Date       string  `json:"date"`
	PartyName  string  `json:"party_name"`
	GrandTotal float64 `json:"grand_total"`
}

// BusinessSnapshot is the read-only context handed to the assistant.
type BusinessSnapshot struct {
	BusinessName   string          `json:"business_name"`
	Currency       Currency        `json:"currency"`
	TotalSales     float64         `json:"total_sales"`
	Receivables    float64         `json:"receivables"`
	InvoiceCount   int             `json:"invoice_count"`
	ItemCount      int             `json:"item_count"`
	PartyCount     int             `json:"party_count"`
	LowStockItems  []string        `json:"low_stock_items"`
	TopProducts    []string        `json:"top_products"`
	RecentInvoices []RecentInvoice `json:"recent_invoices"`
}
