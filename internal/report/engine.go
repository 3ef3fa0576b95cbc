package report

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"sort"
	"strconv"
	"time"

	"organisekaro/backend/internal/billing"
	"organisekaro/backend/internal/cache"
	"organisekaro/backend/internal/domain"
	"organisekaro/backend/internal/state"
)

const (
	DefaultLowStockThreshold = 10
	salesWindow              = 7
	snapshotListSize         = 5
)

// Engine derives read-only views from application state. Dashboard results
// are cached under a fingerprint of the state, so any transition produces a
// new key and stale entries simply expire.
type Engine struct {
	cache             cache.DashboardCache
	cacheTTL          time.Duration
	lowStockThreshold int
}

func NewEngine(cacheStore cache.DashboardCache, cacheTTL time.Duration, lowStockThreshold int) *Engine {
	if cacheStore == nil {
		cacheStore = cache.NoopDashboardCache{}
	}
	if cacheTTL <= 0 {
		cacheTTL = 30 * time.Second
	}
	if lowStockThreshold <= 0 {
		lowStockThreshold = DefaultLowStockThreshold
	}

	return &Engine{
		cache:             cacheStore,
		cacheTTL:          cacheTTL,
		lowStockThreshold: lowStockThreshold,
	}
}

func (e *Engine) Dashboard(ctx context.Context, s domain.AppState) domain.DashboardSummary {
	cacheKey, keyErr := buildCacheKey(s, e.lowStockThreshold)
	if keyErr == nil {
		if cached, ok, err := e.cache.Get(ctx, cacheKey); err == nil && ok {
			return *cached
		}
	}

	summary := domain.DashboardSummary{
		TotalSales:    totalSales(s.Invoices),
		Receivables:   receivables(s.Parties),
		LowStockItems: e.lowStockNames(s.Inventory),
		InvoiceCount:  len(s.Invoices),
		SalesByDate:   salesByDate(s.Invoices, salesWindow),
		Currency:      s.Settings.Currency,
	}
	summary.LowStockCount = len(summary.LowStockItems)
	summary.CashInHand = billing.Round(max(0, summary.TotalSales-summary.Receivables))

	if keyErr == nil {
		_ = e.cache.Set(ctx, cacheKey, &summary, e.cacheTTL)
	}
	return summary
}

// Snapshot is the business context shared with the assistant. It carries
// names and totals only.
func (e *Engine) Snapshot(s domain.AppState) domain.BusinessSnapshot {
	top := make([]string, 0, snapshotListSize)
	for _, item := range s.Inventory {
		if len(top) == snapshotListSize {
			break
		}
		top = append(top, item.Name)
	}

	recent := make([]domain.RecentInvoice, 0, snapshotListSize)
	for _, inv := range s.Invoices {
		if len(recent) == snapshotListSize {
			break
		}
		recent = append(recent, domain.RecentInvoice{
			ID:         inv.ID,
			Date:       inv.Date,
			PartyName:  inv.PartyName,
			GrandTotal: inv.GrandTotal,
		})
	}

	return domain.BusinessSnapshot{
		BusinessName:   s.Settings.BusinessName,
		Currency:       s.Settings.Currency,
		TotalSales:     totalSales(s.Invoices),
		Receivables:    receivables(s.Parties),
		InvoiceCount:   len(s.Invoices),
		ItemCount:      len(s.Inventory),
		PartyCount:     len(s.Parties),
		LowStockItems:  e.lowStockNames(s.Inventory),
		TopProducts:    top,
		RecentInvoices: recent,
	}
}

func (e *Engine) lowStockNames(items []domain.InventoryItem) []string {
	names := make([]string, 0)
	for _, item := range items {
		if item.Stock < e.lowStockThreshold {
			names = append(names, item.Name)
		}
	}
	return names
}

func totalSales(invoices []domain.Invoice) float64 {
	total := 0.0
	for _, inv := range invoices {
		total += inv.GrandTotal
	}
	return billing.Round(total)
}

// receivables sums what customers owe; supplier balances and credit
// balances are excluded.
func receivables(parties []domain.Party) float64 {
	total := 0.0
	for _, p := range parties {
		if p.Type == domain.PartyCustomer && p.Balance > 0 {
			total += p.Balance
		}
	}
	return billing.Round(total)
}

// salesByDate groups grand totals by invoice date and keeps the latest
// window dates in ascending order.
func salesByDate(invoices []domain.Invoice, window int) []domain.DailySales {
	byDate := make(map[string]float64)
	for _, inv := range invoices {
		byDate[inv.Date] += inv.GrandTotal
	}

	dates := make([]string, 0, len(byDate))
	for date := range byDate {
		dates = append(dates, date)
	}
	sort.Strings(dates)
	if len(dates) > window {
		dates = dates[len(dates)-window:]
	}

	out := make([]domain.DailySales, 0, len(dates))
	for _, date := range dates {
		out = append(out, domain.DailySales{Date: date, Total: billing.Round(byDate[date])})
	}
	return out
}

func buildCacheKey(s domain.AppState, threshold int) (string, error) {
	doc, err := state.Encode(s)
	if err != nil {
		return "", err
	}
	h := sha1.New()
	_, _ = h.Write(doc)
	_, _ = h.Write([]byte("|low:" + strconv.Itoa(threshold)))
	return "pos:dashboard:" + hex.EncodeToString(h.Sum(nil)), nil
}
