package cache

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"

	"organisekaro/backend/internal/domain"
)

func TestRedisDashboardCacheRoundTrip(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	c := NewRedisDashboardCache(mr.Addr(), "", 0)
	defer func() { _ = c.Close() }()
	ctx := context.Background()
	require.NoError(t, c.Ping(ctx))

	_, ok, err := c.Get(ctx, "dashboard:missing")
	require.NoError(t, err)
	require.False(t, ok)

	summary := &domain.DashboardSummary{
		TotalSales:    1680,
		Receivables:   1680,
		LowStockItems: []string{"Cable"},
		Currency:      domain.CurrencyPKR,
	}
	require.NoError(t, c.Set(ctx, "dashboard:abc", summary, time.Minute))

	got, ok, err := c.Get(ctx, "dashboard:abc")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, summary.TotalSales, got.TotalSales)
	require.Equal(t, []string{"Cable"}, got.LowStockItems)

	mr.FastForward(2 * time.Minute)
	_, ok, err = c.Get(ctx, "dashboard:abc")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestRedisDashboardCacheIgnoresNilValue(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	c := NewRedisDashboardCache(mr.Addr(), "", 0)
	defer func() { _ = c.Close() }()

	require.NoError(t, c.Set(context.Background(), "dashboard:nil", nil, time.Minute))
	require.False(t, mr.Exists("dashboard:nil"))
}
