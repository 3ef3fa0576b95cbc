package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"organisekaro/backend/internal/config"
	"organisekaro/backend/internal/domain"
	"organisekaro/backend/internal/store"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	return config.Config{
		DataDir:               t.TempDir(),
		StorageKey:            store.StorageKey,
		ReportCacheTTLSeconds: 30,
		LowStockThreshold:     10,
		MetricsNamespace:      "apptest",
	}
}

func closeApp(t *testing.T, a *App) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, a.Close(ctx))
}

func TestBuildPersistsToDataDirAcrossRestarts(t *testing.T) {
	cfg := testConfig(t)
	ctx := context.Background()

	first, err := Build(ctx, cfg, zerolog.Nop())
	require.NoError(t, err)
	_, err = first.Service.QuickAddParty(ctx, domain.QuickPartyRequest{Name: "Walk-in"})
	require.NoError(t, err)
	closeApp(t, first)

	_, err = os.Stat(filepath.Join(cfg.DataDir, store.StorageKey+".json"))
	require.NoError(t, err)

	second, err := Build(ctx, cfg, zerolog.Nop())
	require.NoError(t, err)
	defer closeApp(t, second)
	require.Len(t, second.Service.State().Parties, 3)
}

func TestBuildUsesRedisWhenReachable(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	cfg := testConfig(t)
	cfg.RedisAddr = mr.Addr()
	ctx := context.Background()

	a, err := Build(ctx, cfg, zerolog.Nop())
	require.NoError(t, err)
	defer closeApp(t, a)

	summary := a.Service.Dashboard(ctx)
	require.Equal(t, domain.CurrencyPKR, summary.Currency)
	require.NotEmpty(t, mr.Keys())
}

func TestBuildFallsBackWhenRedisUnreachable(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	addr := mr.Addr()
	mr.Close()

	cfg := testConfig(t)
	cfg.RedisAddr = addr

	a, err := Build(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	defer closeApp(t, a)
	require.Len(t, a.Service.State().Inventory, 2)
}
