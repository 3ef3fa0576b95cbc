package app

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"organisekaro/backend/internal/cache"
	"organisekaro/backend/internal/config"
	"organisekaro/backend/internal/logger"
	"organisekaro/backend/internal/obs"
	"organisekaro/backend/internal/report"
	"organisekaro/backend/internal/service"
	"organisekaro/backend/internal/store"
	"organisekaro/backend/internal/store/file"
	"organisekaro/backend/internal/store/memory"
	pgstore "organisekaro/backend/internal/store/postgres"
)

// App holds the wired dependencies shared by the server and the CLI.
type App struct {
	Config   config.Config
	Log      zerolog.Logger
	Registry *prometheus.Registry
	Store    *memory.Store
	Service  *service.Service

	closers []func() error
}

// Build picks the persister (postgres when DATABASE_URL is set, otherwise a
// JSON file under DATA_DIR) and the dashboard cache (redis when REDIS_ADDR
// is reachable, otherwise none), then hydrates the store.
func Build(ctx context.Context, cfg config.Config, log zerolog.Logger) (*App, error) {
	a := &App{
		Config:   cfg,
		Log:      log,
		Registry: prometheus.NewRegistry(),
	}
	metrics := obs.NewMetrics(cfg.MetricsNamespace, a.Registry)

	var persister store.Persister
	if cfg.DatabaseURL != "" {
		pg, err := pgstore.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("postgres unavailable and DATABASE_URL is set: %w", err)
		}
		persister = pg
		a.closers = append(a.closers, pg.Close)
		log.Info().Msg("persistence: postgres")
	} else {
		fp, err := file.New(cfg.DataDir)
		if err != nil {
			return nil, err
		}
		persister = fp
		log.Info().Str("path", fp.Path(cfg.StorageKey)).Msg("persistence: file")
	}

	dashboardCache := cache.DashboardCache(cache.NoopDashboardCache{})
	if cfg.RedisAddr != "" {
		redisCache := cache.NewRedisDashboardCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err := redisCache.Ping(ctx); err != nil {
			log.Warn().Err(err).Msg("redis unavailable, using noop cache")
			_ = redisCache.Close()
		} else {
			dashboardCache = redisCache
			a.closers = append(a.closers, redisCache.Close)
			log.Info().Msg("cache: redis")
		}
	} else {
		log.Info().Msg("cache: noop")
	}

	a.Store = memory.New(ctx, persister,
		memory.WithKey(cfg.StorageKey),
		memory.WithLogger(logger.WithComponent(log, "store")),
		memory.WithMetrics(metrics),
	)
	reports := report.NewEngine(dashboardCache, time.Duration(cfg.ReportCacheTTLSeconds)*time.Second, cfg.LowStockThreshold)
	a.Service = service.New(a.Store, reports,
		service.WithLogger(logger.WithComponent(log, "service")),
		service.WithMetrics(metrics),
	)
	return a, nil
}

// Close flushes pending state and releases backing connections.
func (a *App) Close(ctx context.Context) error {
	var firstErr error
	if err := a.Store.Close(ctx); err != nil {
		firstErr = err
	}
	for _, closeFn := range a.closers {
		if err := closeFn(); err != nil {
			a.Log.Error().Err(err).Msg("close error")
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
