package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"

	"organisekaro/backend/internal/store"
)

type Config struct {
	Port                  string
	AllowedOrigin         string
	DataDir               string
	StorageKey            string
	DatabaseURL           string
	RedisAddr             string
	RedisPassword         string
	RedisDB               int
	ReportCacheTTLSeconds int
	LowStockThreshold     int
	LogLevel              string
	LogFormat             string
	MetricsNamespace      string
}

// Load reads the environment, after applying an optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return Config{}, fmt.Errorf("load env: %w", err)
	}

	cfg := Config{
		Port:                  getString(k, "PORT", "8080"),
		AllowedOrigin:         getString(k, "ALLOWED_ORIGIN", "http://127.0.0.1:3000"),
		DataDir:               getString(k, "DATA_DIR", "data"),
		StorageKey:            getString(k, "STORAGE_KEY", store.StorageKey),
		DatabaseURL:           strings.TrimSpace(k.String("DATABASE_URL")),
		RedisAddr:             strings.TrimSpace(k.String("REDIS_ADDR")),
		RedisPassword:         k.String("REDIS_PASSWORD"),
		RedisDB:               getInt(k, "REDIS_DB", 0, 0),
		ReportCacheTTLSeconds: getInt(k, "REPORT_CACHE_TTL_SECONDS", 30, 1),
		LowStockThreshold:     getInt(k, "LOW_STOCK_THRESHOLD", 10, 1),
		LogLevel:              getString(k, "LOG_LEVEL", "info"),
		LogFormat:             getString(k, "LOG_FORMAT", "json"),
		MetricsNamespace:      getString(k, "METRICS_NAMESPACE", "organisekaro"),
	}
	return cfg, nil
}

func (c Config) Address() string {
	return fmt.Sprintf(":%s", c.Port)
}

func getString(k *koanf.Koanf, key string, fallback string) string {
	val := strings.TrimSpace(k.String(key))
	if val == "" {
		return fallback
	}
	return val
}

// getInt falls back when the value is missing, malformed or below min.
func getInt(k *koanf.Koanf, key string, fallback int, min int) int {
	raw := strings.TrimSpace(k.String(key))
	if raw == "" {
		return fallback
	}
	val, err := strconv.Atoi(raw)
	if err != nil || val < min {
		return fallback
	}
	return val
}
