package config

import (
	"log"
	"os"
	"strconv"
	"time"
)

type Config struct {
	DatabaseDSN       string
	Env               string
	ReportDebounce    time.Duration
	RecomputeInterval time.Duration
}

// Load loads configuration from environment with sensible defaults.
// Precedence: explicit env var > .env file (if loaded by user) > default.
func Load() Config {
	cfg := Config{}
	cfg.DatabaseDSN = getEnv("DATABASE_DSN", "file:salesbook.db")
	cfg.Env = getEnv("APP_ENV", "development")
	cfg.ReportDebounce = time.Duration(getEnvInt("REPORT_DEBOUNCE_MS", 300)) * time.Millisecond
	cfg.RecomputeInterval = time.Duration(getEnvInt("RECOMPUTE_INTERVAL_S", 300)) * time.Second
	return cfg
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			log.Printf("invalid integer for %s: %s", key, v)
			return def
		}
		return n
	}
	return def
}

// ParseBool reads an env var as bool with default.
func ParseBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			log.Printf("invalid boolean for %s: %s", key, v)
			return def
		}
		return b
	}
	return def
}
