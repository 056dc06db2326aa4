package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the environment-specific settings of the fulfillment server.
type Config struct {
	HTTPAddr           string
	MySQLDSN           string
	RedisAddr          string
	MarketplaceBaseURL string
	MarketplaceToken   string
	EligibleStates     []string
	SyncInterval       time.Duration
	OrderCacheTTL      time.Duration
	SweepWorkers       int
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (*Config, error) {
	cfg := &Config{
		HTTPAddr:           getEnvOrDefault("HTTP_ADDR", ":8080"),
		MySQLDSN:           getEnvOrDefault("MYSQL_DSN", "root:root@tcp(localhost:3306)/fulfillment?parseTime=true"),
		RedisAddr:          getEnvOrDefault("REDIS_ADDR", "localhost:6379"),
		MarketplaceBaseURL: getEnvOrDefault("MARKETPLACE_URL", "https://api.cardmarketplace.example"),
		MarketplaceToken:   os.Getenv("MARKETPLACE_TOKEN"),
	}

	states := getEnvOrDefault("ELIGIBLE_STATES", "paid")
	for _, state := range strings.Split(states, ",") {
		if s := strings.TrimSpace(state); s != "" {
			cfg.EligibleStates = append(cfg.EligibleStates, s)
		}
	}
	if len(cfg.EligibleStates) == 0 {
		return nil, fmt.Errorf("ELIGIBLE_STATES cannot be empty")
	}

	var err error
	cfg.SyncInterval, err = time.ParseDuration(getEnvOrDefault("SYNC_INTERVAL", "2m"))
	if err != nil {
		return nil, fmt.Errorf("invalid SYNC_INTERVAL: %w", err)
	}
	cfg.OrderCacheTTL, err = time.ParseDuration(getEnvOrDefault("ORDER_CACHE_TTL", "1m"))
	if err != nil {
		return nil, fmt.Errorf("invalid ORDER_CACHE_TTL: %w", err)
	}
	cfg.SweepWorkers, err = strconv.Atoi(getEnvOrDefault("SWEEP_WORKERS", "4"))
	if err != nil || cfg.SweepWorkers <= 0 {
		return nil, fmt.Errorf("SWEEP_WORKERS must be a positive integer")
	}

	if cfg.MarketplaceToken == "" {
		return nil, fmt.Errorf("MARKETPLACE_TOKEN is required")
	}

	return cfg, nil
}

func getEnvOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
