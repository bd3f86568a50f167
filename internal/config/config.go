package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Port string

	// Content source: a directory or an http(s) base URL
	ContentBase string
	ContentExt  string

	// Timeouts
	LoadingTimeout time.Duration
	FetchTimeout   time.Duration

	// Page presentation
	PageClass string
	SiteTitle string

	// Rate limiting per client IP
	RateLimitRPS   float64
	RateLimitBurst int
	RateLimitIPs   int

	// Fetch latency stats window
	StatsWindow time.Duration
}

func Load() Config {
	cfg := Config{
		Port: envOr("PORT", "8090"),

		ContentBase: envOr("CONTENT_BASE", "./content"),
		ContentExt:  envOr("CONTENT_EXT", ".md"),

		LoadingTimeout: envDuration("LOADING_TIMEOUT", time.Second),
		FetchTimeout:   envDuration("FETCH_TIMEOUT", 30*time.Second),

		PageClass: envOr("PAGE_CLASS", "docs-page"),
		SiteTitle: envOr("SITE_TITLE", "Docs"),

		RateLimitRPS:   envFloat("RATE_LIMIT_RPS", 20),
		RateLimitBurst: envInt("RATE_LIMIT_BURST", 40),
		RateLimitIPs:   envInt("RATE_LIMIT_MAX_IPS", 10000),

		StatsWindow: envDuration("STATS_WINDOW", time.Hour),
	}

	if cfg.LoadingTimeout <= 0 {
		cfg.LoadingTimeout = time.Second
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = 30 * time.Second
	}
	if cfg.RateLimitBurst <= 0 {
		cfg.RateLimitBurst = 40
	}
	if cfg.RateLimitIPs <= 0 {
		cfg.RateLimitIPs = 10000
	}
	if cfg.StatsWindow <= 0 {
		cfg.StatsWindow = time.Hour
	}
	if cfg.ContentExt != "" && !strings.HasPrefix(cfg.ContentExt, ".") {
		cfg.ContentExt = "." + cfg.ContentExt
	}

	return cfg
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.ContentBase) == "" {
		return fmt.Errorf("CONTENT_BASE is required")
	}
	if c.RateLimitRPS < 0 {
		return fmt.Errorf("RATE_LIMIT_RPS must not be negative")
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
