
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

type Config struct {
	DataDir     string `json:"data_dir"`
	CatalogPath string `json:"catalog_path"`

	// Price service
	BaseURL string `json:"base_url"`
	Market  string `json:"market"`

	// Sync tuning
	IntervalMinutes int    `json:"interval_minutes,omitempty"`
	WindowSize      int    `json:"window_size,omitempty"`
	GroupSize       int    `json:"group_size,omitempty"`
	Concurrency     int    `json:"concurrency,omitempty"`
	RateLimit       int    `json:"rate_limit,omitempty"`
	RateIntervalMS  int    `json:"rate_interval_ms,omitempty"`
	FetchStrategy   string `json:"fetch_strategy,omitempty"` // "bulk" or "single"

	// Output locale: "en" (default) or "fa" (Jalali dates, Persian digits).
	Locale string `json:"locale,omitempty"`

	// Optional Postgres cache instead of the local sqlite file.
	CacheDSN string `json:"cache_dsn,omitempty"`

	// Optional Telegram failure notifications.
	BotToken    string `json:"bot_token,omitempty"`
	AdminChatID int64  `json:"admin_chat_id,omitempty"`

	// If true, the engine will log debug messages.
	Debug bool `json:"debug,omitempty"`
}

func DefaultDataDir() string {
	if v := os.Getenv("MW_DATA_DIR"); v != "" {
		return v
	}
	// Preferred system path
	return "/var/lib/market-price-watch"
}

func DefaultConfigPath() string {
	if v := os.Getenv("MW_CONFIG"); v != "" {
		return v
	}
	// Preferred system path
	return "/etc/market-price-watch/config.json"
}

func Load(path string) (Config, error) {
	if path == "" {
		path = DefaultConfigPath()
	}

	var cfg Config
	// 1) Try file
	if b, err := os.ReadFile(path); err == nil {
		if err := json.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("invalid config json: %w", err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	// 2) Env fallback / override
	if v := os.Getenv("MW_BASE_URL"); v != "" {
		cfg.BaseURL = v
	}
	if v := os.Getenv("MW_MARKET"); v != "" {
		cfg.Market = v
	}
	if v := os.Getenv("MW_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("MW_CATALOG"); v != "" {
		cfg.CatalogPath = v
	}
	if v := os.Getenv("MW_CACHE_DSN"); v != "" {
		cfg.CacheDSN = v
	}
	if v := os.Getenv("MW_BOT_TOKEN"); v != "" {
		cfg.BotToken = v
	}
	if v := os.Getenv("MW_ADMIN_CHAT"); v != "" {
		if id, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64); err == nil {
			cfg.AdminChatID = id
		}
	}
	if v := os.Getenv("MW_DEBUG"); v != "" {
		cfg.Debug = v == "1" || strings.EqualFold(v, "true") || strings.EqualFold(v, "yes")
	}

	// Defaults
	if cfg.DataDir == "" {
		cfg.DataDir = DefaultDataDir()
	}
	cfg.DataDir = filepath.Clean(cfg.DataDir)
	if cfg.CatalogPath == "" {
		cfg.CatalogPath = filepath.Join(cfg.DataDir, "catalog.json")
	}
	if cfg.IntervalMinutes <= 0 {
		cfg.IntervalMinutes = 5
	}
	if cfg.WindowSize <= 0 {
		cfg.WindowSize = 200
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 8
	}
	if cfg.Concurrency > 50 {
		cfg.Concurrency = 50
	}
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = 25
	}
	if cfg.RateIntervalMS <= 0 {
		cfg.RateIntervalMS = 1000
	}
	if cfg.FetchStrategy == "" {
		cfg.FetchStrategy = "bulk"
	}
	switch cfg.FetchStrategy {
	case "bulk", "single":
	default:
		return Config{}, fmt.Errorf("invalid fetch_strategy %q (want bulk or single)", cfg.FetchStrategy)
	}
	if cfg.GroupSize <= 0 {
		// A bulk group maps onto one bulk request; a single group maps onto
		// one request per item, so keep those worker-sized.
		if cfg.FetchStrategy == "bulk" {
			cfg.GroupSize = 100
		} else {
			cfg.GroupSize = cfg.Concurrency
		}
	}
	if cfg.FetchStrategy == "bulk" && cfg.GroupSize > 100 {
		cfg.GroupSize = 100
	}
	if cfg.Locale == "" {
		cfg.Locale = "en"
	}

	if cfg.BaseURL == "" {
		return Config{}, fmt.Errorf("missing base_url (set in %s or MW_BASE_URL env)", path)
	}
	if cfg.Market == "" {
		return Config{}, fmt.Errorf("missing market (set in %s or MW_MARKET env)", path)
	}
	return cfg, nil
}
