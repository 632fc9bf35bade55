
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/Armin-kho/market-price-watch/internal/cache"
	"github.com/Armin-kho/market-price-watch/internal/catalog"
	"github.com/Armin-kho/market-price-watch/internal/config"
	"github.com/Armin-kho/market-price-watch/internal/engine"
	"github.com/Armin-kho/market-price-watch/internal/market"
	"github.com/Armin-kho/market-price-watch/internal/notify"
	"github.com/Armin-kho/market-price-watch/internal/scheduler"
)

func main() {
	cfgPath := flag.String("config", config.DefaultConfigPath(), "path to config.json")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	cat, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		log.Fatalf("catalog error: %v", err)
	}
	log.Printf("catalog loaded: %d items", cat.Len())

	var store cache.Store
	var sqliteStore *cache.SQLite
	if cfg.CacheDSN != "" {
		store, err = cache.OpenPostgres(context.Background(), cfg.CacheDSN)
	} else {
		sqliteStore, err = cache.OpenSQLite(filepath.Join(cfg.DataDir, "price-cache.db"))
		store = sqliteStore
	}
	if err != nil {
		log.Fatalf("cache error: %v", err)
	}
	defer store.Close()

	client := market.NewClient(cfg.BaseURL, cfg.Market)
	resolver := engine.NewResolver(client, store, cfg.Market, cfg.Locale, engine.Strategy(cfg.FetchStrategy), cfg.Debug)
	eng := engine.New(cat, resolver, engine.Options{
		WindowSize:   cfg.WindowSize,
		GroupSize:    cfg.GroupSize,
		Concurrency:  cfg.Concurrency,
		RateLimit:    cfg.RateLimit,
		RateInterval: time.Duration(cfg.RateIntervalMS) * time.Millisecond,
		Debug:        cfg.Debug,
	})

	var notifier scheduler.Notifier
	if cfg.BotToken != "" && cfg.AdminChatID != 0 {
		tg, err := notify.NewTelegram(cfg.BotToken, cfg.AdminChatID)
		if err != nil {
			log.Fatalf("telegram error: %v", err)
		}
		notifier = tg
	}

	sched := scheduler.New(eng, time.Duration(cfg.IntervalMinutes)*time.Minute, cfg.Locale, notifier)
	if sqliteStore != nil {
		sched.EnableBackup(sqliteStore, filepath.Join(cfg.DataDir, "backup"))
	}
	sched.Start()

	// Graceful stop
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Printf("Shutting down...")
	sched.Stop()
	eng.Close()
}
