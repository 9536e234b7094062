package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/catalyst-trading/catalyst-engine/internal/config"
	"github.com/catalyst-trading/catalyst-engine/internal/engine"
	"github.com/catalyst-trading/catalyst-engine/internal/feed"
	"github.com/catalyst-trading/catalyst-engine/internal/journal"
	"github.com/catalyst-trading/catalyst-engine/internal/observ"
	"github.com/catalyst-trading/catalyst-engine/internal/prices"
	"github.com/catalyst-trading/catalyst-engine/internal/store"
)

func main() {
	var (
		configPath = flag.String("config", "config/config.yaml", "path to config file")
		oneshot    = flag.Bool("oneshot", false, "run a single scan cycle and exit")
	)
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	dsn := cfg.Database.DSN
	if env := os.Getenv("DATABASE_URL"); env != "" {
		dsn = env
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var st store.Store
	if dsn != "" {
		pg, err := store.NewPostgres(dsn, time.Duration(cfg.Database.TimeoutMs)*time.Millisecond)
		if err != nil {
			log.Fatalf("connect postgres: %v", err)
		}
		if err := pg.EnsureSchema(ctx); err != nil {
			log.Fatalf("ensure schema: %v", err)
		}
		st = pg
	} else {
		observ.Warn("memory_store", map[string]any{"reason": "no database dsn configured"})
		st = store.NewMemory()
	}
	defer st.Close()

	jnl, err := journal.New(cfg.Signals.JournalPath)
	if err != nil {
		log.Fatalf("open journal: %v", err)
	}

	var priceSrc prices.Source
	if cfg.PricesPath != "" {
		priceSrc = &prices.File{Path: cfg.PricesPath}
	}

	eng, err := engine.New(ctx, engine.Options{
		Store: st,
		Feed: feed.NewRSSSource(feed.RSSConfig{
			FeedTimeout:   time.Duration(cfg.Scanner.FeedTimeoutMs) * time.Millisecond,
			RatePerSecond: cfg.Scanner.RatePerSecond,
			MaxPerFeed:    cfg.Scanner.MaxPerFeed,
		}),
		Prices:       priceSrc,
		Journal:      jnl,
		MinScore:     cfg.Signals.MinScore,
		DefaultPrice: cfg.Signals.DefaultPrice,
		SampleLimit:  cfg.Learning.TradeSampleLimit,
	})
	if err != nil {
		log.Fatalf("init engine: %v", err)
	}

	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", observ.Handler())
		if err := http.ListenAndServe(cfg.MetricsAddr, mux); err != nil && err != http.ErrServerClosed {
			observ.Warn("metrics_server_failed", map[string]any{"error": err.Error()})
		}
	}()

	observ.Log("catalystd_started", map[string]any{
		"interval_seconds": cfg.Scanner.IntervalSeconds,
		"priority_only":    cfg.Scanner.PriorityOnly,
		"store":            storeKind(dsn),
	})

	scan := func() {
		if _, err := eng.ScanAndGenerate(ctx, nil, cfg.Scanner.PriorityOnly); err != nil {
			if ctx.Err() != nil {
				return
			}
			observ.Warn("scan_failed", map[string]any{"error": err.Error()})
			return
		}
		observ.SetGauge("active_signals", float64(len(eng.ActiveSignals())), nil)
	}

	scan()
	if *oneshot {
		return
	}

	ticker := time.NewTicker(time.Duration(cfg.Scanner.IntervalSeconds) * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			observ.Log("catalystd_stopped", nil)
			return
		case <-ticker.C:
			scan()
		}
	}
}

func storeKind(dsn string) string {
	if dsn != "" {
		return "postgres"
	}
	return "memory"
}
