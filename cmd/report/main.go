package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/catalyst-trading/catalyst-engine/internal/config"
	"github.com/catalyst-trading/catalyst-engine/internal/learning"
	"github.com/catalyst-trading/catalyst-engine/internal/store"
)

// report prints the learning report for one pattern or the whole set.
func main() {
	var (
		configPath  = flag.String("config", "config/config.yaml", "path to config file")
		patternName = flag.String("pattern", "", "restrict to one pattern (default: all)")
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
	if dsn == "" {
		log.Fatal("report needs a database; set database.dsn or DATABASE_URL")
	}

	pg, err := store.NewPostgres(dsn, time.Duration(cfg.Database.TimeoutMs)*time.Millisecond)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pg.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	text, err := learning.BuildText(ctx, pg, *patternName)
	if err != nil {
		log.Fatalf("build report: %v", err)
	}
	fmt.Print(text)
}
