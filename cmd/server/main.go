package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/swadpos/api/internal/channel"
	"github.com/swadpos/api/internal/config"
	"github.com/swadpos/api/internal/database"
	"github.com/swadpos/api/internal/router"
	"github.com/swadpos/api/internal/ws"
)

func main() {
	cfg := config.Load()

	taxRate, err := decimal.NewFromString(cfg.TaxRatePercent)
	if err != nil {
		log.Fatalf("invalid TAX_RATE_PERCENT %q: %v", cfg.TaxRatePercent, err)
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		log.Fatalf("invalid TIMEZONE %q: %v", cfg.Timezone, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("connect to database: %v", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		log.Fatalf("ping database: %v", err)
	}

	queries := database.New(pool)

	hub := ws.NewHub()
	go hub.Run()

	ch := channel.New(pool, func(db database.DBTX) channel.Store {
		return database.New(db)
	})
	poller := channel.NewPoller(ch, queries, hub, cfg.ChannelPollInterval)
	go poller.Run(ctx)

	r := router.New(cfg, queries, pool, hub, ch, taxRate, loc)

	log.Printf("Starting server on :%s", cfg.Port)
	if err := http.ListenAndServe(fmt.Sprintf(":%s", cfg.Port), r); err != nil {
		log.Fatal(err)
	}
}
