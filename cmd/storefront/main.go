package main

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"Storefront/internal/auth"
	"Storefront/internal/catalog"
	"Storefront/internal/config"
	"Storefront/internal/kv"
	"Storefront/internal/order"
	"Storefront/internal/session"
	"Storefront/internal/storefront"
	"Storefront/pkg/kit"
)

const openTimeout = 10 * time.Second

func main() {
	service := "storefront"

	cfg, err := config.Load()
	if err != nil {
		kit.NewLogger(service, "info").Fatal("load config failed", zap.Error(err))
	}

	log := kit.NewLogger(service, cfg.LogLevel)
	defer func() { _ = log.Sync() }()

	ctx, cancel := context.WithTimeout(context.Background(), openTimeout)
	backend, err := kv.Open(ctx, cfg.DatabaseURL)
	cancel()
	if err != nil {
		log.Fatal("open storage failed", zap.Error(err))
	}

	reg := prometheus.NewRegistry()
	storage := kv.NewInstrumented(backend.Store, reg)

	var (
		products catalog.Store = catalog.NewDemoStore()
		orders   order.Store   = order.NewMemStore()
	)
	if backend.SQL != nil && backend.SQL.Dialect() == "postgres" {
		products = catalog.NewPostgresStore(backend.SQL.DB())
		orders = order.NewPostgresStore(backend.SQL.DB())
	}

	sessions := session.NewRegistry(storage, session.Config{
		Namespace:        kv.Namespace(cfg.Namespace),
		ViewCapacity:     cfg.ViewHistorySize,
		SearchCapacity:   cfg.SearchHistorySize,
		AutosaveInterval: cfg.AutosaveInterval,
		IdleTTL:          cfg.SessionIdleTTL,
	}, log)

	sweeper, err := session.NewSweeper(sessions, cfg.SessionSweepSchedule, log)
	if err != nil {
		log.Fatal("bad SESSION_SWEEP_SCHEDULE", zap.Error(err))
	}
	sweeper.Start()

	s := &storefront.Server{
		Catalog:  products,
		Sessions: sessions,
		Orders: &order.Service{
			Store:   orders,
			Catalog: products,
			Log:     log,
		},
		Storage:       storage,
		DefaultMarket: cfg.DefaultMarket,
		Log:           log,
	}

	h := storefront.NewHandler(s, storefront.HTTPDeps{
		Log:            log,
		Service:        service,
		Registry:       reg,
		Tokens:         auth.NewTokenMaker(cfg.JWTSecret),
		MetricsEnabled: cfg.MetricsEnabled,
		MetricsToken:   cfg.MetricsToken,
	})

	log.Info("storage ready",
		zap.Bool("durable", backend.SQL != nil),
		zap.String("namespace", cfg.Namespace),
		zap.String("default_market", cfg.DefaultMarket),
	)

	onShutdown := func(ctx context.Context) {
		sweeper.Stop()
		sessions.FlushAll(ctx)
		if err := backend.Close(); err != nil {
			log.Warn("close storage failed", zap.Error(err))
		}
	}

	if err := kit.RunHTTPServer(":"+cfg.Port, h, log, onShutdown); err != nil {
		log.Fatal("http server stopped", zap.Error(err))
	}
}
