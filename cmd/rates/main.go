package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/vitos/currency_rates/internal/config"
	"github.com/vitos/currency_rates/internal/domain"
	"github.com/vitos/currency_rates/internal/infrastructure/exchange"
	"github.com/vitos/currency_rates/internal/infrastructure/logger"
	"github.com/vitos/currency_rates/internal/infrastructure/lookup"
	"github.com/vitos/currency_rates/internal/infrastructure/metrics"
	"github.com/vitos/currency_rates/internal/infrastructure/storage"
	"github.com/vitos/currency_rates/internal/usecase"
	"github.com/vitos/currency_rates/internal/web"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("c", "config/config.yaml", "Path to configuration file")
	envPath := flag.String("env", ".env", "Optional .env file")
	flag.Parse()

	// 1. Load Config
	cfg, err := config.Load(*configPath, *envPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 2. Init Logger
	log, err := logger.NewLogger(cfg.Logging.Level, cfg.Logging.Encoding)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// 3. Lookup table
	table, err := lookup.Load(cfg.Lookup.Path)
	if err != nil {
		log.Fatal("Failed to load lookup table", zap.Error(err))
	}

	// 4. Refresh log and metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	refreshMetrics := metrics.NewRefreshMetrics(registry)

	opts := []usecase.SessionOption{
		usecase.WithLogger(log),
		usecase.WithObserver(refreshMetrics),
	}
	var refreshLog domain.RefreshLogRepository
	if cfg.Storage.Path != "" {
		store, err := storage.NewSQLiteStore(cfg.Storage.Path)
		if err != nil {
			log.Fatal("Failed to init sqlite", zap.Error(err))
		}
		defer store.Close()
		refreshLog = store
		opts = append(opts, usecase.WithRefreshLog(store))
	}

	// 5. Rate API and widget session
	fetcher := exchange.NewRatesAPIAdapter(cfg.RateAPI.BaseURL, cfg.RateAPI.HTTPTimeout)
	session, err := usecase.NewSession(cfg.SessionConfig(), fetcher, table, opts...)
	if err != nil {
		log.Fatal("Failed to create session", zap.Error(err))
	}
	if cfg.RateAPI.RefreshTimeout > 0 {
		log.Warn("Refresh timeout enabled", zap.Duration("timeout", cfg.RateAPI.RefreshTimeout))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sessionDone := make(chan struct{})
	go func() {
		defer close(sessionDone)
		if err := session.Run(ctx); err != nil {
			log.Error("Session stopped", zap.Error(err))
		}
	}()

	// 6. Web server
	server := web.NewServer(cfg.Server.Port, session, table, refreshLog, registry, log)
	go func() {
		if err := server.Start(); err != nil {
			log.Fatal("Server failed", zap.Error(err))
		}
	}()

	// 7. Wait for Shutdown
	<-ctx.Done()
	log.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", zap.Error(err))
	}
	<-sessionDone
	session.Wait()
}
