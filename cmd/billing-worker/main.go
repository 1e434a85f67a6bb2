package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"fatura/internal/config"
	applog "fatura/internal/log"
	"fatura/internal/services"
	"fatura/internal/storage"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := applog.Setup("billing-worker")
	logger.Info("Starting billing-worker")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	store, err := storage.NewLedgerStore(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to open ledger store", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer store.Close()

	invoices := services.NewInvoiceService(store)
	processor := services.NewBillingProcessor(store, invoices)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("Billing processor configured",
		"interval", cfg.BillingInterval,
		"sqlite_db", cfg.SQLiteDBPath)

	// Run once on startup so restarts never delay a closing.
	if err := processor.RunOnce(ctx, time.Now()); err != nil {
		logger.Error("Initial billing run failed", "error", err)
	}

	ticker := time.NewTicker(cfg.BillingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("Billing-worker shutdown complete")
			return
		case now := <-ticker.C:
			if err := processor.RunOnce(ctx, now); err != nil {
				logger.Error("Billing run failed", "error", err)
			}
		}
	}
}
