package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/Venkey2238/blockchain-evidence/internal/config"
	"github.com/Venkey2238/blockchain-evidence/internal/infra/db"
	"github.com/Venkey2238/blockchain-evidence/internal/infra/ledger"
	"github.com/Venkey2238/blockchain-evidence/internal/usecase"
)

// reanchor scans records whose ledger anchoring failed during ingestion and
// re-attempts it, one batch per run. Meant to be invoked from cron.
func main() {
	_ = godotenv.Load()
	cfg := config.FromEnv()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := db.NewStore(cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("init record store: %v", err)
	}

	svc := usecase.NewReanchorService(store.Evidence(), ledger.New(cfg.LedgerAddr, cfg.LedgerAPIKey, cfg.BackendTimeout), logger)
	svc.BatchSize = cfg.ReanchorBatchSize
	svc.Delay = cfg.ReanchorDelay

	report, err := svc.Run(ctx)
	if err != nil {
		logger.Error("re-anchor run aborted", "error", err, "anchored", report.Anchored, "failed", report.Failed)
		os.Exit(1)
	}
	logger.Info("re-anchor run complete",
		"scanned", report.Scanned,
		"anchored", report.Anchored,
		"failed", report.Failed,
	)
}
