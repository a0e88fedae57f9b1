package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/Venkey2238/blockchain-evidence/internal/config"
	httpapi "github.com/Venkey2238/blockchain-evidence/internal/http"
	"github.com/Venkey2238/blockchain-evidence/internal/infra/blob"
	"github.com/Venkey2238/blockchain-evidence/internal/infra/db"
	"github.com/Venkey2238/blockchain-evidence/internal/infra/ledger"
	"github.com/Venkey2238/blockchain-evidence/internal/infra/nonce"
	"github.com/Venkey2238/blockchain-evidence/internal/infra/policy"
	"github.com/Venkey2238/blockchain-evidence/internal/infra/ratelimit"
	"github.com/Venkey2238/blockchain-evidence/internal/infra/walletauth"
	"github.com/Venkey2238/blockchain-evidence/internal/infra/watermark"
	"github.com/Venkey2238/blockchain-evidence/internal/usecase"
)

func main() {
	_ = godotenv.Load()
	cfg := config.FromEnv()
	logger := newLogger(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := db.NewStore(cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("init record store: %v", err)
	}

	nonces, err := newNonceStore(ctx, cfg)
	if err != nil {
		log.Fatalf("init nonce store: %v", err)
	}
	verifier := walletauth.NewVerifier(nonces, time.Now)

	blobs, err := blob.NewS3Store(ctx, blob.S3Config{
		Endpoint:  cfg.S3Endpoint,
		Region:    cfg.S3Region,
		Bucket:    cfg.S3Bucket,
		AccessKey: cfg.S3AccessKey,
		SecretKey: cfg.S3SecretKey,
	})
	if err != nil {
		log.Fatalf("init blob store: %v", err)
	}

	ledgerClient := ledger.New(cfg.LedgerAddr, cfg.LedgerAPIKey, cfg.BackendTimeout)

	authz, err := policy.NewEngine(ctx)
	if err != nil {
		log.Fatalf("init policy engine: %v", err)
	}

	limiter, err := newLimiter(cfg)
	if err != nil {
		log.Fatalf("init rate limiter: %v", err)
	}

	users := store.Users()
	activity := store.ActivityLog()
	records := store.Evidence()

	ingest := usecase.NewIngestService(records, blobs, ledgerClient, users, authz, activity, logger)
	ingest.BackendTimeout = cfg.BackendTimeout
	ingest.BackendRetries = cfg.BackendRetries
	export := usecase.NewExportService(records, blobs, watermark.NewTrailerRenderer(), users, authz, activity, logger)
	query := usecase.NewQueryService(records, users, authz, activity)

	srv := httpapi.NewServer(httpapi.ServerDeps{
		Verifier:           verifier,
		Ingest:             ingest,
		Export:             export,
		Query:              query,
		Logger:             logger,
		RateLimiter:        limiter,
		UploadLimitPerHour: cfg.UploadLimitPerHour,
		ExportLimitPerMin:  cfg.ExportLimitPerMin,
		AuthLimitPerWindow: cfg.AuthLimitPerWindow,
	})

	logger.Info("starting api", "addr", cfg.HTTPAddr, "nonce_backend", cfg.NonceBackend)
	if err := srv.Run(cfg.HTTPAddr); err != nil {
		log.Fatalf("server exited: %v", err)
	}
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}

func newNonceStore(ctx context.Context, cfg config.Config) (nonce.Store, error) {
	if cfg.NonceBackend == "redis" {
		return nonce.NewRedisStore(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, time.Now)
	}
	store := nonce.NewMemoryStore(nonce.MemoryStoreConfig{})
	store.StartSweeper(ctx, time.Hour)
	return store, nil
}

func newLimiter(cfg config.Config) (ratelimit.Limiter, error) {
	if !cfg.RateLimitEnabled {
		return nil, nil
	}
	if cfg.NonceBackend == "redis" && cfg.RedisAddr != "" {
		return ratelimit.NewRedisLimiter(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, time.Now)
	}
	return ratelimit.NewMemoryLimiter(ratelimit.MemoryLimiterConfig{}), nil
}
