package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	HTTPAddr    string
	PostgresDSN string
	LogLevel    string

	// S3-compatible blob storage (MinIO in development).
	S3Endpoint  string
	S3Region    string
	S3Bucket    string
	S3AccessKey string
	S3SecretKey string

	// External ledger anchoring service.
	LedgerAddr   string
	LedgerAPIKey string

	// Per-call bound on blob and ledger operations, and how many times a
	// failed call is retried before it counts as a partial failure.
	BackendTimeout time.Duration
	BackendRetries int

	// Replay cache backend: "memory" for a single instance, "redis" for
	// multi-instance deployments.
	NonceBackend  string
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	RateLimitEnabled   bool
	UploadLimitPerHour int
	ExportLimitPerMin  int
	AuthLimitPerWindow int

	ReanchorBatchSize int
	ReanchorDelay     time.Duration
}

func FromEnv() Config {
	addr := os.Getenv("HTTP_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	return Config{
		HTTPAddr:    addr,
		PostgresDSN: os.Getenv("POSTGRES_DSN"),
		LogLevel:    envDefault("LOG_LEVEL", "info"),

		S3Endpoint:  os.Getenv("S3_ENDPOINT"),
		S3Region:    envDefault("S3_REGION", "us-east-1"),
		S3Bucket:    envDefault("S3_BUCKET", "evidence"),
		S3AccessKey: os.Getenv("S3_ACCESS_KEY"),
		S3SecretKey: os.Getenv("S3_SECRET_KEY"),

		LedgerAddr:   os.Getenv("LEDGER_ADDR"),
		LedgerAPIKey: os.Getenv("LEDGER_API_KEY"),

		BackendTimeout: envDurationDefault("BACKEND_TIMEOUT_SECONDS", 15*time.Second),
		BackendRetries: envIntDefault("BACKEND_RETRIES", 0),

		NonceBackend:  envDefault("NONCE_BACKEND", "memory"),
		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       envIntDefault("REDIS_DB", 0),

		RateLimitEnabled:   envBoolDefault("RATE_LIMIT_ENABLED", true),
		UploadLimitPerHour: envIntDefault("UPLOAD_LIMIT_PER_HOUR", 50),
		ExportLimitPerMin:  envIntDefault("EXPORT_LIMIT_PER_MINUTE", 10),
		AuthLimitPerWindow: envIntDefault("AUTH_LIMIT_PER_WINDOW", 20),

		ReanchorBatchSize: envIntDefault("REANCHOR_BATCH_SIZE", 100),
		ReanchorDelay:     envDurationDefault("REANCHOR_DELAY_SECONDS", 2*time.Second),
	}
}

func envDefault(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func envIntDefault(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func envBoolDefault(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func envDurationDefault(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	return time.Duration(n) * time.Second
}
