package app

import (
	"time"

	"github.com/yungbote/dineops-backend/internal/jobs"
	"github.com/yungbote/dineops-backend/internal/platform/cache"
	"github.com/yungbote/dineops-backend/internal/platform/envutil"
	"github.com/yungbote/dineops-backend/internal/services"
)

type Config struct {
	ServiceName string
	LogMode     string
	Port        string

	RunServer   bool
	RunWorker   bool
	AutoMigrate bool

	MetricsAddr         string
	LoyaltyDefaultsPath string
	PlatformJWTSecret   string

	QRRateLimit  int64
	QRRateWindow time.Duration

	Cache cache.Config

	WorkerConcurrency  int
	WorkerPollInterval time.Duration
	OutboxPolicy       jobs.Policy

	PlatformMetrics services.PlatformMetricsConfig

	ShutdownTimeout time.Duration
}

func LoadConfig() Config {
	return Config{
		ServiceName: envutil.String("SERVICE_NAME", "dineops-loyalty"),
		LogMode:     envutil.String("LOG_MODE", "development"),
		Port:        envutil.String("PORT", "8080"),

		RunServer:   envutil.Bool("RUN_SERVER", true),
		RunWorker:   envutil.Bool("RUN_WORKER", true),
		AutoMigrate: envutil.Bool("AUTO_MIGRATE", true),

		MetricsAddr:         envutil.String("METRICS_ADDR", ":9090"),
		LoyaltyDefaultsPath: envutil.String("LOYALTY_DEFAULTS_PATH", ""),
		PlatformJWTSecret:   envutil.String("PLATFORM_JWT_SECRET", ""),

		QRRateLimit:  int64(envutil.Int("QR_RATE_LIMIT", 30)),
		QRRateWindow: envutil.Seconds("QR_RATE_WINDOW_SECONDS", 60),

		Cache: cache.Config{
			RedisAddr:     envutil.String("REDIS_ADDR", ""),
			RedisPassword: envutil.String("REDIS_PASSWORD", ""),
			RedisDB:       envutil.Int("REDIS_DB", 0),
			KeyPrefix:     envutil.String("REDIS_KEY_PREFIX", "dineops:"),
		},

		WorkerConcurrency:  envutil.Int("OUTBOX_WORKER_CONCURRENCY", 2),
		WorkerPollInterval: envutil.Millis("OUTBOX_POLL_INTERVAL_MS", 1000),
		OutboxPolicy: jobs.Policy{
			MaxAttempts:  envutil.Int("OUTBOX_MAX_ATTEMPTS", 5),
			RetryDelay:   envutil.Seconds("OUTBOX_RETRY_DELAY_SECONDS", 30),
			StaleRunning: envutil.Seconds("OUTBOX_STALE_RUNNING_SECONDS", 300),
		},

		PlatformMetrics: services.PlatformMetricsConfig{
			ProbeTimeout:   envutil.Millis("PROVIDER_PROBE_TIMEOUT_MS", 3000),
			SnapshotTTL:    envutil.Seconds("PLATFORM_METRICS_TTL_SECONDS", 0),
			StripeProbeURL: envutil.String("STRIPE_PROBE_URL", ""),
			SumUpProbeURL:  envutil.String("SUMUP_PROBE_URL", ""),
		},

		ShutdownTimeout: envutil.Seconds("SHUTDOWN_TIMEOUT_SECONDS", 15),
	}
}
