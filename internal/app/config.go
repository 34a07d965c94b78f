package app

import (
	"strings"
	"time"

	"github.com/yungbote/materialgen-backend/internal/data/db"
	"github.com/yungbote/materialgen-backend/internal/http/middleware"
	"github.com/yungbote/materialgen-backend/internal/jobs"
	"github.com/yungbote/materialgen-backend/internal/observability"
	"github.com/yungbote/materialgen-backend/internal/platform/envutil"
	"github.com/yungbote/materialgen-backend/internal/platform/llm"
	"github.com/yungbote/materialgen-backend/internal/platform/logger"
	"github.com/yungbote/materialgen-backend/internal/progress"
)

type Config struct {
	Addr            string
	ShutdownTimeout time.Duration
	CORSOrigins     []string
	DatabaseURL     string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	JobConcurrency   int
	ProgressTTL      time.Duration
	ProgressCapacity int
	ProgressSweep    time.Duration
	StreamInterval   time.Duration

	MathRulesFile string
	MetricsAddr   string

	LLM  llm.Config
	Otel observability.OtelConfig
}

func LoadConfig(log *logger.Logger) Config {
	cfg := Config{
		Addr:            envutil.String("ADDR", ":"+envutil.String("PORT", "8000")),
		ShutdownTimeout: envutil.Seconds("SHUTDOWN_TIMEOUT_SECONDS", 30*time.Second),
		CORSOrigins:     envutil.List("CORS_ORIGINS", middleware.DefaultOrigins),
		DatabaseURL:     envutil.String("DATABASE_URL", db.DefaultURL),

		RedisAddr:     envutil.String("REDIS_ADDR", ""),
		RedisPassword: envutil.String("REDIS_PASSWORD", ""),
		RedisDB:       envutil.Int("REDIS_DB", 0),

		JobConcurrency:   envutil.Int("JOB_CONCURRENCY", jobs.DefaultConcurrency),
		ProgressTTL:      envutil.Seconds("PROGRESS_TTL_SECONDS", progress.DefaultTTL),
		ProgressCapacity: envutil.Int("PROGRESS_CAPACITY", progress.DefaultCapacity),
		ProgressSweep:    envutil.Seconds("PROGRESS_SWEEP_SECONDS", 5*time.Minute),
		StreamInterval:   time.Duration(envutil.Int("PROGRESS_STREAM_INTERVAL_MS", 500)) * time.Millisecond,

		MathRulesFile: envutil.String("MATH_RULES_FILE", ""),
		MetricsAddr:   envutil.String("METRICS_ADDR", ":9090"),

		LLM: llm.ConfigFromEnv(),
		Otel: observability.OtelConfig{
			ServiceName: envutil.String("OTEL_SERVICE_NAME", "materialgen-backend"),
			Environment: envutil.String("APP_ENV", "development"),
			Version:     envutil.String("APP_VERSION", "dev"),
		},
	}
	log.Info("Config loaded",
		"addr", cfg.Addr,
		"database", redactURL(cfg.DatabaseURL),
		"llm_provider", cfg.LLM.Provider,
		"llm_model", cfg.LLM.Model,
		"redis", cfg.RedisAddr != "",
		"job_concurrency", cfg.JobConcurrency,
	)
	return cfg
}

// redactURL keeps the scheme of a DSN, which is all the startup log needs.
func redactURL(u string) string {
	if i := strings.Index(u, "://"); i >= 0 {
		return u[:i+3] + "..."
	}
	return "sqlite"
}
