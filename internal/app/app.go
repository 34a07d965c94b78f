package app

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/joho/godotenv"

	"github.com/yungbote/materialgen-backend/internal/data/db"
	"github.com/yungbote/materialgen-backend/internal/data/repos"
	apphttp "github.com/yungbote/materialgen-backend/internal/http"
	"github.com/yungbote/materialgen-backend/internal/observability"
	"github.com/yungbote/materialgen-backend/internal/pkg/dbctx"
	"github.com/yungbote/materialgen-backend/internal/platform/envutil"
	"github.com/yungbote/materialgen-backend/internal/platform/logger"
)

type App struct {
	Log      *logger.Logger
	DB       *db.Service
	Cfg      Config
	Clients  Clients
	Repos    Repos
	Services Services
	Metrics  *observability.Metrics
	Server   *apphttp.Server

	otelShutdown func(context.Context) error
	cancel       context.CancelFunc
}

func New(ctx context.Context) (*App, error) {
	// A missing .env is normal outside local development.
	envErr := godotenv.Load()

	log, err := logger.New(envutil.String("LOG_MODE", "development"))
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	if envErr != nil && !errors.Is(envErr, fs.ErrNotExist) {
		log.Warn("Could not load .env", "error", envErr)
	}

	log.Info("Loading environment variables...")
	cfg := LoadConfig(log)

	otelShutdown := observability.InitOTel(ctx, log, cfg.Otel)
	metrics := observability.Init(log)

	store, err := db.Open(cfg.DatabaseURL, log)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.AutoMigrateAll(store.DB()); err != nil {
		_ = store.Close()
		log.Sync()
		return nil, fmt.Errorf("automigrate: %w", err)
	}

	reposet := wireRepos(store.DB(), log)
	markInterrupted(ctx, log, reposet.GenerationJob)

	clients, err := wireClients(ctx, log, cfg)
	if err != nil {
		_ = store.Close()
		log.Sync()
		return nil, err
	}

	serviceset, err := wireServices(log, cfg, reposet, clients)
	if err != nil {
		clients.Close()
		_ = store.Close()
		log.Sync()
		return nil, err
	}

	handlerset := wireHandlers(log, cfg, serviceset)
	server := wireServer(log, cfg, handlerset, metrics)

	return &App{
		Log:          log,
		DB:           store,
		Cfg:          cfg,
		Clients:      clients,
		Repos:        reposet,
		Services:     serviceset,
		Metrics:      metrics,
		Server:       server,
		otelShutdown: otelShutdown,
	}, nil
}

// markInterrupted fails job rows a previous process left queued or running;
// their goroutines died with it.
func markInterrupted(ctx context.Context, log *logger.Logger, repo repos.GenerationJobRepo) {
	n, err := repo.MarkInterrupted(dbctx.New(ctx))
	if err != nil {
		log.Warn("Could not mark interrupted jobs", "error", err)
		return
	}
	if n > 0 {
		log.Warn("Marked interrupted jobs as failed", "count", n)
	}
}

// Start launches background loops: metrics endpoint, collectors and the
// progress sweeper.
func (a *App) Start(ctx context.Context) {
	if a == nil || a.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	a.cancel = cancel

	if a.Metrics != nil {
		a.Metrics.StartServer(ctx, a.Log, a.Cfg.MetricsAddr)
		a.Metrics.StartDBCollector(ctx, a.Log, a.DB.DB())
		a.Metrics.StartJobCollector(ctx, a.Log, a.DB.DB())
		if a.Clients.Redis != nil {
			a.Metrics.StartRedisCollector(ctx, a.Log, a.Clients.Redis)
		}
	}
	if a.Services.Memory != nil {
		go a.Services.Memory.RunSweeper(ctx, a.Cfg.ProgressSweep)
	}
}

// Run serves HTTP until ctx is done, then stops the job runner.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.Server == nil {
		return fmt.Errorf("app not initialized")
	}
	serveErr := a.Server.Run(ctx, a.Cfg.Addr, a.Cfg.ShutdownTimeout)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.Cfg.ShutdownTimeout)
	defer cancel()
	if err := a.Services.Runner.Shutdown(shutdownCtx); err != nil {
		a.Log.Warn("Job runner did not drain", "error", err)
	}
	return serveErr
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	a.Clients.Close()
	if a.DB != nil {
		if err := a.DB.Close(); err != nil && a.Log != nil {
			a.Log.Warn("Database close failed", "error", err)
		}
	}
	if a.otelShutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = a.otelShutdown(ctx)
		cancel()
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
