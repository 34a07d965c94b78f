package app

import (
	apphttp "github.com/yungbote/materialgen-backend/internal/http"
	httpH "github.com/yungbote/materialgen-backend/internal/http/handlers"
	"github.com/yungbote/materialgen-backend/internal/observability"
	"github.com/yungbote/materialgen-backend/internal/platform/logger"
)

type Handlers struct {
	Health     *httpH.HealthHandler
	Generation *httpH.GenerationHandler
	Progress   *httpH.ProgressHandler
	History    *httpH.HistoryHandler
	Job        *httpH.JobHandler
}

func wireHandlers(log *logger.Logger, cfg Config, services Services) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Health:     httpH.NewHealthHandler(),
		Generation: httpH.NewGenerationHandler(services.Generation, log),
		Progress:   httpH.NewProgressHandler(services.Generation, log, cfg.StreamInterval),
		History:    httpH.NewHistoryHandler(services.Generation, log),
		Job:        httpH.NewJobHandler(services.Generation, log),
	}
}

func wireServer(log *logger.Logger, cfg Config, handlers Handlers, metrics *observability.Metrics) *apphttp.Server {
	return apphttp.NewServer(apphttp.RouterConfig{
		Log:               log,
		Metrics:           metrics,
		ServiceName:       cfg.Otel.ServiceName,
		CORSOrigins:       cfg.CORSOrigins,
		HealthHandler:     handlers.Health,
		GenerationHandler: handlers.Generation,
		ProgressHandler:   handlers.Progress,
		HistoryHandler:    handlers.History,
		JobHandler:        handlers.Job,
	})
}
