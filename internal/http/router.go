package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/materialgen-backend/internal/http/handlers"
	httpMW "github.com/yungbote/materialgen-backend/internal/http/middleware"
	"github.com/yungbote/materialgen-backend/internal/observability"
	"github.com/yungbote/materialgen-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log         *logger.Logger
	Metrics     *observability.Metrics
	ServiceName string
	CORSOrigins []string

	GenerationHandler *httpH.GenerationHandler
	ProgressHandler   *httpH.ProgressHandler
	HistoryHandler    *httpH.HistoryHandler
	JobHandler        *httpH.JobHandler
	HealthHandler     *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.Metrics(cfg.Metrics))
	r.Use(httpMW.CORS(cfg.CORSOrigins))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/", cfg.HealthHandler.Root)
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}

	api := r.Group("/api")
	{
		// Generation stages
		if cfg.GenerationHandler != nil {
			api.POST("/generate-outline", cfg.GenerationHandler.GenerateOutline)
			api.POST("/generate-content", cfg.GenerationHandler.GenerateContent)
			api.POST("/generate-questions", cfg.GenerationHandler.GenerateQuestions)
			api.POST("/regenerate-chapter", cfg.GenerationHandler.RegenerateChapter)
		}

		// Progress
		if cfg.ProgressHandler != nil {
			api.GET("/generation-progress/:id", cfg.ProgressHandler.Get)
			api.GET("/generation-progress/:id/stream", cfg.ProgressHandler.Stream)
		}

		// History
		if cfg.HistoryHandler != nil {
			api.GET("/history", cfg.HistoryHandler.List)
			api.GET("/history/:id", cfg.HistoryHandler.Get)
			api.GET("/history/:id/questions", cfg.HistoryHandler.Questions)
			api.DELETE("/history/:id", cfg.HistoryHandler.Delete)
		}

		// Jobs
		if cfg.JobHandler != nil {
			api.GET("/jobs/:id", cfg.JobHandler.GetJob)
			api.POST("/jobs/:id/cancel", cfg.JobHandler.CancelJob)
		}
	}

	return r
}
