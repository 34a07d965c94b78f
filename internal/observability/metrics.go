package observability

import (
	"context"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/yungbote/materialgen-backend/internal/domain/jobs"
	"github.com/yungbote/materialgen-backend/internal/platform/envutil"
	"github.com/yungbote/materialgen-backend/internal/platform/logger"
)

type Metrics struct {
	apiRequests *CounterVec
	apiLatency  *HistogramVec
	apiInflight *Gauge

	llmRequests *CounterVec
	llmLatency  *HistogramVec
	llmTokens   *CounterVec

	stageLatency    *HistogramVec
	chapters        *CounterVec
	outlineFallback *Counter
	progressEntries *Gauge

	jobs        *CounterVec
	jobsRunning *Gauge
	jobsByState *GaugeVec

	dbStats   *GaugeVec
	redisUp   *Gauge
	redisPing *Gauge
}

var (
	initOnce sync.Once
	instance *Metrics
)

func Enabled() bool {
	return envutil.Bool("METRICS_ENABLED", false)
}

// Current returns the process-wide metrics, or nil when disabled. All
// methods are nil-safe so callers never need to check.
func Current() *Metrics {
	return instance
}

func Init(log *logger.Logger) *Metrics {
	if !Enabled() {
		return nil
	}
	initOnce.Do(func() {
		instance = New()
		if log != nil {
			log.Info("Observability metrics enabled")
		}
	})
	return instance
}

// New builds an unregistered metrics set.
func New() *Metrics {
	return &Metrics{
		apiRequests: NewCounterVec("mg_api_requests_total", "Total API requests by method/route/status.", []string{"method", "route", "status"}),
		apiLatency: NewHistogramVec(
			"mg_api_request_duration_seconds",
			"API request latency in seconds by method/route/status.",
			[]string{"method", "route", "status"},
			[]float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 120},
		),
		apiInflight: NewGauge("mg_api_inflight_requests", "In-flight API requests."),
		llmRequests: NewCounterVec("mg_llm_requests_total", "Completion requests by provider/model/prompt/status.", []string{"provider", "model", "prompt", "status"}),
		llmLatency: NewHistogramVec(
			"mg_llm_request_duration_seconds",
			"Completion latency in seconds by provider/model/prompt.",
			[]string{"provider", "model", "prompt"},
			[]float64{0.25, 0.5, 1, 2, 5, 10, 20, 30, 60, 120},
		),
		llmTokens: NewCounterVec("mg_llm_tokens_total", "Completion tokens by provider/model/direction.", []string{"provider", "model", "direction"}),
		stageLatency: NewHistogramVec(
			"mg_generation_stage_duration_seconds",
			"Generation stage duration in seconds by stage/status.",
			[]string{"stage", "status"},
			[]float64{1, 5, 10, 30, 60, 120, 300, 600, 1200},
		),
		chapters:        NewCounterVec("mg_generation_chapters_total", "Chapters generated by status.", []string{"status"}),
		outlineFallback: NewCounter("mg_generation_outline_fallback_total", "Content runs that fell back to monolithic generation."),
		progressEntries: NewGauge("mg_progress_entries", "Progress entries held in memory."),
		jobs:            NewCounterVec("mg_jobs_total", "Background jobs finished by type/status.", []string{"job_type", "status"}),
		jobsRunning:     NewGauge("mg_jobs_running", "Background jobs currently running."),
		jobsByState:     NewGaugeVec("mg_job_rows", "Persisted generation job rows by status.", []string{"status"}),
		dbStats:         NewGaugeVec("mg_db_stats", "Database connection pool stats.", []string{"metric"}),
		redisUp:         NewGauge("mg_redis_up", "Redis connectivity (1=up, 0=down)."),
		redisPing:       NewGauge("mg_redis_ping_seconds", "Redis ping latency in seconds."),
	}
}

func (m *Metrics) StartServer(ctx context.Context, log *logger.Logger, addr string) {
	if m == nil {
		return
	}
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           http.HandlerFunc(m.WriteHTTP),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = srv.Shutdown(shutdownCtx)
		cancel()
	}()
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			if log != nil {
				log.Error("metrics server failed", "error", err, "addr", addr)
			}
		}
	}()
}

func (m *Metrics) WriteHTTP(w http.ResponseWriter, r *http.Request) {
	if m == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	_ = m.WritePrometheus(w)
}

func (m *Metrics) WritePrometheus(w io.Writer) error {
	if m == nil {
		return nil
	}
	for _, c := range []collector{
		m.apiRequests, m.apiLatency, m.apiInflight,
		m.llmRequests, m.llmLatency, m.llmTokens,
		m.stageLatency, m.chapters, m.outlineFallback, m.progressEntries,
		m.jobs, m.jobsRunning, m.jobsByState,
		m.dbStats, m.redisUp, m.redisPing,
	} {
		if err := c.WritePrometheus(w); err != nil {
			return err
		}
	}
	return nil
}

// ObserveAPI counts one request. A negative dur skips the latency histogram.
func (m *Metrics) ObserveAPI(method, route, status string, dur time.Duration) {
	if m == nil {
		return
	}
	if method == "" {
		method = "UNKNOWN"
	}
	if status == "" {
		status = "0"
	}
	m.apiRequests.Inc(method, route, status)
	if dur >= 0 {
		m.apiLatency.Observe(dur.Seconds(), method, route, status)
	}
}

func (m *Metrics) ApiInflightInc() {
	if m == nil {
		return
	}
	m.apiInflight.Add(1)
}

func (m *Metrics) ApiInflightDec() {
	if m == nil {
		return
	}
	m.apiInflight.Add(-1)
}

func (m *Metrics) ObserveLLMRequest(provider, model, prompt, status string, dur time.Duration, inputTokens, outputTokens int) {
	if m == nil {
		return
	}
	provider = strings.TrimSpace(provider)
	model = strings.TrimSpace(model)
	m.llmRequests.Inc(provider, model, prompt, status)
	if dur > 0 {
		m.llmLatency.Observe(dur.Seconds(), provider, model, prompt)
	}
	if inputTokens > 0 {
		m.llmTokens.Add(float64(inputTokens), provider, model, "input")
	}
	if outputTokens > 0 {
		m.llmTokens.Add(float64(outputTokens), provider, model, "output")
	}
}

func (m *Metrics) ObserveGenerationStage(stage, status string, dur time.Duration) {
	if m == nil {
		return
	}
	m.stageLatency.Observe(dur.Seconds(), stage, status)
}

func (m *Metrics) IncChapter(status string) {
	if m == nil {
		return
	}
	m.chapters.Inc(status)
}

func (m *Metrics) IncOutlineFallback() {
	if m == nil {
		return
	}
	m.outlineFallback.Inc()
}

func (m *Metrics) SetProgressEntries(n int) {
	if m == nil {
		return
	}
	m.progressEntries.Set(float64(n))
}

func (m *Metrics) JobStarted() {
	if m == nil {
		return
	}
	m.jobsRunning.Add(1)
}

func (m *Metrics) JobFinished(jobType, status string) {
	if m == nil {
		return
	}
	m.jobsRunning.Add(-1)
	m.jobs.Inc(jobType, status)
}

func scrapeInterval() time.Duration {
	return envutil.Seconds("METRICS_SCRAPE_INTERVAL_SECONDS", 10*time.Second)
}

func (m *Metrics) StartDBCollector(ctx context.Context, log *logger.Logger, db *gorm.DB) {
	if m == nil || db == nil {
		return
	}
	interval := scrapeInterval()
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				sqlDB, err := db.DB()
				if err != nil {
					if log != nil {
						log.Warn("metrics: db stats unavailable", "error", err)
					}
					continue
				}
				stats := sqlDB.Stats()
				m.dbStats.Set(float64(stats.OpenConnections), "open_connections")
				m.dbStats.Set(float64(stats.InUse), "in_use")
				m.dbStats.Set(float64(stats.Idle), "idle")
				m.dbStats.Set(float64(stats.WaitCount), "wait_count")
				m.dbStats.Set(stats.WaitDuration.Seconds(), "wait_duration_seconds")
			}
		}
	}()
}

func (m *Metrics) StartRedisCollector(ctx context.Context, log *logger.Logger, rdb *redis.Client) {
	if m == nil || rdb == nil {
		return
	}
	interval := scrapeInterval()
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				start := time.Now()
				if err := rdb.Ping(ctx).Err(); err != nil {
					m.redisUp.Set(0)
					if log != nil {
						log.Warn("metrics: redis ping failed", "error", err)
					}
					continue
				}
				m.redisUp.Set(1)
				m.redisPing.Set(time.Since(start).Seconds())
			}
		}
	}()
}

func (m *Metrics) StartJobCollector(ctx context.Context, log *logger.Logger, db *gorm.DB) {
	if m == nil || db == nil {
		return
	}
	interval := scrapeInterval()
	statuses := []string{jobs.StatusQueued, jobs.StatusRunning, jobs.StatusSucceeded, jobs.StatusFailed, jobs.StatusCanceled}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				for _, s := range statuses {
					m.jobsByState.Set(0, s)
				}
				var rows []struct {
					Status string
					Count  int64
				}
				if err := db.WithContext(ctx).
					Model(&jobs.GenerationJob{}).
					Select("status, count(*) as count").
					Group("status").
					Scan(&rows).Error; err != nil {
					if log != nil {
						log.Warn("metrics: job row query failed", "error", err)
					}
					continue
				}
				for _, row := range rows {
					m.jobsByState.Set(float64(row.Count), row.Status)
				}
			}
		}
	}()
}
