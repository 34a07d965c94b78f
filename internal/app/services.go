package app

import (
	"fmt"

	"github.com/yungbote/materialgen-backend/internal/jobs"
	"github.com/yungbote/materialgen-backend/internal/learning/mathfmt"
	"github.com/yungbote/materialgen-backend/internal/platform/logger"
	"github.com/yungbote/materialgen-backend/internal/progress"
	"github.com/yungbote/materialgen-backend/internal/services"
)

type Services struct {
	Generation services.GenerationService
	Runner     *jobs.Runner
	Tracker    progress.Tracker
	// Memory is set when progress lives in process and needs sweeping.
	Memory *progress.MemoryTracker
}

func wireServices(log *logger.Logger, cfg Config, repos Repos, clients Clients) (Services, error) {
	log.Info("Wiring services...")

	var (
		tracker progress.Tracker
		memory  *progress.MemoryTracker
	)
	if clients.Redis != nil {
		tracker = progress.NewRedisTracker(clients.Redis, cfg.ProgressTTL)
		log.Info("Progress tracker: redis", "ttl", cfg.ProgressTTL.String())
	} else {
		memory = progress.NewMemoryTracker(cfg.ProgressTTL, cfg.ProgressCapacity)
		tracker = memory
		log.Info("Progress tracker: memory", "ttl", cfg.ProgressTTL.String(), "capacity", cfg.ProgressCapacity)
	}

	rules := mathfmt.DefaultRules()
	if cfg.MathRulesFile != "" {
		loaded, err := mathfmt.LoadRules(cfg.MathRulesFile)
		if err != nil {
			return Services{}, fmt.Errorf("load math rules: %w", err)
		}
		rules = loaded
	}

	registry := jobs.NewRegistry()
	runner := jobs.NewRunner(log, repos.GenerationJob, registry, cfg.JobConcurrency)

	gen := services.NewGenerationService(
		log,
		repos.Generation,
		repos.GenerationJob,
		tracker,
		clients.LLM,
		mathfmt.New(rules),
		runner,
	)
	if err := registry.Register(gen.JobHandler()); err != nil {
		return Services{}, fmt.Errorf("register job handler: %w", err)
	}

	return Services{
		Generation: gen,
		Runner:     runner,
		Tracker:    tracker,
		Memory:     memory,
	}, nil
}
