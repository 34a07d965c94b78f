package app

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/yungbote/materialgen-backend/internal/platform/llm"
	"github.com/yungbote/materialgen-backend/internal/platform/llm/mock"
	"github.com/yungbote/materialgen-backend/internal/platform/logger"
)

type Clients struct {
	Redis *redis.Client
	LLM   llm.Client
}

func wireClients(ctx context.Context, log *logger.Logger, cfg Config) (Clients, error) {
	log.Info("Wiring clients...")

	// Redis
	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := rdb.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			_ = rdb.Close()
			return Clients{}, fmt.Errorf("ping redis %s: %w", cfg.RedisAddr, err)
		}
	}

	// LLM
	client, err := newLLMClient(ctx, cfg.LLM, log)
	if err != nil {
		if rdb != nil {
			_ = rdb.Close()
		}
		return Clients{}, fmt.Errorf("init llm client: %w", err)
	}

	return Clients{Redis: rdb, LLM: client}, nil
}

// newLLMClient adds the mock provider, which llm.New cannot build without
// importing its own subpackage.
func newLLMClient(ctx context.Context, cfg llm.Config, log *logger.Logger) (llm.Client, error) {
	if cfg.Provider == llm.ProviderMock {
		log.Warn("LLM_PROVIDER=mock; completions are canned")
		return mock.New(mock.Echo), nil
	}
	return llm.New(ctx, cfg, log)
}

func (c *Clients) Close() {
	if c == nil {
		return
	}
	if c.Redis != nil {
		_ = c.Redis.Close()
	}
}
