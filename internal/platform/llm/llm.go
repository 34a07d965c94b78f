// Package llm is the text-completion boundary. Every provider returns the
// first completion's text and wraps failures in *UpstreamError.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/yungbote/materialgen-backend/internal/platform/envutil"
	"github.com/yungbote/materialgen-backend/internal/platform/logger"
)

// Client completes a single prompt.
type Client interface {
	Complete(ctx context.Context, prompt string, opts Options) (string, error)
}

type Options struct {
	// Name labels the call in logs and metrics (usually the prompt name).
	Name string
	// Model overrides the provider default when set.
	Model string
	// System is sent as a system instruction when the provider supports one.
	System      string
	Temperature *float64
	MaxTokens   int
}

func Float(v float64) *float64 { return &v }

// ErrUpstream marks every failure that came from, or on the way to, the
// completion service.
var ErrUpstream = errors.New("upstream generation failure")

type UpstreamError struct {
	Provider string
	Model    string
	// StatusCode is the HTTP status when the provider answered with one.
	StatusCode int
	Err        error
}

func (e *UpstreamError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s completion (%s): %v", e.Provider, e.Model, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

func (e *UpstreamError) Is(target error) bool { return target == ErrUpstream }

func upstream(provider, model string, status int, err error) error {
	if err == nil {
		return nil
	}
	var ue *UpstreamError
	if errors.As(err, &ue) {
		return err
	}
	return &UpstreamError{Provider: provider, Model: model, StatusCode: status, Err: err}
}

type Config struct {
	Provider   string
	APIKey     string
	BaseURL    string
	Model      string
	Timeout    time.Duration
	MaxRetries int
}

const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
	ProviderMock   = "mock"
)

// ConfigFromEnv reads LLM_* variables.
func ConfigFromEnv() Config {
	return Config{
		Provider:   strings.ToLower(envutil.String("LLM_PROVIDER", ProviderOpenAI)),
		APIKey:     envutil.String("LLM_API_KEY", envutil.String("GROQ_API_KEY", "")),
		BaseURL:    envutil.String("LLM_BASE_URL", ""),
		Model:      envutil.String("LLM_MODEL", ""),
		Timeout:    envutil.Seconds("LLM_TIMEOUT_SECONDS", 180*time.Second),
		MaxRetries: envutil.Int("LLM_MAX_RETRIES", 3),
	}
}

// New builds the provider named by cfg.Provider.
func New(ctx context.Context, cfg Config, log *logger.Logger) (Client, error) {
	switch cfg.Provider {
	case "", ProviderOpenAI, "groq":
		return NewOpenAI(cfg, log)
	case ProviderGemini:
		return NewGemini(ctx, cfg, log)
	default:
		return nil, fmt.Errorf("unknown LLM_PROVIDER %q", cfg.Provider)
	}
}
