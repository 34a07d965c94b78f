package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	generativelanguage "cloud.google.com/go/ai/generativelanguage/apiv1beta"
	"cloud.google.com/go/ai/generativelanguage/apiv1beta/generativelanguagepb"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/yungbote/materialgen-backend/internal/observability"
	"github.com/yungbote/materialgen-backend/internal/pkg/httpx"
	"github.com/yungbote/materialgen-backend/internal/platform/ctxutil"
	"github.com/yungbote/materialgen-backend/internal/platform/logger"
)

const defaultGeminiModel = "gemini-2.0-flash"

// contentGenerator is the slice of the generated client we call.
type contentGenerator interface {
	GenerateContent(ctx context.Context, req *generativelanguagepb.GenerateContentRequest) (*generativelanguagepb.GenerateContentResponse, error)
}

// generativeAPI drops the variadic call options the generated client takes.
type generativeAPI struct {
	client *generativelanguage.GenerativeClient
}

var _ contentGenerator = generativeAPI{}

func (a generativeAPI) GenerateContent(ctx context.Context, req *generativelanguagepb.GenerateContentRequest) (*generativelanguagepb.GenerateContentResponse, error) {
	return a.client.GenerateContent(ctx, req)
}

type geminiClient struct {
	log        *logger.Logger
	api        contentGenerator
	model      string
	timeout    time.Duration
	maxRetries int
	backoff    time.Duration
}

func NewGemini(ctx context.Context, cfg Config, log *logger.Logger) (Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("missing LLM_API_KEY")
	}
	opts := []option.ClientOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithEndpoint(cfg.BaseURL))
	}
	api, err := generativelanguage.NewGenerativeClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	return newGeminiClient(generativeAPI{client: api}, cfg, log), nil
}

func newGeminiClient(api contentGenerator, cfg Config, log *logger.Logger) *geminiClient {
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = defaultGeminiModel
	}
	return &geminiClient{
		log:        log.With("client", "GeminiClient"),
		api:        api,
		model:      model,
		timeout:    cfg.Timeout,
		maxRetries: cfg.MaxRetries,
		backoff:    time.Second,
	}
}

func geminiModelName(model string) string {
	if strings.HasPrefix(model, "models/") {
		return model
	}
	return "models/" + model
}

func (c *geminiClient) Complete(ctx context.Context, prompt string, opts Options) (string, error) {
	model := c.model
	if m := strings.TrimSpace(opts.Model); m != "" {
		model = m
	}
	cfg := &generativelanguagepb.GenerationConfig{}
	if opts.Temperature != nil {
		t := float32(*opts.Temperature)
		cfg.Temperature = &t
	}
	if opts.MaxTokens > 0 {
		n := int32(opts.MaxTokens)
		cfg.MaxOutputTokens = &n
	}
	req := &generativelanguagepb.GenerateContentRequest{
		Model:            geminiModelName(model),
		GenerationConfig: cfg,
		Contents: []*generativelanguagepb.Content{{
			Role:  "user",
			Parts: []*generativelanguagepb.Part{{Data: &generativelanguagepb.Part_Text{Text: prompt}}},
		}},
	}
	if opts.System != "" {
		req.SystemInstruction = &generativelanguagepb.Content{
			Parts: []*generativelanguagepb.Part{{Data: &generativelanguagepb.Part_Text{Text: opts.System}}},
		}
	}

	start := time.Now()
	resp, err := c.generateWithRetry(ctx, opts.Name, req)
	metrics := observability.Current()
	if err != nil {
		metrics.ObserveLLMRequest(ProviderGemini, model, opts.Name, status.Code(err).String(), time.Since(start), 0, 0)
		return "", upstream(ProviderGemini, model, 0, err)
	}
	usage := resp.GetUsageMetadata()
	metrics.ObserveLLMRequest(ProviderGemini, model, opts.Name, "ok", time.Since(start),
		int(usage.GetPromptTokenCount()), int(usage.GetCandidatesTokenCount()))

	text := firstCandidateText(resp)
	if text == "" {
		return "", upstream(ProviderGemini, model, 0, errEmptyCompletion)
	}
	return text, nil
}

func firstCandidateText(resp *generativelanguagepb.GenerateContentResponse) string {
	if resp == nil || len(resp.GetCandidates()) == 0 {
		return ""
	}
	var b strings.Builder
	for _, part := range resp.GetCandidates()[0].GetContent().GetParts() {
		b.WriteString(part.GetText())
	}
	return b.String()
}

func (c *geminiClient) generateWithRetry(ctx context.Context, name string, req *generativelanguagepb.GenerateContentRequest) (*generativelanguagepb.GenerateContentResponse, error) {
	for attempt := 0; ; attempt++ {
		callCtx, cancel := ctx, context.CancelFunc(func() {})
		if c.timeout > 0 {
			callCtx, cancel = context.WithTimeout(ctx, c.timeout)
		}
		resp, err := c.api.GenerateContent(callCtx, req)
		cancel()
		if err == nil {
			return resp, nil
		}
		if !geminiRetryable(err) || ctx.Err() != nil || attempt >= c.maxRetries {
			return nil, err
		}
		sleepFor := httpx.JitterSleep(httpx.Backoff(attempt, c.backoff, 30*time.Second))
		c.log.Warn("completion request retrying",
			append(ctxutil.LogFields(ctx),
				"prompt", name,
				"attempt", attempt+1,
				"max_retries", c.maxRetries,
				"sleep", sleepFor.String(),
				"error", err.Error(),
			)...,
		)
		if err := httpx.Sleep(ctx, sleepFor); err != nil {
			return nil, err
		}
	}
}

func geminiRetryable(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	s, ok := status.FromError(err)
	return ok && (s.Code() == codes.ResourceExhausted || s.Code() == codes.Unavailable || s.Code() == codes.DeadlineExceeded)
}
