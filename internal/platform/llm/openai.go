package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/yungbote/materialgen-backend/internal/observability"
	"github.com/yungbote/materialgen-backend/internal/pkg/httpx"
	"github.com/yungbote/materialgen-backend/internal/platform/ctxutil"
	"github.com/yungbote/materialgen-backend/internal/platform/logger"
)

const (
	defaultOpenAIBaseURL = "https://api.groq.com/openai"
	defaultOpenAIModel   = "openai/gpt-oss-120b"
	chatCompletionsPath  = "/v1/chat/completions"
)

// openAIClient speaks the OpenAI Chat Completions protocol, which Groq and
// most hosted gateways also serve.
type openAIClient struct {
	log        *logger.Logger
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
	maxRetries int
	// backoff is the first retry delay; doubled per attempt.
	backoff time.Duration
}

func NewOpenAI(cfg Config, log *logger.Logger) (Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("missing LLM_API_KEY")
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultOpenAIBaseURL
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = defaultOpenAIModel
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 180 * time.Second
	}
	maxRetries := cfg.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &openAIClient{
		log:        log.With("client", "OpenAIClient"),
		baseURL:    baseURL,
		apiKey:     cfg.APIKey,
		model:      model,
		httpClient: &http.Client{Timeout: timeout},
		maxRetries: maxRetries,
		backoff:    time.Second,
	}, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature *float64      `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

type openAIHTTPError struct {
	StatusCode int
	Body       string
}

func (e *openAIHTTPError) Error() string {
	return fmt.Sprintf("openai http %d: %s", e.StatusCode, e.Body)
}

func (e *openAIHTTPError) HTTPStatusCode() int {
	if e == nil {
		return 0
	}
	return e.StatusCode
}

var errEmptyCompletion = errors.New("completion returned no choices")

func (c *openAIClient) Complete(ctx context.Context, prompt string, opts Options) (string, error) {
	model := c.model
	if m := strings.TrimSpace(opts.Model); m != "" {
		model = m
	}
	req := chatRequest{
		Model:       model,
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxTokens,
	}
	if opts.System != "" {
		req.Messages = append(req.Messages, chatMessage{Role: "system", Content: opts.System})
	}
	req.Messages = append(req.Messages, chatMessage{Role: "user", Content: prompt})

	var out chatResponse
	if err := c.doWithRetry(ctx, opts.Name, req, &out); err != nil {
		var httpErr *openAIHTTPError
		status := 0
		if errors.As(err, &httpErr) {
			status = httpErr.StatusCode
		}
		return "", upstream(ProviderOpenAI, model, status, err)
	}
	if len(out.Choices) == 0 {
		return "", upstream(ProviderOpenAI, model, 0, errEmptyCompletion)
	}
	return out.Choices[0].Message.Content, nil
}

func (c *openAIClient) doOnce(ctx context.Context, body any) (*http.Response, []byte, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return nil, nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+chatCompletionsPath, &buf)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	if td := ctxutil.GetTraceData(ctx); td != nil && td.RequestID != "" {
		req.Header.Set("X-Request-Id", td.RequestID)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, err
	}
	raw, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return resp, nil, readErr
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp, raw, &openAIHTTPError{StatusCode: resp.StatusCode, Body: string(raw)}
	}
	return resp, raw, nil
}

func (c *openAIClient) doWithRetry(ctx context.Context, name string, req chatRequest, out *chatResponse) error {
	start := time.Now()
	metrics := observability.Current()

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		resp, raw, err := c.doOnce(ctx, req)
		if err == nil {
			if uErr := json.Unmarshal(raw, out); uErr != nil {
				metrics.ObserveLLMRequest(ProviderOpenAI, req.Model, name, "decode_error", time.Since(start), 0, 0)
				return fmt.Errorf("openai decode error: %w", uErr)
			}
			metrics.ObserveLLMRequest(ProviderOpenAI, req.Model, name, statusFromResp(resp), time.Since(start),
				out.Usage.PromptTokens, out.Usage.CompletionTokens)
			return nil
		}

		if !httpx.IsRetryableError(err) || ctx.Err() != nil || attempt == c.maxRetries {
			metrics.ObserveLLMRequest(ProviderOpenAI, req.Model, name, statusFromRespErr(resp, err), time.Since(start), 0, 0)
			return err
		}

		sleepFor := httpx.RetryAfterDuration(resp, httpx.Backoff(attempt, c.backoff, 30*time.Second), 30*time.Second)
		sleepFor = httpx.JitterSleep(sleepFor)

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
			return err
		}
	}
	return fmt.Errorf("unreachable retry loop")
}

func statusFromResp(resp *http.Response) string {
	if resp == nil {
		return "unknown"
	}
	return strconv.Itoa(resp.StatusCode)
}

func statusFromRespErr(resp *http.Response, err error) string {
	if resp != nil {
		return strconv.Itoa(resp.StatusCode)
	}
	switch {
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "error"
	}
}
