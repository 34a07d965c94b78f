package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/yungbote/materialgen-backend/internal/platform/logger"
)

func newTestOpenAI(t *testing.T, srv *httptest.Server, retries int) *openAIClient {
	t.Helper()
	c, err := NewOpenAI(Config{APIKey: "sk-test", BaseURL: srv.URL, MaxRetries: retries, Timeout: 5 * time.Second}, logger.Nop())
	if err != nil {
		t.Fatalf("NewOpenAI: %v", err)
	}
	oc := c.(*openAIClient)
	oc.backoff = time.Millisecond
	return oc
}

func TestOpenAICompleteSendsChatRequest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != chatCompletionsPath {
			t.Errorf("path: %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Errorf("auth header: %q", got)
		}
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode: %v", err)
		}
		if req.Model != defaultOpenAIModel || req.MaxTokens != 2048 || req.Temperature == nil || *req.Temperature != 0.7 {
			t.Errorf("unexpected request: %+v", req)
		}
		if len(req.Messages) != 2 || req.Messages[0].Role != "system" || req.Messages[1].Content != "寫一章" {
			t.Errorf("unexpected messages: %+v", req.Messages)
		}
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"## 第一章"}}],"usage":{"prompt_tokens":5,"completion_tokens":7}}`))
	}))
	defer srv.Close()

	c := newTestOpenAI(t, srv, 0)
	out, err := c.Complete(context.Background(), "寫一章", Options{Name: "chapter_content", System: "你是老師", Temperature: Float(0.7), MaxTokens: 2048})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if out != "## 第一章" {
		t.Fatalf("out=%q", out)
	}
}

func TestOpenAIRetriesTransientStatus(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":"slow down"}`))
			return
		}
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"ok"}}]}`))
	}))
	defer srv.Close()

	c := newTestOpenAI(t, srv, 2)
	out, err := c.Complete(context.Background(), "p", Options{})
	if err != nil || out != "ok" {
		t.Fatalf("out=%q err=%v", out, err)
	}
	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Fatalf("calls=%d", got)
	}
}

func TestOpenAIErrorsAreUpstream(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"bad model"}`))
	}))
	defer srv.Close()

	c := newTestOpenAI(t, srv, 3)
	_, err := c.Complete(context.Background(), "p", Options{})
	if !errors.Is(err, ErrUpstream) {
		t.Fatalf("expected ErrUpstream, got %v", err)
	}
	var ue *UpstreamError
	if !errors.As(err, &ue) || ue.StatusCode != http.StatusBadRequest || ue.Provider != ProviderOpenAI {
		t.Fatalf("unexpected upstream error: %+v", ue)
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("400 must not be retried, calls=%d", got)
	}
}

func TestOpenAIGivesUpAfterMaxRetries(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := newTestOpenAI(t, srv, 2)
	if _, err := c.Complete(context.Background(), "p", Options{}); !errors.Is(err, ErrUpstream) {
		t.Fatalf("expected ErrUpstream, got %v", err)
	}
	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Fatalf("calls=%d want 3", got)
	}
}

func TestOpenAIEmptyChoicesAndCancel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	c := newTestOpenAI(t, srv, 0)
	if _, err := c.Complete(context.Background(), "p", Options{}); !errors.Is(err, errEmptyCompletion) || !errors.Is(err, ErrUpstream) {
		t.Fatalf("expected empty completion upstream error, got %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.Complete(ctx, "p", Options{})
	if !errors.Is(err, context.Canceled) || !errors.Is(err, ErrUpstream) {
		t.Fatalf("expected canceled upstream error, got %v", err)
	}
}

func TestNewRejectsUnknownProvider(t *testing.T) {
	if _, err := New(context.Background(), Config{Provider: "nope"}, logger.Nop()); err == nil {
		t.Fatalf("expected error")
	}
	if _, err := New(context.Background(), Config{Provider: ProviderOpenAI}, logger.Nop()); err == nil {
		t.Fatalf("expected missing key error")
	}
}
