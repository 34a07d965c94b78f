package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/yungbote/materialgen-backend/internal/domain/generation"
	jobtypes "github.com/yungbote/materialgen-backend/internal/domain/jobs"
	"github.com/yungbote/materialgen-backend/internal/http/middleware"
	"github.com/yungbote/materialgen-backend/internal/learning/content"
	"github.com/yungbote/materialgen-backend/internal/platform/llm"
	"github.com/yungbote/materialgen-backend/internal/platform/logger"
	"github.com/yungbote/materialgen-backend/internal/progress"
	"github.com/yungbote/materialgen-backend/internal/services"
)

// fakeService implements only what each test sets; anything else panics
// through the nil embedded interface.
type fakeService struct {
	services.GenerationService

	outline    func(subject, grade, unit string) (*generation.Generation, error)
	content    func(id uint, outline string) (string, error)
	start      func(id uint, outline string) (*jobtypes.GenerationJob, error)
	regenerate func(id uint, n int, outline string) (content.ChapterResult, error)
	get        func(id uint) (*generation.Generation, error)
	del        func(id uint) error
	history    func(limit, offset int) ([]*generation.Generation, error)

	mu       sync.Mutex
	progress []progress.Entry
	reads    int
}

func (f *fakeService) GenerateOutline(_ context.Context, s, g, u string) (*generation.Generation, error) {
	return f.outline(s, g, u)
}
func (f *fakeService) GenerateContent(_ context.Context, id uint, o string) (string, error) {
	return f.content(id, o)
}
func (f *fakeService) StartContentGeneration(_ context.Context, id uint, o string) (*jobtypes.GenerationJob, error) {
	return f.start(id, o)
}
func (f *fakeService) RegenerateChapter(_ context.Context, id uint, n int, o string) (content.ChapterResult, error) {
	return f.regenerate(id, n, o)
}
func (f *fakeService) Get(_ context.Context, id uint) (*generation.Generation, error) {
	return f.get(id)
}
func (f *fakeService) Delete(_ context.Context, id uint) error { return f.del(id) }
func (f *fakeService) History(_ context.Context, limit, offset int) ([]*generation.Generation, error) {
	return f.history(limit, offset)
}

// Progress walks through the scripted entries, repeating the last one.
func (f *fakeService) Progress(_ context.Context, _ uint) (progress.Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.progress) == 0 {
		return progress.NotStarted(), nil
	}
	i := f.reads
	if i >= len(f.progress) {
		i = len(f.progress) - 1
	}
	f.reads++
	return f.progress[i], nil
}

func newTestRouter(svc services.GenerationService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	log := logger.Nop()
	gen := NewGenerationHandler(svc, log)
	hist := NewHistoryHandler(svc, log)
	prog := NewProgressHandler(svc, log, time.Millisecond)
	jobs := NewJobHandler(svc, log)
	health := NewHealthHandler()

	r := gin.New()
	r.GET("/", health.Root)
	r.GET("/healthcheck", health.HealthCheck)
	r.POST("/api/generate-outline", gen.GenerateOutline)
	r.POST("/api/generate-content", gen.GenerateContent)
	r.POST("/api/regenerate-chapter", gen.RegenerateChapter)
	r.GET("/api/generation-progress/:id", prog.Get)
	r.GET("/api/generation-progress/:id/stream", prog.Stream)
	r.GET("/api/history", hist.List)
	r.GET("/api/history/:id", hist.Get)
	r.DELETE("/api/history/:id", hist.Delete)
	r.GET("/api/jobs/:id", jobs.GetJob)
	return r
}

func do(t *testing.T, r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

type errorBody struct {
	Error struct {
		Message string         `json:"message"`
		Code    string         `json:"code"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var body errorBody
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode error body %q: %v", rec.Body.String(), err)
	}
	return body
}

func TestGenerateOutline(t *testing.T) {
	outline := `{"chapters":[]}`
	svc := &fakeService{
		outline: func(s, g, u string) (*generation.Generation, error) {
			if s != "數學" || g != "三年級" || u != "分數" {
				t.Fatalf("unexpected scope %q %q %q", s, g, u)
			}
			return &generation.Generation{ID: 7, Subject: s, Grade: g, Unit: u, Outline: &outline}, nil
		},
	}
	r := newTestRouter(svc)

	rec := do(t, r, http.MethodPost, "/api/generate-outline", `{"subject":"數學","grade":"三年級","unit":"分數"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}
	var got struct {
		GenerationID uint   `json:"generation_id"`
		Outline      string `json:"outline"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.GenerationID != 7 || got.Outline != outline {
		t.Fatalf("unexpected body: %+v", got)
	}
}

func TestGenerateOutlineValidation(t *testing.T) {
	r := newTestRouter(&fakeService{})

	rec := do(t, r, http.MethodPost, "/api/generate-outline", `{"subject":"","grade":"三年級","unit":"分數"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status=%d", rec.Code)
	}
	body := decodeError(t, rec)
	if body.Error.Code != "invalid_request" || !strings.Contains(body.Error.Message, "科目") {
		t.Fatalf("unexpected error: %+v", body.Error)
	}

	rec = do(t, r, http.MethodPost, "/api/generate-outline", `{not json`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("malformed body status=%d", rec.Code)
	}
}

func TestGenerateContentQueuesByDefault(t *testing.T) {
	jobID := uuid.New()
	svc := &fakeService{
		start: func(id uint, o string) (*jobtypes.GenerationJob, error) {
			return &jobtypes.GenerationJob{ID: jobID, GenerationID: id, Status: jobtypes.StatusQueued}, nil
		},
	}
	r := newTestRouter(svc)

	rec := do(t, r, http.MethodPost, "/api/generate-content", `{"generation_id":3}`)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}
	var got map[string]any
	_ = json.Unmarshal(rec.Body.Bytes(), &got)
	if got["job_id"] != jobID.String() || got["status"] != jobtypes.StatusQueued || got["generation_id"] != float64(3) {
		t.Fatalf("unexpected body: %v", got)
	}
}

func TestGenerateContentWait(t *testing.T) {
	svc := &fakeService{
		content: func(id uint, o string) (string, error) {
			if o != "custom" {
				t.Fatalf("outline not forwarded: %q", o)
			}
			return `{"chapters":[]}`, nil
		},
	}
	r := newTestRouter(svc)

	rec := do(t, r, http.MethodPost, "/api/generate-content?wait=true", `{"generation_id":3,"outline":"custom"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"content"`) {
		t.Fatalf("missing content: %s", rec.Body.String())
	}
}

func TestErrorMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"not found", services.ErrNotFound, http.StatusNotFound, "generation_not_found"},
		{"busy", services.ErrBusy, http.StatusConflict, "generation_busy"},
		{"missing outline", services.ErrMissingOutline, http.StatusBadRequest, "missing_outline"},
		{"jobs disabled", services.ErrJobsDisabled, http.StatusServiceUnavailable, "jobs_disabled"},
		{"upstream", &llm.UpstreamError{Provider: "openai", StatusCode: 502, Err: errors.New("secret upstream text")}, http.StatusInternalServerError, "upstream_generation_failed"},
		{"unknown", errors.New("disk on fire"), http.StatusInternalServerError, "internal_error"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := &fakeService{
				content: func(uint, string) (string, error) { return "", tc.err },
			}
			rec := do(t, newTestRouter(svc), http.MethodPost, "/api/generate-content?wait=1", `{"generation_id":1}`)
			if rec.Code != tc.status {
				t.Fatalf("status=%d want %d", rec.Code, tc.status)
			}
			body := decodeError(t, rec)
			if body.Error.Code != tc.code {
				t.Fatalf("code=%q want %q", body.Error.Code, tc.code)
			}
			if strings.Contains(body.Error.Message, "secret") || strings.Contains(body.Error.Message, "disk") {
				t.Fatalf("raw error leaked: %q", body.Error.Message)
			}
		})
	}
}

func TestPartialFailureDetails(t *testing.T) {
	svc := &fakeService{
		content: func(uint, string) (string, error) {
			return "", &services.PartialError{Completed: 1, Total: 3, Err: fmt.Errorf("chapter 2: %w", llm.ErrUpstream)}
		},
	}
	rec := do(t, newTestRouter(svc), http.MethodPost, "/api/generate-content?wait=true", `{"generation_id":1}`)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status=%d", rec.Code)
	}
	body := decodeError(t, rec)
	if body.Error.Code != "upstream_generation_failed" {
		t.Fatalf("code=%q", body.Error.Code)
	}
	if body.Error.Details["completed_chapters"] != float64(1) || body.Error.Details["total_chapters"] != float64(3) {
		t.Fatalf("details=%v", body.Error.Details)
	}
}

func TestRegenerateChapterNotFound(t *testing.T) {
	svc := &fakeService{
		regenerate: func(id uint, n int, o string) (content.ChapterResult, error) {
			return content.ChapterResult{}, fmt.Errorf("%w: %d", services.ErrChapterNotFound, n)
		},
	}
	rec := do(t, newTestRouter(svc), http.MethodPost, "/api/regenerate-chapter", `{"generation_id":1,"chapter_number":9}`)
	if rec.Code != http.StatusNotFound || decodeError(t, rec).Error.Code != "chapter_not_found" {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}
}

func TestHistory(t *testing.T) {
	var gotLimit, gotOffset int
	svc := &fakeService{
		history: func(limit, offset int) ([]*generation.Generation, error) {
			gotLimit, gotOffset = limit, offset
			return []*generation.Generation{{ID: 2}, {ID: 1}}, nil
		},
		get: func(id uint) (*generation.Generation, error) {
			if id != 2 {
				return nil, services.ErrNotFound
			}
			return &generation.Generation{ID: 2, Subject: "數學"}, nil
		},
		del: func(id uint) error {
			if id != 2 {
				return services.ErrNotFound
			}
			return nil
		},
	}
	r := newTestRouter(svc)

	rec := do(t, r, http.MethodGet, "/api/history?limit=10&offset=5", "")
	if rec.Code != http.StatusOK || gotLimit != 10 || gotOffset != 5 {
		t.Fatalf("list status=%d limit=%d offset=%d", rec.Code, gotLimit, gotOffset)
	}
	var list []generation.Generation
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil || len(list) != 2 || list[0].ID != 2 {
		t.Fatalf("list body=%s err=%v", rec.Body.String(), err)
	}

	if rec := do(t, r, http.MethodGet, "/api/history?limit=-1", ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("negative limit status=%d", rec.Code)
	}
	if rec := do(t, r, http.MethodGet, "/api/history/abc", ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad id status=%d", rec.Code)
	}
	if rec := do(t, r, http.MethodGet, "/api/history/9", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("missing status=%d", rec.Code)
	}

	rec = do(t, r, http.MethodDelete, "/api/history/2", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("delete status=%d", rec.Code)
	}
	var del map[string]any
	_ = json.Unmarshal(rec.Body.Bytes(), &del)
	if del["status"] != "success" || del["id"] != float64(2) {
		t.Fatalf("delete body=%v", del)
	}
	if rec := do(t, r, http.MethodDelete, "/api/history/9", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("delete missing status=%d", rec.Code)
	}
}

func TestRequestLogCarriesGenerationID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zapcore.InfoLevel)
	svc := &fakeService{get: func(id uint) (*generation.Generation, error) {
		return &generation.Generation{ID: id}, nil
	}}
	r := gin.New()
	r.Use(middleware.RequestLogger(&logger.Logger{SugaredLogger: zap.New(core).Sugar()}))
	r.GET("/api/history/:id", NewHistoryHandler(svc, logger.Nop()).Get)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/history/9", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}
	entries := logs.FilterMessage("HTTP request").All()
	if len(entries) != 1 || entries[0].ContextMap()["generation_id"] != uint64(9) {
		t.Fatalf("request log missing generation_id: %+v", entries)
	}
}

func TestProgressUnknownIDIsNotStarted(t *testing.T) {
	rec := do(t, newTestRouter(&fakeService{}), http.MethodGet, "/api/generation-progress/99", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d", rec.Code)
	}
	var e progress.Entry
	if err := json.Unmarshal(rec.Body.Bytes(), &e); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if e.Status != progress.StatusNotStarted || e.Current != 0 || e.Total != 0 {
		t.Fatalf("unexpected entry: %+v", e)
	}
}

// streamRecorder satisfies http.CloseNotifier, which gin's Context.Stream requires.
type streamRecorder struct {
	*httptest.ResponseRecorder
	closed chan bool
}

func newStreamRecorder() *streamRecorder {
	return &streamRecorder{ResponseRecorder: httptest.NewRecorder(), closed: make(chan bool, 1)}
}

func (r *streamRecorder) CloseNotify() <-chan bool { return r.closed }

func TestProgressStreamStopsWhenTerminal(t *testing.T) {
	svc := &fakeService{progress: []progress.Entry{
		{Current: 0, Total: 2, Status: progress.StatusProcessing},
		{Current: 0, Total: 2, Status: progress.StatusProcessing},
		{Current: 1, Total: 2, Status: progress.StatusProcessing},
		{Current: 2, Total: 2, Status: progress.StatusCompleted},
	}}
	rec := newStreamRecorder()
	newTestRouter(svc).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/generation-progress/1/stream", nil))

	out := rec.Body.String()
	if n := strings.Count(out, "event:progress"); n != 3 {
		t.Fatalf("expected 3 progress events (duplicates dropped), got %d:\n%s", n, out)
	}
	if !strings.Contains(out, `"status":"completed"`) {
		t.Fatalf("terminal entry missing:\n%s", out)
	}
}

func TestHealth(t *testing.T) {
	r := newTestRouter(&fakeService{})
	if rec := do(t, r, http.MethodGet, "/healthcheck", ""); rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Fatalf("healthcheck status=%d body=%q", rec.Code, rec.Body.String())
	}
	rec := do(t, r, http.MethodGet, "/", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"status":"running"`) {
		t.Fatalf("root status=%d body=%s", rec.Code, rec.Body.String())
	}
}

func TestGetJobBadID(t *testing.T) {
	rec := do(t, newTestRouter(&fakeService{}), http.MethodGet, "/api/jobs/not-a-uuid", "")
	if rec.Code != http.StatusBadRequest || decodeError(t, rec).Error.Code != "invalid_job_id" {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}
}
