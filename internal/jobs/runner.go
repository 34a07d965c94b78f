package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"
	"gorm.io/datatypes"

	"github.com/yungbote/materialgen-backend/internal/data/repos"
	types "github.com/yungbote/materialgen-backend/internal/domain/jobs"
	"github.com/yungbote/materialgen-backend/internal/observability"
	"github.com/yungbote/materialgen-backend/internal/pkg/dbctx"
	"github.com/yungbote/materialgen-backend/internal/platform/ctxutil"
	"github.com/yungbote/materialgen-backend/internal/platform/logger"
)

const DefaultConcurrency = 4

var (
	ErrUnknownJobType = errors.New("no handler registered for job type")
	ErrNotRunning     = errors.New("job is not running")
	ErrStopped        = errors.New("job runner stopped")
)

// Runner executes jobs in process. At most `concurrency` handlers run at once;
// the rest wait queued. Every job gets its own cancelable context derived
// from the runner's root, never from the submitting request.
type Runner struct {
	log      *logger.Logger
	repo     repos.GenerationJobRepo
	registry *Registry
	sem      *semaphore.Weighted

	root     context.Context
	stopRoot context.CancelFunc

	mu      sync.Mutex
	cancels map[uuid.UUID]context.CancelFunc
	stopped bool
	wg      sync.WaitGroup
}

func NewRunner(baseLog *logger.Logger, repo repos.GenerationJobRepo, registry *Registry, concurrency int) *Runner {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	root, stop := context.WithCancel(context.Background())
	return &Runner{
		log:      baseLog.With("component", "JobRunner"),
		repo:     repo,
		registry: registry,
		sem:      semaphore.NewWeighted(int64(concurrency)),
		root:     root,
		stopRoot: stop,
		cancels:  make(map[uuid.UUID]context.CancelFunc),
	}
}

// Enqueue persists a queued job row and starts it in the background. Trace
// ids from ctx travel with the payload so the job logs under the same ids.
func (r *Runner) Enqueue(ctx context.Context, jobType string, generationID uint, payload map[string]any) (*types.GenerationJob, error) {
	h, ok := r.registry.Get(jobType)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownJobType, jobType)
	}
	if payload == nil {
		payload = map[string]any{}
	}
	if td := ctxutil.GetTraceData(ctx); td != nil {
		if td.TraceID != "" {
			payload["trace_id"] = td.TraceID
		}
		if td.RequestID != "" {
			payload["request_id"] = td.RequestID
		}
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode job payload: %w", err)
	}

	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return nil, ErrStopped
	}
	r.wg.Add(1)
	r.mu.Unlock()

	now := time.Now().UTC()
	job, err := r.repo.Create(dbctx.Context{Ctx: ctx}, &types.GenerationJob{
		GenerationID: generationID,
		JobType:      jobType,
		Status:       types.StatusQueued,
		Stage:        "queued",
		Payload:      datatypes.JSON(raw),
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		r.wg.Done()
		return nil, fmt.Errorf("create job: %w", err)
	}

	jobCtx, cancel := context.WithCancel(r.root)
	r.mu.Lock()
	r.cancels[job.ID] = cancel
	r.mu.Unlock()

	snapshot := *job
	go r.run(jobCtx, cancel, h, &snapshot)
	return job, nil
}

func (r *Runner) run(ctx context.Context, cancel context.CancelFunc, h Handler, job *types.GenerationJob) {
	defer r.wg.Done()
	defer func() {
		cancel()
		r.mu.Lock()
		delete(r.cancels, job.ID)
		r.mu.Unlock()
	}()

	jc := NewContext(ctx, job, r.repo, r.log.With("job_id", job.ID, "job_type", job.JobType, "generation_id", job.GenerationID))

	if err := r.sem.Acquire(ctx, 1); err != nil {
		jc.cancel("canceled")
		return
	}
	defer r.sem.Release(1)

	started, err := r.repo.UpdateFieldsUnlessStatus(dbctx.Context{Ctx: ctx}, job.ID, []string{types.StatusCanceled}, map[string]interface{}{
		"status": types.StatusRunning,
		"stage":  "running",
	})
	if err != nil {
		jc.Log.Warn("job start write failed", "error", err)
	}
	if !started && err == nil {
		return
	}
	job.Status = types.StatusRunning
	job.Stage = "running"

	metrics := observability.Current()
	metrics.JobStarted()
	status := types.StatusSucceeded
	defer func() { metrics.JobFinished(job.JobType, status) }()

	runErr := func() (err error) {
		defer func() {
			if rec := recover(); rec != nil {
				jc.Log.Error("Job handler panic", "panic", rec)
				err = &panicError{Val: rec}
			}
		}()
		return h.Run(jc)
	}()

	switch {
	case runErr == nil:
		jc.Succeed("completed", nil)
		if job.Status == types.StatusFailed {
			status = types.StatusFailed
		}
	case ctx.Err() != nil || errors.Is(runErr, context.Canceled):
		status = types.StatusCanceled
		jc.cancel("canceled")
	default:
		status = types.StatusFailed
		jc.Log.Warn("job failed", "error", runErr)
		jc.Fail(failStage(jc), runErr)
	}
}

func failStage(jc *Context) string {
	if jc.Job != nil && jc.Job.Stage != "" && jc.Job.Stage != "running" {
		return jc.Job.Stage
	}
	return "failed"
}

// Cancel stops a running or queued job. The row is marked canceled right away
// so pollers see it even before the handler unwinds.
func (r *Runner) Cancel(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	cancel, ok := r.cancels[id]
	r.mu.Unlock()
	if !ok {
		return ErrNotRunning
	}
	now := time.Now().UTC()
	if _, err := r.repo.UpdateFieldsUnlessStatus(dbctx.Context{Ctx: ctx}, id, []string{types.StatusSucceeded, types.StatusFailed, types.StatusCanceled}, map[string]interface{}{
		"status":      types.StatusCanceled,
		"stage":       "canceled",
		"error":       context.Canceled.Error(),
		"finished_at": now,
	}); err != nil {
		r.log.Warn("job cancel write failed", "job_id", id, "error", err)
	}
	cancel()
	return nil
}

// Running reports whether id is still owned by this runner.
func (r *Runner) Running(id uuid.UUID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.cancels[id]
	return ok
}

// Shutdown stops accepting jobs, cancels everything in flight and waits for
// handlers to return or ctx to expire.
func (r *Runner) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	r.stopped = true
	r.mu.Unlock()
	r.stopRoot()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

type panicError struct{ Val any }

func (e *panicError) Error() string { return "panic: unexpected error" }
