package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/materialgen-backend/internal/data/repos"
	"github.com/yungbote/materialgen-backend/internal/data/repos/testutil"
	types "github.com/yungbote/materialgen-backend/internal/domain/jobs"
	"github.com/yungbote/materialgen-backend/internal/pkg/dbctx"
	"github.com/yungbote/materialgen-backend/internal/platform/ctxutil"
)

func newTestRunner(t *testing.T, concurrency int, handlers ...Handler) (*Runner, repos.GenerationJobRepo) {
	t.Helper()
	db := testutil.DB(t)
	repo := repos.NewGenerationJobRepo(db, testutil.Logger(t))
	reg := NewRegistry()
	for _, h := range handlers {
		if err := reg.Register(h); err != nil {
			t.Fatalf("Register: %v", err)
		}
	}
	r := NewRunner(testutil.Logger(t), repo, reg, concurrency)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = r.Shutdown(ctx)
	})
	return r, repo
}

func waitForStatus(t *testing.T, repo repos.GenerationJobRepo, id uuid.UUID, want string) *types.GenerationJob {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for {
		job, err := repo.GetByID(dbctx.New(context.Background()), id)
		if err == nil && job.Status == want {
			return job
		}
		if time.Now().After(deadline) {
			t.Fatalf("job %s never reached %q (last: %+v, err=%v)", id, want, job, err)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestRunnerSucceeds(t *testing.T) {
	var gotGen uint
	var gotTrace string
	h := HandlerFunc{JobType: "test", Fn: func(jc *Context) error {
		gotGen, _ = jc.PayloadUint("generation_id")
		if td := ctxutil.GetTraceData(jc.Ctx); td != nil {
			gotTrace = td.TraceID
		}
		jc.Progress("working")
		jc.Succeed("completed", map[string]any{"chapters": 3})
		return nil
	}}
	r, repo := newTestRunner(t, 2, h)

	ctx := ctxutil.WithTraceData(context.Background(), &ctxutil.TraceData{TraceID: "trace-1"})
	job, err := r.Enqueue(ctx, "test", 11, map[string]any{"generation_id": 11})
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if job.Status != types.StatusQueued || job.GenerationID != 11 {
		t.Fatalf("unexpected handle: %+v", job)
	}
	done := waitForStatus(t, repo, job.ID, types.StatusSucceeded)
	var result struct {
		Chapters int `json:"chapters"`
	}
	if err := json.Unmarshal(done.Result, &result); err != nil || result.Chapters != 3 || done.FinishedAt == nil {
		t.Fatalf("unexpected finished row: %+v (err=%v)", done, err)
	}
	if gotGen != 11 || gotTrace != "trace-1" {
		t.Fatalf("payload not delivered: gen=%d trace=%q", gotGen, gotTrace)
	}
}

func TestRunnerFailureAndPanic(t *testing.T) {
	fail := HandlerFunc{JobType: "fail", Fn: func(jc *Context) error {
		jc.Progress("generating_chapter")
		return errors.New("boom")
	}}
	boom := HandlerFunc{JobType: "panic", Fn: func(jc *Context) error {
		panic("kaboom")
	}}
	r, repo := newTestRunner(t, 2, fail, boom)

	j1, _ := r.Enqueue(context.Background(), "fail", 1, nil)
	j2, _ := r.Enqueue(context.Background(), "panic", 2, nil)

	got := waitForStatus(t, repo, j1.ID, types.StatusFailed)
	if got.Error != "boom" || got.Stage != "generating_chapter" {
		t.Fatalf("unexpected failed row: %+v", got)
	}
	got = waitForStatus(t, repo, j2.ID, types.StatusFailed)
	if got.Error == "" {
		t.Fatalf("panic should record an error")
	}
}

func TestRunnerFailBeforeProgressKeepsRunningStage(t *testing.T) {
	early := HandlerFunc{JobType: "early", Fn: func(jc *Context) error {
		jc.Fail(jc.Job.Stage, errors.New("bad payload"))
		return nil
	}}
	r, repo := newTestRunner(t, 1, early)

	job, err := r.Enqueue(context.Background(), "early", 3, nil)
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	got := waitForStatus(t, repo, job.ID, types.StatusFailed)
	if got.Stage != "running" || got.Error != "bad payload" {
		t.Fatalf("unexpected failed row: %+v", got)
	}
}

func TestRunnerCancel(t *testing.T) {
	started := make(chan struct{})
	h := HandlerFunc{JobType: "block", Fn: func(jc *Context) error {
		close(started)
		<-jc.Ctx.Done()
		return jc.Ctx.Err()
	}}
	r, repo := newTestRunner(t, 1, h)

	job, err := r.Enqueue(context.Background(), "block", 5, nil)
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatalf("handler never started")
	}
	if err := r.Cancel(context.Background(), job.ID); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	waitForStatus(t, repo, job.ID, types.StatusCanceled)

	deadline := time.Now().Add(5 * time.Second)
	for r.Running(job.ID) {
		if time.Now().After(deadline) {
			t.Fatalf("job still registered after cancel")
		}
		time.Sleep(5 * time.Millisecond)
	}
	if err := r.Cancel(context.Background(), job.ID); !errors.Is(err, ErrNotRunning) {
		t.Fatalf("second Cancel: expected ErrNotRunning, got %v", err)
	}
}

func TestRunnerBoundsConcurrency(t *testing.T) {
	var running, peak atomic.Int32
	h := HandlerFunc{JobType: "slow", Fn: func(jc *Context) error {
		n := running.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(30 * time.Millisecond)
		running.Add(-1)
		return nil
	}}
	r, repo := newTestRunner(t, 1, h)

	var ids []uuid.UUID
	for i := 0; i < 3; i++ {
		job, err := r.Enqueue(context.Background(), "slow", uint(i+1), nil)
		if err != nil {
			t.Fatalf("Enqueue: %v", err)
		}
		ids = append(ids, job.ID)
	}
	for _, id := range ids {
		waitForStatus(t, repo, id, types.StatusSucceeded)
	}
	if peak.Load() != 1 {
		t.Fatalf("expected at most 1 concurrent handler, saw %d", peak.Load())
	}
}

func TestRunnerUnknownTypeAndShutdown(t *testing.T) {
	started := make(chan struct{})
	h := HandlerFunc{JobType: "block", Fn: func(jc *Context) error {
		close(started)
		<-jc.Ctx.Done()
		return jc.Ctx.Err()
	}}
	r, repo := newTestRunner(t, 1, h)

	if _, err := r.Enqueue(context.Background(), "nope", 1, nil); !errors.Is(err, ErrUnknownJobType) {
		t.Fatalf("expected ErrUnknownJobType, got %v", err)
	}

	job, _ := r.Enqueue(context.Background(), "block", 1, nil)
	<-started
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := r.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	waitForStatus(t, repo, job.ID, types.StatusCanceled)
	if _, err := r.Enqueue(context.Background(), "block", 2, nil); !errors.Is(err, ErrStopped) {
		t.Fatalf("expected ErrStopped after shutdown, got %v", err)
	}
}
