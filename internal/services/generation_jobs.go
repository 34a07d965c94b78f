package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	jobtypes "github.com/yungbote/materialgen-backend/internal/domain/jobs"
	"github.com/yungbote/materialgen-backend/internal/jobs"
	"github.com/yungbote/materialgen-backend/internal/pkg/dbctx"
	"github.com/yungbote/materialgen-backend/internal/platform/llm"
)

// StartContentGeneration queues a content run and returns its job handle
// without waiting for any chapter.
func (s *generationService) StartContentGeneration(ctx context.Context, id uint, outlineText string) (*jobtypes.GenerationJob, error) {
	if s.runner == nil {
		return nil, ErrJobsDisabled
	}
	rec, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(outlineText) == "" && strings.TrimSpace(rec.OutlineText()) == "" {
		return nil, ErrMissingOutline
	}
	if s.locks.Held(id) {
		return nil, ErrBusy
	}
	job, err := s.runner.Enqueue(ctx, jobtypes.TypeGenerateContent, id, map[string]any{
		"generation_id": id,
		"outline":       outlineText,
	})
	if err != nil {
		return nil, fmt.Errorf("enqueue content generation: %w", err)
	}
	s.logFor(ctx, "generation_id", id).Info("content generation queued", "job_id", job.ID)
	return job, nil
}

func (s *generationService) JobHandler() jobs.Handler {
	return jobs.HandlerFunc{JobType: jobtypes.TypeGenerateContent, Fn: s.runContentJob}
}

func (s *generationService) runContentJob(jc *jobs.Context) error {
	id, ok := jc.PayloadUint("generation_id")
	if !ok || id == 0 {
		jc.Fail("dispatch", errors.New("payload has no generation_id"))
		return nil
	}
	unlock, ok := s.locks.TryLock(id)
	if !ok {
		jc.Fail("dispatch", ErrBusy)
		return nil
	}
	defer unlock()

	text, err := s.runContent(jc.Ctx, id, jc.PayloadString("outline"), jc.Progress)
	if err != nil {
		if jc.Ctx.Err() != nil {
			return jc.Ctx.Err()
		}
		s.logFor(jc.Ctx, "generation_id", id).Error("content job failed", "job_id", jc.Job.ID, "error", err)
		jc.Fail(jc.Job.Stage, publicError(err))
		return nil
	}
	jc.Succeed(StageCompleted, map[string]any{
		"generation_id": id,
		"content_chars": len([]rune(text)),
	})
	return nil
}

// publicError drops upstream detail that should only reach the logs.
func publicError(err error) error {
	var pe *PartialError
	if errors.As(err, &pe) {
		if errors.Is(pe.Err, llm.ErrUpstream) {
			return fmt.Errorf("upstream generation failed after %d of %d chapters", pe.Completed, pe.Total)
		}
		return fmt.Errorf("generation failed after %d of %d chapters", pe.Completed, pe.Total)
	}
	if errors.Is(err, llm.ErrUpstream) {
		return errors.New("upstream generation failed")
	}
	for _, known := range []error{ErrNotFound, ErrInvalidOutline, ErrMissingOutline, ErrBusy} {
		if errors.Is(err, known) {
			return known
		}
	}
	return errInternal
}

func (s *generationService) GetJob(ctx context.Context, id uuid.UUID) (*jobtypes.GenerationJob, error) {
	return s.jobRepo.GetByID(dbctx.New(ctx), id)
}

// CancelJob cancels a queued or running job. Canceling a finished job is a
// no-op that returns the job as it is.
func (s *generationService) CancelJob(ctx context.Context, id uuid.UUID) (*jobtypes.GenerationJob, error) {
	job, err := s.jobRepo.GetByID(dbctx.New(ctx), id)
	if err != nil {
		return nil, err
	}
	if job.Terminal() {
		return job, nil
	}
	if s.runner == nil {
		return nil, ErrJobsDisabled
	}
	if err := s.runner.Cancel(ctx, id); err != nil && !errors.Is(err, jobs.ErrNotRunning) {
		return nil, err
	}
	return s.jobRepo.GetByID(dbctx.New(ctx), id)
}
