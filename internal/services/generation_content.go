package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/yungbote/materialgen-backend/internal/domain/generation"
	"github.com/yungbote/materialgen-backend/internal/learning/content"
	"github.com/yungbote/materialgen-backend/internal/learning/prompts"
	"github.com/yungbote/materialgen-backend/internal/observability"
	"github.com/yungbote/materialgen-backend/internal/pkg/dbctx"
	"github.com/yungbote/materialgen-backend/internal/progress"
)

// Content run stages, in the order a run can visit them.
const (
	StageStart             = "start"
	StageParsingOutline    = "parsing_outline"
	StageGeneratingChapter = "generating_chapter"
	StageJSONParseFailed   = "json_parse_failed"
	StageFallback          = "fallback_generation"
	StageCompleted         = "completed"
	StageFailed            = "failed"
	StageCanceled          = "canceled"
)

type stageFunc func(stage string)

func (s *generationService) GenerateContent(ctx context.Context, id uint, outlineText string) (string, error) {
	unlock, ok := s.locks.TryLock(id)
	if !ok {
		return "", ErrBusy
	}
	defer unlock()
	return s.runContent(ctx, id, outlineText, nil)
}

// runContent drives one content run. The caller holds the id lock.
func (s *generationService) runContent(ctx context.Context, id uint, outlineText string, onStage stageFunc) (string, error) {
	if onStage == nil {
		onStage = func(string) {}
	}
	rec, err := s.load(ctx, id)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(outlineText) == "" {
		outlineText = rec.OutlineText()
	}
	if strings.TrimSpace(outlineText) == "" {
		return "", ErrMissingOutline
	}

	ctx, span := observability.StartSpan(ctx, "generation.content", attribute.Int("generation.id", int(id)))
	defer span.End()
	log := s.logFor(ctx, "generation_id", id)

	onStage(StageStart)
	onStage(StageParsingOutline)
	outline, err := content.ParseOutline(outlineText)
	if err != nil {
		log.Warn("outline did not parse; using fallback generation", "error", err)
		onStage(StageJSONParseFailed)
		return s.runFallback(ctx, rec, outlineText, onStage)
	}

	total := len(outline.Chapters)
	span.SetAttributes(attribute.Int("generation.chapters", total))
	s.setProgress(ctx, id, progress.Entry{Current: 0, Total: total, Status: progress.StatusProcessing, Stage: StageGeneratingChapter})
	onStage(StageGeneratingChapter)

	doc := content.Skeleton(outline)
	text, err := doc.Marshal()
	if err != nil {
		return "", s.failContent(ctx, id, 0, total, err)
	}
	for i, spec := range outline.Chapters {
		if err := ctx.Err(); err != nil {
			return "", s.failContent(ctx, id, i, total, err)
		}
		ch, err := s.generateChapter(ctx, rec, spec, outlineText)
		if err != nil {
			return "", s.failContent(ctx, id, i, total, err)
		}
		doc.Chapters = append(doc.Chapters, ch)
		if text, err = doc.Marshal(); err != nil {
			return "", s.failContent(ctx, id, i, total, err)
		}
		// A context canceled mid-chapter must not lose what is already done.
		if err := s.genRepo.UpdateFields(dbctx.New(context.WithoutCancel(ctx)), id, map[string]interface{}{"content": text}); err != nil {
			return "", s.failContent(ctx, id, i, total, fmt.Errorf("persist chapter %d: %w", spec.ChapterNumber, err))
		}
		// The last chapter is reported by the completed entry below.
		if i+1 < total {
			s.setProgress(ctx, id, progress.Entry{Current: i + 1, Total: total, Status: progress.StatusProcessing, Stage: StageGeneratingChapter})
		}
	}
	if total == 0 {
		if err := s.genRepo.UpdateFields(dbctx.New(ctx), id, map[string]interface{}{"content": text}); err != nil {
			return "", s.failContent(ctx, id, 0, 0, fmt.Errorf("persist content: %w", err))
		}
	}

	s.setProgress(ctx, id, progress.Entry{Current: total, Total: total, Status: progress.StatusCompleted, Stage: StageCompleted})
	onStage(StageCompleted)
	log.Info("content generated", "chapters", total)
	return text, nil
}

// runFallback asks for the whole content in one completion when the outline is
// unusable. Progress counts it as a single step.
func (s *generationService) runFallback(ctx context.Context, rec *generation.Generation, outlineText string, onStage stageFunc) (string, error) {
	observability.Current().IncOutlineFallback()
	s.setProgress(ctx, rec.ID, progress.Entry{Current: 0, Total: 1, Status: progress.StatusProcessing, Stage: StageFallback})
	onStage(StageFallback)

	start := time.Now()
	out, err := s.complete(ctx, prompts.PromptContentFallback, prompts.Input{
		Subject:     rec.Subject,
		Grade:       rec.Grade,
		Unit:        rec.Unit,
		OutlineText: outlineText,
	}, true)
	observability.Current().ObserveGenerationStage(StageFallback, statusLabel(err), time.Since(start))
	if err != nil {
		return "", s.failContent(ctx, rec.ID, 0, 1, err)
	}
	if err := s.genRepo.UpdateFields(dbctx.New(ctx), rec.ID, map[string]interface{}{"content": out}); err != nil {
		return "", s.failContent(ctx, rec.ID, 0, 1, fmt.Errorf("persist content: %w", err))
	}
	s.setProgress(ctx, rec.ID, progress.Entry{Current: 1, Total: 1, Status: progress.StatusCompleted, Stage: StageCompleted})
	onStage(StageCompleted)
	return out, nil
}

// generateChapter writes the chapter body, then questions over that body.
func (s *generationService) generateChapter(ctx context.Context, rec *generation.Generation, spec content.ChapterSpec, outlineText string) (content.ChapterResult, error) {
	ctx, span := observability.StartSpan(ctx, "generation.chapter",
		attribute.Int("chapter.number", spec.ChapterNumber),
		attribute.String("chapter.title", spec.Title),
	)
	defer span.End()
	start := time.Now()
	metrics := observability.Current()

	in := prompts.Input{
		Subject:       rec.Subject,
		Grade:         rec.Grade,
		Unit:          rec.Unit,
		ChapterNumber: spec.ChapterNumber,
		ChapterTitle:  spec.Title,
		Topics:        spec.Topics,
		OutlineText:   outlineText,
	}
	body, err := s.complete(ctx, prompts.PromptChapterContent, in, true)
	if err != nil {
		return s.chapterFailed(span, start, spec, err)
	}
	in.ChapterContent = body
	qs, err := s.complete(ctx, prompts.PromptChapterQuestions, in, true)
	if err != nil {
		return s.chapterFailed(span, start, spec, err)
	}
	metrics.ObserveGenerationStage(StageGeneratingChapter, "ok", time.Since(start))
	metrics.IncChapter("ok")
	s.logFor(ctx, "generation_id", rec.ID, "chapter", spec.ChapterNumber).Debug("chapter generated", "dur_ms", time.Since(start).Milliseconds())
	return content.ResultFor(spec, body, qs), nil
}

func (s *generationService) chapterFailed(span trace.Span, start time.Time, spec content.ChapterSpec, err error) (content.ChapterResult, error) {
	status := statusLabel(err)
	observability.Current().ObserveGenerationStage(StageGeneratingChapter, status, time.Since(start))
	observability.Current().IncChapter(status)
	span.RecordError(err)
	span.SetStatus(codes.Error, "chapter failed")
	return content.ChapterResult{}, fmt.Errorf("chapter %d: %w", spec.ChapterNumber, err)
}

// failContent leaves progress in the error state and reports how far the run got.
func (s *generationService) failContent(ctx context.Context, id uint, completed, total int, err error) error {
	stage, msg := StageFailed, fmt.Sprintf("generation failed after %d of %d chapters", completed, total)
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		stage, msg = StageCanceled, "canceled"
	}
	s.setProgress(ctx, id, progress.Entry{Current: completed, Total: total, Status: progress.StatusError, Stage: stage, Message: msg})
	s.logFor(ctx, "generation_id", id).Warn("content generation failed", "completed", completed, "total", total, "error", err)
	return &PartialError{Completed: completed, Total: total, Err: err}
}

// setProgress writes even when ctx is canceled so the terminal state lands.
func (s *generationService) setProgress(ctx context.Context, id uint, e progress.Entry) {
	if err := s.tracker.Set(context.WithoutCancel(ctx), id, e); err != nil {
		s.logFor(ctx, "generation_id", id).Warn("progress write failed", "error", err)
	}
}

// RegenerateChapter rebuilds one chapter and merges it into the stored
// document, replacing a chapter with the same number or appending.
func (s *generationService) RegenerateChapter(ctx context.Context, id uint, chapterNumber int, outlineText string) (content.ChapterResult, error) {
	unlock, ok := s.locks.TryLock(id)
	if !ok {
		return content.ChapterResult{}, ErrBusy
	}
	defer unlock()

	rec, err := s.load(ctx, id)
	if err != nil {
		return content.ChapterResult{}, err
	}
	if strings.TrimSpace(outlineText) == "" {
		outlineText = rec.OutlineText()
	}
	if strings.TrimSpace(outlineText) == "" {
		return content.ChapterResult{}, ErrMissingOutline
	}
	outline, err := content.ParseOutline(outlineText)
	if err != nil {
		return content.ChapterResult{}, err
	}
	spec, ok := outline.Chapter(chapterNumber)
	if !ok {
		return content.ChapterResult{}, fmt.Errorf("%w: %d", ErrChapterNotFound, chapterNumber)
	}

	ch, err := s.generateChapter(ctx, rec, spec, outlineText)
	if err != nil {
		return content.ChapterResult{}, err
	}

	doc := content.Skeleton(outline)
	if stored := rec.ContentText(); strings.TrimSpace(stored) != "" {
		if parsed, perr := content.ParseDocument(stored); perr == nil {
			doc = parsed
		} else {
			s.logFor(ctx, "generation_id", id).Warn("stored content is not a document; rebuilding from outline", "error", perr)
		}
	}
	replaced := doc.Merge(ch)
	text, err := doc.Marshal()
	if err != nil {
		return content.ChapterResult{}, err
	}
	if err := s.genRepo.UpdateFields(dbctx.New(ctx), id, map[string]interface{}{"content": text}); err != nil {
		return content.ChapterResult{}, fmt.Errorf("persist content: %w", err)
	}
	s.logFor(ctx, "generation_id", id).Info("chapter regenerated", "chapter", chapterNumber, "replaced", replaced)
	return ch, nil
}
