package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/yungbote/materialgen-backend/internal/data/repos"
	"github.com/yungbote/materialgen-backend/internal/domain/generation"
	jobtypes "github.com/yungbote/materialgen-backend/internal/domain/jobs"
	"github.com/yungbote/materialgen-backend/internal/jobs"
	"github.com/yungbote/materialgen-backend/internal/learning/content"
	"github.com/yungbote/materialgen-backend/internal/learning/mathfmt"
	"github.com/yungbote/materialgen-backend/internal/learning/prompts"
	"github.com/yungbote/materialgen-backend/internal/learning/questions"
	"github.com/yungbote/materialgen-backend/internal/observability"
	"github.com/yungbote/materialgen-backend/internal/pkg/dbctx"
	"github.com/yungbote/materialgen-backend/internal/platform/ctxutil"
	"github.com/yungbote/materialgen-backend/internal/platform/llm"
	"github.com/yungbote/materialgen-backend/internal/platform/logger"
	"github.com/yungbote/materialgen-backend/internal/progress"
)

type GenerationService interface {
	GenerateOutline(ctx context.Context, subject, grade, unit string) (*generation.Generation, error)
	// GenerateContent runs every chapter before returning. Use
	// StartContentGeneration to run it in the background instead.
	GenerateContent(ctx context.Context, id uint, outlineText string) (string, error)
	StartContentGeneration(ctx context.Context, id uint, outlineText string) (*jobtypes.GenerationJob, error)
	GenerateQuestions(ctx context.Context, id uint, contentText string) (string, error)
	RegenerateChapter(ctx context.Context, id uint, chapterNumber int, outlineText string) (content.ChapterResult, error)

	Progress(ctx context.Context, id uint) (progress.Entry, error)
	History(ctx context.Context, limit, offset int) ([]*generation.Generation, error)
	Get(ctx context.Context, id uint) (*generation.Generation, error)
	Delete(ctx context.Context, id uint) error
	ChapterQuestions(ctx context.Context, id uint) ([]ChapterQuestions, error)

	GetJob(ctx context.Context, id uuid.UUID) (*jobtypes.GenerationJob, error)
	CancelJob(ctx context.Context, id uuid.UUID) (*jobtypes.GenerationJob, error)
	JobHandler() jobs.Handler
}

// ChapterQuestions is the parsed question set of one chapter. Chapter 0 holds
// questions generated over the whole content.
type ChapterQuestions struct {
	ChapterNumber int               `json:"chapter_number"`
	Title         string            `json:"title"`
	Questions     []questions.Block `json:"questions"`
}

type generationService struct {
	log     *logger.Logger
	genRepo repos.GenerationRepo
	jobRepo repos.GenerationJobRepo
	tracker progress.Tracker
	llm     llm.Client
	norm    *mathfmt.Normalizer
	runner  *jobs.Runner
	locks   *keyLock
}

func NewGenerationService(
	baseLog *logger.Logger,
	genRepo repos.GenerationRepo,
	jobRepo repos.GenerationJobRepo,
	tracker progress.Tracker,
	client llm.Client,
	norm *mathfmt.Normalizer,
	runner *jobs.Runner,
) GenerationService {
	if norm == nil {
		norm = mathfmt.New(mathfmt.DefaultRules())
	}
	if tracker == nil {
		tracker = progress.NewMemoryTracker(0, 0)
	}
	return &generationService{
		log:     baseLog.With("service", "GenerationService"),
		genRepo: genRepo,
		jobRepo: jobRepo,
		tracker: tracker,
		llm:     client,
		norm:    norm,
		runner:  runner,
		locks:   newKeyLock(),
	}
}

func (s *generationService) logFor(ctx context.Context, kv ...interface{}) *logger.Logger {
	return s.log.With(append(ctxutil.LogFields(ctx), kv...)...)
}

func validScope(subject, grade, unit string) error {
	check := func(field, v string, max int) error {
		if v == "" {
			return fmt.Errorf("%w: %s is required", ErrInvalidInput, field)
		}
		if utf8.RuneCountInString(v) > max {
			return fmt.Errorf("%w: %s exceeds %d characters", ErrInvalidInput, field, max)
		}
		return nil
	}
	if err := check("subject", subject, generation.MaxSubjectLen); err != nil {
		return err
	}
	if err := check("grade", grade, generation.MaxGradeLen); err != nil {
		return err
	}
	return check("unit", unit, generation.MaxUnitLen)
}

// GenerateOutline stores the raw model outline on a new record. The outline
// is not validated here; content generation decides what to do with it.
func (s *generationService) GenerateOutline(ctx context.Context, subject, grade, unit string) (*generation.Generation, error) {
	subject, grade, unit = strings.TrimSpace(subject), strings.TrimSpace(grade), strings.TrimSpace(unit)
	if err := validScope(subject, grade, unit); err != nil {
		return nil, err
	}
	start := time.Now()
	outline, err := s.complete(ctx, prompts.PromptOutline, prompts.Input{Subject: subject, Grade: grade, Unit: unit}, false)
	observability.Current().ObserveGenerationStage("outline", statusLabel(err), time.Since(start))
	if err != nil {
		return nil, err
	}
	rec, err := s.genRepo.Create(dbctx.New(ctx), &generation.Generation{
		Subject: subject,
		Grade:   grade,
		Unit:    unit,
		Outline: &outline,
	})
	if err != nil {
		return nil, fmt.Errorf("persist outline: %w", err)
	}
	s.logFor(ctx, "generation_id", rec.ID).Info("outline generated", "subject", subject, "grade", grade, "unit", unit)
	return rec, nil
}

func (s *generationService) GenerateQuestions(ctx context.Context, id uint, contentText string) (string, error) {
	rec, err := s.load(ctx, id)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(contentText) == "" {
		contentText = rec.ContentText()
	}
	if strings.TrimSpace(contentText) == "" {
		return "", ErrMissingContent
	}
	start := time.Now()
	out, err := s.complete(ctx, prompts.PromptQuestionsFromContent, prompts.Input{
		Subject:     rec.Subject,
		Grade:       rec.Grade,
		Unit:        rec.Unit,
		ContentText: contentText,
	}, true)
	observability.Current().ObserveGenerationStage("questions", statusLabel(err), time.Since(start))
	if err != nil {
		return "", err
	}
	if err := s.genRepo.UpdateFields(dbctx.New(ctx), id, map[string]interface{}{"questions": out}); err != nil {
		return "", fmt.Errorf("persist questions: %w", err)
	}
	s.logFor(ctx, "generation_id", id).Info("questions generated", "chars", utf8.RuneCountInString(out))
	return out, nil
}

func (s *generationService) Progress(ctx context.Context, id uint) (progress.Entry, error) {
	return s.tracker.Get(ctx, id)
}

func (s *generationService) History(ctx context.Context, limit, offset int) ([]*generation.Generation, error) {
	return s.genRepo.List(dbctx.New(ctx), limit, offset)
}

func (s *generationService) Get(ctx context.Context, id uint) (*generation.Generation, error) {
	return s.load(ctx, id)
}

func (s *generationService) Delete(ctx context.Context, id uint) error {
	// A running content pass would write progress back after the delete.
	unlock, ok := s.locks.TryLock(id)
	if !ok {
		return ErrBusy
	}
	defer unlock()
	if err := s.genRepo.Delete(dbctx.New(ctx), id); err != nil {
		return err
	}
	if err := s.tracker.Delete(ctx, id); err != nil {
		s.logFor(ctx, "generation_id", id).Warn("progress delete failed", "error", err)
	}
	s.logFor(ctx, "generation_id", id).Info("generation deleted")
	return nil
}

// ChapterQuestions parses stored questions per chapter. Whole-content
// questions, when present, come first as chapter 0.
func (s *generationService) ChapterQuestions(ctx context.Context, id uint) ([]ChapterQuestions, error) {
	rec, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	out := []ChapterQuestions{}
	if q := rec.QuestionsText(); strings.TrimSpace(q) != "" {
		out = append(out, ChapterQuestions{Title: "全單元", Questions: nonNilBlocks(questions.Parse(q))})
	}
	if c := rec.ContentText(); strings.TrimSpace(c) != "" {
		doc, err := content.ParseDocument(c)
		if err != nil {
			// Fallback content is markdown, not a document.
			return out, nil
		}
		for _, ch := range doc.Chapters {
			out = append(out, ChapterQuestions{
				ChapterNumber: ch.ChapterNumber,
				Title:         ch.Title,
				Questions:     nonNilBlocks(questions.Parse(ch.Questions)),
			})
		}
	}
	return out, nil
}

func nonNilBlocks(b []questions.Block) []questions.Block {
	if b == nil {
		return []questions.Block{}
	}
	return b
}

func (s *generationService) load(ctx context.Context, id uint) (*generation.Generation, error) {
	rec, err := s.genRepo.GetByID(dbctx.New(ctx), id)
	if err != nil {
		if errors.Is(err, repos.ErrGenerationNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load generation %d: %w", id, err)
	}
	return rec, nil
}

// complete renders a prompt and calls the model. With normalize set, math
// delimiters in the answer are rewritten.
func (s *generationService) complete(ctx context.Context, name prompts.PromptName, in prompts.Input, normalize bool) (string, error) {
	p, err := prompts.Build(name, in)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	ctx, span := observability.StartSpan(ctx, "generation.complete",
		attribute.String("prompt.name", p.Name),
		attribute.Int("prompt.version", p.Version),
		attribute.String("prompt.fingerprint", p.Fingerprint()),
	)
	defer span.End()

	log := s.logFor(ctx, "prompt", p.Name)
	log.Debug("completion requested", "fingerprint", p.Fingerprint(), "max_tokens", p.MaxTokens)
	out, err := s.llm.Complete(ctx, p.User, llm.Options{
		Name:        p.Name,
		System:      p.System,
		Temperature: llm.Float(p.Temperature),
		MaxTokens:   p.MaxTokens,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "completion failed")
		log.Warn("completion failed", "error", err)
		return "", err
	}
	if normalize {
		out = s.norm.Normalize(out)
	}
	return out, nil
}

func statusLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "error"
	}
}
