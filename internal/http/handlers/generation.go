package handlers

import (
	"errors"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/materialgen-backend/internal/http/response"
	"github.com/yungbote/materialgen-backend/internal/http/validate"
	"github.com/yungbote/materialgen-backend/internal/platform/logger"
	"github.com/yungbote/materialgen-backend/internal/services"
)

type GenerationHandler struct {
	svc services.GenerationService
	log *logger.Logger
}

func NewGenerationHandler(svc services.GenerationService, baseLog *logger.Logger) *GenerationHandler {
	return &GenerationHandler{svc: svc, log: baseLog.With("handler", "GenerationHandler")}
}

type outlineRequest struct {
	Subject string `json:"subject" validate:"required,notblank,max=100"`
	Grade   string `json:"grade" validate:"required,notblank,max=50"`
	Unit    string `json:"unit" validate:"required,notblank,max=200"`
}

type contentRequest struct {
	GenerationID uint   `json:"generation_id" validate:"required,gt=0"`
	Outline      string `json:"outline"`
}

type questionsRequest struct {
	GenerationID uint   `json:"generation_id" validate:"required,gt=0"`
	Content      string `json:"content"`
}

type regenerateRequest struct {
	GenerationID  uint   `json:"generation_id" validate:"required,gt=0"`
	ChapterNumber int    `json:"chapter_number" validate:"required,gt=0"`
	Outline       string `json:"outline"`
}

var errMalformedBody = errors.New("request body is not valid JSON")

// bind decodes and validates the JSON body. It answers 400 itself on failure.
func bind(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		respondBadRequest(c, errMalformedBody)
		return false
	}
	if err := validate.Struct(dst); err != nil {
		respondBadRequest(c, err)
		return false
	}
	return true
}

// POST /api/generate-outline
func (h *GenerationHandler) GenerateOutline(c *gin.Context) {
	var req outlineRequest
	if !bind(c, &req) {
		return
	}
	rec, err := h.svc.GenerateOutline(c.Request.Context(), req.Subject, req.Grade, req.Unit)
	if err != nil {
		respondServiceError(c, h.log, err)
		return
	}
	tagGeneration(c, rec.ID)
	response.RespondOK(c, gin.H{
		"generation_id": rec.ID,
		"outline":       rec.OutlineText(),
	})
}

// POST /api/generate-content
//
// Queues a background run and answers 202 with the job handle. With
// ?wait=true the request blocks until every chapter is written.
func (h *GenerationHandler) GenerateContent(c *gin.Context) {
	var req contentRequest
	if !bind(c, &req) {
		return
	}
	tagGeneration(c, req.GenerationID)
	wait, _ := strconv.ParseBool(strings.TrimSpace(c.Query("wait")))
	ctx := c.Request.Context()

	if wait {
		text, err := h.svc.GenerateContent(ctx, req.GenerationID, req.Outline)
		if err != nil {
			respondServiceError(c, h.log, err)
			return
		}
		response.RespondOK(c, gin.H{
			"generation_id": req.GenerationID,
			"content":       text,
		})
		return
	}

	job, err := h.svc.StartContentGeneration(ctx, req.GenerationID, req.Outline)
	if err != nil {
		respondServiceError(c, h.log, err)
		return
	}
	response.RespondAccepted(c, gin.H{
		"generation_id": req.GenerationID,
		"job_id":        job.ID,
		"status":        job.Status,
	})
}

// POST /api/generate-questions
func (h *GenerationHandler) GenerateQuestions(c *gin.Context) {
	var req questionsRequest
	if !bind(c, &req) {
		return
	}
	tagGeneration(c, req.GenerationID)
	out, err := h.svc.GenerateQuestions(c.Request.Context(), req.GenerationID, req.Content)
	if err != nil {
		respondServiceError(c, h.log, err)
		return
	}
	response.RespondOK(c, gin.H{
		"generation_id": req.GenerationID,
		"questions":     out,
	})
}

// POST /api/regenerate-chapter
func (h *GenerationHandler) RegenerateChapter(c *gin.Context) {
	var req regenerateRequest
	if !bind(c, &req) {
		return
	}
	tagGeneration(c, req.GenerationID)
	ch, err := h.svc.RegenerateChapter(c.Request.Context(), req.GenerationID, req.ChapterNumber, req.Outline)
	if err != nil {
		respondServiceError(c, h.log, err)
		return
	}
	response.RespondOK(c, gin.H{
		"generation_id": req.GenerationID,
		"chapter":       ch,
	})
}
