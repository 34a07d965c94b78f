package handlers

import (
	"errors"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/materialgen-backend/internal/http/middleware"
	"github.com/yungbote/materialgen-backend/internal/http/response"
	"github.com/yungbote/materialgen-backend/internal/platform/logger"
	"github.com/yungbote/materialgen-backend/internal/services"
)

type HistoryHandler struct {
	svc services.GenerationService
	log *logger.Logger
}

func NewHistoryHandler(svc services.GenerationService, baseLog *logger.Logger) *HistoryHandler {
	return &HistoryHandler{svc: svc, log: baseLog.With("handler", "HistoryHandler")}
}

var (
	errInvalidGenerationID = errors.New("generation id must be a positive integer")
	errInvalidPaging       = errors.New("limit and offset must be non-negative integers")
)

// generationID reads the :id path parameter. It answers 400 itself on failure.
func generationID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(strings.TrimSpace(c.Param("id")), 10, 64)
	if err != nil || id == 0 {
		respondBadRequest(c, errInvalidGenerationID)
		return 0, false
	}
	tagGeneration(c, uint(id))
	return uint(id), true
}

// tagGeneration exposes the generation id to the request logger.
func tagGeneration(c *gin.Context, id uint) {
	c.Set(middleware.GenerationIDKey, id)
}

func queryInt(c *gin.Context, name string) (int, bool) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// GET /api/history
func (h *HistoryHandler) List(c *gin.Context) {
	limit, ok1 := queryInt(c, "limit")
	offset, ok2 := queryInt(c, "offset")
	if !ok1 || !ok2 {
		respondBadRequest(c, errInvalidPaging)
		return
	}
	recs, err := h.svc.History(c.Request.Context(), limit, offset)
	if err != nil {
		respondServiceError(c, h.log, err)
		return
	}
	response.RespondOK(c, recs)
}

// GET /api/history/:id
func (h *HistoryHandler) Get(c *gin.Context) {
	id, ok := generationID(c)
	if !ok {
		return
	}
	rec, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, h.log, err)
		return
	}
	response.RespondOK(c, rec)
}

// GET /api/history/:id/questions
func (h *HistoryHandler) Questions(c *gin.Context) {
	id, ok := generationID(c)
	if !ok {
		return
	}
	sets, err := h.svc.ChapterQuestions(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, h.log, err)
		return
	}
	response.RespondOK(c, gin.H{
		"generation_id": id,
		"chapters":      sets,
	})
}

// DELETE /api/history/:id
func (h *HistoryHandler) Delete(c *gin.Context) {
	id, ok := generationID(c)
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), id); err != nil {
		respondServiceError(c, h.log, err)
		return
	}
	response.RespondOK(c, gin.H{
		"status":  "success",
		"message": "generation deleted",
		"id":      id,
	})
}
