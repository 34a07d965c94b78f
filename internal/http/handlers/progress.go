package handlers

import (
	"io"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/materialgen-backend/internal/http/response"
	"github.com/yungbote/materialgen-backend/internal/platform/logger"
	"github.com/yungbote/materialgen-backend/internal/progress"
	"github.com/yungbote/materialgen-backend/internal/services"
)

const DefaultStreamInterval = 500 * time.Millisecond

type ProgressHandler struct {
	svc      services.GenerationService
	log      *logger.Logger
	interval time.Duration
}

func NewProgressHandler(svc services.GenerationService, baseLog *logger.Logger, interval time.Duration) *ProgressHandler {
	if interval <= 0 {
		interval = DefaultStreamInterval
	}
	return &ProgressHandler{svc: svc, log: baseLog.With("handler", "ProgressHandler"), interval: interval}
}

// GET /api/generation-progress/:id
func (h *ProgressHandler) Get(c *gin.Context) {
	id, ok := generationID(c)
	if !ok {
		return
	}
	entry, err := h.svc.Progress(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, h.log, err)
		return
	}
	response.RespondOK(c, entry)
}

// GET /api/generation-progress/:id/stream
//
// Emits a "progress" event whenever the entry changes and closes the stream
// once it reaches completed or error.
func (h *ProgressHandler) Stream(c *gin.Context) {
	id, ok := generationID(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	var last progress.Entry
	sent := false
	c.Stream(func(w io.Writer) bool {
		entry, err := h.svc.Progress(ctx, id)
		if err != nil {
			h.log.Warn("progress stream read failed", "generation_id", id, "error", err)
			c.SSEvent("error", gin.H{"message": "progress unavailable"})
			return false
		}
		if !sent || changed(last, entry) {
			c.SSEvent("progress", entry)
			last, sent = entry, true
		}
		if entry.Terminal() {
			return false
		}
		select {
		case <-ctx.Done():
			return false
		case <-ticker.C:
			return true
		}
	})
}

func changed(a, b progress.Entry) bool {
	return a.Current != b.Current || a.Total != b.Total || a.Status != b.Status ||
		a.Stage != b.Stage || a.Message != b.Message
}
