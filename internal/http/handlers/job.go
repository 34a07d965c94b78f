package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/materialgen-backend/internal/http/response"
	"github.com/yungbote/materialgen-backend/internal/platform/logger"
	"github.com/yungbote/materialgen-backend/internal/services"
)

type JobHandler struct {
	jobs services.GenerationService
	log  *logger.Logger
}

func NewJobHandler(jobs services.GenerationService, baseLog *logger.Logger) *JobHandler {
	return &JobHandler{jobs: jobs, log: baseLog.With("handler", "JobHandler")}
}

// GET /api/jobs/:id
func (h *JobHandler) GetJob(c *gin.Context) {
	jobID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_job_id", err)
		return
	}
	job, err := h.jobs.GetJob(c.Request.Context(), jobID)
	if err != nil {
		respondServiceError(c, h.log, err)
		return
	}
	tagGeneration(c, job.GenerationID)
	response.RespondOK(c, gin.H{"job": job})
}

// POST /api/jobs/:id/cancel
func (h *JobHandler) CancelJob(c *gin.Context) {
	jobID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_job_id", err)
		return
	}
	job, err := h.jobs.CancelJob(c.Request.Context(), jobID)
	if err != nil {
		respondServiceError(c, h.log, err)
		return
	}
	tagGeneration(c, job.GenerationID)
	response.RespondOK(c, gin.H{"job": job})
}
