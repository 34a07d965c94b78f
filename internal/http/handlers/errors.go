package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/materialgen-backend/internal/http/response"
	"github.com/yungbote/materialgen-backend/internal/platform/apierr"
	"github.com/yungbote/materialgen-backend/internal/platform/ctxutil"
	"github.com/yungbote/materialgen-backend/internal/platform/llm"
	"github.com/yungbote/materialgen-backend/internal/platform/logger"
	"github.com/yungbote/materialgen-backend/internal/services"
)

var (
	errGenerationNotFound = errors.New("generation not found")
	errJobNotFound        = errors.New("job not found")
	errUpstream           = errors.New("upstream generation failed")
	errInternal           = errors.New("internal server error")
)

// toAPIError maps service errors onto status codes. Messages from the model
// provider never reach the client.
func toAPIError(err error) *apierr.Error {
	if ae, ok := apierr.As(err); ok {
		return ae
	}

	var partial *services.PartialError
	if errors.As(err, &partial) {
		details := map[string]any{
			"completed_chapters": partial.Completed,
			"total_chapters":     partial.Total,
		}
		if errors.Is(err, llm.ErrUpstream) {
			return apierr.Internal("upstream_generation_failed", errUpstream).WithDetails(details)
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return apierr.New(http.StatusServiceUnavailable, "generation_canceled", errors.New("generation canceled")).WithDetails(details)
		}
		return apierr.Internal("internal_error", errInternal).WithDetails(details)
	}

	switch {
	case errors.Is(err, services.ErrNotFound):
		return apierr.NotFound("generation_not_found", errGenerationNotFound)
	case errors.Is(err, services.ErrJobNotFound):
		return apierr.NotFound("job_not_found", errJobNotFound)
	case errors.Is(err, services.ErrChapterNotFound):
		return apierr.NotFound("chapter_not_found", err)
	case errors.Is(err, services.ErrBusy):
		return apierr.Conflict("generation_busy", err)
	case errors.Is(err, services.ErrInvalidOutline):
		return apierr.BadRequest("invalid_outline", services.ErrInvalidOutline)
	case errors.Is(err, services.ErrMissingOutline):
		return apierr.BadRequest("missing_outline", err)
	case errors.Is(err, services.ErrMissingContent):
		return apierr.BadRequest("missing_content", err)
	case errors.Is(err, services.ErrInvalidInput):
		return apierr.BadRequest("invalid_request", err)
	case errors.Is(err, services.ErrJobsDisabled):
		return apierr.New(http.StatusServiceUnavailable, "jobs_disabled", err)
	case errors.Is(err, llm.ErrUpstream):
		return apierr.Internal("upstream_generation_failed", errUpstream)
	default:
		return apierr.Internal("internal_error", errInternal)
	}
}

// respondServiceError logs the raw error and answers with its mapped form.
func respondServiceError(c *gin.Context, log *logger.Logger, err error) {
	ae := toAPIError(err)
	if log != nil {
		fields := append([]interface{}{"code", ae.Code, "error", err}, ctxutil.LogFields(c.Request.Context())...)
		if ae.Status >= http.StatusInternalServerError {
			log.Error("request failed", fields...)
		} else {
			log.Debug("request rejected", fields...)
		}
	}
	_ = c.Error(err)
	response.RespondAPIError(c, ae)
}

func respondBadRequest(c *gin.Context, err error) {
	response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
}
