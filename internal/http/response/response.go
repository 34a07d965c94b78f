package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/materialgen-backend/internal/platform/apierr"
)

type APIError struct {
	Message string         `json:"message"`
	Code    string         `json:"code,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func RespondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.JSON(status, ErrorEnvelope{
		Error: APIError{
			Message: msg,
			Code:    code,
		},
	})
}

// RespondAPIError writes e with its status, code and details.
func RespondAPIError(c *gin.Context, e *apierr.Error) {
	status := e.Status
	if status == 0 {
		status = http.StatusInternalServerError
	}
	msg := "unknown error"
	if e.Err != nil {
		msg = e.Err.Error()
	}
	c.JSON(status, ErrorEnvelope{
		Error: APIError{
			Message: msg,
			Code:    e.Code,
			Details: e.Details,
		},
	})
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

func RespondAccepted(c *gin.Context, payload any) {
	c.JSON(http.StatusAccepted, payload)
}
