package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/materialgen-backend/internal/platform/apierr"
)

func TestRespondAPIError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)

	RespondAPIError(c, apierr.Internal("upstream_generation_failed", errors.New("generation failed")).
		WithDetails(map[string]any{"completed_chapters": 1, "total_chapters": 3}))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status=%d", rec.Code)
	}
	var env struct {
		Error struct {
			Message string         `json:"message"`
			Code    string         `json:"code"`
			Details map[string]any `json:"details"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.Error.Code != "upstream_generation_failed" || env.Error.Message != "generation failed" {
		t.Fatalf("unexpected envelope: %+v", env)
	}
	if env.Error.Details["total_chapters"] != float64(3) {
		t.Fatalf("details missing: %+v", env.Error.Details)
	}
}

func TestRespondErrorOmitsEmptyDetails(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)

	RespondError(c, http.StatusNotFound, "generation_not_found", errors.New("generation not found"))

	want := `{"error":{"message":"generation not found","code":"generation_not_found"}}`
	if rec.Body.String() != want {
		t.Fatalf("body=%s", rec.Body.String())
	}
}
