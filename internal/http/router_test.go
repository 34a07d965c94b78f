package http

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	httpH "github.com/yungbote/materialgen-backend/internal/http/handlers"
	"github.com/yungbote/materialgen-backend/internal/platform/logger"
)

func TestRouterHealthAndHeaders(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := NewRouter(RouterConfig{
		Log:           logger.Nop(),
		HealthHandler: httpH.NewHealthHandler(),
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthcheck", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d", rec.Code)
	}
	if rec.Header().Get("X-Request-Id") == "" {
		t.Fatalf("request id header missing")
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/history", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unwired route should 404, got %d", rec.Code)
	}
}
