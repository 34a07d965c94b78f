package middleware

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/materialgen-backend/internal/observability"
)

// Metrics records request counts and latency per matched route. Requests no
// route matched share the "unmatched" label so path scans cannot grow the
// label set. SSE progress streams stay open until a run ends; they are counted
// but leave the latency histogram alone.
func Metrics(m *observability.Metrics) gin.HandlerFunc {
	if m == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		m.ApiInflightInc()
		start := time.Now()
		c.Next()
		m.ApiInflightDec()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		dur := time.Since(start)
		if strings.HasSuffix(route, "/stream") {
			dur = -1
		}
		m.ObserveAPI(c.Request.Method, route, strconv.Itoa(c.Writer.Status()), dur)
	}
}
