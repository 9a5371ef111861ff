package observability

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

func TestRequestLoggerUsesRouteTemplateAndRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	r := gin.New()
	r.Use(RequestID(), RequestLogger(logger), RequestMetricsMiddleware("test"))
	r.GET("/sessions/:session_id", func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
	})

	req := httptest.NewRequest(http.MethodGet, "/sessions/abc-123", nil)
	req.Header.Set(HeaderRequestID, "req-1")
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	if got := rr.Header().Get(HeaderRequestID); got != "req-1" {
		t.Fatalf("expected echoed request id, got %q", got)
	}
	out := buf.String()
	if !strings.Contains(out, `"path":"/sessions/:session_id"`) {
		t.Fatalf("expected templated path in log: %s", out)
	}
	if !strings.Contains(out, `"level":"warn"`) || !strings.Contains(out, `"request_id":"req-1"`) {
		t.Fatalf("expected warn level with request id: %s", out)
	}
}

func TestRequestIDMintsWhenMissing(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID())
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rr.Header().Get(HeaderRequestID) == "" {
		t.Fatalf("expected minted request id")
	}
}
