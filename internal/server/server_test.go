package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/danmuck/briefctl/internal/store"
	"github.com/danmuck/briefctl/internal/testutil/testlog"
	"github.com/gin-gonic/gin"
)

func newTestService(t *testing.T, mutate func(*ServiceConfig)) *Service {
	t.Helper()
	testlog.Start(t)
	gin.SetMode(gin.TestMode)
	cfg := DefaultServiceConfig()
	cfg.StoreKind = store.KindMemory
	cfg.DBPath = ""
	if mutate != nil {
		mutate(&cfg)
	}
	svc, err := NewService(cfg)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	t.Cleanup(func() { _ = svc.Close() })
	return svc
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		switch v := body.(type) {
		case string:
			buf.WriteString(v)
		default:
			if err := json.NewEncoder(&buf).Encode(v); err != nil {
				t.Fatalf("encode body: %v", err)
			}
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decode(t *testing.T, rr *httptest.ResponseRecorder, out any) {
	t.Helper()
	if err := json.Unmarshal(rr.Body.Bytes(), out); err != nil {
		t.Fatalf("decode body %q: %v", rr.Body.String(), err)
	}
}

type nextBody struct {
	Message string  `json:"message"`
	NextID  *string `json:"next_id"`
	Done    bool    `json:"done"`
}

func TestHealthAndReady(t *testing.T) {
	svc := newTestService(t, nil)
	h := svc.Server().HTTPRouter()

	rr := doJSON(t, h, http.MethodGet, "/health", nil, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("health status %d", rr.Code)
	}
	var health map[string]any
	decode(t, rr, &health)
	if health["status"] != "ok" || health["version"] != Version {
		t.Fatalf("unexpected health body: %#v", health)
	}

	rr = doJSON(t, h, http.MethodGet, "/ready", nil, nil)
	var ready map[string]any
	decode(t, rr, &ready)
	if ready["ready"] != true || ready["questions"].(float64) < 1 {
		t.Fatalf("unexpected ready body: %#v", ready)
	}

	rr = doJSON(t, h, http.MethodGet, "/metrics", nil, nil)
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), "briefctl_http_requests_total") {
		t.Fatalf("metrics missing http counter: %d", rr.Code)
	}
}

func TestInterviewFlowOverHTTP(t *testing.T) {
	svc := newTestService(t, nil)
	h := svc.Server().HTTPRouter()

	rr := doJSON(t, h, http.MethodPost, "/interview/next", map[string]any{"session_id": "s1"}, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("first step status %d body=%s", rr.Code, rr.Body.String())
	}
	var step nextBody
	decode(t, rr, &step)
	if step.NextID == nil || *step.NextID != "start" || step.Done {
		t.Fatalf("unexpected first step: %+v", step)
	}

	rr = doJSON(t, h, http.MethodPost, "/interview/next",
		map[string]any{"session_id": "s1", "current_id": "start", "answer": "Atlas"}, nil)
	decode(t, rr, &step)
	if step.NextID == nil || *step.NextID != "objetivo" {
		t.Fatalf("unexpected second step: %+v", step)
	}

	rr = doJSON(t, h, http.MethodPost, "/interview/next",
		map[string]any{"session_id": "s1", "current_id": "nao-existe", "answer": "x"}, nil)
	decode(t, rr, &step)
	if !step.Done || step.NextID != nil || step.Message != "Passo inválido. Reinicie a entrevista." {
		t.Fatalf("unexpected invalid step: %+v", step)
	}
	if !strings.Contains(rr.Body.String(), `"next_id":null`) {
		t.Fatalf("next_id must serialize as null: %s", rr.Body.String())
	}

	rr = doJSON(t, h, http.MethodPost, "/briefing", map[string]any{"session_id": "s1"}, nil)
	var brief BriefingResponse
	decode(t, rr, &brief)
	if !strings.Contains(brief.Markdown, "- **Resposta:** Atlas") {
		t.Fatalf("unexpected briefing: %s", brief.Markdown)
	}

	rr = doJSON(t, h, http.MethodGet, "/briefing/s1?format=html", nil, nil)
	if rr.Code != http.StatusOK || !strings.Contains(rr.Header().Get("Content-Type"), "text/html") {
		t.Fatalf("unexpected html briefing: %d %s", rr.Code, rr.Header().Get("Content-Type"))
	}
	if !strings.Contains(rr.Body.String(), "<h1>Briefing Inicial</h1>") {
		t.Fatalf("html briefing missing title: %s", rr.Body.String())
	}
	rr = doJSON(t, h, http.MethodGet, "/briefing/s1", nil, nil)
	if !strings.HasPrefix(rr.Body.String(), "# Briefing Inicial") {
		t.Fatalf("unexpected markdown document: %s", rr.Body.String())
	}
	rr = doJSON(t, h, http.MethodGet, "/briefing/s1?format=pdf", nil, nil)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown format, got %d", rr.Code)
	}

	rr = doJSON(t, h, http.MethodGet, "/sessions", nil, nil)
	var list struct {
		Sessions []store.Record `json:"sessions"`
	}
	decode(t, rr, &list)
	if len(list.Sessions) != 1 || list.Sessions[0].SessionID != "s1" || list.Sessions[0].BriefingMD == nil {
		t.Fatalf("unexpected sessions: %+v", list.Sessions)
	}

	rr = doJSON(t, h, http.MethodGet, "/sessions/s1", nil, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("get session status %d", rr.Code)
	}
	rr = doJSON(t, h, http.MethodGet, "/sessions/unknown", nil, nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown session, got %d", rr.Code)
	}

	rr = doJSON(t, h, http.MethodPost, "/reset", map[string]any{"session_id": "s1"}, nil)
	var ok map[string]bool
	decode(t, rr, &ok)
	if !ok["ok"] {
		t.Fatalf("unexpected reset body: %s", rr.Body.String())
	}
	if n := len(svc.Engine().Answers("s1")); n != 0 {
		t.Fatalf("expected answers cleared, got %d", n)
	}
	testlog.Logf("server/http: full interview flow served")
}

func TestValidationErrorsAre422(t *testing.T) {
	svc := newTestService(t, nil)
	h := svc.Server().HTTPRouter()

	cases := []struct {
		path string
		body any
	}{
		{path: "/interview/next", body: map[string]any{"answer": "x"}},
		{path: "/interview/next", body: "{not json"},
		{path: "/briefing", body: map[string]any{}},
		{path: "/reset", body: map[string]any{"session_id": ""}},
	}
	for _, tc := range cases {
		rr := doJSON(t, h, http.MethodPost, tc.path, tc.body, nil)
		if rr.Code != http.StatusUnprocessableEntity {
			t.Fatalf("%s %v: expected 422, got %d", tc.path, tc.body, rr.Code)
		}
	}

	rr := doJSON(t, h, http.MethodGet, "/sessions?limit=zero", nil, nil)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for bad limit, got %d", rr.Code)
	}
}

func TestAPITokenGuardsInterviewRoutes(t *testing.T) {
	svc := newTestService(t, func(cfg *ServiceConfig) { cfg.APIToken = "secret" })
	h := svc.Server().HTTPRouter()

	if rr := doJSON(t, h, http.MethodGet, "/health", nil, nil); rr.Code != http.StatusOK {
		t.Fatalf("health must stay open, got %d", rr.Code)
	}
	body := map[string]any{"session_id": "s"}
	if rr := doJSON(t, h, http.MethodPost, "/interview/next", body, nil); rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rr.Code)
	}
	rr := doJSON(t, h, http.MethodPost, "/interview/next", body, map[string]string{"Authorization": "Bearer secret"})
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 with token, got %d", rr.Code)
	}
}

func TestBriefingExport(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "briefings")
	svc := newTestService(t, func(cfg *ServiceConfig) { cfg.ExportDir = dir })
	h := svc.Server().HTTPRouter()

	rr := doJSON(t, h, http.MethodGet, "/exports", nil, nil)
	var exports struct {
		Enabled bool     `json:"enabled"`
		Exports []string `json:"exports"`
	}
	decode(t, rr, &exports)
	if !exports.Enabled || len(exports.Exports) != 0 {
		t.Fatalf("unexpected exports before briefing: %+v", exports)
	}

	doJSON(t, h, http.MethodPost, "/briefing", map[string]any{"session_id": "s-exp"}, nil)
	rr = doJSON(t, h, http.MethodGet, "/exports", nil, nil)
	decode(t, rr, &exports)
	if len(exports.Exports) != 1 || exports.Exports[0] != "s-exp" {
		t.Fatalf("unexpected exports: %+v", exports)
	}
}

func TestCORSAllowsAnyOriginByDefault(t *testing.T) {
	svc := newTestService(t, nil)
	h := svc.Server().HTTPRouter()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://localhost:8501")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("expected allow-all origin, got %q", got)
	}
}

func TestServeShutsDownOnCancel(t *testing.T) {
	svc := newTestService(t, nil)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Server().Serve(ctx, ln) }()

	url := "http://" + ln.Addr().String() + "/health"
	var resp *http.Response
	for i := 0; i < 50; i++ {
		resp, err = http.Get(url)
		if err == nil {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	if err != nil {
		t.Fatalf("server never answered: %v", err)
	}
	resp.Body.Close()

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("serve returned error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("serve did not return after cancel")
	}
}

func TestConfigValidation(t *testing.T) {
	cfg := DefaultServiceConfig()
	cfg.StoreKind = "redis"
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected unsupported store error")
	}
	cfg = ServiceConfig{}.WithDefaults()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}
	if cfg.DBPath != "data/app.db" || cfg.ListenAddr != "127.0.0.1:8010" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}
