package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/danmuck/briefctl/internal/interview"
	"github.com/danmuck/briefctl/internal/server"
	"github.com/danmuck/briefctl/internal/store"
	"github.com/danmuck/briefctl/internal/testutil/testlog"
	"github.com/gin-gonic/gin"
)

func newBackend(t *testing.T, token string) *httptest.Server {
	t.Helper()
	testlog.Start(t)
	gin.SetMode(gin.TestMode)
	cfg := server.DefaultServiceConfig()
	cfg.StoreKind = store.KindMemory
	cfg.APIToken = token
	svc, err := server.NewService(cfg)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	ts := httptest.NewServer(svc.Server().HTTPRouter())
	t.Cleanup(func() {
		ts.Close()
		_ = svc.Close()
	})
	return ts
}

func strp(s string) *string { return &s }

func TestClientInterviewRoundTrip(t *testing.T) {
	ts := newBackend(t, "")
	c := New(ts.URL + "/")
	ctx := context.Background()

	h, err := c.Health(ctx)
	if err != nil || h.Status != "ok" {
		t.Fatalf("health: %+v err=%v", h, err)
	}

	resp, err := c.Next(ctx, interview.NextRequest{SessionID: "c1"})
	if err != nil {
		t.Fatalf("first next: %v", err)
	}
	if resp.NextID == nil || *resp.NextID != "start" {
		t.Fatalf("unexpected first step: %+v", resp)
	}
	resp, err = c.Next(ctx, interview.NextRequest{SessionID: "c1", CurrentID: resp.NextID, Answer: strp("Projeto X")})
	if err != nil || resp.Done {
		t.Fatalf("second next: %+v err=%v", resp, err)
	}

	md, err := c.Briefing(ctx, "c1")
	if err != nil || !strings.Contains(md, "Projeto X") {
		t.Fatalf("briefing: %q err=%v", md, err)
	}
	page, err := c.BriefingHTML(ctx, "c1")
	if err != nil || !strings.Contains(page, "Projeto X") {
		t.Fatalf("briefing html: err=%v", err)
	}

	records, err := c.Sessions(ctx, 5)
	if err != nil || len(records) != 1 {
		t.Fatalf("sessions: %+v err=%v", records, err)
	}
	rec, err := c.Session(ctx, "c1")
	if err != nil || rec.SessionID != "c1" || rec.BriefingMD == nil {
		t.Fatalf("session: %+v err=%v", rec, err)
	}

	if err := c.Reset(ctx, "c1"); err != nil {
		t.Fatalf("reset: %v", err)
	}
	md, err = c.Briefing(ctx, "c1")
	if err != nil || !strings.Contains(md, "_Nenhuma resposta registrada nesta sessão._") {
		t.Fatalf("briefing after reset: %q err=%v", md, err)
	}
	testlog.Logf("client: round trip against live router ok")
}

func TestClientSurfacesAPIError(t *testing.T) {
	ts := newBackend(t, "")
	c := New(ts.URL)

	_, err := c.Session(context.Background(), "missing")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Status != http.StatusNotFound || !strings.Contains(apiErr.Body, "session not found") {
		t.Fatalf("unexpected api error: %+v", apiErr)
	}

	_, err = c.Next(context.Background(), interview.NextRequest{})
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %v", err)
	}
}

func TestClientSendsBearerToken(t *testing.T) {
	ts := newBackend(t, "tok")
	c := New(ts.URL)

	_, err := c.Sessions(context.Background(), 0)
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %v", err)
	}
	c.Token = "tok"
	if _, err := c.Sessions(context.Background(), 0); err != nil {
		t.Fatalf("expected success with token: %v", err)
	}
}

func TestClientRequiresBaseURL(t *testing.T) {
	c := &Client{}
	if _, err := c.Health(context.Background()); !errors.Is(err, ErrMissingBaseURL) {
		t.Fatalf("expected ErrMissingBaseURL, got %v", err)
	}
}
