// Package client is the HTTP client for the briefctl interview API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/danmuck/briefctl/internal/interview"
	"github.com/danmuck/briefctl/internal/store"
)

const (
	DefaultBaseURL = "http://127.0.0.1:8010"
	EnvBackendURL  = "BACKEND_URL"
)

var ErrMissingBaseURL = errors.New("client: missing base url")

// APIError is returned for any non-2xx response.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status=%d body=%s", e.Status, strings.TrimSpace(e.Body))
}

// Health is the /health payload.
type Health struct {
	Status  string `json:"status"`
	Service string `json:"service"`
	Version string `json:"version"`
	Uptime  string `json:"uptime"`
}

// Client talks to one backend.
type Client struct {
	BaseURL string
	Token   string
	HTTP    *http.Client
}

// New returns a client for baseURL with a bounded request timeout.
func New(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		HTTP:    &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *Client) Health(ctx context.Context) (Health, error) {
	var out Health
	err := c.do(ctx, http.MethodGet, "/health", nil, &out)
	return out, err
}

func (c *Client) Next(ctx context.Context, req interview.NextRequest) (interview.NextResponse, error) {
	var out interview.NextResponse
	err := c.do(ctx, http.MethodPost, "/interview/next", req, &out)
	return out, err
}

func (c *Client) Reset(ctx context.Context, sessionID string) error {
	var out struct {
		OK bool `json:"ok"`
	}
	return c.do(ctx, http.MethodPost, "/reset", map[string]string{"session_id": sessionID}, &out)
}

// Briefing generates the markdown briefing for a session.
func (c *Client) Briefing(ctx context.Context, sessionID string) (string, error) {
	var out struct {
		Markdown string `json:"markdown"`
	}
	if err := c.do(ctx, http.MethodPost, "/briefing", map[string]string{"session_id": sessionID}, &out); err != nil {
		return "", err
	}
	return out.Markdown, nil
}

// BriefingHTML fetches the rendered HTML page for a session.
func (c *Client) BriefingHTML(ctx context.Context, sessionID string) (string, error) {
	path := "/briefing/" + url.PathEscape(sessionID) + "?format=html"
	body, err := c.raw(ctx, http.MethodGet, path, nil)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

func (c *Client) Sessions(ctx context.Context, limit int) ([]store.Record, error) {
	path := "/sessions"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var out struct {
		Sessions []store.Record `json:"sessions"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Sessions, nil
}

func (c *Client) Session(ctx context.Context, sessionID string) (store.Record, error) {
	var out store.Record
	err := c.do(ctx, http.MethodGet, "/sessions/"+url.PathEscape(sessionID), nil, &out)
	return out, err
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}
	raw, err := c.raw(ctx, method, path, body)
	if err != nil {
		return err
	}
	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

func (c *Client) raw(ctx context.Context, method, path string, body io.Reader) ([]byte, error) {
	if strings.TrimSpace(c.BaseURL) == "" {
		return nil, ErrMissingBaseURL
	}
	req, err := http.NewRequestWithContext(ctx, method, strings.TrimRight(c.BaseURL, "/")+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	httpClient := c.HTTP
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &APIError{Status: resp.StatusCode, Body: string(data)}
	}
	return data, nil
}
