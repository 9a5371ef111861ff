package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/danmuck/briefctl/internal/auth"
	"github.com/danmuck/briefctl/internal/briefing"
	"github.com/danmuck/briefctl/internal/export"
	"github.com/danmuck/briefctl/internal/interview"
	"github.com/danmuck/briefctl/internal/observability"
	"github.com/danmuck/briefctl/internal/store"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

// BriefingRequest addresses one session.
type BriefingRequest struct {
	SessionID string `json:"session_id" binding:"required"`
}

// BriefingResponse carries generated markdown.
type BriefingResponse struct {
	Markdown string `json:"markdown"`
}

// Server is the interview HTTP API.
type Server struct {
	ID       string
	Addr     string
	Appeared time.Time

	engine          *interview.Engine
	store           store.Store
	exports         *export.Dir
	validator       auth.Validator
	listLimit       int
	shutdownTimeout time.Duration

	router *gin.Engine
}

// Appear builds a server with middleware installed and no routes yet.
func Appear(cfg ServiceConfig, engine *interview.Engine, st store.Store) *Server {
	cfg = cfg.WithDefaults()
	observability.RegisterMetrics()

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(observability.RequestID())
	r.Use(observability.RequestLogger(log.Logger))
	r.Use(observability.RequestMetricsMiddleware(cfg.ID))
	r.Use(cors.New(corsConfig(cfg.CORSOrigins)))
	_ = r.SetTrustedProxies([]string{"127.0.0.1", "::1"})

	s := &Server{
		ID:              cfg.ID,
		Addr:            cfg.ListenAddr,
		Appeared:        time.Now(),
		engine:          engine,
		store:           st,
		listLimit:       cfg.SessionListLimit,
		shutdownTimeout: cfg.ShutdownTimeout,
		router:          r,
	}
	if token := strings.TrimSpace(cfg.APIToken); token != "" {
		s.validator = auth.StaticToken{Token: token}
	}
	if dir := strings.TrimSpace(cfg.ExportDir); dir != "" {
		d := export.NewDir(dir)
		s.exports = &d
	}
	return s
}

func (s *Server) HTTPRouter() *gin.Engine {
	return s.router
}

func (s *Server) RegisterRoutes() {
	r := s.router
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"uptime":  time.Since(s.Appeared).String(),
			"service": s.ID,
			"version": Version,
		})
	})

	r.GET("/ready", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"ready":     true,
			"uptime":    time.Since(s.Appeared).String(),
			"service":   s.ID,
			"version":   Version,
			"questions": s.engine.Tree().Len(),
			"sessions":  s.engine.ActiveSessions(),
		})
	})

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/", auth.Middleware(s.validator))
	api.POST("/interview/next", s.handleNext)
	api.POST("/briefing", s.handleBriefing)
	api.GET("/briefing/:session_id", s.handleBriefingDocument)
	api.POST("/reset", s.handleReset)
	api.GET("/sessions", s.handleListSessions)
	api.GET("/sessions/:session_id", s.handleGetSession)
	api.GET("/exports", s.handleListExports)
}

func (s *Server) handleNext(c *gin.Context) {
	var req interview.NextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		unprocessable(c, err)
		return
	}
	resp, err := s.engine.Next(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, interview.ErrMissingSessionID) {
			unprocessable(c, err)
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleBriefing(c *gin.Context) {
	var req BriefingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		unprocessable(c, err)
		return
	}
	md, ok := s.briefing(c, req.SessionID)
	if !ok {
		return
	}
	observability.RecordBriefing("markdown")
	s.export(req.SessionID, md)
	c.JSON(http.StatusOK, BriefingResponse{Markdown: md})
}

// handleBriefingDocument serves the briefing as a document: markdown by
// default, a standalone HTML page with ?format=html.
func (s *Server) handleBriefingDocument(c *gin.Context) {
	sessionID := c.Param("session_id")
	md, ok := s.briefing(c, sessionID)
	if !ok {
		return
	}
	switch strings.ToLower(c.DefaultQuery("format", "md")) {
	case "md", "markdown":
		observability.RecordBriefing("markdown")
		c.Data(http.StatusOK, "text/markdown; charset=utf-8", []byte(md))
	case "html":
		fragment, err := briefing.RenderHTML(md)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		observability.RecordBriefing("html")
		page := briefing.HTMLPage("Briefing "+sessionID, fragment)
		c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(page))
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported format (expected md or html)"})
	}
}

func (s *Server) handleReset(c *gin.Context) {
	var req BriefingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		unprocessable(c, err)
		return
	}
	if err := s.engine.Reset(c.Request.Context(), req.SessionID); err != nil {
		unprocessable(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (s *Server) handleListSessions(c *gin.Context) {
	limit := s.listLimit
	if raw := strings.TrimSpace(c.Query("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			unprocessable(c, errors.New("limit must be a positive integer"))
			return
		}
		limit = n
	}
	records, err := s.store.List(c.Request.Context(), limit)
	if err != nil {
		observability.RecordStoreError("list")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if records == nil {
		records = []store.Record{}
	}
	c.JSON(http.StatusOK, gin.H{"sessions": records})
}

func (s *Server) handleGetSession(c *gin.Context) {
	rec, err := s.store.Get(c.Request.Context(), c.Param("session_id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) || errors.Is(err, store.ErrInvalidSessionID) {
			c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
			return
		}
		observability.RecordStoreError("get")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (s *Server) handleListExports(c *gin.Context) {
	if s.exports == nil {
		c.JSON(http.StatusOK, gin.H{"enabled": false, "exports": []string{}})
		return
	}
	ids, err := s.exports.List()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"enabled": true, "exports": ids})
}

func (s *Server) briefing(c *gin.Context, sessionID string) (string, bool) {
	md, err := s.engine.Briefing(c.Request.Context(), sessionID)
	if err != nil {
		if errors.Is(err, interview.ErrMissingSessionID) {
			unprocessable(c, err)
			return "", false
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return "", false
	}
	return md, true
}

func (s *Server) export(sessionID, md string) {
	if s.exports == nil {
		return
	}
	path, err := s.exports.Write(sessionID, md)
	if err != nil {
		log.Error().Err(err).Str("session_id", sessionID).Msg("briefing export failed")
		return
	}
	log.Info().Str("session_id", sessionID).Str("path", path).Msg("briefing exported")
}

// Serve blocks serving on ln until ctx is cancelled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.Serve(ln)
	}()
	log.Info().Str("service", s.ID).Str("addr", ln.Addr().String()).Msg("briefctl listening")

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()
	log.Info().Str("service", s.ID).Msg("briefctl shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-serveErr; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func unprocessable(c *gin.Context, err error) {
	c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Authorization", observability.HeaderRequestID},
		MaxAge:       12 * time.Hour,
	}
	allowed := make([]string, 0, len(origins))
	for _, o := range origins {
		o = strings.TrimSpace(o)
		if o == "*" {
			cfg.AllowAllOrigins = true
			return cfg
		}
		if o != "" {
			allowed = append(allowed, o)
		}
	}
	if len(allowed) == 0 {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = allowed
	return cfg
}
