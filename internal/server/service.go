package server

import (
	"context"
	"fmt"
	"net"
	"os/signal"
	"strings"
	"syscall"

	"github.com/danmuck/briefctl/internal/interview"
	"github.com/danmuck/briefctl/internal/questions"
	"github.com/danmuck/briefctl/internal/store"
	"github.com/rs/zerolog/log"
)

// Service wires question tree, store, engine and HTTP server.
type Service struct {
	cfg    ServiceConfig
	store  store.Store
	engine *interview.Engine
	server *Server
}

// NewService builds a service from cfg, opening the store and loading the tree.
func NewService(cfg ServiceConfig) (*Service, error) {
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	tree, err := loadTree(cfg.QuestionsPath)
	if err != nil {
		return nil, err
	}
	for _, ref := range tree.Dangling() {
		log.Warn().
			Str("from", ref.From).
			Str("via", ref.Via).
			Str("target", ref.Target).
			Msg("question tree references an undefined node")
	}

	st, err := store.Open(cfg.StoreKind, cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	engine := interview.NewEngine(tree, interview.WithStore(st))
	srv := Appear(cfg, engine, st)
	srv.RegisterRoutes()

	log.Info().
		Str("service", cfg.ID).
		Str("store", cfg.StoreKind).
		Str("db_path", cfg.DBPath).
		Int("questions", tree.Len()).
		Bool("auth", strings.TrimSpace(cfg.APIToken) != "").
		Str("export_dir", cfg.ExportDir).
		Msg("briefctl service configured")

	return &Service{cfg: cfg, store: st, engine: engine, server: srv}, nil
}

func loadTree(path string) (*questions.Tree, error) {
	if strings.TrimSpace(path) == "" {
		return questions.Default()
	}
	return questions.LoadFile(path)
}

// Server returns the HTTP boundary.
func (s *Service) Server() *Server {
	return s.server
}

// Engine returns the interview engine.
func (s *Service) Engine() *interview.Engine {
	return s.engine
}

// Config returns the resolved configuration.
func (s *Service) Config() ServiceConfig {
	return s.cfg
}

// Run blocks until SIGINT/SIGTERM, then shuts down and closes the store.
func (s *Service) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return s.ListenAndServe(ctx)
}

// ListenAndServe binds the configured address and serves until ctx ends.
func (s *Service) ListenAndServe(ctx context.Context) error {
	defer s.Close()
	ln, err := net.Listen("tcp", s.cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.cfg.ListenAddr, err)
	}
	return s.server.Serve(ctx, ln)
}

// Close releases the store.
func (s *Service) Close() error {
	if s.store == nil {
		return nil
	}
	return s.store.Close()
}
