package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/danmuck/briefctl/internal/server"
	"github.com/kelseyhightower/envconfig"
)

const envPrefix = "BRIEFCTL"

type fileConfig struct {
	ID               string   `toml:"id"`
	Addr             string   `toml:"addr"`
	Store            string   `toml:"store"`
	DBPath           string   `toml:"db_path"`
	QuestionsPath    string   `toml:"questions_path"`
	CORSOrigins      []string `toml:"cors_origins"`
	APIToken         string   `toml:"api_token"`
	ExportDir        string   `toml:"export_dir"`
	SessionListLimit int      `toml:"session_list_limit"`
	ShutdownTimeout  string   `toml:"shutdown_timeout"`
}

// envOverrides are read from BRIEFCTL_* variables after the file is applied.
type envOverrides struct {
	Addr          string `envconfig:"ADDR"`
	Store         string `envconfig:"STORE"`
	DBPath        string `envconfig:"DB_PATH"`
	QuestionsPath string `envconfig:"QUESTIONS_PATH"`
	APIToken      string `envconfig:"API_TOKEN"`
	ExportDir     string `envconfig:"EXPORT_DIR"`
}

func loadServiceConfig(path string) (server.ServiceConfig, error) {
	cfg := server.DefaultServiceConfig()
	if strings.TrimSpace(path) != "" {
		if err := applyFile(path, &cfg); err != nil {
			return server.ServiceConfig{}, err
		}
	}
	if err := applyEnv(&cfg); err != nil {
		return server.ServiceConfig{}, err
	}
	return cfg, nil
}

func applyFile(path string, cfg *server.ServiceConfig) error {
	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return fmt.Errorf("load briefctl config: %w", err)
	}

	if meta.IsDefined("id") {
		if id := strings.TrimSpace(raw.ID); id != "" {
			cfg.ID = id
		}
	}
	if meta.IsDefined("addr") {
		cfg.ListenAddr = strings.TrimSpace(raw.Addr)
	}
	if meta.IsDefined("store") {
		cfg.StoreKind = strings.TrimSpace(raw.Store)
	}
	if meta.IsDefined("db_path") {
		cfg.DBPath = strings.TrimSpace(raw.DBPath)
	}
	if meta.IsDefined("questions_path") {
		cfg.QuestionsPath = strings.TrimSpace(raw.QuestionsPath)
	}
	if meta.IsDefined("cors_origins") {
		cfg.CORSOrigins = normalizeOrigins(raw.CORSOrigins)
	}
	if meta.IsDefined("api_token") {
		cfg.APIToken = strings.TrimSpace(raw.APIToken)
	}
	if meta.IsDefined("export_dir") {
		cfg.ExportDir = strings.TrimSpace(raw.ExportDir)
	}
	if meta.IsDefined("session_list_limit") {
		cfg.SessionListLimit = raw.SessionListLimit
	}
	if meta.IsDefined("shutdown_timeout") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.ShutdownTimeout))
		if err != nil {
			return fmt.Errorf("parse shutdown_timeout: %w", err)
		}
		cfg.ShutdownTimeout = d
	}
	return nil
}

func applyEnv(cfg *server.ServiceConfig) error {
	env := envOverrides{
		Addr:          cfg.ListenAddr,
		Store:         cfg.StoreKind,
		DBPath:        cfg.DBPath,
		QuestionsPath: cfg.QuestionsPath,
		APIToken:      cfg.APIToken,
		ExportDir:     cfg.ExportDir,
	}
	if err := envconfig.Process(envPrefix, &env); err != nil {
		return fmt.Errorf("process env overrides: %w", err)
	}
	cfg.ListenAddr = strings.TrimSpace(env.Addr)
	cfg.StoreKind = strings.TrimSpace(env.Store)
	cfg.DBPath = strings.TrimSpace(env.DBPath)
	cfg.QuestionsPath = strings.TrimSpace(env.QuestionsPath)
	cfg.APIToken = strings.TrimSpace(env.APIToken)
	cfg.ExportDir = strings.TrimSpace(env.ExportDir)
	return nil
}

func normalizeOrigins(in []string) []string {
	out := make([]string, 0, len(in))
	for _, origin := range in {
		v := strings.TrimSpace(origin)
		if v == "" {
			continue
		}
		out = append(out, v)
	}
	return out
}
