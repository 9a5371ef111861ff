package server

import (
	"fmt"
	"strings"
	"time"

	"github.com/danmuck/briefctl/internal/store"
)

// Version is reported by /health and /ready.
const Version = "0.2.0"

// ServiceConfig configures the interview HTTP backend.
type ServiceConfig struct {
	ID               string
	ListenAddr       string
	QuestionsPath    string
	StoreKind        string
	DBPath           string
	CORSOrigins      []string
	APIToken         string
	ExportDir        string
	SessionListLimit int
	ShutdownTimeout  time.Duration
}

// DefaultServiceConfig mirrors the local development conventions.
func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		ID:               "briefctl",
		ListenAddr:       "127.0.0.1:8010",
		QuestionsPath:    "",
		StoreKind:        store.KindSQLite,
		DBPath:           "data/app.db",
		CORSOrigins:      []string{"*"},
		APIToken:         "",
		ExportDir:        "",
		SessionListLimit: store.DefaultListLimit,
		ShutdownTimeout:  5 * time.Second,
	}
}

// WithDefaults fills zero-valued fields from DefaultServiceConfig.
func (c ServiceConfig) WithDefaults() ServiceConfig {
	def := DefaultServiceConfig()
	if strings.TrimSpace(c.ID) == "" {
		c.ID = def.ID
	}
	if strings.TrimSpace(c.ListenAddr) == "" {
		c.ListenAddr = def.ListenAddr
	}
	if strings.TrimSpace(c.StoreKind) == "" {
		c.StoreKind = def.StoreKind
	}
	if strings.TrimSpace(c.DBPath) == "" && c.StoreKind == store.KindSQLite {
		c.DBPath = def.DBPath
	}
	if len(c.CORSOrigins) == 0 {
		c.CORSOrigins = def.CORSOrigins
	}
	if c.SessionListLimit <= 0 {
		c.SessionListLimit = def.SessionListLimit
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = def.ShutdownTimeout
	}
	return c
}

// Validate rejects configurations the service cannot start with.
func (c ServiceConfig) Validate() error {
	if strings.TrimSpace(c.ID) == "" {
		return fmt.Errorf("server config missing id")
	}
	if strings.TrimSpace(c.ListenAddr) == "" {
		return fmt.Errorf("server config missing listen addr")
	}
	switch c.StoreKind {
	case store.KindSQLite:
		if strings.TrimSpace(c.DBPath) == "" {
			return fmt.Errorf("server config missing db path for sqlite store")
		}
	case store.KindMemory:
	default:
		return fmt.Errorf("server config: unsupported store %q (expected sqlite or memory)", c.StoreKind)
	}
	return nil
}
