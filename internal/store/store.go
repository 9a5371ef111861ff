// Package store persists interview session records.
//
// A record holds the answers recorded so far and the last generated
// briefing. Upserts only overwrite the fields they carry.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// DefaultListLimit bounds List when the caller passes no limit.
const DefaultListLimit = 20

const (
	KindSQLite = "sqlite"
	KindMemory = "memory"
)

var (
	ErrNotFound         = errors.New("store: session not found")
	ErrInvalidSessionID = errors.New("store: invalid session id")
	ErrUnknownKind      = errors.New("store: unknown store kind")
)

// Record is one persisted interview session.
type Record struct {
	SessionID  string          `json:"session_id"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
	Answers    json.RawMessage `json:"answers_json,omitempty"`
	BriefingMD *string         `json:"briefing_md,omitempty"`
}

// Store is the persistence boundary used by the interview engine.
type Store interface {
	// Upsert creates the record or bumps updated_at, replacing only non-nil fields.
	Upsert(ctx context.Context, sessionID string, answers json.RawMessage, briefing *string) error
	// List returns records newest-updated first.
	List(ctx context.Context, limit int) ([]Record, error)
	// Get returns ErrNotFound when the session was never persisted.
	Get(ctx context.Context, sessionID string) (Record, error)
	Close() error
}

// Open builds a store of the named kind. path is ignored for memory stores.
func Open(kind, path string) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case KindMemory:
		return NewMemory(), nil
	case KindSQLite, "":
		return OpenSQLite(path)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
}

// normalizeID rejects empty ids. Ids are otherwise kept verbatim, so
// " s1" and "s1" are distinct sessions.
func normalizeID(sessionID string) (string, error) {
	if sessionID == "" {
		return "", ErrInvalidSessionID
	}
	return sessionID, nil
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	return limit
}
