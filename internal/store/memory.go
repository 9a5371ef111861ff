package store

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"
)

// Memory is an in-process Store for development and tests.
type Memory struct {
	mu    sync.RWMutex
	items map[string]Record
	now   func() time.Time
}

var _ Store = (*Memory)(nil)

// NewMemory constructs an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		items: make(map[string]Record),
		now:   time.Now,
	}
}

func (m *Memory) Upsert(_ context.Context, sessionID string, answers json.RawMessage, briefing *string) error {
	id, err := normalizeID(sessionID)
	if err != nil {
		return err
	}
	now := m.now().UTC()

	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.items[id]
	if !ok {
		rec = Record{SessionID: id, CreatedAt: now}
	}
	rec.UpdatedAt = now
	if answers != nil {
		rec.Answers = append(json.RawMessage(nil), answers...)
	}
	if briefing != nil {
		md := *briefing
		rec.BriefingMD = &md
	}
	m.items[id] = rec
	return nil
}

func (m *Memory) List(_ context.Context, limit int) ([]Record, error) {
	limit = normalizeLimit(limit)
	m.mu.RLock()
	out := make([]Record, 0, len(m.items))
	for _, rec := range m.items {
		out = append(out, copyRecord(rec))
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].SessionID < out[j].SessionID
		}
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *Memory) Get(_ context.Context, sessionID string) (Record, error) {
	id, err := normalizeID(sessionID)
	if err != nil {
		return Record{}, err
	}
	m.mu.RLock()
	rec, ok := m.items[id]
	m.mu.RUnlock()
	if !ok {
		return Record{}, ErrNotFound
	}
	return copyRecord(rec), nil
}

func (m *Memory) Close() error {
	return nil
}

func copyRecord(rec Record) Record {
	out := rec
	if rec.Answers != nil {
		out.Answers = append(json.RawMessage(nil), rec.Answers...)
	}
	if rec.BriefingMD != nil {
		md := *rec.BriefingMD
		out.BriefingMD = &md
	}
	return out
}
