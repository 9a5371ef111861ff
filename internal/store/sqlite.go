package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS interview_sessions (
	session_id   TEXT PRIMARY KEY,
	created_at   INTEGER NOT NULL,
	updated_at   INTEGER NOT NULL,
	answers_json TEXT,
	briefing_md  TEXT
);
CREATE INDEX IF NOT EXISTS idx_interview_sessions_updated ON interview_sessions(updated_at);
`

// SQLite persists records in a single sqlite database file.
type SQLite struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

var _ Store = (*SQLite)(nil)

// OpenSQLite opens (creating if missing) the database at path.
func OpenSQLite(path string) (*SQLite, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("store: sqlite path is required")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("store: create db dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	// one writer keeps sqlite from returning SQLITE_BUSY under concurrent upserts
	db.SetMaxOpenConns(1)

	s := &SQLite{db: db, path: path, now: time.Now}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Path returns the database file path.
func (s *SQLite) Path() string {
	return s.path
}

func (s *SQLite) initSchema() error {
	if _, err := s.db.Exec(`PRAGMA busy_timeout = 5000`); err != nil {
		return fmt.Errorf("store: pragma: %w", err)
	}
	if _, err := s.db.Exec(sqliteSchema); err != nil {
		return fmt.Errorf("store: init schema: %w", err)
	}
	return nil
}

func (s *SQLite) Upsert(ctx context.Context, sessionID string, answers json.RawMessage, briefing *string) error {
	id, err := normalizeID(sessionID)
	if err != nil {
		return err
	}
	now := s.now().UTC().UnixNano()

	var answersArg, briefingArg any
	if answers != nil {
		answersArg = string(answers)
	}
	if briefing != nil {
		briefingArg = *briefing
	}

	_, err = s.db.ExecContext(ctx, `
INSERT INTO interview_sessions (session_id, created_at, updated_at, answers_json, briefing_md)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(session_id) DO UPDATE SET
	updated_at   = excluded.updated_at,
	answers_json = COALESCE(excluded.answers_json, interview_sessions.answers_json),
	briefing_md  = COALESCE(excluded.briefing_md, interview_sessions.briefing_md)`,
		id, now, now, answersArg, briefingArg)
	if err != nil {
		return fmt.Errorf("store: upsert %s: %w", id, err)
	}
	return nil
}

func (s *SQLite) List(ctx context.Context, limit int) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT session_id, created_at, updated_at, answers_json, briefing_md
FROM interview_sessions
ORDER BY updated_at DESC, session_id ASC
LIMIT ?`, normalizeLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("store: list: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: list: %w", err)
	}
	return out, nil
}

func (s *SQLite) Get(ctx context.Context, sessionID string) (Record, error) {
	id, err := normalizeID(sessionID)
	if err != nil {
		return Record{}, err
	}
	row := s.db.QueryRowContext(ctx, `
SELECT session_id, created_at, updated_at, answers_json, briefing_md
FROM interview_sessions
WHERE session_id = ?`, id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	return rec, err
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (Record, error) {
	var (
		rec      Record
		created  int64
		updated  int64
		answers  sql.NullString
		briefing sql.NullString
	)
	if err := row.Scan(&rec.SessionID, &created, &updated, &answers, &briefing); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Record{}, err
		}
		return Record{}, fmt.Errorf("store: scan: %w", err)
	}
	rec.CreatedAt = time.Unix(0, created).UTC()
	rec.UpdatedAt = time.Unix(0, updated).UTC()
	if answers.Valid {
		rec.Answers = json.RawMessage(answers.String)
	}
	if briefing.Valid {
		md := briefing.String
		rec.BriefingMD = &md
	}
	return rec, nil
}
