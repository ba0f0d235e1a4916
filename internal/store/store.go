// Package store keeps a local history of conversion sessions in SQLite, so
// past runs can be listed and their generated code reopened without the
// backend.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // pure Go driver

	"github.com/morahq/mora/internal/session"
)

const schemaVersion = 1

// ErrNotFound marks a session id with no history record.
var ErrNotFound = errors.New("store: session not found")

// Record is one archived session.
type Record struct {
	SessionID string
	VideoURL  string
	Language  string
	Status    session.Status
	Code      string
	Segments  int
	Err       string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Store is the SQLite-backed session history.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the history database at path and runs migrations.
// The PRAGMAs ride in the DSN so they apply to every pooled connection.
func Open(path string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(%d)&_pragma=synchronous(NORMAL)&_pragma=foreign_keys(ON)",
		path, (5 * time.Second).Milliseconds())

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open failed: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: ping failed: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: migration failed: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	var current int
	if err := s.db.QueryRow("PRAGMA user_version").Scan(&current); err != nil {
		return err
	}
	if current >= schemaVersion {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		session_id TEXT PRIMARY KEY,
		video_url TEXT NOT NULL,
		language TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		code TEXT NOT NULL DEFAULT '',
		segments_json TEXT NOT NULL DEFAULT '[]',
		error TEXT NOT NULL DEFAULT '',
		created_at_ms INTEGER NOT NULL,
		updated_at_ms INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_sessions_updated ON sessions(updated_at_ms);
	`
	if _, err := tx.Exec(schema); err != nil {
		return err
	}
	if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", schemaVersion)); err != nil {
		return err
	}
	return tx.Commit()
}

// Save upserts the snapshot into the history. CreatedAt is preserved for
// existing records.
func (s *Store) Save(ctx context.Context, snap session.Snapshot) error {
	segments, err := json.Marshal(snap.Segments)
	if err != nil {
		return fmt.Errorf("store: encode segments: %w", err)
	}

	now := time.Now().UnixMilli()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO sessions (session_id, video_url, language, status, code, segments_json, error, created_at_ms, updated_at_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(session_id) DO UPDATE SET
			video_url = excluded.video_url,
			language = excluded.language,
			status = excluded.status,
			code = excluded.code,
			segments_json = excluded.segments_json,
			error = excluded.error,
			updated_at_ms = excluded.updated_at_ms
	`, snap.ID, snap.VideoURL, snap.Language, string(snap.Status), snap.Code, string(segments), snap.Err, now, now)
	if err != nil {
		return fmt.Errorf("store: save session %s: %w", snap.ID, err)
	}
	return nil
}

// Get returns one archived session.
func (s *Store) Get(ctx context.Context, sessionID string) (Record, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT session_id, video_url, language, status, code, segments_json, error, created_at_ms, updated_at_ms
		FROM sessions WHERE session_id = ?
	`, sessionID)

	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, fmt.Errorf("%w: %s", ErrNotFound, sessionID)
	}
	if err != nil {
		return Record{}, fmt.Errorf("store: get session %s: %w", sessionID, err)
	}
	return rec, nil
}

// List returns archived sessions, most recently updated first.
func (s *Store) List(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT session_id, video_url, language, status, code, segments_json, error, created_at_ms, updated_at_ms
		FROM sessions ORDER BY updated_at_ms DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("store: list sessions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("store: scan session: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Delete removes one archived session. Deleting an unknown id is not an
// error.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM sessions WHERE session_id = ?", sessionID)
	if err != nil {
		return fmt.Errorf("store: delete session %s: %w", sessionID, err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (Record, error) {
	var (
		rec          Record
		status       string
		segmentsJSON string
		createdMS    int64
		updatedMS    int64
	)
	err := row.Scan(&rec.SessionID, &rec.VideoURL, &rec.Language, &status, &rec.Code, &segmentsJSON, &rec.Err, &createdMS, &updatedMS)
	if err != nil {
		return Record{}, err
	}

	rec.Status = session.Status(status)
	rec.CreatedAt = time.UnixMilli(createdMS)
	rec.UpdatedAt = time.UnixMilli(updatedMS)

	var segs []json.RawMessage
	if json.Unmarshal([]byte(segmentsJSON), &segs) == nil {
		rec.Segments = len(segs)
	}
	return rec, nil
}
