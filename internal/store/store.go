// Package store is the append-only persistence log. Checkpoints are keyed by
// session identifier; the log is written at designated checkpoints and read
// back only at session resume.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/cartloop/cartloop/internal/types"
)

const schema = `
CREATE TABLE IF NOT EXISTS checkpoints (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id TEXT NOT NULL,
	checkpoint TEXT NOT NULL,
	payload    BLOB NOT NULL,
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_checkpoints_session ON checkpoints(session_id, id);
`

// Checkpoint is one row of the persistence log.
type Checkpoint struct {
	ID         int64
	SessionID  string
	Checkpoint string
	Payload    []byte
	CreatedAt  time.Time
}

// Store is a SQLite-backed append-only checkpoint log.
type Store struct {
	conn *sql.DB
	path string
}

// Open creates or opens the checkpoint store at path with WAL mode enabled.
// Use ":memory:" for an ephemeral store in tests.
func Open(path string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000", path)

	conn, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, types.WrapError(types.STORE_OPEN_FAILED, "open checkpoint store", err)
	}

	// A single writer keeps appends strictly ordered per session.
	conn.SetMaxOpenConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, types.WrapError(types.STORE_OPEN_FAILED, "ping checkpoint store", err)
	}

	if _, err := conn.ExecContext(ctx, schema); err != nil {
		conn.Close()
		return nil, types.WrapError(types.STORE_OPEN_FAILED, "create checkpoint schema", err)
	}

	return &Store{conn: conn, path: path}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.conn.Close()
}

// Append writes one checkpoint. Rows are never updated or deleted.
func (s *Store) Append(ctx context.Context, sessionID, checkpoint string, payload []byte) error {
	_, err := s.conn.ExecContext(ctx,
		`INSERT INTO checkpoints (session_id, checkpoint, payload, created_at) VALUES (?, ?, ?, ?)`,
		sessionID, checkpoint, payload, time.Now().UTC())
	if err != nil {
		return types.WrapError(types.STORE_APPEND_FAILED,
			fmt.Sprintf("append %s checkpoint for session %s", checkpoint, sessionID), err)
	}
	return nil
}

// Latest returns the most recent checkpoint for a session, or STORE_NOT_FOUND
// when the session has never checkpointed.
func (s *Store) Latest(ctx context.Context, sessionID string) (*Checkpoint, error) {
	row := s.conn.QueryRowContext(ctx,
		`SELECT id, session_id, checkpoint, payload, created_at
		 FROM checkpoints WHERE session_id = ? ORDER BY id DESC LIMIT 1`,
		sessionID)

	cp, err := scanCheckpoint(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, types.NewError(types.STORE_NOT_FOUND,
			fmt.Sprintf("no checkpoints for session %s", sessionID))
	}
	if err != nil {
		return nil, types.WrapError(types.STORE_QUERY_FAILED, "load latest checkpoint", err)
	}
	return cp, nil
}

// History returns every checkpoint for a session in append order.
func (s *Store) History(ctx context.Context, sessionID string) ([]*Checkpoint, error) {
	rows, err := s.conn.QueryContext(ctx,
		`SELECT id, session_id, checkpoint, payload, created_at
		 FROM checkpoints WHERE session_id = ? ORDER BY id ASC`,
		sessionID)
	if err != nil {
		return nil, types.WrapError(types.STORE_QUERY_FAILED, "load checkpoint history", err)
	}
	defer rows.Close()

	var history []*Checkpoint
	for rows.Next() {
		cp, err := scanCheckpoint(rows)
		if err != nil {
			return nil, types.WrapError(types.STORE_QUERY_FAILED, "scan checkpoint row", err)
		}
		history = append(history, cp)
	}
	if err := rows.Err(); err != nil {
		return nil, types.WrapError(types.STORE_QUERY_FAILED, "iterate checkpoint rows", err)
	}
	return history, nil
}

// Sessions returns the distinct session identifiers in the log, most recent
// first.
func (s *Store) Sessions(ctx context.Context) ([]string, error) {
	rows, err := s.conn.QueryContext(ctx,
		`SELECT session_id FROM checkpoints GROUP BY session_id ORDER BY MAX(id) DESC`)
	if err != nil {
		return nil, types.WrapError(types.STORE_QUERY_FAILED, "list sessions", err)
	}
	defer rows.Close()

	var sessions []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, types.WrapError(types.STORE_QUERY_FAILED, "scan session row", err)
		}
		sessions = append(sessions, id)
	}
	if err := rows.Err(); err != nil {
		return nil, types.WrapError(types.STORE_QUERY_FAILED, "iterate session rows", err)
	}
	return sessions, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCheckpoint(row rowScanner) (*Checkpoint, error) {
	var cp Checkpoint
	if err := row.Scan(&cp.ID, &cp.SessionID, &cp.Checkpoint, &cp.Payload, &cp.CreatedAt); err != nil {
		return nil, err
	}
	return &cp, nil
}
