package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/adamwahada/WorldMapQuiz/internal/quiz"
)

// DocStore implements Store on the sessions table: one JSONB document per
// session plus the indexed columns queries need (code, status, version,
// due_at).
type DocStore struct {
	db  *sql.DB
	now func() time.Time
}

func NewDocStore(db *sql.DB) *DocStore {
	return &DocStore{db: db, now: time.Now}
}

func (s *DocStore) Create(ctx context.Context, sess quiz.Session, q Quota) (quiz.Session, error) {
	if sess.ID == "" {
		sess.ID = uuid.NewString()
	}
	sess.Version = 1

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return quiz.Session{}, err
	}
	defer tx.Rollback()

	if q.Limit > 0 {
		var n int
		err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM session_creations WHERE player_id = ? AND created_at > ?`,
			sess.OwnerID, q.Since.UnixMilli(),
		).Scan(&n)
		if err != nil {
			return quiz.Session{}, fmt.Errorf("counting creations: %w", err)
		}
		if n >= q.Limit {
			return quiz.Session{}, ErrQuotaExceeded
		}
	}

	data, err := json.Marshal(sess)
	if err != nil {
		return quiz.Session{}, err
	}
	now := s.now().UnixMilli()
	_, err = tx.ExecContext(ctx,
		`INSERT INTO sessions (id, code, owner_id, status, version, due_at, created_at, updated_at, data)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, jsonb(?))`,
		sess.ID, sess.Code, sess.OwnerID, string(sess.Status), sess.Version,
		dueAt(sess), sess.CreatedAt.UnixMilli(), now, string(data),
	)
	if isUniqueViolation(err) {
		return quiz.Session{}, ErrCodeTaken
	}
	if err != nil {
		return quiz.Session{}, fmt.Errorf("inserting session: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO session_creations (player_id, session_id, created_at) VALUES (?, ?, ?)`,
		sess.OwnerID, sess.ID, sess.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return quiz.Session{}, fmt.Errorf("recording creation: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return quiz.Session{}, err
	}
	return sess, nil
}

func (s *DocStore) Get(ctx context.Context, id string) (quiz.Session, error) {
	return s.getOne(ctx, `SELECT json(data) FROM sessions WHERE id = ?`, id)
}

// GetByCode prefers the live session holding code; a finished session is
// returned only when no live one exists.
func (s *DocStore) GetByCode(ctx context.Context, code string) (quiz.Session, error) {
	return s.getOne(ctx,
		`SELECT json(data) FROM sessions WHERE code = ?
		 ORDER BY status = 'finished', created_at DESC LIMIT 1`, code)
}

func (s *DocStore) getOne(ctx context.Context, query string, args ...any) (quiz.Session, error) {
	var data string
	err := s.db.QueryRowContext(ctx, query, args...).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return quiz.Session{}, ErrNotFound
	}
	if err != nil {
		return quiz.Session{}, err
	}
	var sess quiz.Session
	if err := json.Unmarshal([]byte(data), &sess); err != nil {
		return quiz.Session{}, fmt.Errorf("decoding session: %w", err)
	}
	return sess, nil
}

func (s *DocStore) Update(ctx context.Context, sess quiz.Session) (quiz.Session, error) {
	expected := sess.Version
	sess.Version++

	data, err := json.Marshal(sess)
	if err != nil {
		return quiz.Session{}, err
	}
	result, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET status = ?, version = ?, due_at = ?, updated_at = ?, data = jsonb(?)
		 WHERE id = ? AND version = ?`,
		string(sess.Status), sess.Version, dueAt(sess), s.now().UnixMilli(), string(data),
		sess.ID, expected,
	)
	if err != nil {
		return quiz.Session{}, fmt.Errorf("updating session: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 1 {
		return sess, nil
	}
	return quiz.Session{}, s.missedWrite(ctx, sess.ID)
}

// Delete removes the session if it is still at version.
func (s *DocStore) Delete(ctx context.Context, id string, version int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ? AND version = ?`, id, version)
	if err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 1 {
		return nil
	}
	return s.missedWrite(ctx, id)
}

// missedWrite tells apart a vanished row from a stale version after a
// guarded write touched nothing.
func (s *DocStore) missedWrite(ctx context.Context, id string) error {
	var exists int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM sessions WHERE id = ?`, id).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	return ErrVersionConflict
}

// ListDue returns ids of sessions with a timer due at or before now, oldest
// deadline first.
func (s *DocStore) ListDue(ctx context.Context, now time.Time, limit int) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id FROM sessions WHERE due_at IS NOT NULL AND due_at <= ? ORDER BY due_at LIMIT ?`,
		now.UnixMilli(), limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ListLive returns sessions that have not finished, newest first.
func (s *DocStore) ListLive(ctx context.Context, limit int) ([]quiz.Session, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT json(data) FROM sessions WHERE status != 'finished' ORDER BY created_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []quiz.Session
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var sess quiz.Session
		if err := json.Unmarshal([]byte(data), &sess); err != nil {
			return nil, fmt.Errorf("decoding session: %w", err)
		}
		out = append(out, sess)
	}
	return out, rows.Err()
}

func (s *DocStore) CountCreations(ctx context.Context, playerID string, since time.Time) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM session_creations WHERE player_id = ? AND created_at > ?`,
		playerID, since.UnixMilli(),
	).Scan(&n)
	return n, err
}

func dueAt(sess quiz.Session) any {
	if d := sess.NextDeadline(); d != nil {
		return d.UnixMilli()
	}
	return nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
