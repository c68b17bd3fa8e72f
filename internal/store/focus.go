package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dukerupert/classdesk/internal/model"
)

type FocusStore struct {
	db *sql.DB
}

func NewFocusStore(db *sql.DB) *FocusStore {
	return &FocusStore{db: db}
}

const focusCols = `id, user_id, start_time, duration, completed, mode`

func scanFocus(scanner interface{ Scan(...any) error }) (*model.FocusSession, error) {
	var f model.FocusSession
	var completed int
	if err := scanner.Scan(&f.ID, &f.UserID, &f.StartTime, &f.Duration, &completed, &f.Mode); err != nil {
		return nil, err
	}
	f.Completed = completed != 0
	return &f, nil
}

// Create records a finished session. Sessions are never updated, so a
// replayed insert with the same ID leaves the first row in place.
func (s *FocusStore) Create(ctx context.Context, f model.FocusSession) (*model.FocusSession, error) {
	if f.ID == "" {
		f.ID = newID()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO focus_sessions (`+focusCols+`) VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO NOTHING`,
		f.ID, f.UserID, f.StartTime, f.Duration, boolInt(f.Completed), f.Mode,
	)
	if err != nil {
		return nil, fmt.Errorf("create focus session: %w", err)
	}
	return &f, nil
}

// List returns the user's sessions, most recent first. A limit of zero or
// less returns all of them.
func (s *FocusStore) List(ctx context.Context, userID string, limit int) ([]model.FocusSession, error) {
	query := `SELECT ` + focusCols + ` FROM focus_sessions WHERE user_id = ? ORDER BY start_time DESC, id`
	args := []any{userID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	return s.query(ctx, query, args...)
}

// ListSince returns sessions started at or after since, most recent first.
func (s *FocusStore) ListSince(ctx context.Context, userID string, since time.Time) ([]model.FocusSession, error) {
	return s.query(ctx,
		`SELECT `+focusCols+` FROM focus_sessions WHERE user_id = ? AND start_time >= ? ORDER BY start_time DESC, id`,
		userID, since.UnixMilli(),
	)
}

func (s *FocusStore) query(ctx context.Context, query string, args ...any) ([]model.FocusSession, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list focus sessions: %w", err)
	}
	defer rows.Close()

	sessions := []model.FocusSession{}
	for rows.Next() {
		f, err := scanFocus(rows)
		if err != nil {
			return nil, fmt.Errorf("scan focus session: %w", err)
		}
		sessions = append(sessions, *f)
	}
	return sessions, rows.Err()
}

func (s *FocusStore) DeleteAll(ctx context.Context, userID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM focus_sessions WHERE user_id = ?`, userID)
	if err != nil {
		return fmt.Errorf("delete all focus sessions: %w", err)
	}
	return nil
}
