package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/dukerupert/classdesk/internal/model"
)

type EntryStore struct {
	db *sql.DB
}

func NewEntryStore(db *sql.DB) *EntryStore {
	return &EntryStore{db: db}
}

const entryCols = `id, user_id, days, start_time, end_time, subject, location, color, created_at, updated_at`

func scanEntry(scanner interface{ Scan(...any) error }) (*model.Entry, error) {
	var e model.Entry
	var days string
	var created, updated int64
	err := scanner.Scan(&e.ID, &e.UserID, &days, &e.StartTime, &e.EndTime,
		&e.Subject, &e.Location, &e.Color, &created, &updated)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(days), &e.Days); err != nil {
		return nil, fmt.Errorf("decode days of entry %s: %w", e.ID, err)
	}
	e.CreatedAt = fromMillis(created)
	e.UpdatedAt = fromMillis(updated)
	return &e, nil
}

// Save writes the full entry, inserting it or overwriting an existing row
// with the same ID. An empty ID is assigned.
func (s *EntryStore) Save(ctx context.Context, e model.Entry) (*model.Entry, error) {
	if e.ID == "" {
		e.ID = newID()
	}
	days, err := json.Marshal(e.Days)
	if err != nil {
		return nil, fmt.Errorf("encode days: %w", err)
	}
	now := nowMillis()

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO entries (`+entryCols+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   days = excluded.days, start_time = excluded.start_time, end_time = excluded.end_time,
		   subject = excluded.subject, location = excluded.location, color = excluded.color,
		   updated_at = excluded.updated_at
		 WHERE entries.user_id = excluded.user_id`,
		e.ID, e.UserID, string(days), e.StartTime, e.EndTime, e.Subject, e.Location, e.Color, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("save entry: %w", err)
	}
	saved, err := s.Get(ctx, e.UserID, e.ID)
	if err == nil && saved == nil {
		// the ID belongs to another user
		return nil, ErrNotFound
	}
	return saved, err
}

// Update overwrites an existing entry. It returns ErrNotFound if the user
// has no entry with that ID.
func (s *EntryStore) Update(ctx context.Context, e model.Entry) (*model.Entry, error) {
	days, err := json.Marshal(e.Days)
	if err != nil {
		return nil, fmt.Errorf("encode days: %w", err)
	}
	result, err := s.db.ExecContext(ctx,
		`UPDATE entries SET days = ?, start_time = ?, end_time = ?, subject = ?, location = ?, color = ?, updated_at = ?
		 WHERE id = ? AND user_id = ?`,
		string(days), e.StartTime, e.EndTime, e.Subject, e.Location, e.Color, nowMillis(), e.ID, e.UserID,
	)
	if err != nil {
		return nil, fmt.Errorf("update entry: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return nil, ErrNotFound
	}
	return s.Get(ctx, e.UserID, e.ID)
}

// Get returns nil if the entry does not exist.
func (s *EntryStore) Get(ctx context.Context, userID, id string) (*model.Entry, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+entryCols+` FROM entries WHERE id = ? AND user_id = ?`, id, userID)
	e, err := scanEntry(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get entry: %w", err)
	}
	return e, nil
}

// ListEntries returns the user's entries ordered by start time.
func (s *EntryStore) ListEntries(ctx context.Context, userID string) ([]model.Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+entryCols+` FROM entries WHERE user_id = ? ORDER BY start_time, end_time, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	defer rows.Close()

	entries := []model.Entry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}

// Delete is a no-op when the entry does not exist.
func (s *EntryStore) Delete(ctx context.Context, userID, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM entries WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete entry: %w", err)
	}
	return nil
}

func (s *EntryStore) DeleteAll(ctx context.Context, userID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM entries WHERE user_id = ?`, userID)
	if err != nil {
		return fmt.Errorf("delete all entries: %w", err)
	}
	return nil
}
