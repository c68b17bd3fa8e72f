package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dukerupert/classdesk/internal/model"
)

type TodoStore struct {
	db *sql.DB
}

func NewTodoStore(db *sql.DB) *TodoStore {
	return &TodoStore{db: db}
}

const todoCols = `id, user_id, text, completed, created_at`

func scanTodo(scanner interface{ Scan(...any) error }) (*model.Todo, error) {
	var t model.Todo
	var completed int
	if err := scanner.Scan(&t.ID, &t.UserID, &t.Text, &completed, &t.CreatedAt); err != nil {
		return nil, err
	}
	t.Completed = completed != 0
	return &t, nil
}

// Save writes the full todo, inserting or overwriting by ID.
func (s *TodoStore) Save(ctx context.Context, t model.Todo) (*model.Todo, error) {
	if t.ID == "" {
		t.ID = newID()
	}
	if t.CreatedAt == 0 {
		t.CreatedAt = nowMillis()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO todos (`+todoCols+`) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET text = excluded.text, completed = excluded.completed
		 WHERE todos.user_id = excluded.user_id`,
		t.ID, t.UserID, t.Text, boolInt(t.Completed), t.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("save todo: %w", err)
	}
	saved, err := s.Get(ctx, t.UserID, t.ID)
	if err == nil && saved == nil {
		// the ID belongs to another user
		return nil, ErrNotFound
	}
	return saved, err
}

// SetCompleted returns ErrNotFound if the user has no such todo.
func (s *TodoStore) SetCompleted(ctx context.Context, userID, id string, completed bool) (*model.Todo, error) {
	result, err := s.db.ExecContext(ctx,
		`UPDATE todos SET completed = ? WHERE id = ? AND user_id = ?`,
		boolInt(completed), id, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("update todo: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return nil, ErrNotFound
	}
	return s.Get(ctx, userID, id)
}

func (s *TodoStore) Get(ctx context.Context, userID, id string) (*model.Todo, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+todoCols+` FROM todos WHERE id = ? AND user_id = ?`, id, userID)
	t, err := scanTodo(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get todo: %w", err)
	}
	return t, nil
}

// List returns the user's todos, newest first.
func (s *TodoStore) List(ctx context.Context, userID string) ([]model.Todo, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+todoCols+` FROM todos WHERE user_id = ? ORDER BY created_at DESC, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list todos: %w", err)
	}
	defer rows.Close()

	todos := []model.Todo{}
	for rows.Next() {
		t, err := scanTodo(rows)
		if err != nil {
			return nil, fmt.Errorf("scan todo: %w", err)
		}
		todos = append(todos, *t)
	}
	return todos, rows.Err()
}

func (s *TodoStore) Delete(ctx context.Context, userID, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM todos WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete todo: %w", err)
	}
	return nil
}

func (s *TodoStore) DeleteAll(ctx context.Context, userID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM todos WHERE user_id = ?`, userID)
	if err != nil {
		return fmt.Errorf("delete all todos: %w", err)
	}
	return nil
}
