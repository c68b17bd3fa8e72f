package store

import (
	"context"
	"database/sql"

	"go.uber.org/multierr"
)

// AccountStore performs operations spanning a user's collections.
type AccountStore struct {
	entries *EntryStore
	todos   *TodoStore
	focus   *FocusStore
}

func NewAccountStore(db *sql.DB) *AccountStore {
	return &AccountStore{
		entries: NewEntryStore(db),
		todos:   NewTodoStore(db),
		focus:   NewFocusStore(db),
	}
}

// Reset deletes the user's entries, todos and focus history. Each
// collection is cleared independently; failures are combined.
func (s *AccountStore) Reset(ctx context.Context, userID string) error {
	var err error
	err = multierr.Append(err, s.entries.DeleteAll(ctx, userID))
	err = multierr.Append(err, s.todos.DeleteAll(ctx, userID))
	err = multierr.Append(err, s.focus.DeleteAll(ctx, userID))
	return err
}
