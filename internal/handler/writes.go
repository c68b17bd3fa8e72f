package handler

import (
	"context"
	"errors"

	"github.com/dukerupert/classdesk/internal/apperr"
	"github.com/dukerupert/classdesk/internal/gateway"
	"github.com/dukerupert/classdesk/internal/model"
	"github.com/dukerupert/classdesk/internal/store"
	"github.com/dukerupert/classdesk/internal/websocket"
)

// Write kinds accepted by the gateway.
const (
	KindEntryCreate        = "entry.create"
	KindEntryUpdate        = "entry.update"
	KindEntryDelete        = "entry.delete"
	KindTodoCreate         = "todo.create"
	KindTodoUpdate         = "todo.update"
	KindTodoDelete         = "todo.delete"
	KindFocusSessionCreate = "focus_session.create"
)

// TodoCompletion sets a todo's completed flag to an absolute value, so a
// replayed request leaves the same state.
type TodoCompletion struct {
	ID        string `json:"id"`
	Completed bool   `json:"completed"`
}

// Stores groups the persistence the write executors use.
type Stores struct {
	Entries *store.EntryStore
	Todos   *store.TodoStore
	Focus   *store.FocusStore
}

// Publisher receives an event after each successful write.
type Publisher interface {
	Publish(userID string, msg websocket.Message)
}

// RegisterWrites installs the executor of every write kind on g. Successful
// writes are published to the owning user.
func RegisterWrites(g *gateway.Gateway, st Stores, pub Publisher) {
	gateway.Register(g, KindEntryCreate, func(ctx context.Context, userID string, e model.Entry) (any, error) {
		e.UserID = userID
		saved, err := st.Entries.Save(ctx, e)
		if err != nil {
			return nil, notFound(KindEntryCreate, err)
		}
		pub.Publish(userID, websocket.NewMessage("entry", "created", saved.ID, saved))
		return saved, nil
	})

	gateway.Register(g, KindEntryUpdate, func(ctx context.Context, userID string, e model.Entry) (any, error) {
		e.UserID = userID
		saved, err := st.Entries.Update(ctx, e)
		if err != nil {
			return nil, notFound(KindEntryUpdate, err)
		}
		pub.Publish(userID, websocket.NewMessage("entry", "updated", saved.ID, saved))
		return saved, nil
	})

	gateway.Register(g, KindEntryDelete, func(ctx context.Context, userID string, id string) (any, error) {
		if err := st.Entries.Delete(ctx, userID, id); err != nil {
			return nil, err
		}
		pub.Publish(userID, websocket.NewMessage("entry", "deleted", id, nil))
		return nil, nil
	})

	gateway.Register(g, KindTodoCreate, func(ctx context.Context, userID string, t model.Todo) (any, error) {
		t.UserID = userID
		saved, err := st.Todos.Save(ctx, t)
		if err != nil {
			return nil, notFound(KindTodoCreate, err)
		}
		pub.Publish(userID, websocket.NewMessage("todo", "created", saved.ID, saved))
		return saved, nil
	})

	gateway.Register(g, KindTodoUpdate, func(ctx context.Context, userID string, c TodoCompletion) (any, error) {
		saved, err := st.Todos.SetCompleted(ctx, userID, c.ID, c.Completed)
		if err != nil {
			return nil, notFound(KindTodoUpdate, err)
		}
		pub.Publish(userID, websocket.NewMessage("todo", "updated", saved.ID, saved))
		return saved, nil
	})

	gateway.Register(g, KindTodoDelete, func(ctx context.Context, userID string, id string) (any, error) {
		if err := st.Todos.Delete(ctx, userID, id); err != nil {
			return nil, err
		}
		pub.Publish(userID, websocket.NewMessage("todo", "deleted", id, nil))
		return nil, nil
	})

	gateway.Register(g, KindFocusSessionCreate, func(ctx context.Context, userID string, f model.FocusSession) (any, error) {
		f.UserID = userID
		saved, err := st.Focus.Create(ctx, f)
		if err != nil {
			return nil, err
		}
		pub.Publish(userID, websocket.NewMessage("focus_session", "created", saved.ID, saved))
		return saved, nil
	})
}

// notFound marks a missing row as a validation failure so it is not retried.
func notFound(op string, err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return apperr.Wrap(apperr.KindValidation, op, err)
	}
	return err
}
