package store

import (
	"context"
	"errors"
	"testing"

	"github.com/dukerupert/classdesk/internal/model"
)

func TestTodoSaveListNewestFirst(t *testing.T) {
	db := setupTestDB(t)
	ts := NewTodoStore(db)
	ctx := context.Background()
	u := createTestUser(t, db, "alice@example.com")

	_, _ = ts.Save(ctx, model.Todo{UserID: u.ID, Text: "first", CreatedAt: 1000})
	_, _ = ts.Save(ctx, model.Todo{UserID: u.ID, Text: "second", CreatedAt: 2000})

	list, err := ts.List(ctx, u.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0].Text != "second" || list[1].Text != "first" {
		t.Errorf("list = %+v, want newest first", list)
	}
}

func TestTodoSetCompleted(t *testing.T) {
	db := setupTestDB(t)
	ts := NewTodoStore(db)
	ctx := context.Background()
	u := createTestUser(t, db, "alice@example.com")

	todo, _ := ts.Save(ctx, model.Todo{UserID: u.ID, Text: "read chapter 3"})
	if todo.Completed {
		t.Fatal("new todo should not be completed")
	}

	done, err := ts.SetCompleted(ctx, u.ID, todo.ID, true)
	if err != nil {
		t.Fatalf("set completed: %v", err)
	}
	if !done.Completed {
		t.Error("expected completed")
	}
	if done.CreatedAt != todo.CreatedAt {
		t.Error("created_at changed")
	}

	if _, err := ts.SetCompleted(ctx, u.ID, "missing", true); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestTodoDelete(t *testing.T) {
	db := setupTestDB(t)
	ts := NewTodoStore(db)
	ctx := context.Background()
	u := createTestUser(t, db, "alice@example.com")

	todo, _ := ts.Save(ctx, model.Todo{UserID: u.ID, Text: "x"})
	if err := ts.Delete(ctx, u.ID, todo.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if list, _ := ts.List(ctx, u.ID); len(list) != 0 {
		t.Errorf("got %d todos after delete", len(list))
	}
}
