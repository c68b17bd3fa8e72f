package store

import (
	"context"
	"testing"

	"go.uber.org/multierr"

	"github.com/dukerupert/classdesk/internal/model"
)

func TestAccountReset(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	alice := createTestUser(t, db, "alice@example.com")
	bob := createTestUser(t, db, "bob@example.com")

	es, ts, fs, ss := NewEntryStore(db), NewTodoStore(db), NewFocusStore(db), NewSettingsStore(db)
	for _, uid := range []string{alice.ID, bob.ID} {
		_, _ = es.Save(ctx, sampleEntry(uid))
		_, _ = ts.Save(ctx, model.Todo{UserID: uid, Text: "x"})
		_, _ = fs.Create(ctx, model.FocusSession{UserID: uid, StartTime: 1, Duration: 25, Completed: true, Mode: "focus"})
	}
	_ = ss.Set(ctx, alice.ID, model.SettingTheme, "dark")

	if err := NewAccountStore(db).Reset(ctx, alice.ID); err != nil {
		t.Fatalf("reset: %v", err)
	}

	if l, _ := es.ListEntries(ctx, alice.ID); len(l) != 0 {
		t.Errorf("alice entries = %d, want 0", len(l))
	}
	if l, _ := ts.List(ctx, alice.ID); len(l) != 0 {
		t.Errorf("alice todos = %d, want 0", len(l))
	}
	if l, _ := fs.List(ctx, alice.ID, 0); len(l) != 0 {
		t.Errorf("alice sessions = %d, want 0", len(l))
	}
	if st, _ := ss.Get(ctx, alice.ID); st.Theme != "dark" {
		t.Error("reset should keep settings")
	}

	if l, _ := es.ListEntries(ctx, bob.ID); len(l) != 1 {
		t.Errorf("bob entries = %d, want 1", len(l))
	}
}

func TestAccountResetCombinesErrors(t *testing.T) {
	db := setupTestDB(t)
	as := NewAccountStore(db)
	db.Close()

	err := as.Reset(context.Background(), "u1")
	if err == nil {
		t.Fatal("expected error on closed db")
	}
	if n := len(multierr.Errors(err)); n != 3 {
		t.Errorf("got %d combined errors, want 3", n)
	}
}
