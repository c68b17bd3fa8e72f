package store

import (
	"context"
	"testing"

	"github.com/dukerupert/classdesk/internal/model"
)

func TestSettingsDefaults(t *testing.T) {
	db := setupTestDB(t)
	u := createTestUser(t, db, "alice@example.com")

	st, err := NewSettingsStore(db).Get(context.Background(), u.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if st != model.DefaultSettings() {
		t.Errorf("settings = %+v, want defaults", st)
	}
}

func TestSettingsSetAndGet(t *testing.T) {
	db := setupTestDB(t)
	ss := NewSettingsStore(db)
	ctx := context.Background()
	alice := createTestUser(t, db, "alice@example.com")
	bob := createTestUser(t, db, "bob@example.com")

	err := ss.SetMany(ctx, alice.ID, map[string]string{
		model.SettingTheme:                  "dark",
		model.SettingNotificationsEnabled:   "false",
		model.SettingNotificationPermission: "granted",
	})
	if err != nil {
		t.Fatalf("set many: %v", err)
	}
	if err := ss.Set(ctx, alice.ID, model.SettingTheme, "light"); err != nil {
		t.Fatalf("set: %v", err)
	}

	st, err := ss.Get(ctx, alice.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if st.Theme != "light" || st.NotificationsEnabled || st.NotificationPermission != "granted" {
		t.Errorf("settings = %+v", st)
	}

	// other users are unaffected
	other, _ := ss.Get(ctx, bob.ID)
	if other != model.DefaultSettings() {
		t.Errorf("bob settings = %+v, want defaults", other)
	}
}
