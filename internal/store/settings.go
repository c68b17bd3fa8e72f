package store

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"

	"github.com/dukerupert/classdesk/internal/model"
)

type SettingsStore struct {
	db *sql.DB
}

func NewSettingsStore(db *sql.DB) *SettingsStore {
	return &SettingsStore{db: db}
}

// GetAll returns the stored key-value pairs for a user. Keys never set are
// absent.
func (s *SettingsStore) GetAll(ctx context.Context, userID string) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM settings WHERE user_id = ? ORDER BY key`, userID)
	if err != nil {
		return nil, fmt.Errorf("get all settings: %w", err)
	}
	defer rows.Close()

	settings := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("scan setting: %w", err)
		}
		settings[key] = value
	}
	return settings, rows.Err()
}

// Get returns the typed settings with defaults for unset keys.
func (s *SettingsStore) Get(ctx context.Context, userID string) (model.Settings, error) {
	st := model.DefaultSettings()
	kv, err := s.GetAll(ctx, userID)
	if err != nil {
		return st, err
	}

	if v, ok := kv[model.SettingTheme]; ok {
		st.Theme = v
	}
	if v, ok := kv[model.SettingNotificationsEnabled]; ok {
		st.NotificationsEnabled, _ = strconv.ParseBool(v)
	}
	if v, ok := kv[model.SettingOnboardingSeen]; ok {
		st.OnboardingSeen, _ = strconv.ParseBool(v)
	}
	if v, ok := kv[model.SettingNotificationPermission]; ok {
		st.NotificationPermission = v
	}
	return st, nil
}

func (s *SettingsStore) Set(ctx context.Context, userID, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO settings (user_id, key, value, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(user_id, key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		userID, key, value, nowMillis(),
	)
	if err != nil {
		return fmt.Errorf("set setting %q: %w", key, err)
	}
	return nil
}

// SetMany writes several keys in one transaction.
func (s *SettingsStore) SetMany(ctx context.Context, userID string, kv map[string]string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	now := nowMillis()
	for key, value := range kv {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO settings (user_id, key, value, updated_at) VALUES (?, ?, ?, ?)
			 ON CONFLICT(user_id, key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
			userID, key, value, now,
		)
		if err != nil {
			return fmt.Errorf("set setting %q: %w", key, err)
		}
	}
	return tx.Commit()
}
