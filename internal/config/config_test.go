package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != "8080" {
		t.Errorf("Port = %q, want 8080", cfg.Port)
	}
	if cfg.DBPath != "classdesk.db" {
		t.Errorf("DBPath = %q, want classdesk.db", cfg.DBPath)
	}
	if cfg.RetryMax != 3 {
		t.Errorf("RetryMax = %d, want 3", cfg.RetryMax)
	}
	if cfg.RetryBaseDelay != time.Second {
		t.Errorf("RetryBaseDelay = %v, want 1s", cfg.RetryBaseDelay)
	}
	if cfg.NotifyInterval != 30*time.Second {
		t.Errorf("NotifyInterval = %v, want 30s", cfg.NotifyInterval)
	}
	if cfg.PushEnabled() {
		t.Error("push should be disabled without keys")
	}
}

func TestLoadEnv(t *testing.T) {
	t.Setenv("CLASSDESK_PORT", "9090")
	t.Setenv("CLASSDESK_TIMEZONE", "UTC")
	t.Setenv("CLASSDESK_RETRY_MAX", "5")
	t.Setenv("CLASSDESK_RETRY_BASE_DELAY", "250ms")
	t.Setenv("CLASSDESK_COOKIE_SECURE", "true")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != "9090" {
		t.Errorf("Port = %q, want 9090", cfg.Port)
	}
	if cfg.Location != time.UTC {
		t.Errorf("Location = %v, want UTC", cfg.Location)
	}
	if cfg.RetryMax != 5 {
		t.Errorf("RetryMax = %d, want 5", cfg.RetryMax)
	}
	if cfg.RetryBaseDelay != 250*time.Millisecond {
		t.Errorf("RetryBaseDelay = %v, want 250ms", cfg.RetryBaseDelay)
	}
	if !cfg.CookieSecure {
		t.Error("CookieSecure should be true")
	}
}

func TestLoadDotenv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("CLASSDESK_DB_PATH=/tmp/from-dotenv.db\n"), 0o600); err != nil {
		t.Fatalf("write dotenv: %v", err)
	}
	// godotenv does not override variables that are already set.
	t.Setenv("CLASSDESK_DB_PATH", "")
	os.Unsetenv("CLASSDESK_DB_PATH")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DBPath != "/tmp/from-dotenv.db" {
		t.Errorf("DBPath = %q, want /tmp/from-dotenv.db", cfg.DBPath)
	}
}

func TestLoadMissingDotenv(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.env")); err != nil {
		t.Errorf("missing dotenv should be ignored: %v", err)
	}
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"timezone", "CLASSDESK_TIMEZONE", "Mars/Olympus"},
		{"retry max", "CLASSDESK_RETRY_MAX", "0"},
		{"notify interval", "CLASSDESK_NOTIFY_INTERVAL", "10ms"},
		{"half vapid", "CLASSDESK_VAPID_PUBLIC_KEY", "abc"},
		{"bucket without keys", "CLASSDESK_BACKUP_BUCKET", "snapshots"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.val)
			if _, err := Load(""); err == nil {
				t.Errorf("expected error for %s=%s", tt.key, tt.val)
			}
		})
	}
}

func TestLoadBackup(t *testing.T) {
	t.Setenv("CLASSDESK_BACKUP_BUCKET", "snapshots")
	t.Setenv("CLASSDESK_BACKUP_ACCESS_KEY", "key")
	t.Setenv("CLASSDESK_BACKUP_SECRET_KEY", "secret")
	t.Setenv("CLASSDESK_BACKUP_PASSPHRASE", "correct horse")
	t.Setenv("CLASSDESK_BACKUP_RETENTION", "168h")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !cfg.Backup.Enabled() {
		t.Fatal("backup should be enabled")
	}
	if cfg.Backup.Region != "us-east-1" || cfg.Backup.Prefix != "classdesk/" {
		t.Errorf("defaults = %q, %q", cfg.Backup.Region, cfg.Backup.Prefix)
	}
	if cfg.Backup.Retention != 7*24*time.Hour {
		t.Errorf("Retention = %v, want 168h", cfg.Backup.Retention)
	}
	if cfg.BackupInterval != 24*time.Hour {
		t.Errorf("BackupInterval = %v, want 24h", cfg.BackupInterval)
	}
}
