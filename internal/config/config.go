// Package config loads runtime settings from CLASSDESK_* environment
// variables, optionally seeded from a .env file.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/dukerupert/classdesk/internal/backup"
)

const EnvPrefix = "CLASSDESK"

type Config struct {
	Port     string
	DBPath   string
	LogLevel string
	// LogFormat is "text" or "json".
	LogFormat string
	Location  *time.Location

	VAPIDPublicKey  string
	VAPIDPrivateKey string
	VAPIDSubscriber string

	RetryMax       int
	RetryBaseDelay time.Duration
	NotifyInterval time.Duration

	CookieSecure   bool
	AllowedOrigins []string

	Backup         backup.Config
	BackupInterval time.Duration
}

// Defaults registers every key with its default value.
func Defaults(v *viper.Viper) {
	v.SetDefault("port", "8080")
	v.SetDefault("db_path", "classdesk.db")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
	v.SetDefault("timezone", "Local")
	v.SetDefault("vapid_public_key", "")
	v.SetDefault("vapid_private_key", "")
	v.SetDefault("vapid_subscriber", "")
	v.SetDefault("retry_max", 3)
	v.SetDefault("retry_base_delay", time.Second)
	v.SetDefault("notify_interval", 30*time.Second)
	v.SetDefault("cookie_secure", false)
	v.SetDefault("allowed_origins", []string{})
	v.SetDefault("backup_endpoint", "")
	v.SetDefault("backup_bucket", "")
	v.SetDefault("backup_region", "us-east-1")
	v.SetDefault("backup_access_key", "")
	v.SetDefault("backup_secret_key", "")
	v.SetDefault("backup_prefix", "classdesk/")
	v.SetDefault("backup_passphrase", "")
	v.SetDefault("backup_interval", 24*time.Hour)
	v.SetDefault("backup_retention", 30*24*time.Hour)
}

// Load reads dotenv (if the file exists) into the process environment and
// builds a Config from the environment. An empty dotenv path skips the file.
func Load(dotenv string) (*Config, error) {
	if dotenv != "" {
		if _, err := os.Stat(dotenv); err == nil {
			if err := godotenv.Load(dotenv); err != nil {
				return nil, fmt.Errorf("load %s: %w", dotenv, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("stat %s: %w", dotenv, err)
		}
	}

	v := viper.New()
	v.SetTypeByDefaultValue(true)
	Defaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	return FromViper(v)
}

// FromViper converts and checks the values held by v.
func FromViper(v *viper.Viper) (*Config, error) {
	loc, err := time.LoadLocation(v.GetString("timezone"))
	if err != nil {
		return nil, fmt.Errorf("timezone %q: %w", v.GetString("timezone"), err)
	}

	cfg := &Config{
		Port:            v.GetString("port"),
		DBPath:          v.GetString("db_path"),
		LogLevel:        v.GetString("log_level"),
		LogFormat:       v.GetString("log_format"),
		Location:        loc,
		VAPIDPublicKey:  v.GetString("vapid_public_key"),
		VAPIDPrivateKey: v.GetString("vapid_private_key"),
		VAPIDSubscriber: v.GetString("vapid_subscriber"),
		RetryMax:        v.GetInt("retry_max"),
		RetryBaseDelay:  v.GetDuration("retry_base_delay"),
		NotifyInterval:  v.GetDuration("notify_interval"),
		CookieSecure:    v.GetBool("cookie_secure"),
		AllowedOrigins:  v.GetStringSlice("allowed_origins"),
		Backup: backup.Config{
			Endpoint:   v.GetString("backup_endpoint"),
			Bucket:     v.GetString("backup_bucket"),
			Region:     v.GetString("backup_region"),
			AccessKey:  v.GetString("backup_access_key"),
			SecretKey:  v.GetString("backup_secret_key"),
			Prefix:     v.GetString("backup_prefix"),
			Passphrase: v.GetString("backup_passphrase"),
			Retention:  v.GetDuration("backup_retention"),
		},
		BackupInterval: v.GetDuration("backup_interval"),
	}

	if cfg.RetryMax < 1 {
		return nil, fmt.Errorf("retry_max must be at least 1, got %d", cfg.RetryMax)
	}
	if cfg.RetryBaseDelay <= 0 {
		return nil, fmt.Errorf("retry_base_delay must be positive, got %s", cfg.RetryBaseDelay)
	}
	if cfg.NotifyInterval < time.Second {
		return nil, fmt.Errorf("notify_interval must be at least 1s, got %s", cfg.NotifyInterval)
	}
	if (cfg.VAPIDPublicKey == "") != (cfg.VAPIDPrivateKey == "") {
		return nil, fmt.Errorf("vapid_public_key and vapid_private_key must be set together")
	}
	if cfg.Backup.Bucket != "" && !cfg.Backup.Enabled() {
		return nil, fmt.Errorf("backup_bucket needs backup_access_key, backup_secret_key and backup_passphrase")
	}
	if cfg.Backup.Enabled() && cfg.BackupInterval < time.Minute {
		return nil, fmt.Errorf("backup_interval must be at least 1m, got %s", cfg.BackupInterval)
	}
	return cfg, nil
}

// PushEnabled reports whether Web Push keys are configured.
func (c *Config) PushEnabled() bool {
	return c.VAPIDPublicKey != "" && c.VAPIDPrivateKey != ""
}
