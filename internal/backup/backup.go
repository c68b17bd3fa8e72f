// Package backup takes encrypted snapshots of the SQLite database and keeps
// them in S3-compatible object storage.
package backup

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/multierr"
	_ "modernc.org/sqlite"
)

const (
	objectSuffix = ".db.enc"
	keyTimeFmt   = "20060102T150405Z"
)

var ErrRunning = errors.New("backup: already running")

// ObjectStore is the part of the S3 API the manager uses.
type ObjectStore interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, opts ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, opts ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// Config locates the bucket and holds the snapshot passphrase.
type Config struct {
	Endpoint   string
	Bucket     string
	Region     string
	AccessKey  string
	SecretKey  string
	Prefix     string
	Passphrase string
	// Retention is how long snapshots are kept. Zero keeps them forever.
	Retention time.Duration
}

// Enabled reports whether the bucket, credentials and passphrase are set.
func (c Config) Enabled() bool {
	return c.Bucket != "" && c.AccessKey != "" && c.SecretKey != "" && c.Passphrase != ""
}

// NewS3Client builds a path-style client, which also suits MinIO and R2.
func NewS3Client(cfg Config) *s3.Client {
	opts := s3.Options{
		Region:       cfg.Region,
		Credentials:  credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		UsePathStyle: true,
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.Endpoint)
	}
	return s3.New(opts)
}

// Snapshot describes one uploaded backup.
type Snapshot struct {
	Key       string    `json:"key"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"createdAt"`
}

type Manager struct {
	cfg    Config
	db     *sql.DB
	client ObjectStore
	logger *slog.Logger
	now    func() time.Time

	running sync.Mutex
}

func NewManager(cfg Config, db *sql.DB, client ObjectStore, logger *slog.Logger) *Manager {
	return &Manager{
		cfg:    cfg,
		db:     db,
		client: client,
		logger: logger,
		now:    time.Now,
	}
}

// Run snapshots the database, encrypts it and uploads it. Only one run
// proceeds at a time; a concurrent call gets ErrRunning.
func (m *Manager) Run(ctx context.Context) (Snapshot, error) {
	if !m.running.TryLock() {
		return Snapshot{}, ErrRunning
	}
	defer m.running.Unlock()

	plain, err := m.snapshot(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	sealed, err := Seal(plain, m.cfg.Passphrase)
	if err != nil {
		return Snapshot{}, fmt.Errorf("encrypt snapshot: %w", err)
	}

	created := m.now().UTC()
	key := m.cfg.Prefix + "classdesk-" + created.Format(keyTimeFmt) + objectSuffix
	_, err = m.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(m.cfg.Bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(sealed),
		ContentLength: aws.Int64(int64(len(sealed))),
		ContentType:   aws.String("application/octet-stream"),
	})
	if err != nil {
		return Snapshot{}, fmt.Errorf("upload %s: %w", key, err)
	}

	snap := Snapshot{Key: key, Size: int64(len(sealed)), CreatedAt: created}
	m.logger.Info("backup uploaded", "key", key, "bytes", snap.Size)
	return snap, nil
}

// snapshot writes a consistent copy of the database with VACUUM INTO and
// returns its bytes.
func (m *Manager) snapshot(ctx context.Context) ([]byte, error) {
	dir, err := os.MkdirTemp("", "classdesk-backup-")
	if err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "snapshot.db")
	if _, err := m.db.ExecContext(ctx, `VACUUM INTO ?`, path); err != nil {
		return nil, fmt.Errorf("vacuum into: %w", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	return data, nil
}

// List returns the snapshots under the configured prefix, oldest first.
func (m *Manager) List(ctx context.Context) ([]Snapshot, error) {
	var out []Snapshot
	p := s3.NewListObjectsV2Paginator(m.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(m.cfg.Bucket),
		Prefix: aws.String(m.cfg.Prefix),
	})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list backups: %w", err)
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			created, ok := parseKeyTime(m.cfg.Prefix, key)
			if !ok {
				continue
			}
			out = append(out, Snapshot{Key: key, Size: aws.ToInt64(obj.Size), CreatedAt: created})
		}
	}
	sortSnapshots(out)
	return out, nil
}

// Prune deletes snapshots older than the retention period and returns how
// many were removed. Individual delete failures are combined.
func (m *Manager) Prune(ctx context.Context) (int, error) {
	if m.cfg.Retention <= 0 {
		return 0, nil
	}
	snaps, err := m.List(ctx)
	if err != nil {
		return 0, err
	}

	cutoff := m.now().Add(-m.cfg.Retention)
	var (
		deleted int
		errs    error
	)
	for _, s := range snaps {
		if !s.CreatedAt.Before(cutoff) {
			continue
		}
		_, err := m.client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(m.cfg.Bucket),
			Key:    aws.String(s.Key),
		})
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("delete %s: %w", s.Key, err))
			continue
		}
		deleted++
	}
	return deleted, errs
}

// Restore downloads and decrypts the snapshot at key into dstPath, then
// checks that the result is a healthy SQLite database. dstPath must not exist.
func (m *Manager) Restore(ctx context.Context, key, dstPath string) error {
	out, err := m.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(m.cfg.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("download %s: %w", key, err)
	}
	sealed, err := io.ReadAll(out.Body)
	out.Body.Close()
	if err != nil {
		return fmt.Errorf("read %s: %w", key, err)
	}

	plain, err := Open(sealed, m.cfg.Passphrase)
	if err != nil {
		return err
	}

	f, err := os.OpenFile(dstPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return fmt.Errorf("create %s: %w", dstPath, err)
	}
	if _, err := f.Write(plain); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", dstPath, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", dstPath, err)
	}
	return checkIntegrity(ctx, dstPath)
}

func checkIntegrity(ctx context.Context, path string) error {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("open restored db: %w", err)
	}
	defer db.Close()

	var result string
	if err := db.QueryRowContext(ctx, `PRAGMA integrity_check`).Scan(&result); err != nil {
		return fmt.Errorf("integrity check: %w", err)
	}
	if result != "ok" {
		return fmt.Errorf("integrity check failed: %s", result)
	}
	return nil
}

// Tick is the scheduled job: take a snapshot, then prune old ones.
func (m *Manager) Tick(ctx context.Context) {
	if _, err := m.Run(ctx); err != nil {
		m.logger.Error("backup failed", "error", err)
		return
	}
	n, err := m.Prune(ctx)
	if err != nil {
		m.logger.Error("prune backups", "error", err)
	}
	if n > 0 {
		m.logger.Info("pruned backups", "deleted", n)
	}
}

func parseKeyTime(prefix, key string) (time.Time, bool) {
	name := strings.TrimPrefix(key, prefix)
	if !strings.HasPrefix(name, "classdesk-") || !strings.HasSuffix(name, objectSuffix) {
		return time.Time{}, false
	}
	stamp := strings.TrimSuffix(strings.TrimPrefix(name, "classdesk-"), objectSuffix)
	t, err := time.Parse(keyTimeFmt, stamp)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func sortSnapshots(s []Snapshot) {
	slices.SortFunc(s, func(a, b Snapshot) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
}
