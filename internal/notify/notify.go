// Package notify sends "class starting soon" alerts. Each poll looks at
// today's entries of every reachable user and alerts once per entry per day
// when the entry starts in four to five minutes.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukerupert/classdesk/internal/model"
	"github.com/dukerupert/classdesk/internal/schedule"
)

const (
	DefaultInterval = 30 * time.Second
	LedgerRetention = 48 * time.Hour

	minLead = 4
	maxLead = 5

	Icon            = "/logo.svg"
	unknownLocation = "Unknown location"
)

type Permission string

const (
	PermissionDefault Permission = "default"
	PermissionGranted Permission = "granted"
	PermissionDenied  Permission = "denied"
)

func ParsePermission(s string) (Permission, bool) {
	switch p := Permission(s); p {
	case PermissionDefault, PermissionGranted, PermissionDenied:
		return p, true
	}
	return "", false
}

// Alert is one user-facing reminder.
type Alert struct {
	Key     string `json:"key"`
	EntryID string `json:"entryId"`
	Title   string `json:"title"`
	Body    string `json:"body"`
	Icon    string `json:"icon"`
}

// Audience lists the users who can currently receive alerts.
type Audience interface {
	NotifiableUserIDs(ctx context.Context) ([]string, error)
}

type EntrySource interface {
	ListEntries(ctx context.Context, userID string) ([]model.Entry, error)
}

type Gate interface {
	Permission(ctx context.Context, userID string) (Permission, error)
}

// Ledger remembers which alerts were already sent.
type Ledger interface {
	WasSent(ctx context.Context, userID, key string) (bool, error)
	RecordSent(ctx context.Context, userID, key string) error
	CleanupSent(ctx context.Context, before time.Time) (int64, error)
}

// Dispatcher delivers an alert on one surface.
type Dispatcher interface {
	Dispatch(ctx context.Context, userID string, a Alert) error
}

type Scheduler struct {
	logger      *slog.Logger
	audience    Audience
	entries     EntrySource
	gate        Gate
	ledger      Ledger
	dispatchers []Dispatcher
	loc         *time.Location
}

type Config struct {
	Audience    Audience
	Entries     EntrySource
	Gate        Gate
	Ledger      Ledger
	Dispatchers []Dispatcher
	Location    *time.Location
}

func NewScheduler(logger *slog.Logger, cfg Config) *Scheduler {
	loc := cfg.Location
	if loc == nil {
		loc = time.Local
	}
	return &Scheduler{
		logger:      logger,
		audience:    cfg.Audience,
		entries:     cfg.Entries,
		gate:        cfg.Gate,
		ledger:      cfg.Ledger,
		dispatchers: cfg.Dispatchers,
		loc:         loc,
	}
}

// Run checks at the current wall-clock time.
func (s *Scheduler) Run(ctx context.Context) {
	s.Check(ctx, time.Now().In(s.loc))
}

// Check sends due alerts at now and returns how many were sent.
func (s *Scheduler) Check(ctx context.Context, now time.Time) int {
	userIDs, err := s.audience.NotifiableUserIDs(ctx)
	if err != nil {
		s.logger.Error("list notifiable users", "error", err)
		return 0
	}

	sent := 0
	for _, uid := range userIDs {
		sent += s.checkUser(ctx, uid, now)
	}
	return sent
}

func (s *Scheduler) checkUser(ctx context.Context, userID string, now time.Time) int {
	perm, err := s.gate.Permission(ctx, userID)
	if err != nil {
		s.logger.Error("read notification permission", "user_id", userID, "error", err)
		return 0
	}
	if perm != PermissionGranted {
		return 0
	}

	entries, err := s.entries.ListEntries(ctx, userID)
	if err != nil {
		s.logger.Error("list entries", "user_id", userID, "error", err)
		return 0
	}

	sent := 0
	for _, e := range schedule.Today(now, entries) {
		start, err := schedule.StartOn(e, now)
		if err != nil || !InWindow(start, now) {
			continue
		}

		key := Key(e.ID, now)
		was, err := s.ledger.WasSent(ctx, userID, key)
		if err != nil {
			s.logger.Error("check sent alert", "user_id", userID, "key", key, "error", err)
			continue
		}
		if was {
			continue
		}

		a := BuildAlert(e, now)
		for _, d := range s.dispatchers {
			if err := d.Dispatch(ctx, userID, a); err != nil {
				s.logger.Warn("dispatch alert", "user_id", userID, "key", key, "error", err)
			}
		}
		if err := s.ledger.RecordSent(ctx, userID, key); err != nil {
			s.logger.Error("record sent alert", "user_id", userID, "key", key, "error", err)
		}
		s.logger.Info("class reminder sent", "user_id", userID, "entry_id", e.ID, "key", key)
		sent++
	}
	return sent
}

// Cleanup drops ledger rows older than LedgerRetention.
func (s *Scheduler) Cleanup(ctx context.Context) {
	n, err := s.ledger.CleanupSent(ctx, time.Now().Add(-LedgerRetention))
	if err != nil {
		s.logger.Error("cleanup sent alerts", "error", err)
		return
	}
	if n > 0 {
		s.logger.Info("cleaned up sent alerts", "count", n)
	}
}

// InWindow reports whether start is four to five whole minutes after now.
// Partial minutes are truncated, so the window is [4m, 6m).
func InWindow(start, now time.Time) bool {
	lead := int(start.Sub(now) / time.Minute)
	return lead >= minLead && lead <= maxLead
}

// Key identifies an entry on the local calendar date of now.
func Key(entryID string, now time.Time) string {
	return entryID + "@" + now.Format("2006-01-02")
}

func BuildAlert(e model.Entry, now time.Time) Alert {
	loc := e.Location
	if loc == "" {
		loc = unknownLocation
	}
	return Alert{
		Key:     Key(e.ID, now),
		EntryID: e.ID,
		Title:   "Upcoming: " + e.Subject,
		Body:    fmt.Sprintf("Starts at %s in %s", e.StartTime, loc),
		Icon:    Icon,
	}
}
