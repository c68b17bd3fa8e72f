package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/dukerupert/classdesk/internal/backup"
	"github.com/dukerupert/classdesk/internal/gateway"
	"github.com/dukerupert/classdesk/internal/handler"
	"github.com/dukerupert/classdesk/internal/middleware"
	"github.com/dukerupert/classdesk/internal/model"
	"github.com/dukerupert/classdesk/internal/notify"
	"github.com/dukerupert/classdesk/internal/push"
	"github.com/dukerupert/classdesk/internal/schedule"
	"github.com/dukerupert/classdesk/internal/store"
	"github.com/dukerupert/classdesk/internal/task"
	"github.com/dukerupert/classdesk/internal/timer"
	ws "github.com/dukerupert/classdesk/internal/websocket"
)

const (
	TimerTickInterval      = time.Second
	ScheduleStatusInterval = time.Second
	CleanupInterval        = time.Hour
	DefaultBackupInterval  = 24 * time.Hour

	loginLimit  = 10
	loginWindow = time.Minute
)

// Options carries the runtime settings the server is built with.
type Options struct {
	Location       *time.Location
	RetryMax       int
	RetryBaseDelay time.Duration
	NotifyInterval time.Duration
	CookieSecure   bool
	AllowedOrigins []string
	Push           push.Config
	Backup         backup.Config
	BackupInterval time.Duration
}

type Server struct {
	db     *sql.DB
	hub    *ws.Hub
	gw     *gateway.Gateway
	timers *timer.Manager
	status *schedule.Tracker
	notify *notify.Scheduler
	tasks  *task.Scheduler
	opts   Options

	// lifetime bounds background writes; it outlives individual requests.
	lifetime context.Context
	cancel   context.CancelFunc

	entryStore   *store.EntryStore
	sessionStore *store.SessionStore
	userStore    *store.UserStore
	rateLimiter  *middleware.RateLimiter
	pushService  *push.Service
	backups      *backup.Manager
	authH        *handler.AuthHandler
	entryH       *handler.EntryHandler
	todoH        *handler.TodoHandler
	focusH       *handler.FocusHandler
	scheduleH    *handler.ScheduleHandler
	statsH       *handler.StatsHandler
	settingsH    *handler.SettingsHandler
	pushH        *handler.PushHandler
	savesH       *handler.SavesHandler
	accountH     *handler.AccountHandler
	logger       *slog.Logger
}

func New(db *sql.DB, opts Options, logger *slog.Logger) *Server {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.NotifyInterval <= 0 {
		opts.NotifyInterval = notify.DefaultInterval
	}

	s := &Server{
		db:     db,
		opts:   opts,
		logger: logger,
		status: schedule.NewTracker(),
	}
	s.lifetime, s.cancel = context.WithCancel(context.Background())
	s.hub = ws.NewHub(logger.With("component", "websocket"))

	entryStore := store.NewEntryStore(db)
	todoStore := store.NewTodoStore(db)
	focusStore := store.NewFocusStore(db)
	settingsStore := store.NewSettingsStore(db)
	userStore := store.NewUserStore(db)
	sessionStore := store.NewSessionStore(db)
	pushStore := store.NewPushStore(db)

	s.gw = gateway.New(logger.With("component", "gateway"),
		gateway.WithMaxRetries(opts.RetryMax),
		gateway.WithBaseDelay(opts.RetryBaseDelay),
		gateway.WithObserver(s.publishSave),
	)
	handler.RegisterWrites(s.gw, handler.Stores{
		Entries: entryStore,
		Todos:   todoStore,
		Focus:   focusStore,
	}, s.hub)

	s.timers = timer.NewManager(timer.Hooks{
		OnChange:   s.publishTimer,
		OnComplete: s.completeTimer,
	})

	s.pushService = push.NewService(opts.Push)
	dispatchers := []notify.Dispatcher{hubDispatcher{hub: s.hub}}
	if s.pushService.Enabled() {
		dispatchers = append(dispatchers, push.NewDispatcher(s.pushService, pushStore, logger.With("component", "push")))
	} else {
		logger.Info("web push disabled, VAPID keys not configured")
	}
	s.notify = notify.NewScheduler(logger.With("component", "notify"), notify.Config{
		Audience:    audience{subscribers: pushStore, hub: s.hub},
		Entries:     entryStore,
		Gate:        notify.SettingsGate{Settings: settingsStore},
		Ledger:      pushStore,
		Dispatchers: dispatchers,
		Location:    opts.Location,
	})

	if opts.Backup.Enabled() {
		s.backups = backup.NewManager(opts.Backup, db, backup.NewS3Client(opts.Backup), logger.With("component", "backup"))
	}

	s.tasks = task.New(logger.With("component", "tasks"))

	s.entryStore = entryStore
	s.sessionStore = sessionStore
	s.userStore = userStore
	s.rateLimiter = middleware.NewRateLimiter()

	s.authH = handler.NewAuthHandler(userStore, sessionStore, opts.CookieSecure, logger.With("component", "auth"))
	s.entryH = handler.NewEntryHandler(entryStore, s.gw, logger.With("component", "entry"))
	s.todoH = handler.NewTodoHandler(todoStore, s.gw, logger.With("component", "todo"))
	s.focusH = handler.NewFocusHandler(s.timers, focusStore, logger.With("component", "focus"))
	s.scheduleH = handler.NewScheduleHandler(entryStore, opts.Location, logger.With("component", "schedule"))
	s.statsH = handler.NewStatsHandler(entryStore, focusStore, opts.Location, logger.With("component", "stats"))
	s.settingsH = handler.NewSettingsHandler(settingsStore, s.hub, logger.With("component", "settings"))
	s.pushH = handler.NewPushHandler(pushStore, settingsStore, s.pushService, logger.With("component", "push_handler"))
	s.savesH = handler.NewSavesHandler(s.gw, logger.With("component", "saves"))
	s.accountH = handler.NewAccountHandler(store.NewAccountStore(db), s.timers, s.gw, s.hub, logger.With("component", "account"))

	return s
}

// Hub returns the event bus.
func (s *Server) Hub() *ws.Hub {
	return s.hub
}

// Gateway returns the write gateway.
func (s *Server) Gateway() *gateway.Gateway {
	return s.gw
}

// Timers returns the per-user countdown timers.
func (s *Server) Timers() *timer.Manager {
	return s.timers
}

// Start schedules the periodic tasks and begins running them.
func (s *Server) Start(ctx context.Context) {
	s.tasks.Every("timer-tick", TimerTickInterval, func(ctx context.Context) {
		s.timers.Tick(time.Now())
	})
	s.tasks.Every("schedule-status", ScheduleStatusInterval, s.publishScheduleStatus)
	s.tasks.Every("notify", s.opts.NotifyInterval, s.notify.Run)
	s.tasks.Every("cleanup", CleanupInterval, s.cleanup)
	if s.backups != nil {
		interval := s.opts.BackupInterval
		if interval <= 0 {
			interval = DefaultBackupInterval
		}
		s.tasks.Every("backup", interval, s.backups.Tick)
	}
	s.tasks.Start(ctx)
}

// Shutdown stops the periodic tasks, waits for background writes until ctx
// is done, then closes the event bus.
func (s *Server) Shutdown(ctx context.Context) {
	s.tasks.Stop()

	done := make(chan struct{})
	go func() {
		s.gw.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		s.logger.Warn("abandoning background writes", "error", ctx.Err())
	}
	s.cancel()
	s.hub.Close()
}

func (s *Server) publishSave(ev gateway.Event) {
	s.hub.Publish(ev.UserID, ws.NewMessage("save", string(ev.Type), "", ev))
}

func (s *Server) publishTimer(userID string, st timer.State) {
	s.hub.Publish(userID, ws.NewMessage("timer", "state", "", st))
}

// completeTimer chimes and, for focus-type modes, records the session. The
// write runs on the server lifetime so later timer actions cannot cancel it.
func (s *Server) completeTimer(userID string, c timer.Completion) {
	s.hub.Publish(userID, ws.NewMessage("timer", "completed", "", map[string]any{
		"mode":    c.Mode,
		"minutes": c.Minutes,
		"cue":     "chime",
	}))
	if !c.Mode.FocusType() {
		return
	}
	session := model.FocusSession{
		ID:        uuid.NewString(),
		StartTime: c.StartedAt.UnixMilli(),
		Duration:  c.Minutes,
		Completed: true,
		Mode:      string(c.Mode),
	}
	s.gw.Submit(s.lifetime, gateway.Request{
		Kind:    handler.KindFocusSessionCreate,
		UserID:  userID,
		Payload: session,
	})
}

// publishScheduleStatus evaluates every connected user and publishes the
// status when the current or next entry changed.
func (s *Server) publishScheduleStatus(ctx context.Context) {
	users := s.hub.UserIDs()
	s.status.Retain(users)
	now := time.Now().In(s.opts.Location)

	for _, userID := range users {
		entries, err := s.entryStore.ListEntries(ctx, userID)
		if err != nil {
			s.logger.Error("list entries for status", "user_id", userID, "error", err)
			continue
		}
		st := schedule.Evaluate(now, entries)
		if s.status.Observe(userID, st) {
			s.hub.Publish(userID, ws.NewMessage("schedule", "status", "", st))
		}
	}
}

func (s *Server) cleanup(ctx context.Context) {
	if n, err := s.sessionStore.DeleteExpired(ctx); err != nil {
		s.logger.Error("delete expired sessions", "error", err)
	} else if n > 0 {
		s.logger.Info("deleted expired sessions", "count", n)
	}
	s.notify.Cleanup(ctx)
	if n := s.rateLimiter.Cleanup(); n > 0 {
		s.logger.Debug("rate limiter cleanup", "dropped", n)
	}
}

func (s *Server) Router() http.Handler {
	outerMux := http.NewServeMux()

	// Public routes (no auth required)
	outerMux.HandleFunc("GET /health", s.healthHandler)
	outerMux.HandleFunc("POST /api/auth/register", s.rateLimitedHandler(s.authH.Register))
	outerMux.HandleFunc("POST /api/auth/login", s.rateLimitedHandler(s.authH.Login))

	// Protected routes, wrapped with RequireAuth middleware
	protectedMux := http.NewServeMux()
	s.registerProtectedRoutes(protectedMux)

	authMiddleware := middleware.RequireAuth(s.sessionStore, s.userStore, s.logger.With("component", "auth"))
	outerMux.Handle("/", authMiddleware(protectedMux))

	return middleware.RequestLogger(s.logger.With("component", "http"))(outerMux)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	status, code := "ok", http.StatusOK
	if err := s.db.PingContext(r.Context()); err != nil {
		status, code = "unavailable", http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]any{
		"status":  status,
		"clients": s.hub.ClientCount(),
	})
}

func (s *Server) rateLimitedHandler(h http.HandlerFunc) http.HandlerFunc {
	rl := middleware.RateLimit(s.rateLimiter, middleware.RealIP, loginLimit, loginWindow)
	return rl(h).ServeHTTP
}

func (s *Server) registerProtectedRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/auth/logout", s.authH.Logout)
	mux.HandleFunc("GET /api/auth/me", s.authH.Me)

	mux.HandleFunc("GET /api/entries", s.entryH.List)
	mux.HandleFunc("POST /api/entries", s.entryH.Create)
	mux.HandleFunc("PUT /api/entries/{id}", s.entryH.Update)
	mux.HandleFunc("DELETE /api/entries/{id}", s.entryH.Delete)

	mux.HandleFunc("GET /api/todos", s.todoH.List)
	mux.HandleFunc("POST /api/todos", s.todoH.Create)
	mux.HandleFunc("POST /api/todos/{id}/toggle", s.todoH.Toggle)
	mux.HandleFunc("DELETE /api/todos/{id}", s.todoH.Delete)

	mux.HandleFunc("GET /api/focus", s.focusH.State)
	mux.HandleFunc("POST /api/focus/start", s.focusH.Start)
	mux.HandleFunc("POST /api/focus/pause", s.focusH.Pause)
	mux.HandleFunc("POST /api/focus/reset", s.focusH.Reset)
	mux.HandleFunc("PUT /api/focus/mode", s.focusH.ChangeMode)
	mux.HandleFunc("PUT /api/focus/custom", s.focusH.SetCustom)
	mux.HandleFunc("GET /api/focus/history", s.focusH.History)

	mux.HandleFunc("GET /api/schedule/status", s.scheduleH.Status)
	mux.HandleFunc("GET /api/schedule/upcoming", s.scheduleH.Upcoming)
	mux.HandleFunc("GET /api/schedule.ics", s.scheduleH.ICS)

	mux.HandleFunc("GET /api/stats", s.statsH.Get)

	mux.HandleFunc("GET /api/settings", s.settingsH.Get)
	mux.HandleFunc("PUT /api/settings", s.settingsH.Update)

	mux.HandleFunc("GET /api/push/vapid-key", s.pushH.VAPIDKey)
	mux.HandleFunc("POST /api/push/subscribe", s.pushH.Subscribe)
	mux.HandleFunc("GET /api/push/subscriptions", s.pushH.List)
	mux.HandleFunc("DELETE /api/push/subscriptions/{id}", s.pushH.Unsubscribe)
	mux.HandleFunc("PUT /api/push/permission", s.pushH.SetPermission)

	mux.HandleFunc("GET /api/saves", s.savesH.Status)
	mux.HandleFunc("POST /api/saves/retry", s.savesH.Retry)

	mux.HandleFunc("POST /api/account/reset", s.accountH.Reset)

	mux.HandleFunc("GET /ws", ws.HandleWebSocket(s.hub, s.logger.With("component", "websocket"), s.opts.AllowedOrigins))
}

// audience is every user with a push subscription or a live connection.
type audience struct {
	subscribers interface {
		ListUserIDs(ctx context.Context) ([]string, error)
	}
	hub *ws.Hub
}

func (a audience) NotifiableUserIDs(ctx context.Context) ([]string, error) {
	ids, err := a.subscribers.ListUserIDs(ctx)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		seen[id] = true
	}
	for _, id := range a.hub.UserIDs() {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// hubDispatcher shows reminders in the user's open tabs.
type hubDispatcher struct {
	hub *ws.Hub
}

func (d hubDispatcher) Dispatch(ctx context.Context, userID string, a notify.Alert) error {
	d.hub.Publish(userID, ws.NewMessage("notification", "class_reminder", a.EntryID, a))
	return nil
}
