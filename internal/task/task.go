// Package task runs the server's periodic work (timer ticks, schedule
// status, reminder checks, cleanup) under a single cron scheduler. Each task
// has its own handle and never overlaps with itself.
package task

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

type Func func(ctx context.Context)

type Scheduler struct {
	logger *slog.Logger
	cron   *cron.Cron

	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	handles map[string]*Handle
}

// Handle cancels one scheduled task.
type Handle struct {
	name string
	id   cron.EntryID
	s    *Scheduler
	once sync.Once
}

func (h *Handle) Name() string {
	return h.name
}

// Cancel removes the task. A run already in progress is not interrupted.
func (h *Handle) Cancel() {
	h.once.Do(func() {
		h.s.cron.Remove(h.id)
		h.s.mu.Lock()
		if h.s.handles[h.name] == h {
			delete(h.s.handles, h.name)
		}
		h.s.mu.Unlock()
		h.s.logger.Info("task cancelled", "task", h.name)
	})
}

func New(logger *slog.Logger) *Scheduler {
	cl := cronLogger{logger}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		logger: logger,
		cron: cron.New(
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		ctx:     ctx,
		cancel:  cancel,
		handles: make(map[string]*Handle),
	}
}

// Every schedules fn to run every interval, rounded to whole seconds with a
// minimum of one. Scheduling a name twice replaces the earlier task.
func (s *Scheduler) Every(name string, interval time.Duration, fn Func) *Handle {
	s.mu.Lock()
	prev := s.handles[name]
	s.mu.Unlock()
	if prev != nil {
		prev.Cancel()
	}

	job := cron.FuncJob(func() {
		s.mu.Lock()
		ctx := s.ctx
		s.mu.Unlock()
		if ctx.Err() != nil {
			return
		}
		fn(ctx)
	})

	h := &Handle{name: name, s: s}
	h.id = s.cron.Schedule(cron.Every(interval), job)

	s.mu.Lock()
	s.handles[name] = h
	s.mu.Unlock()

	s.logger.Info("task scheduled", "task", name, "interval", interval)
	return h
}

// Names lists the scheduled tasks.
func (s *Scheduler) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.handles))
	for n := range s.handles {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Start begins running tasks. Their context is derived from ctx.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	s.cancel()
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.mu.Unlock()

	s.cron.Start()
}

// Stop cancels the task context and waits for running tasks to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	s.cancel()
	s.mu.Unlock()

	<-s.cron.Stop().Done()
}

type cronLogger struct {
	l *slog.Logger
}

// Info is per-run chatter from cron and goes to debug.
func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debug("cron: "+msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
