// Package gateway runs persisted writes with bounded exponential backoff.
//
// Writes are described by Request values and dispatched to the executor
// registered for their kind, so the last failed request of a user can be
// replayed as-is.
package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sethvargo/go-retry"

	"github.com/dukerupert/classdesk/internal/apperr"
)

const (
	DefaultMaxRetries = 3
	DefaultBaseDelay  = time.Second
)

var ErrNothingToRetry = errors.New("no failed operation to retry")

// Request is one write intent. Payload is passed to the executor unchanged on
// every attempt, so executors must write full documents rather than deltas.
type Request struct {
	Kind    string `json:"kind"`
	UserID  string `json:"userId"`
	Payload any    `json:"payload"`
}

type Executor func(ctx context.Context, req Request) (any, error)

// Result is the outcome of a request after all attempts.
type Result struct {
	Value     any
	Err       error
	Kind      apperr.Kind
	Retriable bool
	Attempts  int
}

// Failure is the last failed request of a user.
type Failure struct {
	Request   Request   `json:"request"`
	Error     string    `json:"error"`
	Kind      string    `json:"kind"`
	Message   string    `json:"message"`
	Retriable bool      `json:"retriable"`
	Attempts  int       `json:"attempts"`
	At        time.Time `json:"at"`
}

type EventType string

const (
	EventSaving    EventType = "saving"
	EventRetrying  EventType = "retrying"
	EventSucceeded EventType = "succeeded"
	EventFailed    EventType = "failed"
)

// Event is delivered to observers as a request progresses.
type Event struct {
	Type      EventType     `json:"type"`
	UserID    string        `json:"userId"`
	Op        string        `json:"op"`
	Attempt   int           `json:"attempt,omitempty"`
	Delay     time.Duration `json:"delay,omitempty"`
	Error     string        `json:"error,omitempty"`
	ErrorKind string        `json:"errorKind,omitempty"`
	Message   string        `json:"message,omitempty"`
	Retriable bool          `json:"retriable,omitempty"`
}

type Observer func(Event)

type Option func(*Gateway)

func WithMaxRetries(n int) Option {
	return func(g *Gateway) {
		if n > 0 {
			g.maxRetries = n
		}
	}
}

func WithBaseDelay(d time.Duration) Option {
	return func(g *Gateway) {
		if d > 0 {
			g.baseDelay = d
		}
	}
}

func WithObserver(o Observer) Option {
	return func(g *Gateway) {
		g.observers = append(g.observers, o)
	}
}

type Gateway struct {
	logger     *slog.Logger
	maxRetries int
	baseDelay  time.Duration
	observers  []Observer

	mu        sync.Mutex
	executors map[string]Executor
	inflight  map[string]int
	failed    map[string]Failure

	wg sync.WaitGroup
}

func New(logger *slog.Logger, opts ...Option) *Gateway {
	g := &Gateway{
		logger:     logger,
		maxRetries: DefaultMaxRetries,
		baseDelay:  DefaultBaseDelay,
		executors:  make(map[string]Executor),
		inflight:   make(map[string]int),
		failed:     make(map[string]Failure),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Handle registers the executor for kind, replacing any previous one.
func (g *Gateway) Handle(kind string, exec Executor) {
	g.mu.Lock()
	g.executors[kind] = exec
	g.mu.Unlock()
}

// Register adds a typed executor for kind. A request whose payload is not a T
// fails validation on its first attempt.
func Register[T any](g *Gateway, kind string, fn func(ctx context.Context, userID string, payload T) (any, error)) {
	g.Handle(kind, func(ctx context.Context, req Request) (any, error) {
		p, ok := req.Payload.(T)
		if !ok {
			return nil, apperr.New(apperr.KindValidation, kind, fmt.Sprintf("unexpected payload %T", req.Payload))
		}
		return fn(ctx, req.UserID, p)
	})
}

// Execute runs req until it succeeds, fails with a non-retriable kind, runs
// out of attempts or ctx is done. Backoff waits are BaseDelay * 2^(n-1)
// after the nth failed attempt.
func (g *Gateway) Execute(ctx context.Context, req Request) Result {
	g.mu.Lock()
	exec, ok := g.executors[req.Kind]
	g.mu.Unlock()
	if !ok {
		err := apperr.New(apperr.KindValidation, req.Kind, "unknown operation")
		return Result{Err: err, Kind: apperr.KindValidation}
	}

	g.begin(req)

	var (
		value    any
		attempts int
		waits    int
	)
	backoff := retry.BackoffFunc(func() (time.Duration, bool) {
		waits++
		d := g.baseDelay << (waits - 1)
		g.notify(Event{Type: EventRetrying, UserID: req.UserID, Op: req.Kind, Attempt: attempts, Delay: d})
		return d, false
	})
	backoff = retry.WithMaxRetries(uint64(g.maxRetries-1), backoff)

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempts++
		v, err := exec(ctx, req)
		if err == nil {
			value = v
			return nil
		}
		g.logger.Warn("write attempt failed",
			"op", req.Kind,
			"user_id", req.UserID,
			"attempt", attempts,
			"max", g.maxRetries,
			"error", err,
		)
		if apperr.IsRetriable(err) {
			return retry.RetryableError(err)
		}
		return err
	})
	g.end(req)

	if err == nil {
		g.notify(Event{Type: EventSucceeded, UserID: req.UserID, Op: req.Kind, Attempt: attempts})
		return Result{Value: value, Attempts: attempts}
	}

	ae := apperr.From(req.Kind, err)
	res := Result{Err: ae, Kind: ae.Kind, Retriable: ae.Kind.Retriable(), Attempts: attempts}
	apperr.Log(g.logger, req.Kind, ae)
	if res.Retriable {
		g.recordFailure(req, res)
	}
	g.notify(Event{
		Type:      EventFailed,
		UserID:    req.UserID,
		Op:        req.Kind,
		Attempt:   attempts,
		Error:     ae.Error(),
		ErrorKind: ae.Kind.String(),
		Message:   ae.Kind.Message(),
		Retriable: res.Retriable,
	})
	return res
}

// Submit runs req in the background. Wait blocks until submitted requests
// have finished.
func (g *Gateway) Submit(ctx context.Context, req Request) {
	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		g.Execute(ctx, req)
	}()
}

func (g *Gateway) Wait() {
	g.wg.Wait()
}

// Retry replays the user's last retriable failed request. Requests that
// failed on validation or permission are never kept for replay.
func (g *Gateway) Retry(ctx context.Context, userID string) (Result, error) {
	g.mu.Lock()
	f, ok := g.failed[userID]
	if ok {
		delete(g.failed, userID)
	}
	g.mu.Unlock()
	if !ok {
		return Result{}, ErrNothingToRetry
	}
	return g.Execute(ctx, f.Request), nil
}

// Saving reports whether the user has writes in flight.
func (g *Gateway) Saving(userID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.inflight[userID] > 0
}

// LastFailure returns the user's last failed request, if any.
func (g *Gateway) LastFailure(userID string) (Failure, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	f, ok := g.failed[userID]
	return f, ok
}

// Forget drops any remembered failure for the user.
func (g *Gateway) Forget(userID string) {
	g.mu.Lock()
	delete(g.failed, userID)
	g.mu.Unlock()
}

func (g *Gateway) begin(req Request) {
	g.mu.Lock()
	g.inflight[req.UserID]++
	g.mu.Unlock()
	g.notify(Event{Type: EventSaving, UserID: req.UserID, Op: req.Kind})
}

func (g *Gateway) end(req Request) {
	g.mu.Lock()
	if g.inflight[req.UserID]--; g.inflight[req.UserID] <= 0 {
		delete(g.inflight, req.UserID)
	}
	g.mu.Unlock()
}

func (g *Gateway) recordFailure(req Request, res Result) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.failed[req.UserID] = Failure{
		Request:   req,
		Error:     res.Err.Error(),
		Kind:      res.Kind.String(),
		Message:   res.Kind.Message(),
		Retriable: res.Retriable,
		Attempts:  res.Attempts,
		At:        time.Now(),
	}
}

func (g *Gateway) notify(ev Event) {
	for _, o := range g.observers {
		o(ev)
	}
}
