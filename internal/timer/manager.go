package timer

import (
	"sync"
	"time"
)

// Hooks receive timer events. They are called without the manager lock held.
type Hooks struct {
	OnChange   func(userID string, st State)
	OnComplete func(userID string, c Completion)
}

// Manager owns one Timer per user.
type Manager struct {
	mu     sync.Mutex
	timers map[string]*Timer
	hooks  Hooks
}

func NewManager(hooks Hooks) *Manager {
	return &Manager{
		timers: make(map[string]*Timer),
		hooks:  hooks,
	}
}

// timer returns the user's timer, creating it on first use. Caller holds mu.
func (m *Manager) timer(userID string) *Timer {
	t, ok := m.timers[userID]
	if !ok {
		t = New()
		m.timers[userID] = t
	}
	return t
}

func (m *Manager) State(userID string) State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.timer(userID).State()
}

func (m *Manager) Start(userID string) (State, error) {
	return m.apply(userID, (*Timer).Start)
}

func (m *Manager) Pause(userID string) (State, error) {
	return m.apply(userID, (*Timer).Pause)
}

func (m *Manager) Reset(userID string) (State, error) {
	return m.apply(userID, func(t *Timer) error {
		t.Reset()
		return nil
	})
}

func (m *Manager) ChangeMode(userID string, mode Mode, confirmed bool) (State, error) {
	return m.apply(userID, func(t *Timer) error {
		return t.ChangeMode(mode, confirmed)
	})
}

func (m *Manager) SetCustomDuration(userID string, minutes int) (State, error) {
	return m.apply(userID, func(t *Timer) error {
		return t.SetCustomDuration(minutes)
	})
}

// Remove discards the user's timer.
func (m *Manager) Remove(userID string) {
	m.mu.Lock()
	delete(m.timers, userID)
	m.mu.Unlock()
}

func (m *Manager) apply(userID string, fn func(*Timer) error) (State, error) {
	m.mu.Lock()
	t := m.timer(userID)
	err := fn(t)
	st := t.State()
	m.mu.Unlock()

	if err != nil {
		return st, err
	}
	if m.hooks.OnChange != nil {
		m.hooks.OnChange(userID, st)
	}
	return st, nil
}

type tickResult struct {
	userID     string
	state      State
	completion *Completion
}

// Tick advances every running timer by one second.
func (m *Manager) Tick(now time.Time) {
	var results []tickResult

	m.mu.Lock()
	for userID, t := range m.timers {
		if t.phase != PhaseRunning {
			continue
		}
		c, _ := t.Tick(now)
		results = append(results, tickResult{userID: userID, state: t.State(), completion: c})
	}
	m.mu.Unlock()

	for _, r := range results {
		if r.completion != nil && m.hooks.OnComplete != nil {
			m.hooks.OnComplete(r.userID, *r.completion)
		}
		if m.hooks.OnChange != nil {
			m.hooks.OnChange(r.userID, r.state)
		}
	}
}
