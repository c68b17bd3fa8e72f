// Package timer implements the focus countdown: a per-user state machine
// advanced by an external one-second tick.
package timer

import (
	"errors"
	"fmt"
	"time"
)

type Mode string

const (
	ModeFocus      Mode = "focus"
	ModeShortBreak Mode = "short_break"
	ModeLongBreak  Mode = "long_break"
	ModeCustom     Mode = "custom"
)

const (
	DefaultCustomMinutes = 30
	MinCustomMinutes     = 1
	MaxCustomMinutes     = 180
)

var modeMinutes = map[Mode]int{
	ModeFocus:      25,
	ModeShortBreak: 5,
	ModeLongBreak:  15,
}

// ParseMode validates a mode name.
func ParseMode(s string) (Mode, error) {
	m := Mode(s)
	switch m {
	case ModeFocus, ModeShortBreak, ModeLongBreak, ModeCustom:
		return m, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownMode, s)
}

// FocusType reports whether completing a countdown in m is recorded as a
// focus session. Breaks are not.
func (m Mode) FocusType() bool {
	return m == ModeFocus || m == ModeCustom
}

type Phase string

const (
	PhaseIdle      Phase = "idle"
	PhaseRunning   Phase = "running"
	PhasePaused    Phase = "paused"
	PhaseCompleted Phase = "completed"
)

var (
	ErrNothingRemaining     = errors.New("timer: no time remaining")
	ErrNotRunning           = errors.New("timer: not running")
	ErrConfirmationRequired = errors.New("timer: changing mode discards progress")
	ErrUnknownMode          = errors.New("timer: unknown mode")
	ErrInvalidDuration      = errors.New("timer: custom duration out of range")
)

// State is a snapshot of a timer.
type State struct {
	Mode          Mode   `json:"mode"`
	Phase         Phase  `json:"phase"`
	Remaining     int    `json:"remaining"`
	Total         int    `json:"total"`
	CustomMinutes int    `json:"customMinutes"`
	Display       string `json:"display"`
	Progress      int    `json:"progress"`
}

// Completion describes one countdown reaching zero.
type Completion struct {
	Mode        Mode
	Minutes     int
	StartedAt   time.Time
	CompletedAt time.Time
}

// Timer is not safe for concurrent use; Manager serializes access.
type Timer struct {
	mode          Mode
	phase         Phase
	remaining     int
	customMinutes int
	// runTotal is the length in seconds of the run in flight, fixed at Reset.
	runTotal int
}

// New returns an idle focus timer.
func New() *Timer {
	t := &Timer{mode: ModeFocus, customMinutes: DefaultCustomMinutes}
	t.Reset()
	return t
}

// Total is the full duration of the current mode in seconds.
func (t *Timer) Total() int {
	return t.minutes() * 60
}

func (t *Timer) minutes() int {
	if t.mode == ModeCustom {
		return t.customMinutes
	}
	return modeMinutes[t.mode]
}

// HasProgress reports whether a run is in flight: running, or paused short
// of the full duration.
func (t *Timer) HasProgress() bool {
	switch t.phase {
	case PhaseRunning:
		return true
	case PhasePaused:
		return t.remaining < t.runTotal
	}
	return false
}

func (t *Timer) Start() error {
	if t.phase == PhaseRunning {
		return nil
	}
	if t.remaining <= 0 {
		return ErrNothingRemaining
	}
	t.phase = PhaseRunning
	return nil
}

func (t *Timer) Pause() error {
	if t.phase != PhaseRunning {
		return ErrNotRunning
	}
	t.phase = PhasePaused
	return nil
}

// Reset returns to Idle with the full duration of the current mode.
func (t *Timer) Reset() {
	t.phase = PhaseIdle
	t.runTotal = t.Total()
	t.remaining = t.runTotal
}

// ChangeMode switches to m. While a run is in flight the caller must pass
// confirmed, otherwise ErrConfirmationRequired is returned and nothing changes.
func (t *Timer) ChangeMode(m Mode, confirmed bool) error {
	if _, err := ParseMode(string(m)); err != nil {
		return err
	}
	if t.HasProgress() && !confirmed {
		return ErrConfirmationRequired
	}
	t.mode = m
	t.Reset()
	return nil
}

// SetCustomDuration updates the custom mode length. A custom run in flight
// keeps its length; the new one applies from the next reset.
func (t *Timer) SetCustomDuration(minutes int) error {
	if minutes < MinCustomMinutes || minutes > MaxCustomMinutes {
		return fmt.Errorf("%w: %d", ErrInvalidDuration, minutes)
	}
	t.customMinutes = minutes
	if t.mode == ModeCustom && t.phase != PhaseRunning && !t.HasProgress() {
		t.Reset()
	}
	return nil
}

// Tick advances a running timer by one second. It returns a completion
// exactly once, on the tick that reaches zero, after which the timer is
// idle again with the full duration.
func (t *Timer) Tick(now time.Time) (*Completion, bool) {
	if t.phase != PhaseRunning {
		return nil, false
	}
	t.remaining--
	if t.remaining > 0 {
		return nil, false
	}

	t.phase = PhaseCompleted
	minutes := t.runTotal / 60
	c := &Completion{
		Mode:        t.mode,
		Minutes:     minutes,
		StartedAt:   now.Add(-time.Duration(minutes) * time.Minute),
		CompletedAt: now,
	}
	t.Reset()
	return c, true
}

// State returns a snapshot.
func (t *Timer) State() State {
	total := t.runTotal
	return State{
		Mode:          t.mode,
		Phase:         t.phase,
		Remaining:     t.remaining,
		Total:         total,
		CustomMinutes: t.customMinutes,
		Display:       Format(t.remaining),
		Progress:      Progress(t.remaining, total),
	}
}

// Format renders seconds as zero-padded MM:SS.
func Format(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}

// Progress is the elapsed share of total in whole percent, clamped to [0,100].
func Progress(remaining, total int) int {
	if total <= 0 {
		return 0
	}
	p := (total - remaining) * 100 / total
	switch {
	case p < 0:
		return 0
	case p > 100:
		return 100
	}
	return p
}
