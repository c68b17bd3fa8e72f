// Package schedule answers wall-clock questions about weekly recurring
// entries: which class is on now, which one is next, and when each one
// occurs again.
package schedule

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/dukerupert/classdesk/internal/model"
)

// Status is the evaluator output for one instant.
type Status struct {
	Now     time.Time     `json:"now"`
	Day     model.Weekday `json:"day"`
	Current *model.Entry  `json:"current"`
	Next    *model.Entry  `json:"next"`
}

// Changed reports whether the current or next entry differs from prev.
func (s Status) Changed(prev Status) bool {
	return entryID(s.Current) != entryID(prev.Current) || entryID(s.Next) != entryID(prev.Next)
}

func entryID(e *model.Entry) string {
	if e == nil {
		return ""
	}
	return e.ID
}

// Evaluate determines the current and next entry at now.
//
// Today's entries are ordered by start, end, then ID. Current is the first
// whose [start, end) contains now; Next is the first that starts strictly
// after now. At exactly an entry's start it is current and not next.
func Evaluate(now time.Time, entries []model.Entry) Status {
	st := Status{Now: now, Day: model.WeekdayOf(now)}
	clock := sinceMidnight(now)

	for _, se := range today(now, entries) {
		if st.Current == nil && se.start <= clock && clock < se.end {
			e := se.entry
			st.Current = &e
		}
		if st.Next == nil && se.start > clock {
			e := se.entry
			st.Next = &e
		}
	}
	return st
}

// Today returns the entries active on now's weekday in evaluation order.
// Entries with unparseable times are skipped.
func Today(now time.Time, entries []model.Entry) []model.Entry {
	sorted := today(now, entries)
	out := make([]model.Entry, len(sorted))
	for i, se := range sorted {
		out[i] = se.entry
	}
	return out
}

// ClassMinutes sums the scheduled minutes of today's entries.
func ClassMinutes(now time.Time, entries []model.Entry) int {
	total := 0
	for _, se := range today(now, entries) {
		if se.end > se.start {
			total += int((se.end - se.start) / time.Minute)
		}
	}
	return total
}

// StartOn returns the wall-clock start of e on the calendar day of t.
func StartOn(e model.Entry, t time.Time) (time.Time, error) {
	tod, err := ParseClock(e.StartTime)
	if err != nil {
		return time.Time{}, err
	}
	return onDay(t, tod), nil
}

// EndOn returns the wall-clock end of e on the calendar day of t.
func EndOn(e model.Entry, t time.Time) (time.Time, error) {
	tod, err := ParseClock(e.EndTime)
	if err != nil {
		return time.Time{}, err
	}
	return onDay(t, tod), nil
}

// ParseClock parses "HH:MM" into an offset from midnight.
func ParseClock(s string) (time.Duration, error) {
	hh, mm, ok := strings.Cut(s, ":")
	if !ok || len(hh) != 2 || len(mm) != 2 {
		return 0, fmt.Errorf("time %q: want HH:MM", s)
	}
	h, err := strconv.Atoi(hh)
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("time %q: invalid hour", s)
	}
	m, err := strconv.Atoi(mm)
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("time %q: invalid minute", s)
	}
	return time.Duration(h)*time.Hour + time.Duration(m)*time.Minute, nil
}

type scheduled struct {
	entry      model.Entry
	start, end time.Duration
}

func today(now time.Time, entries []model.Entry) []scheduled {
	day := model.WeekdayOf(now)
	var out []scheduled
	for _, e := range entries {
		if !e.OnDay(day) {
			continue
		}
		start, err := ParseClock(e.StartTime)
		if err != nil {
			continue
		}
		end, err := ParseClock(e.EndTime)
		if err != nil {
			continue
		}
		out = append(out, scheduled{entry: e, start: start, end: end})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].start != out[j].start {
			return out[i].start < out[j].start
		}
		if out[i].end != out[j].end {
			return out[i].end < out[j].end
		}
		return out[i].entry.ID < out[j].entry.ID
	})
	return out
}

// sinceMidnight is the wall-clock offset of t, independent of DST shifts.
func sinceMidnight(t time.Time) time.Duration {
	h, m, s := t.Clock()
	return time.Duration(h)*time.Hour + time.Duration(m)*time.Minute +
		time.Duration(s)*time.Second + time.Duration(t.Nanosecond())
}

func onDay(t time.Time, tod time.Duration) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location()).Add(tod)
}
