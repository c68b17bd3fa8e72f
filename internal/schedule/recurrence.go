package schedule

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/teambition/rrule-go"

	"github.com/dukerupert/classdesk/internal/model"
)

var dayAbbrev = [7]string{"SU", "MO", "TU", "WE", "TH", "FR", "SA"}

// Occurrence is one dated instance of an entry.
type Occurrence struct {
	Entry model.Entry `json:"entry"`
	Start time.Time   `json:"start"`
	End   time.Time   `json:"end"`
}

// RRule returns the weekly recurrence rule for e, e.g. "FREQ=WEEKLY;BYDAY=MO,WE".
func RRule(e model.Entry) (string, error) {
	var days []time.Weekday
	for _, d := range e.Days {
		wd, ok := d.Time()
		if !ok {
			return "", fmt.Errorf("entry %s: unknown day %q", e.ID, d)
		}
		days = append(days, wd)
	}
	if len(days) == 0 {
		return "", fmt.Errorf("entry %s: no days", e.ID)
	}
	sort.Slice(days, func(i, j int) bool { return days[i] < days[j] })

	parts := make([]string, 0, len(days))
	for i, d := range days {
		if i > 0 && days[i-1] == d {
			continue
		}
		parts = append(parts, dayAbbrev[d])
	}
	return "FREQ=WEEKLY;BYDAY=" + strings.Join(parts, ","), nil
}

// rule builds the rrule for e anchored at its start time on the day of t.
func rule(e model.Entry, t time.Time) (*rrule.RRule, error) {
	s, err := RRule(e)
	if err != nil {
		return nil, err
	}
	r, err := rrule.StrToRRule(s)
	if err != nil {
		return nil, fmt.Errorf("parse rule %q: %w", s, err)
	}
	dtstart, err := StartOn(e, t)
	if err != nil {
		return nil, err
	}
	r.DTStart(dtstart)
	return r, nil
}

// NextOccurrence returns the first start of e strictly after t.
func NextOccurrence(e model.Entry, t time.Time) (time.Time, error) {
	r, err := rule(e, t)
	if err != nil {
		return time.Time{}, err
	}
	next := r.After(t, false)
	if next.IsZero() {
		return time.Time{}, fmt.Errorf("entry %s: no occurrence after %s", e.ID, t)
	}
	return next, nil
}

// Upcoming expands entries into the occurrences starting in [from, until),
// ordered by start time. Entries that cannot be expanded are skipped.
func Upcoming(entries []model.Entry, from, until time.Time) []Occurrence {
	var out []Occurrence
	for _, e := range entries {
		r, err := rule(e, from)
		if err != nil {
			continue
		}
		start, _ := ParseClock(e.StartTime)
		end, err := ParseClock(e.EndTime)
		if err != nil {
			continue
		}
		length := end - start
		if length < 0 {
			length = 0
		}
		for _, s := range r.Between(from, until, true) {
			if !s.Before(until) {
				continue
			}
			out = append(out, Occurrence{Entry: e, Start: s, End: s.Add(length)})
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Start.Equal(out[j].Start) {
			return out[i].Start.Before(out[j].Start)
		}
		return out[i].Entry.ID < out[j].Entry.ID
	})
	return out
}
