// Package feed renders a user's timetable as an iCalendar subscription.
package feed

import (
	"time"

	ical "github.com/arran4/golang-ical"

	"github.com/dukerupert/classdesk/internal/model"
	"github.com/dukerupert/classdesk/internal/schedule"
)

const (
	ProductID = "-//classdesk//timetable//EN"
	uidSuffix = "@classdesk"
)

// Calendar builds a VCALENDAR with one weekly recurring VEVENT per entry.
// Each event is anchored at the entry's first occurrence on or after the
// start of now's day. Entries with unusable times or days are left out.
func Calendar(name string, entries []model.Entry, now time.Time) *ical.Calendar {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(ProductID)
	if name != "" {
		cal.SetXWRCalName(name)
	}

	y, m, d := now.Date()
	anchor := time.Date(y, m, d, 0, 0, 0, 0, now.Location()).Add(-time.Nanosecond)

	for _, e := range entries {
		rule, err := schedule.RRule(e)
		if err != nil {
			continue
		}
		start, err := schedule.NextOccurrence(e, anchor)
		if err != nil {
			continue
		}
		from, _ := schedule.ParseClock(e.StartTime)
		to, err := schedule.ParseClock(e.EndTime)
		if err != nil || to <= from {
			continue
		}

		ev := cal.AddEvent(e.ID + uidSuffix)
		ev.SetDtStampTime(now)
		ev.SetStartAt(start)
		ev.SetEndAt(start.Add(to - from))
		ev.SetSummary(e.Subject)
		if e.Location != "" {
			ev.SetLocation(e.Location)
		}
		ev.AddProperty(ical.ComponentPropertyRrule, rule)
	}
	return cal
}

// Render serializes Calendar to text/calendar content.
func Render(name string, entries []model.Entry, now time.Time) string {
	return Calendar(name, entries, now).Serialize()
}
