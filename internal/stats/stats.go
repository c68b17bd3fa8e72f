// Package stats summarizes a user's focus history and class load.
package stats

import (
	"time"

	"github.com/dukerupert/classdesk/internal/model"
	"github.com/dukerupert/classdesk/internal/schedule"
)

const (
	Morning   = "Morning"
	Afternoon = "Afternoon"
	Evening   = "Evening"
	NoData    = "No data"
)

// Summary is the productivity view of one user at one instant.
type Summary struct {
	TodayFocusMinutes int     `json:"todayFocusMinutes"`
	TodaySessions     int     `json:"todaySessions"`
	ClassMinutes      int     `json:"classMinutes"`
	WeekFocusMinutes  int     `json:"weekFocusMinutes"`
	WeekSessions      int     `json:"weekSessions"`
	Streak            int     `json:"streak"`
	BestTime          string  `json:"bestTime"`
	Trend             float64 `json:"trend"`
	TotalSessions     int     `json:"totalSessions"`
}

// Compute builds the summary at now. Session start times are interpreted
// in now's location; weeks start on Sunday.
func Compute(now time.Time, sessions []model.FocusSession, entries []model.Entry) Summary {
	loc := now.Location()
	today := startOfDay(now)
	tomorrow := today.AddDate(0, 0, 1)
	weekStart := today.AddDate(0, 0, -int(today.Weekday()))
	weekEnd := weekStart.AddDate(0, 0, 7)
	lastWeekStart := weekStart.AddDate(0, 0, -7)

	sum := Summary{
		ClassMinutes:  schedule.ClassMinutes(now, entries),
		TotalSessions: len(sessions),
		BestTime:      NoData,
	}

	days := make(map[int]bool)
	var hourMinutes [24]int
	lastWeekMinutes := 0

	for _, s := range sessions {
		started := s.Started(loc)
		days[dayKey(started)] = true
		hourMinutes[started.Hour()] += s.Duration

		if within(started, today, tomorrow) {
			sum.TodayFocusMinutes += s.Duration
			sum.TodaySessions++
		}
		if within(started, weekStart, weekEnd) {
			sum.WeekFocusMinutes += s.Duration
			sum.WeekSessions++
		}
		if within(started, lastWeekStart, weekStart) {
			lastWeekMinutes += s.Duration
		}
	}

	for d := today; days[dayKey(d)]; d = d.AddDate(0, 0, -1) {
		sum.Streak++
	}

	best := 0
	for h, m := range hourMinutes {
		if m > best {
			best = m
			sum.BestTime = PartOfDay(h)
		}
	}

	if lastWeekMinutes > 0 {
		sum.Trend = float64(sum.WeekFocusMinutes-lastWeekMinutes) / float64(lastWeekMinutes) * 100
	}
	return sum
}

// PartOfDay buckets an hour: 5-11 Morning, 12-16 Afternoon, else Evening.
func PartOfDay(hour int) string {
	switch {
	case hour >= 5 && hour < 12:
		return Morning
	case hour >= 12 && hour < 17:
		return Afternoon
	default:
		return Evening
	}
}

// dayKey identifies t's calendar date as yyyymmdd.
func dayKey(t time.Time) int {
	y, m, d := t.Date()
	return y*10000 + int(m)*100 + d
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func within(t, from, until time.Time) bool {
	return !t.Before(from) && t.Before(until)
}
