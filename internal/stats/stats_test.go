package stats

import (
	"math"
	"testing"
	"time"

	"github.com/dukerupert/classdesk/internal/model"
)

// Wednesday 2026-02-04 15:00 UTC. The week started Sunday 2026-02-01.
var now = time.Date(2026, 2, 4, 15, 0, 0, 0, time.UTC)

func session(t time.Time, minutes int) model.FocusSession {
	return model.FocusSession{StartTime: t.UnixMilli(), Duration: minutes, Completed: true, Mode: "focus"}
}

func at(day, hour int) time.Time {
	return time.Date(2026, 2, day, hour, 0, 0, 0, time.UTC)
}

func TestComputeEmpty(t *testing.T) {
	got := Compute(now, nil, nil)
	if got.BestTime != NoData {
		t.Errorf("BestTime = %q, want %q", got.BestTime, NoData)
	}
	if got.Streak != 0 || got.Trend != 0 || got.TotalSessions != 0 {
		t.Errorf("unexpected summary %+v", got)
	}
}

func TestComputeToday(t *testing.T) {
	sessions := []model.FocusSession{
		session(at(4, 9), 25),
		session(at(4, 13), 30),
		session(at(3, 9), 25),
	}
	entries := []model.Entry{
		{ID: "e1", Days: []model.Weekday{model.Wednesday}, StartTime: "09:00", EndTime: "10:30", Subject: "Math"},
		{ID: "e2", Days: []model.Weekday{model.Monday}, StartTime: "09:00", EndTime: "10:00", Subject: "Art"},
	}

	got := Compute(now, sessions, entries)
	if got.TodayFocusMinutes != 55 {
		t.Errorf("TodayFocusMinutes = %d, want 55", got.TodayFocusMinutes)
	}
	if got.TodaySessions != 2 {
		t.Errorf("TodaySessions = %d, want 2", got.TodaySessions)
	}
	if got.ClassMinutes != 90 {
		t.Errorf("ClassMinutes = %d, want 90", got.ClassMinutes)
	}
	if got.TotalSessions != 3 {
		t.Errorf("TotalSessions = %d, want 3", got.TotalSessions)
	}
}

func TestComputeWeekAndTrend(t *testing.T) {
	sessions := []model.FocusSession{
		session(at(1, 10), 25), // Sunday, this week
		session(at(4, 10), 25), // today
		session(time.Date(2026, 1, 29, 10, 0, 0, 0, time.UTC), 50), // last week
	}

	got := Compute(now, sessions, nil)
	if got.WeekFocusMinutes != 50 || got.WeekSessions != 2 {
		t.Errorf("week = %d min / %d sessions, want 50 / 2", got.WeekFocusMinutes, got.WeekSessions)
	}
	if math.Abs(got.Trend) > 1e-9 {
		t.Errorf("Trend = %v, want 0 (50 vs 50)", got.Trend)
	}

	sessions = append(sessions, session(at(2, 10), 25))
	got = Compute(now, sessions, nil)
	if math.Abs(got.Trend-50) > 1e-9 {
		t.Errorf("Trend = %v, want 50", got.Trend)
	}
}

func TestComputeStreak(t *testing.T) {
	sessions := []model.FocusSession{
		session(at(4, 8), 25),
		session(at(3, 8), 25),
		session(at(2, 8), 25),
		// gap on the 1st
		session(now.AddDate(0, 0, -4), 25),
	}
	if got := Compute(now, sessions, nil).Streak; got != 3 {
		t.Errorf("Streak = %d, want 3", got)
	}

	// No session today means no streak.
	if got := Compute(now, sessions[1:], nil).Streak; got != 0 {
		t.Errorf("Streak without today = %d, want 0", got)
	}
}

func TestComputeStreakAcrossYearInZone(t *testing.T) {
	// UTC-5: sessions at 02:00 UTC fall on the previous local day.
	loc := time.FixedZone("EST", -5*3600)
	now := time.Date(2026, 1, 1, 20, 0, 0, 0, loc)
	sessions := []model.FocusSession{
		session(time.Date(2026, 1, 2, 2, 0, 0, 0, time.UTC), 25),   // Jan 1 21:00 local
		session(time.Date(2025, 12, 31, 23, 0, 0, 0, time.UTC), 25), // Dec 31 18:00 local
		session(time.Date(2025, 12, 31, 3, 0, 0, 0, time.UTC), 25),  // Dec 30 22:00 local
		session(time.Date(2025, 12, 28, 12, 0, 0, 0, time.UTC), 25), // gap
	}
	if got := Compute(now, sessions, nil).Streak; got != 3 {
		t.Errorf("Streak = %d, want 3", got)
	}
}

func TestComputeStreakAcrossDST(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("tz database unavailable: %v", err)
	}
	// Clocks sprang forward on 2026-03-08.
	now := time.Date(2026, 3, 9, 18, 0, 0, 0, loc)
	sessions := []model.FocusSession{
		session(time.Date(2026, 3, 9, 8, 0, 0, 0, loc), 25),
		session(time.Date(2026, 3, 8, 3, 30, 0, 0, loc), 25),
		session(time.Date(2026, 3, 7, 23, 30, 0, 0, loc), 25),
	}
	if got := Compute(now, sessions, nil).Streak; got != 3 {
		t.Errorf("Streak = %d, want 3", got)
	}
}

func TestDayKey(t *testing.T) {
	a := time.Date(2026, 2, 4, 0, 0, 0, 0, time.UTC)
	b := time.Date(2026, 2, 4, 23, 59, 59, 0, time.FixedZone("X", 0))
	if dayKey(a) != 20260204 || dayKey(a) != dayKey(b) {
		t.Errorf("dayKey = %d, %d, want 20260204", dayKey(a), dayKey(b))
	}
}

func TestComputeBestTime(t *testing.T) {
	sessions := []model.FocusSession{
		session(at(4, 8), 25),
		session(at(3, 14), 30),
		session(at(2, 20), 20),
	}
	if got := Compute(now, sessions, nil).BestTime; got != Afternoon {
		t.Errorf("BestTime = %q, want %q", got, Afternoon)
	}

	// Ties go to the earliest hour.
	tied := []model.FocusSession{session(at(4, 21), 25), session(at(4, 6), 25)}
	if got := Compute(now, tied, nil).BestTime; got != Morning {
		t.Errorf("BestTime = %q, want %q", got, Morning)
	}
}

func TestPartOfDay(t *testing.T) {
	tests := []struct {
		hour int
		want string
	}{
		{0, Evening},
		{4, Evening},
		{5, Morning},
		{11, Morning},
		{12, Afternoon},
		{16, Afternoon},
		{17, Evening},
		{23, Evening},
	}
	for _, tt := range tests {
		if got := PartOfDay(tt.hour); got != tt.want {
			t.Errorf("PartOfDay(%d) = %q, want %q", tt.hour, got, tt.want)
		}
	}
}
