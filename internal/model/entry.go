package model

import "time"

// Weekday names an active day of a recurring entry.
type Weekday string

const (
	Sunday    Weekday = "Sunday"
	Monday    Weekday = "Monday"
	Tuesday   Weekday = "Tuesday"
	Wednesday Weekday = "Wednesday"
	Thursday  Weekday = "Thursday"
	Friday    Weekday = "Friday"
	Saturday  Weekday = "Saturday"
)

// Weekdays is indexed by time.Weekday.
var Weekdays = [7]Weekday{Sunday, Monday, Tuesday, Wednesday, Thursday, Friday, Saturday}

// WeekdayOf returns the weekday of t in t's location.
func WeekdayOf(t time.Time) Weekday {
	return Weekdays[t.Weekday()]
}

// Time converts d to a time.Weekday. ok is false for unknown names.
func (d Weekday) Time() (time.Weekday, bool) {
	for i, w := range Weekdays {
		if w == d {
			return time.Weekday(i), true
		}
	}
	return 0, false
}

func (d Weekday) Valid() bool {
	_, ok := d.Time()
	return ok
}

// Entry is a weekly recurring class. StartTime and EndTime are wall-clock "HH:MM".
type Entry struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Days      []Weekday `json:"days"`
	StartTime string    `json:"startTime"`
	EndTime   string    `json:"endTime"`
	Subject   string    `json:"subject"`
	Location  string    `json:"location,omitempty"`
	Color     string    `json:"color,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// OnDay reports whether the entry is active on d.
func (e Entry) OnDay(d Weekday) bool {
	for _, day := range e.Days {
		if day == d {
			return true
		}
	}
	return false
}
