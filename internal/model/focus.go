package model

import "time"

// FocusSession records one completed countdown.
type FocusSession struct {
	ID        string `json:"id"`
	UserID    string `json:"userId"`
	StartTime int64  `json:"startTime"` // epoch milliseconds
	Duration  int    `json:"duration"`  // whole minutes
	Completed bool   `json:"completed"`
	Mode      string `json:"mode"`
}

// Started returns StartTime as a time.Time in loc.
func (s FocusSession) Started(loc *time.Location) time.Time {
	return time.UnixMilli(s.StartTime).In(loc)
}
