package models

import "time"

// Interval is a busy period reported by the calendar, in absolute time.
type Interval struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Overlaps treats intervals as half-open.
func (i Interval) Overlaps(start, end time.Time) bool {
	return i.Start.Before(end) && start.Before(i.End)
}

// CalendarEvent describes a confirmed reservation to put on the calendar.
type CalendarEvent struct {
	Date        string
	Slot        string
	Summary     string
	Description string
	Timezone    string
}
