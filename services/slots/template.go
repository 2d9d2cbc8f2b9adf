package slots

import (
	"fmt"
	"time"
)

// Template is the fixed grid of same-length slots offered each day.
type Template struct {
	Open    int
	Close   int
	Minutes int
}

// NewTemplate builds a template from clock strings such as "06:00" and "24:00".
func NewTemplate(openAt, closeAt string, minutes int) (Template, error) {
	window, err := Parse(openAt + " - " + closeAt)
	if err != nil {
		return Template{}, fmt.Errorf("invalid slot template window: %w", err)
	}
	if minutes <= 0 || minutes > window.End-window.Start {
		return Template{}, fmt.Errorf("invalid slot length %d minutes", minutes)
	}
	return Template{Open: window.Start, Close: window.End, Minutes: minutes}, nil
}

// Slots lists the template in order. A trailing remainder shorter than one
// slot is dropped.
func (t Template) Slots() []Range {
	var out []Range
	for start := t.Open; start+t.Minutes <= t.Close; start += t.Minutes {
		out = append(out, Range{Start: start, End: start + t.Minutes})
	}
	return out
}

// Bounds converts a slot on the given local day to absolute times.
func Bounds(day time.Time, r Range) (time.Time, time.Time) {
	y, m, d := day.Date()
	loc := day.Location()
	return time.Date(y, m, d, 0, r.Start, 0, 0, loc), time.Date(y, m, d, 0, r.End, 0, 0, loc)
}
