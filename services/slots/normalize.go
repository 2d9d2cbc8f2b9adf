// Package slots canonicalizes time-range labels and builds the daily slot template.
// Canonical labels are 24-hour "HH:MM - HH:MM"; the end of the day is written "24:00".
package slots

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

const minutesPerDay = 24 * 60

// ErrMalformedSlot is returned for labels that cannot be coerced to the canonical form.
var ErrMalformedSlot = errors.New("malformed slot label")

var dashReplacer = strings.NewReplacer(
	"‐", "-", "‑", "-", "‒", "-", "–", "-",
	"—", "-", "―", "-", "−", "-", "﹘", "-",
	"﹣", "-", "－", "-",
)

var clockPattern = regexp.MustCompile(`^(\d{1,2})(?::(\d{2}))?\s*(am|pm|a\.m\.|p\.m\.)?$`)

// Range is a slot in minutes since local midnight, half-open [Start, End).
type Range struct {
	Start int
	End   int
}

func (r Range) String() string {
	return formatClock(r.Start) + " - " + formatClock(r.End)
}

func (r Range) Overlaps(o Range) bool {
	return r.Start < o.End && o.Start < r.End
}

// Normalize returns the canonical form of label. It is idempotent.
func Normalize(label string) (string, error) {
	r, err := Parse(label)
	if err != nil {
		return "", err
	}
	return r.String(), nil
}

// NormalizeAll normalizes every label, failing on the first malformed one.
func NormalizeAll(labels []string) ([]string, error) {
	out := make([]string, 0, len(labels))
	for _, l := range labels {
		n, err := Normalize(l)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

// Parse accepts 24-hour and 12-hour clocks around any dash variant.
func Parse(label string) (Range, error) {
	s := dashReplacer.Replace(label)
	s = strings.Join(strings.Fields(s), " ")
	parts := strings.Split(s, "-")
	if len(parts) != 2 {
		return Range{}, fmt.Errorf("%w: %q", ErrMalformedSlot, label)
	}
	start, err := parseClock(parts[0], false)
	if err != nil {
		return Range{}, fmt.Errorf("%w: %q", ErrMalformedSlot, label)
	}
	end, err := parseClock(parts[1], true)
	if err != nil {
		return Range{}, fmt.Errorf("%w: %q", ErrMalformedSlot, label)
	}
	if end <= start {
		return Range{}, fmt.Errorf("%w: %q ends before it starts", ErrMalformedSlot, label)
	}
	return Range{Start: start, End: end}, nil
}

// parseClock returns minutes since midnight. Midnight as an end bound is the
// end of the day.
func parseClock(raw string, isEnd bool) (int, error) {
	m := clockPattern.FindStringSubmatch(strings.ToLower(strings.TrimSpace(raw)))
	if m == nil {
		return 0, ErrMalformedSlot
	}
	hour, _ := strconv.Atoi(m[1])
	minute := 0
	if m[2] != "" {
		minute, _ = strconv.Atoi(m[2])
	}
	if minute > 59 {
		return 0, ErrMalformedSlot
	}

	switch strings.ReplaceAll(m[3], ".", "") {
	case "am":
		if hour < 1 || hour > 12 {
			return 0, ErrMalformedSlot
		}
		if hour == 12 {
			hour = 0
		}
	case "pm":
		if hour < 1 || hour > 12 {
			return 0, ErrMalformedSlot
		}
		if hour != 12 {
			hour += 12
		}
	default:
		if hour > 24 {
			return 0, ErrMalformedSlot
		}
	}

	total := hour*60 + minute
	if isEnd && total == 0 {
		total = minutesPerDay
	}
	if total > minutesPerDay || (!isEnd && total == minutesPerDay) {
		return 0, ErrMalformedSlot
	}
	return total, nil
}

func formatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}
