// Package calendar lays out date-ranged items on a Monday–Friday week.
//
// Items are packed into horizontal lanes with a first-fit heuristic: longest
// items first, each into the lowest lane whose days are free. It does not
// minimize the number of lanes.
package calendar

import (
	"strings"
	"time"
)

// DaysPerWeek is the number of days shown: Monday to Friday.
const DaysPerWeek = 5

// DateLayout is the accepted date format.
const DateLayout = "2006-01-02"

// Week is a Monday–Friday window.
type Week struct {
	start time.Time
}

// WeekOf returns the week containing t. Saturdays and Sundays belong to the
// week that started the Monday before.
func WeekOf(t time.Time) Week {
	day := dateOf(t)
	offset := (int(day.Weekday()) + 6) % 7

	return Week{start: day.AddDate(0, 0, -offset)}
}

// Start returns the Monday.
func (w Week) Start() time.Time { return w.start }

// End returns the Friday.
func (w Week) End() time.Time { return w.start.AddDate(0, 0, DaysPerWeek-1) }

// Days returns Monday to Friday.
func (w Week) Days() [DaysPerWeek]time.Time {
	var days [DaysPerWeek]time.Time
	for i := range days {
		days[i] = w.start.AddDate(0, 0, i)
	}

	return days
}

// Next returns the following week.
func (w Week) Next() Week { return Week{start: w.start.AddDate(0, 0, 7)} }

// Prev returns the preceding week.
func (w Week) Prev() Week { return Week{start: w.start.AddDate(0, 0, -7)} }

// DayIndex returns the position of d within the week.
func (w Week) DayIndex(d time.Time) (int, bool) {
	idx := int(dateOf(d).Sub(w.start).Hours() / 24)

	return idx, idx >= 0 && idx < DaysPerWeek
}

func (w Week) String() string {
	return w.start.Format(DateLayout) + ".." + w.End().Format(DateLayout)
}

// ParseDate reads a YYYY-MM-DD date or the date part of an RFC 3339
// timestamp.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)

	if t, err := time.Parse(DateLayout, s); err == nil {
		return t, true
	}

	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return dateOf(t), true
	}

	return time.Time{}, false
}

// dateOf drops the time of day, keeping the calendar date of t in UTC.
func dateOf(t time.Time) time.Time {
	y, m, d := t.Date()

	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
