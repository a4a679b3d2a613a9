package calendar

import (
	"cmp"
	"slices"
)

// Bar is a span drawn in a visible lane. FirstDay and LastDay are day
// indexes within the week.
type Bar struct {
	Key             string
	Label           string
	Lane            int
	FirstDay        int
	LastDay         int
	ContinuesBefore bool
	ContinuesAfter  bool
}

// WeekLayout is what a week view draws.
type WeekLayout struct {
	Week Week

	// Bars are the spans in lanes below the visible budget, by lane then day.
	Bars []Bar

	// Overflow counts, per day, how many overlapping spans exceed the
	// visible budget. It counts every span on the day, not only those in
	// hidden lanes.
	Overflow [DaysPerWeek]int

	// Lanes is the full assignment, including hidden lanes.
	Lanes map[string]int

	// Hidden lists keys of spans overlapping the week without a bar,
	// sorted.
	Hidden []string
}

// Layout assigns lanes for w and splits the result into drawn bars and
// per-day overflow counts for a budget of visible lanes.
func Layout(w Week, spans []Span, visible int) WeekLayout {
	visible = max(visible, 0)

	lanes := AssignLanes(w, spans, DefaultMaxLanes)
	out := WeekLayout{Week: w, Lanes: lanes, Bars: []Bar{}, Hidden: []string{}}

	var perDay [DaysPerWeek]int

	for _, s := range spans {
		first, last, ok := s.clip(w)
		if !ok {
			continue
		}

		for d := first; d <= last; d++ {
			perDay[d]++
		}

		lane, assigned := lanes[s.Key]
		if !assigned || lane >= visible {
			out.Hidden = append(out.Hidden, s.Key)

			continue
		}

		out.Bars = append(out.Bars, Bar{
			Key:             s.Key,
			Label:           s.Label,
			Lane:            lane,
			FirstDay:        first,
			LastDay:         last,
			ContinuesBefore: s.Start.Before(w.Start()),
			ContinuesAfter:  s.End.After(w.End()),
		})
	}

	for d, n := range perDay {
		out.Overflow[d] = max(n-visible, 0)
	}

	slices.SortFunc(out.Bars, func(a, b Bar) int {
		if c := cmp.Compare(a.Lane, b.Lane); c != 0 {
			return c
		}

		return cmp.Compare(a.FirstDay, b.FirstDay)
	})
	slices.Sort(out.Hidden)

	return out
}
