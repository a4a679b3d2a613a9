package calendar

import (
	"cmp"
	"slices"
	"time"

	"taskboard/internal/task"
)

// DefaultMaxLanes bounds the occupancy grid.
const DefaultMaxLanes = 20

// Span is an item with an inclusive date range.
type Span struct {
	Key   string
	Label string
	Start time.Time
	End   time.Time
}

// Days returns the inclusive length of the range in days.
func (s Span) Days() int {
	return int(s.End.Sub(s.Start).Hours()/24) + 1
}

// clip returns the span's first and last day index within w.
func (s Span) clip(w Week) (int, int, bool) {
	if s.End.Before(w.Start()) || s.Start.After(w.End()) {
		return 0, 0, false
	}

	first, last := 0, DaysPerWeek-1

	if idx, ok := w.DayIndex(s.Start); ok {
		first = idx
	}

	if idx, ok := w.DayIndex(s.End); ok {
		last = idx
	}

	return first, last, true
}

// SpansFromItems builds spans from the date fields of items. Items without
// a parseable start, and archived items, are skipped. A missing or
// unparseable end makes a single-day span; an end before the start is
// swapped.
func SpansFromItems(items []task.Item, startField, endField string) []Span {
	spans := make([]Span, 0, len(items))

	for _, it := range items {
		if it.Archived {
			continue
		}

		raw, _ := it.Meta.GetText(startField)

		start, ok := ParseDate(raw)
		if !ok {
			continue
		}

		end := start

		if raw, ok := it.Meta.GetText(endField); ok {
			if parsed, ok := ParseDate(raw); ok {
				end = parsed
			}
		}

		if end.Before(start) {
			start, end = end, start
		}

		spans = append(spans, Span{Key: it.Path, Label: it.Name, Start: start, End: end})
	}

	return spans
}

// AssignLanes packs spans overlapping w into at most maxLanes lanes and
// returns key → lane. Spans are taken longest first, then by start, then by
// key; each goes into the lowest lane free on all its days within w. Spans
// outside w, or that fit in no lane, are absent from the result.
//
// Two spans sharing a lane never overlap within w.
func AssignLanes(w Week, spans []Span, maxLanes int) map[string]int {
	if maxLanes <= 0 {
		maxLanes = DefaultMaxLanes
	}

	sorted := slices.Clone(spans)
	slices.SortStableFunc(sorted, func(a, b Span) int {
		if c := cmp.Compare(b.Days(), a.Days()); c != 0 {
			return c
		}

		if c := a.Start.Compare(b.Start); c != 0 {
			return c
		}

		return cmp.Compare(a.Key, b.Key)
	})

	grid := make([][DaysPerWeek]bool, maxLanes)
	lanes := make(map[string]int, len(sorted))

	for _, s := range sorted {
		first, last, ok := s.clip(w)
		if !ok {
			continue
		}

		for lane := range grid {
			if !free(grid[lane], first, last) {
				continue
			}

			for d := first; d <= last; d++ {
				grid[lane][d] = true
			}

			lanes[s.Key] = lane

			break
		}
	}

	return lanes
}

func free(row [DaysPerWeek]bool, first, last int) bool {
	for d := first; d <= last; d++ {
		if row[d] {
			return false
		}
	}

	return true
}
