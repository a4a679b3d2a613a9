package cli

import (
	"fmt"
	"strings"

	"github.com/mattn/go-runewidth"

	"taskboard/internal/board"
	"taskboard/internal/calendar"
)

const (
	columnGap    = 2
	minColumn    = 12
	dayCellWidth = 16
	laneLabel    = 8
)

// renderBoard lays the buckets side by side within width terminal columns.
func renderBoard(buckets []board.Bucket, width int) []string {
	if len(buckets) == 0 {
		return nil
	}

	colWidth := max((width-columnGap*(len(buckets)-1))/len(buckets), minColumn)

	rows := 0
	for _, b := range buckets {
		rows = max(rows, len(b.Items))
	}

	header := make([]string, len(buckets))
	rule := make([]string, len(buckets))

	for i, b := range buckets {
		header[i] = cell(fmt.Sprintf("%s (%d)", b.Label, len(b.Items)), colWidth)
		rule[i] = strings.Repeat("-", colWidth)
	}

	lines := []string{joinCells(header), joinCells(rule)}

	for r := range rows {
		cells := make([]string, len(buckets))

		for i, b := range buckets {
			text := ""
			if r < len(b.Items) {
				text = b.Items[r].Name
			}

			cells[i] = cell(text, colWidth)
		}

		lines = append(lines, joinCells(cells))
	}

	return lines
}

// renderWeek draws one row per visible lane and a final row with the number
// of items that did not fit on each day.
func renderWeek(layout calendar.WeekLayout, visible int) []string {
	days := layout.Week.Days()

	header := make([]string, 0, calendar.DaysPerWeek)
	for _, d := range days {
		header = append(header, cell(d.Format("Mon 01-02"), dayCellWidth))
	}

	lines := []string{
		"Week " + layout.Week.String(),
		laneRow("", header),
	}

	grid := make([][calendar.DaysPerWeek]string, visible)

	for _, bar := range layout.Bars {
		if bar.Lane >= visible {
			continue
		}

		label := bar.Label
		if bar.ContinuesBefore {
			label = "<" + label
		}

		for d := bar.FirstDay; d <= bar.LastDay; d++ {
			text := strings.Repeat("~", dayCellWidth)
			if d == bar.FirstDay {
				text = label
			}

			if d == bar.LastDay && bar.ContinuesAfter {
				text = runewidth.Truncate(text, dayCellWidth-1, "") + ">"
			}

			grid[bar.Lane][d] = text
		}
	}

	for lane, row := range grid {
		cells := make([]string, calendar.DaysPerWeek)
		for d, text := range row {
			cells[d] = cell(text, dayCellWidth)
		}

		lines = append(lines, laneRow(fmt.Sprintf("lane %d", lane), cells))
	}

	overflow := make([]string, calendar.DaysPerWeek)
	hidden := false

	for d, n := range layout.Overflow {
		text := ""
		if n > 0 {
			text = fmt.Sprintf("+%d more", n)
			hidden = true
		}

		overflow[d] = cell(text, dayCellWidth)
	}

	if hidden {
		lines = append(lines, laneRow("", overflow))
	}

	return lines
}

// cell truncates or pads s to exactly w display columns.
func cell(s string, w int) string {
	if runewidth.StringWidth(s) > w {
		s = runewidth.Truncate(s, w, "…")
	}

	return runewidth.FillRight(s, w)
}

func laneRow(label string, cells []string) string {
	return joinCells(append([]string{cell(label, laneLabel)}, cells...))
}

func joinCells(cells []string) string {
	return strings.TrimRight(strings.Join(cells, strings.Repeat(" ", columnGap)), " ")
}
