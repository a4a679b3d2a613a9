package cli

import (
	"context"
	"fmt"

	flag "github.com/spf13/pflag"

	"taskboard/internal/calendar"
	"taskboard/internal/task"
)

// CalendarCmd returns the calendar command.
func CalendarCmd(a *app) *Command {
	fs := flag.NewFlagSet("calendar", flag.ContinueOnError)
	fs.StringP("week", "w", "", "Any date in the week to show (default: today)")
	fs.Int("lanes", 0, "Visible lanes (default from config)")
	fs.Bool("hidden", false, "List tasks that did not fit")

	return &Command{
		Flags:   fs,
		Usage:   "calendar [flags]",
		Aliases: []string{"cal"},
		Group:   groupBoard,
		Args:    noArgs,
		Short:   "Show planned tasks on a Monday–Friday week",
		Long: "Lay out tasks with a planned start (and optional end) as bars on a work week. " +
			"Longer tasks get the lower lanes; days with more tasks than lanes show a +N count.",
		Exec: func(ctx context.Context, o *IO, args []string) error {
			day := a.now()

			if raw, _ := fs.GetString("week"); raw != "" {
				parsed, ok := calendar.ParseDate(raw)
				if !ok {
					return fmt.Errorf("invalid date: %q", raw)
				}

				day = parsed
			}

			visible, _ := fs.GetInt("lanes")
			if !fs.Changed("lanes") {
				visible = a.cfg.VisibleLanes
			}

			items, err := a.repo.ListItems(ctx, a.cfg.TaskDirAbs)
			if err != nil {
				return fmt.Errorf("list tasks: %w", err)
			}

			items = warnItems(o, items)

			layout := weekLayout(a, items, calendar.WeekOf(day), visible)

			for _, line := range renderWeek(layout, visible) {
				o.Println(line)
			}

			if showHidden, _ := fs.GetBool("hidden"); showHidden {
				for _, key := range layout.Hidden {
					o.Println("hidden:", task.DisplayName(key))
				}
			}

			return nil
		},
	}
}

func weekLayout(a *app, items []task.Item, w calendar.Week, visible int) calendar.WeekLayout {
	spans := calendar.SpansFromItems(items, a.cfg.CalendarStart, a.cfg.CalendarEnd)

	return calendar.Layout(w, spans, max(visible, 0))
}
