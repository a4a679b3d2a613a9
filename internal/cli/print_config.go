package cli

import (
	"context"
	"strconv"
	"strings"

	flag "github.com/spf13/pflag"

	"taskboard/internal/config"
)

// PrintConfigCmd returns the print-config command.
func PrintConfigCmd(cfg *config.Config) *Command {
	return &Command{
		Flags: flag.NewFlagSet("print-config", flag.ContinueOnError),
		Usage: "print-config",
		Group: groupSetup,
		Args:  noArgs,
		Short: "Show resolved configuration",
		Long:  "Display the effective configuration and which files it was loaded from.",
		Exec: func(_ context.Context, o *IO, args []string) error {
			execPrintConfig(o, cfg)

			return nil
		},
	}
}

func execPrintConfig(o *IO, cfg *config.Config) {
	o.Println("effective_cwd=" + cfg.EffectiveCwd)
	o.Println("task_dir=" + cfg.TaskDirAbs)
	o.Println("statuses=" + strings.Join(cfg.Statuses, ","))
	o.Println("completed_pattern=" + cfg.CompletedPattern)
	o.Println("in_progress_pattern=" + cfg.InProgressPattern)
	o.Println("number_field=" + cfg.NumberField)
	o.Println("number_prefix=" + cfg.NumberPrefix)
	o.Println("suppress_window_ms=" + strconv.Itoa(cfg.SuppressWindowMS))
	o.Println("visible_lanes=" + strconv.Itoa(cfg.VisibleLanes))
	o.Println("calendar_start_field=" + cfg.CalendarStart)
	o.Println("calendar_end_field=" + cfg.CalendarEnd)

	o.Println("")
	o.Println("# sources")

	if cfg.Sources.Global == "" && cfg.Sources.Project == "" {
		o.Println("(defaults only)")

		return
	}

	if cfg.Sources.Global != "" {
		o.Println("global_config=" + cfg.Sources.Global)
	}

	if cfg.Sources.Project != "" {
		o.Println("project_config=" + cfg.Sources.Project)
	}
}
