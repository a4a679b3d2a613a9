package cli

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	flag "github.com/spf13/pflag"

	"taskboard/internal/task"
)

// LsCmd returns the ls command.
func LsCmd(a *app) *Command {
	fs := flag.NewFlagSet("ls", flag.ContinueOnError)
	fs.String("status", "", "Only tasks with this status")
	fs.String("tag", "", "Only tasks carrying this tag")
	fs.Bool("archived", false, "Include archived tasks")

	return &Command{
		Flags:   fs,
		Usage:   "ls [flags]",
		Aliases: []string{"list"},
		Group:   groupTasks,
		Args:    noArgs,
		Short:   "List tasks",
		Long:    "List tasks sorted by file name. Documents with unreadable metadata are reported as warnings.",
		Exec: func(ctx context.Context, o *IO, args []string) error {
			status, _ := fs.GetString("status")
			tag, _ := fs.GetString("tag")
			archived, _ := fs.GetBool("archived")

			items, err := a.repo.ListItems(ctx, a.cfg.TaskDirAbs)
			if err != nil {
				return fmt.Errorf("list tasks: %w", err)
			}

			for _, it := range warnItems(o, items) {
				if it.Archived && !archived {
					continue
				}

				if fs.Changed("status") && it.Status != status {
					continue
				}

				if fs.Changed("tag") && !slices.Contains(it.Tags, tag) {
					continue
				}

				o.Println(formatItemLine(it))
			}

			return nil
		},
	}
}

func formatItemLine(it task.Item) string {
	number := cmp.Or(it.Number, "-")
	status := cmp.Or(it.Status, "-")

	return fmt.Sprintf("%-8s %-14s %s", number, status, it.Name)
}

// TagsCmd returns the tags command.
func TagsCmd(a *app) *Command {
	return &Command{
		Flags: flag.NewFlagSet("tags", flag.ContinueOnError),
		Usage: "tags",
		Group: groupTasks,
		Args:  noArgs,
		Short: "List every tag in use",
		Exec: func(ctx context.Context, o *IO, args []string) error {
			tags, err := a.repo.AllTags(ctx, a.cfg.TaskDirAbs)
			if err != nil {
				return fmt.Errorf("list tags: %w", err)
			}

			for _, tag := range tags {
				o.Println(tag)
			}

			return nil
		},
	}
}

// FindCmd returns the find command.
func FindCmd(a *app) *Command {
	return &Command{
		Flags: flag.NewFlagSet("find", flag.ContinueOnError),
		Usage: "find <number>",
		Group: groupTasks,
		Args:  exactArgs(1),
		Short: "Print the path of the task with a number",
		Long:  "Find a task by its number field, falling back to a file name starting with the number.",
		Exec: func(ctx context.Context, o *IO, args []string) error {
			it, err := a.repo.FindByNumber(ctx, a.cfg.TaskDirAbs, a.cfg.NumberField, args[0])
			if err != nil {
				return err
			}

			o.Println(it.Path)

			return nil
		},
	}
}

// NextCmd returns the next command.
func NextCmd(a *app) *Command {
	fs := flag.NewFlagSet("next", flag.ContinueOnError)
	fs.String("prefix", "", "Number prefix (default from config)")

	return &Command{
		Flags: fs,
		Usage: "next [flags]",
		Group: groupTasks,
		Args:  noArgs,
		Short: "Print the next free task number",
		Exec: func(ctx context.Context, o *IO, args []string) error {
			prefix, _ := fs.GetString("prefix")
			if prefix == "" {
				prefix = a.cfg.NumberPrefix
			}

			next, err := a.repo.NextNumber(ctx, a.cfg.TaskDirAbs, a.cfg.NumberField, prefix)
			if err != nil {
				return err
			}

			o.Println(next)

			return nil
		},
	}
}
