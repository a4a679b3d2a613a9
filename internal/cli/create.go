package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	flag "github.com/spf13/pflag"

	"taskboard/internal/frontmatter"
)

var errBadAssignment = errors.New("expected key=value")

// CreateCmd returns the create command.
func CreateCmd(a *app) *Command {
	fs := flag.NewFlagSet("create", flag.ContinueOnError)
	fs.StringP("status", "s", "", "Initial status (default: first board column)")
	fs.StringP("priority", "p", "", "Priority")
	fs.StringSliceP("tag", "t", nil, "Tag (repeatable or comma separated)")
	fs.String("start", "", "Planned start date (YYYY-MM-DD)")
	fs.String("end", "", "Planned end date (YYYY-MM-DD)")
	fs.String("body", "", "Document body (default: a heading with the title)")
	fs.Bool("no-number", false, "Do not assign a task number")

	return &Command{
		Flags:   fs,
		Usage:   "create <title> [flags]",
		Aliases: []string{"new"},
		Group:   groupTasks,
		Args:    anyArgs,
		Short:   "Create a task",
		Long: "Create a task document named after the title. Unless --no-number is given the next " +
			"free number is assigned and prefixed to the file name.",
		Exec: func(ctx context.Context, o *IO, args []string) error {
			title := strings.TrimSpace(strings.Join(args, " "))

			status, _ := fs.GetString("status")
			if status == "" && len(a.cfg.Statuses) > 0 {
				status = a.cfg.Statuses[0]
			}

			fields := frontmatter.NewMap()

			noNumber, _ := fs.GetBool("no-number")
			if !noNumber && title != "" {
				number, err := a.repo.NextNumber(ctx, a.cfg.TaskDirAbs, a.cfg.NumberField, a.cfg.NumberPrefix)
				if err != nil {
					return err
				}

				fields.Set(a.cfg.NumberField, frontmatter.StringValue(number))
				title = number + " " + title
			}

			fields.Set(frontmatter.FieldStatus, frontmatter.StringValue(status))

			if priority, _ := fs.GetString("priority"); priority != "" {
				fields.Set(frontmatter.FieldPriority, frontmatter.StringValue(priority))
			}

			tags, _ := fs.GetStringSlice("tag")
			fields.Set(frontmatter.FieldTags, frontmatter.ListValue(tags))

			if start, _ := fs.GetString("start"); start != "" {
				fields.Set(a.cfg.CalendarStart, frontmatter.StringValue(start))
			}

			if end, _ := fs.GetString("end"); end != "" {
				fields.Set(a.cfg.CalendarEnd, frontmatter.StringValue(end))
			}

			body, _ := fs.GetString("body")

			it, err := a.repo.Create(ctx, a.cfg.TaskDirAbs, title, fields, body)
			if err != nil {
				return err
			}

			o.Println(it.Path)

			return nil
		},
	}
}

// SetCmd returns the set command.
func SetCmd(a *app) *Command {
	return &Command{
		Flags: flag.NewFlagSet("set", flag.ContinueOnError),
		Usage: "set <ref> <key=value>...",
		Group: groupTasks,
		Args:  anyArgs,
		Short: "Change metadata fields of a task",
		Long: "Merge fields into a task's metadata block. Values are parsed by field kind; " +
			"lists are comma separated. An empty value (key=) deletes the field.",
		Exec: func(ctx context.Context, o *IO, args []string) error {
			if len(args) < 2 {
				return fmt.Errorf("%w: set <ref> <key=value>...", errBadAssignment)
			}

			it, err := a.resolve(ctx, args[0])
			if err != nil {
				return err
			}

			patch, err := parseAssignments(a.repo.Schema(), args[1:])
			if err != nil {
				return err
			}

			if _, err := a.repo.Patch(ctx, it.Path, patch); err != nil {
				return err
			}

			o.Println(it.Path)

			return nil
		},
	}
}

func parseAssignments(schema frontmatter.Schema, args []string) (*frontmatter.Map, error) {
	patch := frontmatter.NewMap()

	for _, arg := range args {
		key, raw, ok := strings.Cut(arg, "=")
		key = strings.TrimSpace(key)

		if !ok || key == "" {
			return nil, fmt.Errorf("%w: %q", errBadAssignment, arg)
		}

		if raw == "" {
			patch.Set(key, frontmatter.NullValue())

			continue
		}

		kind := schema.KindOf(key)

		v, ok := kind.Parse(raw)
		if !ok {
			return nil, fmt.Errorf("%s: %q is not a valid %s", key, raw, kind)
		}

		patch.Set(key, v)
	}

	return patch, nil
}

// ShowCmd returns the show command.
func ShowCmd(a *app) *Command {
	return &Command{
		Flags: flag.NewFlagSet("show", flag.ContinueOnError),
		Usage: "show <ref>",
		Group: groupTasks,
		Args:  exactArgs(1),
		Short: "Print a task document",
		Exec: func(ctx context.Context, o *IO, args []string) error {
			it, err := a.resolve(ctx, args[0])
			if err != nil {
				return err
			}

			if it.Warning != nil {
				o.Warn(fmt.Sprintf("%s: %v", it.Path, it.Warning), "fix the metadata block")
			}

			data, err := a.fsys.ReadFile(it.Path)
			if err != nil {
				return fmt.Errorf("reading %s: %w", it.Path, err)
			}

			o.Printf("%s", data)

			return nil
		},
	}
}

// RmCmd returns the rm command.
func RmCmd(a *app) *Command {
	return &Command{
		Flags:   flag.NewFlagSet("rm", flag.ContinueOnError),
		Usage:   "rm <ref>",
		Aliases: []string{"delete"},
		Group:   groupTasks,
		Args:    exactArgs(1),
		Short:   "Delete a task document",
		Exec: func(ctx context.Context, o *IO, args []string) error {
			it, err := a.resolve(ctx, args[0])
			if err != nil {
				return err
			}

			if err := a.repo.Delete(ctx, it.Path); err != nil {
				return err
			}

			o.Println("deleted", it.Path)

			return nil
		},
	}
}
