package cli

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	flag "github.com/spf13/pflag"
)

// Command groups, in the order the usage listing shows them.
const (
	groupTasks   = "Tasks"
	groupBoard   = "Board"
	groupSession = "Live"
	groupSetup   = "Setup"
)

var commandGroups = []string{groupTasks, groupBoard, groupSession, groupSetup}

// Args bounds the positional arguments a command accepts. Max < 0 means
// unbounded; such commands validate their own arguments.
type Args struct {
	Min, Max int
}

var (
	noArgs  = Args{}
	anyArgs = Args{Max: -1}
)

func exactArgs(n int) Args { return Args{Min: n, Max: n} }

func (a Args) check(args []string) error {
	if a.Max < 0 {
		if len(args) < a.Min {
			return fmt.Errorf("expected at least %d arguments, got %d", a.Min, len(args))
		}

		return nil
	}

	if a.Min == a.Max {
		return checkArgs(args, a.Min)
	}

	if len(args) < a.Min || len(args) > a.Max {
		return fmt.Errorf("expected %d to %d arguments, got %d", a.Min, a.Max, len(args))
	}

	return nil
}

// checkArgs requires exactly want positional arguments. A missing single
// argument is always a task reference.
func checkArgs(args []string, want int) error {
	if len(args) < want {
		if want == 1 {
			return errRefRequired
		}

		return fmt.Errorf("expected %d arguments, got %d", want, len(args))
	}

	if len(args) > want {
		return fmt.Errorf("%w: %s", errExtraArgs, strings.Join(args[want:], " "))
	}

	return nil
}

// Command is one taskboard subcommand.
type Command struct {
	// Flags are the command's own flags. Global flags are parsed before
	// the command name and never reach it.
	Flags *flag.FlagSet

	// Usage follows "taskboard" in help; its first word is the command name.
	Usage string

	// Aliases are extra names the command answers to.
	Aliases []string

	// Group places the command in the usage listing.
	Group string

	// Args is checked after flag parsing, before Exec runs.
	Args Args

	// Short is the listing line; Long the help text, defaulting to Short.
	Short string
	Long  string

	Exec func(ctx context.Context, o *IO, args []string) error
}

// Name returns the command name (first word of Usage).
func (c *Command) Name() string {
	name, _, _ := strings.Cut(c.Usage, " ")

	return name
}

// Matches reports whether name selects this command.
func (c *Command) Matches(name string) bool {
	return name == c.Name() || slices.Contains(c.Aliases, name)
}

// HelpLine returns the command's line in the usage listing.
func (c *Command) HelpLine() string {
	short := c.Short
	if len(c.Aliases) > 0 {
		short += " (also: " + strings.Join(c.Aliases, ", ") + ")"
	}

	return fmt.Sprintf("    %-30s %s", c.Usage, short)
}

// PrintHelp prints "taskboard <cmd> --help".
func (c *Command) PrintHelp(o *IO) {
	o.Println("Usage: taskboard", c.Usage)

	if len(c.Aliases) > 0 {
		o.Println("Aliases:", strings.Join(c.Aliases, ", "))
	}

	o.Println()

	desc := c.Long
	if desc == "" {
		desc = c.Short
	}

	o.Println(desc)

	if c.Flags != nil && c.Flags.HasFlags() {
		o.Println()
		o.Println("Flags:")

		var buf strings.Builder
		c.Flags.SetOutput(&buf)
		c.Flags.PrintDefaults()
		o.Printf("%s", buf.String())
	}
}

// Run parses flags, checks arguments and executes the command. Returns the
// exit code: 1 on error or when the command printed warnings.
func (c *Command) Run(ctx context.Context, o *IO, args []string) int {
	c.Flags.SetOutput(&strings.Builder{})

	err := c.Flags.Parse(args)
	if errors.Is(err, flag.ErrHelp) {
		c.PrintHelp(o)

		return 0
	}

	if err == nil {
		err = c.Args.check(c.Flags.Args())
		if err == nil {
			err = c.Exec(ctx, o, c.Flags.Args())
			if err == nil {
				return o.Finish()
			}

			o.ErrPrintln("error:", err)

			return 1
		}
	}

	o.ErrPrintln("error:", err)
	o.ErrPrintln()
	c.PrintHelp(o)

	return 1
}

// groupCommands orders commands by group for the usage listing. Commands
// without a known group come last.
func groupCommands(commands []*Command) map[string][]*Command {
	out := make(map[string][]*Command, len(commandGroups))

	for _, c := range commands {
		group := c.Group
		if !slices.Contains(commandGroups, group) {
			group = groupSetup
		}

		out[group] = append(out[group], c)
	}

	return out
}
