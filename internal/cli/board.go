package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	flag "github.com/spf13/pflag"

	"taskboard/internal/board"
	"taskboard/internal/task"
)

var errUnknownSubcommand = errors.New("unknown status subcommand")

func warnNotifier(o *IO) board.Notifier {
	return board.NotifierFunc(func(msg string) {
		o.Warn(msg, "the board was reloaded from disk; retry the move")
	})
}

// BoardCmd returns the board command.
func BoardCmd(a *app) *Command {
	fs := flag.NewFlagSet("board", flag.ContinueOnError)
	fs.Int("width", 0, "Render width in columns (default: terminal width)")

	return &Command{
		Flags: fs,
		Usage: "board [flags]",
		Group: groupBoard,
		Args:  noArgs,
		Short: "Show tasks grouped by status column",
		Long: "Show the board. Tasks whose status is not a column appear in the first column; " +
			"archived tasks are hidden.",
		Exec: func(ctx context.Context, o *IO, args []string) error {
			eng, err := a.newEngine(ctx, nil, warnNotifier(o))
			if err != nil {
				return err
			}

			width, _ := fs.GetInt("width")
			if width <= 0 {
				width = terminalWidth(o.Out(), a.env)
			}

			for _, line := range renderBoard(eng.Buckets(), width) {
				o.Println(line)
			}

			return nil
		},
	}
}

// MoveCmd returns the move command.
func MoveCmd(a *app) *Command {
	fs := flag.NewFlagSet("move", flag.ContinueOnError)
	fs.IntP("index", "i", -1, "Position in the target column, 0 is the top (default: bottom)")

	return &Command{
		Flags:   fs,
		Usage:   "move <ref> <status> [flags]",
		Aliases: []string{"mv"},
		Group:   groupBoard,
		Args:    exactArgs(2),
		Short:   "Move a task to a column position",
		Long: "Move a task to a position in a column and renumber the affected cards. Moving into a " +
			"completed column sets endDate; moving into an in-progress column sets startDate if unset.",
		Exec: func(ctx context.Context, o *IO, args []string) error {
			index, _ := fs.GetInt("index")

			eng, err := a.newEngine(ctx, nil, warnNotifier(o))
			if err != nil {
				return err
			}

			res, err := moveByRef(ctx, a, eng, args[0], args[1], index)
			if err != nil {
				return err
			}

			o.Println(describeMove(res, args[1]))

			return nil
		},
	}
}

func moveByRef(ctx context.Context, a *app, eng *board.Engine, ref, to string, index int) (board.MoveResult, error) {
	it, err := a.resolve(ctx, ref)
	if err != nil {
		return board.MoveResult{}, err
	}

	return eng.MoveItem(ctx, board.MoveRequest{
		Path:  it.Path,
		From:  columnOf(eng, it.Path),
		To:    to,
		Index: index,
	})
}

func describeMove(res board.MoveResult, to string) string {
	if res.Noop {
		return fmt.Sprintf("unchanged: already at %s #%d", to, res.Index)
	}

	return fmt.Sprintf("moved to %s #%d (%d documents written)", to, res.Index, len(res.Outcome.Committed))
}

// StatusCmd returns the status command.
func StatusCmd(a *app) *Command {
	fs := flag.NewFlagSet("status", flag.ContinueOnError)
	fs.Int("at", -1, "Insert position for add (default: end)")

	return &Command{
		Flags: fs,
		Usage: "status [add|rm|mv|rename] [args]",
		Group: groupBoard,
		Args:  anyArgs,
		Short: "List or edit board columns",
		Long: `List the board columns, or edit them:

  status add <label> [--at N]    insert a column
  status rm <label>              remove a column; its tasks show in the first column
  status mv <label> <position>   reorder a column
  status rename <old> <new>      rename a column and update every task in it

Column edits are saved to the project config file.`,
		Exec: func(ctx context.Context, o *IO, args []string) error {
			eng, err := a.newEngine(ctx, nil, warnNotifier(o))
			if err != nil {
				return err
			}

			if len(args) == 0 {
				for _, label := range eng.Statuses() {
					o.Println(label)
				}

				return nil
			}

			sub, rest := args[0], args[1:]

			switch sub {
			case "add":
				if err := checkArgs(rest, 1); err != nil {
					return err
				}

				at, _ := fs.GetInt("at")
				if at < 0 {
					at = len(eng.Statuses())
				}

				err = eng.AddStatus(rest[0], at)
			case "rm":
				if err := checkArgs(rest, 1); err != nil {
					return err
				}

				err = eng.RemoveStatus(rest[0])
			case "mv":
				if err := checkArgs(rest, 2); err != nil {
					return err
				}

				to, convErr := strconv.Atoi(rest[1])
				if convErr != nil {
					return fmt.Errorf("position must be a number: %q", rest[1])
				}

				err = eng.MoveStatus(rest[0], to)
			case "rename":
				if err := checkArgs(rest, 2); err != nil {
					return err
				}

				var outcome task.Outcome

				outcome, err = eng.RenameStatus(ctx, rest[0], rest[1])
				if err == nil {
					o.Printf("renamed %q to %q (%d documents written)\n", rest[0], rest[1], len(outcome.Committed))
				}
			default:
				return fmt.Errorf("%w: %s", errUnknownSubcommand, sub)
			}

			if err != nil {
				return err
			}

			for _, label := range eng.Statuses() {
				o.Println(label)
			}

			return nil
		},
	}
}
