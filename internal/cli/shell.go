package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/peterh/liner"
	flag "github.com/spf13/pflag"

	"taskboard/internal/board"
	"taskboard/internal/calendar"
	"taskboard/internal/task"
)

const shellPrompt = "taskboard> "

var shellCommands = []string{"board", "ls", "move", "calendar", "status", "reload", "stats", "help", "quit"}

const shellHelp = `  board                          show the board
  ls                             list tasks
  move <ref> <status> [index]    move a task (index 0 is the top; default bottom)
  calendar [date]                show the week containing date
  status                         list columns
  reload                         reload from disk now
  stats                          show reload counters
  quit                           leave the shell`

// lineReader is the part of liner the shell uses.
type lineReader interface {
	Prompt(prompt string) (string, error)
	AppendHistory(item string)
	Close() error
}

// scanReader reads commands from a non-terminal input.
type scanReader struct {
	scanner *bufio.Scanner
}

func (r *scanReader) Prompt(string) (string, error) {
	if r.scanner.Scan() {
		return r.scanner.Text(), nil
	}

	if err := r.scanner.Err(); err != nil {
		return "", err
	}

	return "", io.EOF
}

func (*scanReader) AppendHistory(string) {}

func (*scanReader) Close() error { return nil }

func (a *app) newLineReader() lineReader {
	if f, ok := a.in.(*os.File); ok && f == os.Stdin && liner.TerminalSupported() {
		l := liner.NewLiner()
		l.SetCtrlCAborts(true)
		l.SetCompleter(func(line string) []string {
			var out []string

			for _, c := range shellCommands {
				if strings.HasPrefix(c, line) {
					out = append(out, c)
				}
			}

			return out
		})

		return l
	}

	in := a.in
	if in == nil {
		in = strings.NewReader("")
	}

	return &scanReader{scanner: bufio.NewScanner(in)}
}

// ShellCmd returns the shell command.
func ShellCmd(a *app) *Command {
	return &Command{
		Flags: flag.NewFlagSet("shell", flag.ContinueOnError),
		Usage: "shell",
		Group: groupSession,
		Args:  noArgs,
		Short: "Interactive board session",
		Long: "Keep the board loaded and watch the task directory while moving cards. Changes made " +
			"by other programs are picked up after a short quiet period.\n\nCommands:\n" + shellHelp,
		Exec: func(ctx context.Context, o *IO, args []string) error {
			notifier := board.NotifierFunc(func(msg string) { o.ErrPrintln("!", msg) })

			s, err := a.openSession(ctx, notifier, nil)
			if err != nil {
				return err
			}

			lines := a.newLineReader()

			loopErr := a.shellLoop(ctx, o, s, lines)

			_ = lines.Close()

			return errors.Join(loopErr, s.Close())
		},
	}
}

func (a *app) shellLoop(ctx context.Context, o *IO, s *session, lines lineReader) error {
	for ctx.Err() == nil {
		line, err := lines.Prompt(shellPrompt)
		if errors.Is(err, io.EOF) || errors.Is(err, liner.ErrPromptAborted) {
			return nil
		}

		if err != nil {
			return fmt.Errorf("reading command: %w", err)
		}

		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}

		lines.AppendHistory(line)

		if fields[0] == "quit" || fields[0] == "exit" {
			return nil
		}

		if err := a.shellExec(ctx, o, s, fields[0], fields[1:]); err != nil {
			o.ErrPrintln("error:", err)
		}
	}

	return nil
}

func (a *app) shellExec(ctx context.Context, o *IO, s *session, cmd string, args []string) error {
	switch cmd {
	case "board":
		for _, line := range renderBoard(s.eng.Buckets(), terminalWidth(o.Out(), a.env)) {
			o.Println(line)
		}
	case "ls":
		for _, b := range s.eng.Buckets() {
			for _, it := range b.Items {
				o.Println(formatItemLine(it))
			}
		}
	case "move":
		if len(args) < 2 || len(args) > 3 {
			return errors.New("usage: move <ref> <status> [index]")
		}

		index := -1

		if len(args) == 3 {
			n, err := strconv.Atoi(args[2])
			if err != nil {
				return fmt.Errorf("index must be a number: %q", args[2])
			}

			index = n
		}

		res, err := moveByRef(ctx, a, s.eng, args[0], args[1], index)
		if err != nil {
			return err
		}

		o.Println(describeMove(res, args[1]))
	case "calendar":
		day := a.now()

		if len(args) > 0 {
			parsed, ok := calendar.ParseDate(args[0])
			if !ok {
				return fmt.Errorf("invalid date: %q", args[0])
			}

			day = parsed
		}

		var items []task.Item
		for _, b := range s.eng.Buckets() {
			items = append(items, b.Items...)
		}

		layout := weekLayout(a, items, calendar.WeekOf(day), a.cfg.VisibleLanes)

		for _, line := range renderWeek(layout, a.cfg.VisibleLanes) {
			o.Println(line)
		}
	case "status":
		for _, label := range s.eng.Statuses() {
			o.Println(label)
		}
	case "reload":
		if err := s.rec.ReloadNow(ctx); err != nil {
			return err
		}

		o.Println("reloaded")
	case "stats":
		st := s.rec.Stats()
		o.Printf("notifications=%d reloads=%d deferred=%d dropped=%d failed=%d\n",
			st.Notifications, st.Reloads, st.Deferred, st.Dropped, st.Failed)
	case "help":
		o.Println(shellHelp)
	default:
		return fmt.Errorf("unknown command: %s (try help)", cmd)
	}

	return nil
}
