package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	flag "github.com/spf13/pflag"

	"taskboard/internal/config"
)

// Run is the main entry point. Returns exit code.
//
// sigCh may be nil. A signal cancels the command's context; long-running
// commands (watch, shell) return when it fires.
func Run(in io.Reader, out, errOut io.Writer, args []string, env map[string]string, sigCh <-chan os.Signal) int {
	globals := flag.NewFlagSet("taskboard", flag.ContinueOnError)
	globals.SetInterspersed(false)
	globals.SetOutput(io.Discard)

	workDir := globals.StringP("cwd", "C", "", "Run as if started in `dir`")
	configPath := globals.StringP("config", "c", "", "Use specified config `file`")
	taskDir := globals.String("task-dir", "", "Override the task directory")
	verbose := globals.BoolP("verbose", "v", false, "Log debug output to stderr")
	help := globals.BoolP("help", "h", false, "Show help")

	if len(args) > 0 {
		args = args[1:]
	}

	err := globals.Parse(args)
	if err != nil {
		fprintln(errOut, "error:", err)
		fprintln(errOut)
		printUsage(errOut, globals, nil)

		return 1
	}

	rest := globals.Args()

	cfg, err := config.Load(config.LoadInput{
		WorkDirOverride: *workDir,
		ConfigPath:      *configPath,
		TaskDirOverride: *taskDir,
		HasTaskDir:      globals.Changed("task-dir"),
		Env:             env,
	})
	if err != nil {
		fprintln(errOut, "error:", err)
		fprintln(errOut)
		printUsage(errOut, globals, nil)

		return 1
	}

	log := newLogger(errOut, *verbose)
	defer func() { _ = log.Sync() }()

	a := newApp(cfg, in, env, log)
	commands := a.commands()

	if *help || len(rest) == 0 {
		printUsage(out, globals, commands)

		return 0
	}

	name := rest[0]

	idx := slices.IndexFunc(commands, func(c *Command) bool { return c.Matches(name) })
	if idx < 0 {
		fprintln(errOut, "error: unknown command:", name)
		fprintln(errOut)
		printUsage(errOut, globals, commands)

		return 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		select {
		case <-sigCh:
			cancel()
		case <-ctx.Done():
		}
	}()

	return commands[idx].Run(ctx, NewIO(out, errOut), rest[1:])
}

func fprintln(w io.Writer, a ...any) {
	_, _ = fmt.Fprintln(w, a...)
}

func printUsage(w io.Writer, globals *flag.FlagSet, commands []*Command) {
	fprintln(w, "taskboard - markdown task board")
	fprintln(w)
	fprintln(w, "Usage: taskboard [global flags] <command> [args]")
	fprintln(w)
	fprintln(w, "Global flags:")

	var buf strings.Builder
	globals.SetOutput(&buf)
	globals.PrintDefaults()
	globals.SetOutput(io.Discard)
	fprintln(w, strings.TrimRight(buf.String(), "\n"))

	if len(commands) == 0 {
		return
	}

	fprintln(w)
	fprintln(w, "Commands:")

	grouped := groupCommands(commands)

	for _, group := range commandGroups {
		if len(grouped[group]) == 0 {
			continue
		}

		fprintln(w, "  "+group+":")

		for _, c := range grouped[group] {
			fprintln(w, c.HelpLine())
		}
	}
}
