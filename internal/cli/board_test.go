package cli_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"taskboard/internal/cli"
)

func seedBoard(c *cli.CLI) {
	c.WriteTask("alpha", "---\nstatus: Todo\norder: 0\n---\n")
	c.WriteTask("bravo", "---\nstatus: Todo\norder: 1\n---\n")
	c.WriteTask("charlie", "---\nstatus: Done\n---\n")
	c.WriteTask("delta", "---\nstatus: Weird\n---\n")
	c.WriteTask("echo", "---\nstatus: Todo\narchived: true\n---\n")
}

func Test_Board_Groups_Cards_By_Column_When_Invoked(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	seedBoard(c)

	stdout := c.MustRun("board", "--width", "80")

	lines := strings.Split(stdout, "\n")
	cli.AssertContains(t, lines[0], "Todo (3)")
	cli.AssertContains(t, lines[0], "In Progress (0)")
	cli.AssertContains(t, lines[0], "Done (1)")
	cli.AssertContains(t, lines[2], "alpha")
	cli.AssertContains(t, lines[2], "charlie")
	cli.AssertContains(t, lines[3], "bravo")
	cli.AssertContains(t, lines[4], "delta")
	cli.AssertNotContains(t, stdout, "echo")
}

func Test_Move_Renumbers_Both_Columns_When_Status_Changes(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	seedBoard(c)

	stdout := c.MustRun("move", "bravo", "Done", "--index", "0")
	cli.AssertContains(t, stdout, "moved to Done #0 (4 documents written)")

	today := time.Now().Format("2006-01-02")

	if got, want := c.ReadTask("bravo"), "---\nstatus: Done\norder: 0\nendDate: "+today+"\n---\n"; got != want {
		t.Fatalf("bravo=%q, want=%q", got, want)
	}

	cli.AssertContains(t, c.ReadTask("charlie"), "order: 1\n")
	cli.AssertContains(t, c.ReadTask("alpha"), "order: 0\n")
	cli.AssertContains(t, c.ReadTask("delta"), "status: Weird\norder: 1\n")
}

func Test_Move_Writes_Nothing_When_Card_Is_Dropped_On_Itself(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	seedBoard(c)

	before := c.ReadTask("alpha")

	cli.AssertContains(t, c.MustRun("move", "alpha", "Todo", "-i", "0"), "unchanged: already at Todo #0")

	if got := c.ReadTask("alpha"); got != before {
		t.Fatalf("alpha changed: %q", got)
	}
}

func Test_Move_Fails_When_Column_Is_Unknown(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	seedBoard(c)

	cli.AssertContains(t, c.MustFail("move", "alpha", "Nowhere"), "unknown status: Nowhere")
	cli.AssertContains(t, c.MustFail("move", "alpha"), "expected 2 arguments")
}

func Test_Status_Edits_Persist_To_Project_File_When_Invoked(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	seedBoard(c)

	if got, want := c.MustRun("status"), "Todo\nIn Progress\nDone"; got != want {
		t.Fatalf("status=%q, want=%q", got, want)
	}

	if got, want := c.MustRun("status", "add", "Review", "--at", "2"), "Todo\nIn Progress\nReview\nDone"; got != want {
		t.Fatalf("status add=%q, want=%q", got, want)
	}

	if _, err := os.Stat(filepath.Join(c.Dir, ".taskboard.json")); err != nil {
		t.Fatalf("project file not written: %v", err)
	}

	cli.AssertContains(t, c.MustRun("print-config"), "statuses=Todo,In Progress,Review,Done")

	stdout := c.MustRun("status", "rename", "Done", "Shipped")
	cli.AssertContains(t, stdout, `renamed "Done" to "Shipped" (1 documents written)`)
	cli.AssertContains(t, c.ReadTask("charlie"), "status: Shipped\n")

	c.MustRun("status", "rm", "Review")

	if got, want := c.MustRun("status", "mv", "Shipped", "0"), "Shipped\nTodo\nIn Progress"; got != want {
		t.Fatalf("status mv=%q, want=%q", got, want)
	}

	cli.AssertContains(t, c.MustFail("status", "rm", "Nope"), "Nope")
	cli.AssertContains(t, c.MustFail("status", "frob"), "unknown status subcommand")
}

func Test_Calendar_Shows_Overflow_When_Lanes_Run_Out(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	c.WriteTask("long", "---\nplannedStart: 2024-03-04\nplannedEnd: 2024-03-08\n---\n")
	c.WriteTask("a", "---\nplannedStart: 2024-03-05\nplannedEnd: 2024-03-06\n---\n")
	c.WriteTask("b", "---\nplannedStart: 2024-03-05\n---\n")
	c.WriteTask("c", "---\nplannedStart: 2024-03-05\n---\n")
	c.WriteTask("unplanned", "---\nstatus: Todo\n---\n")

	stdout := c.MustRun("calendar", "--week", "2024-03-06", "--lanes", "2", "--hidden")

	cli.AssertContains(t, stdout, "Week 2024-03-04..2024-03-08")
	cli.AssertContains(t, stdout, "Mon 03-04")
	cli.AssertContains(t, stdout, "lane 0    long")
	cli.AssertContains(t, stdout, "lane 1")
	cli.AssertContains(t, stdout, "+2 more")
	cli.AssertContains(t, stdout, "hidden: b\nhidden: c")
	cli.AssertNotContains(t, stdout, "unplanned")

	cli.AssertContains(t, c.MustFail("calendar", "--week", "soon"), "invalid date")
}

func Test_Shell_Runs_Commands_From_Input_When_Not_A_Terminal(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	seedBoard(c)

	input := "board\n\nmove bravo Done 0\nstatus\nbogus\nstats\nquit\nboard\n"
	stdout, stderr, code := c.RunWithInput(input, "shell")

	if code != 0 {
		t.Fatalf("exitCode=%d, stderr=%s", code, stderr)
	}

	cli.AssertContains(t, stdout, "Todo (3)")
	cli.AssertContains(t, stdout, "moved to Done #0")
	cli.AssertContains(t, stdout, "In Progress\nDone")
	cli.AssertContains(t, stdout, "notifications=")
	cli.AssertContains(t, stderr, "unknown command: bogus")

	// Nothing after quit runs.
	if got := strings.Count(stdout, "Todo ("); got != 1 {
		t.Fatalf("board rendered %d times, want 1", got)
	}

	cli.AssertContains(t, c.ReadTask("bravo"), "status: Done\n")
}

// signalWriter is a concurrency-safe buffer tests can poll.
type signalWriter struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (w *signalWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.buf.Write(p)
}

func (w *signalWriter) String() string {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.buf.String()
}

func (w *signalWriter) waitFor(t *testing.T, substr string) {
	t.Helper()

	deadline := time.Now().Add(10 * time.Second)

	for !strings.Contains(w.String(), substr) {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %q\noutput:\n%s", substr, w.String())
		}

		time.Sleep(10 * time.Millisecond)
	}
}

func Test_Watch_Prints_Summary_When_Directory_Changes(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)

	var stdout, stderr signalWriter

	sigCh := make(chan os.Signal, 1)
	done := make(chan int, 1)

	go func() {
		done <- cli.Run(nil, &stdout, &stderr, []string{"taskboard", "--cwd", c.Dir, "watch"}, c.Env, sigCh)
	}()

	stdout.waitFor(t, "Todo: 0 | In Progress: 0 | Done: 0")

	c.WriteTask("fresh", "---\nstatus: Done\n---\n")

	stdout.waitFor(t, "Todo: 0 | In Progress: 0 | Done: 1")

	sigCh <- os.Interrupt

	select {
	case code := <-done:
		if code != 0 {
			t.Fatalf("exitCode=%d, stderr=%s", code, stderr.String())
		}
	case <-time.After(10 * time.Second):
		t.Fatal("watch did not stop after interrupt")
	}

	cli.AssertContains(t, stdout.String(), "watching "+c.TaskDir())
}
