package cli_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"taskboard/internal/cli"
)

func Test_Create_Assigns_Next_Number_When_Invoked(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)

	first := c.MustRun("create", "Login")
	if got, want := first, filepath.Join(c.TaskDir(), "CR-1 Login.md"); got != want {
		t.Fatalf("path=%q, want=%q", got, want)
	}

	c.MustRun("create", "Signup", "--status", "Done", "-t", "web,auth", "--start", "2024-03-05")

	content := c.ReadTask("CR-2 Signup")
	cli.AssertContains(t, content, "number: CR-2\n")
	cli.AssertContains(t, content, "status: Done\n")
	cli.AssertContains(t, content, "tags: [web, auth]\n")
	cli.AssertContains(t, content, "plannedStart: 2024-03-05\n")
	cli.AssertContains(t, content, "# CR-2 Signup\n")

	if got, want := c.MustRun("next"), "CR-3"; got != want {
		t.Fatalf("next=%q, want=%q", got, want)
	}

	if got, want := c.MustRun("next", "--prefix", "BUG"), "BUG-1"; got != want {
		t.Fatalf("next=%q, want=%q", got, want)
	}
}

func Test_Create_Fails_When_Title_Is_Missing_Or_Taken(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)

	cli.AssertContains(t, c.MustFail("create"), "title is required")

	c.MustRun("create", "--no-number", "Plain")
	cli.AssertContains(t, c.MustFail("create", "--no-number", "Plain"), "document already exists")
}

func Test_Ls_Filters_And_Warns_When_Documents_Vary(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	c.WriteTask("alpha", "---\nstatus: Todo\ntags: [web]\n---\n")
	c.WriteTask("bravo", "---\nstatus: Done\n---\n")
	c.WriteTask("old", "---\nstatus: Done\narchived: true\n---\n")
	c.WriteTask("broken", "---\nstatus: [unclosed\n---\n")

	stdout, stderr, code := c.Run("ls")

	if got, want := code, 1; got != want {
		t.Fatalf("exitCode=%d, want=%d (warnings exit 1)", got, want)
	}

	cli.AssertContains(t, stdout, "alpha")
	cli.AssertContains(t, stdout, "bravo")
	cli.AssertNotContains(t, stdout, "old")
	cli.AssertNotContains(t, stdout, "broken")
	cli.AssertContains(t, stderr, "broken.md")
	cli.AssertContains(t, stderr, "fix the metadata block")

	stdout, _, _ = c.Run("ls", "--status", "Done", "--archived")
	cli.AssertContains(t, stdout, "bravo")
	cli.AssertContains(t, stdout, "old")
	cli.AssertNotContains(t, stdout, "alpha")

	stdout, _, _ = c.Run("ls", "--tag", "web")
	if got := strings.Count(stdout, "\n"); got != 1 {
		t.Fatalf("ls --tag web printed %d lines, want 1:\n%s", got, stdout)
	}
}

func Test_Tags_Lists_Distinct_Tags_When_Invoked(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	c.WriteTask("a", "---\ntags: [web, api]\n---\n")
	c.WriteTask("b", "---\ntags: [api]\n---\n")

	if got, want := c.MustRun("tags"), "api\nweb"; got != want {
		t.Fatalf("tags=%q, want=%q", got, want)
	}
}

func Test_Set_Merges_And_Deletes_Fields_When_Invoked(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	c.WriteTask("CR-7 Task", "---\nnumber: CR-7\nstatus: Todo\npriority: low\n---\n\nbody text\n")

	c.MustRun("set", "CR-7", "priority=high", "tags=a, b", "order=3")

	got := c.ReadTask("CR-7 Task")
	want := "---\nnumber: CR-7\nstatus: Todo\npriority: high\ntags: [a, b]\norder: 3\n---\n\nbody text\n"

	if got != want {
		t.Fatalf("content=%q, want=%q", got, want)
	}

	c.MustRun("set", "CR-7", "priority=")
	cli.AssertNotContains(t, c.ReadTask("CR-7 Task"), "priority")

	cli.AssertContains(t, c.MustFail("set", "CR-7", "order=many"), "not a valid number")
	cli.AssertContains(t, c.MustFail("set", "CR-7", "novalue"), "expected key=value")
}

func Test_Find_Show_Rm_Resolve_References_When_Invoked(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	c.WriteTask("CR-1 Login", "---\nstatus: Todo\n---\n# Login\n")
	c.WriteTask("Untitled", "---\nnumber: CR-2\n---\n# Untitled\n")

	if got, want := c.MustRun("find", "CR-2"), filepath.Join(c.TaskDir(), "Untitled.md"); got != want {
		t.Fatalf("find=%q, want=%q", got, want)
	}

	cli.AssertContains(t, c.MustFail("find", "CR-9"), "task not found")

	cli.AssertContains(t, c.MustRun("show", "CR-1"), "# Login")
	cli.AssertContains(t, c.MustRun("show", "Untitled"), "number: CR-2")

	c.MustRun("rm", "CR-2")

	if _, err := os.Stat(filepath.Join(c.TaskDir(), "Untitled.md")); !os.IsNotExist(err) {
		t.Fatalf("Untitled.md still exists: %v", err)
	}

	cli.AssertContains(t, c.MustFail("show", "CR-2"), "task not found")
}
