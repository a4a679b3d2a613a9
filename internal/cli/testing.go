package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// CLI runs commands against a temp directory in tests.
type CLI struct {
	t   *testing.T
	Dir string
	Env map[string]string
}

// NewCLI creates a new test CLI with a temp directory and a fixed
// terminal width.
func NewCLI(t *testing.T) *CLI {
	t.Helper()

	return &CLI{
		t:   t,
		Dir: t.TempDir(),
		Env: map[string]string{"COLUMNS": "80"},
	}
}

// Run executes the CLI with the given args and returns stdout, stderr, and
// exit code. "taskboard --cwd <Dir>" is prepended.
func (r *CLI) Run(args ...string) (string, string, int) {
	return r.RunWithInput("", args...)
}

// RunWithInput executes the CLI reading stdin from input.
func (r *CLI) RunWithInput(input string, args ...string) (string, string, int) {
	var outBuf, errBuf bytes.Buffer

	fullArgs := append([]string{"taskboard", "--cwd", r.Dir}, args...)
	code := Run(strings.NewReader(input), &outBuf, &errBuf, fullArgs, r.Env, nil)

	return outBuf.String(), errBuf.String(), code
}

// MustRun executes the CLI and fails the test if the command returns
// non-zero. Returns trimmed stdout.
func (r *CLI) MustRun(args ...string) string {
	r.t.Helper()

	stdout, stderr, code := r.Run(args...)
	if code != 0 {
		r.t.Fatalf("command %v failed with exit code %d\nstderr: %s", args, code, stderr)
	}

	return strings.TrimSpace(stdout)
}

// MustFail executes the CLI and fails the test if the command succeeds.
// Returns trimmed stderr.
func (r *CLI) MustFail(args ...string) string {
	r.t.Helper()

	stdout, stderr, code := r.Run(args...)
	if code == 0 {
		r.t.Fatalf("command %v should have failed but succeeded\nstdout: %s", args, stdout)
	}

	return strings.TrimSpace(stderr)
}

// TaskDir returns the default task directory.
func (r *CLI) TaskDir() string {
	return filepath.Join(r.Dir, "tasks")
}

// ReadTask returns the content of the document with the given name.
func (r *CLI) ReadTask(name string) string {
	r.t.Helper()

	content, err := os.ReadFile(filepath.Join(r.TaskDir(), name+".md"))
	if err != nil {
		r.t.Fatalf("failed to read task %s: %v", name, err)
	}

	return string(content)
}

// WriteTask writes a document with the given name.
func (r *CLI) WriteTask(name, content string) {
	r.t.Helper()

	err := os.MkdirAll(r.TaskDir(), 0o755)
	if err != nil {
		r.t.Fatalf("failed to create task dir: %v", err)
	}

	err = os.WriteFile(filepath.Join(r.TaskDir(), name+".md"), []byte(content), 0o600)
	if err != nil {
		r.t.Fatalf("failed to write task %s: %v", name, err)
	}
}

// AssertContains fails the test if content doesn't contain substr.
func AssertContains(t *testing.T, content, substr string) {
	t.Helper()

	if !strings.Contains(content, substr) {
		t.Errorf("content should contain %q\ncontent:\n%s", substr, content)
	}
}

// AssertNotContains fails the test if content contains substr.
func AssertNotContains(t *testing.T, content, substr string) {
	t.Helper()

	if strings.Contains(content, substr) {
		t.Errorf("content should NOT contain %q\ncontent:\n%s", substr, content)
	}
}
