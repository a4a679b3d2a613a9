package cli

import (
	"io"
	"os"
	"strconv"

	"golang.org/x/sys/unix"
)

const defaultWidth = 120

// terminalWidth returns the column count of the terminal behind w, then
// $COLUMNS, then a default.
func terminalWidth(w io.Writer, env map[string]string) int {
	if f, ok := w.(*os.File); ok {
		ws, err := unix.IoctlGetWinsize(int(f.Fd()), unix.TIOCGWINSZ)
		if err == nil && ws.Col > 0 {
			return int(ws.Col)
		}
	}

	if cols, err := strconv.Atoi(env["COLUMNS"]); err == nil && cols > 0 {
		return cols
	}

	return defaultWidth
}
