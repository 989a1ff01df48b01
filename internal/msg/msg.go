// Package msg prints the tool's user-facing output: leveled status lines,
// file-creation announcements and progress rendering for member fetches.
package msg

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
)

func level(label, format string, a ...any) {
	fmt.Print(label, ": ")
	fmt.Printf(format, a...)
	fmt.Print("\n")
}

func Error(format string, a ...any) {
	level(color.HiRedString("error"), format, a...)
}

func Warn(format string, a ...any) {
	level(color.YellowString("warn"), format, a...)
}

// Fatal prints like Error and exits the process.
func Fatal(format string, a ...any) {
	level(color.RedString("fatal"), format, a...)
	os.Exit(1)
}

func Info(format string, a ...any) {
	level(color.HiGreenString("info"), format, a...)
}

// Creating announces a file about to be generated.
func Creating(path string) {
	fmt.Println(color.CyanString("Creating: %s", path))
}

// IndentWriter prefixes every line written through it with Indent. Progress
// streams redraw in place with \r, so a carriage return also restarts the
// prefix.
type IndentWriter struct {
	Indent    string
	W         io.Writer
	didIndent bool
}

func (w *IndentWriter) Write(p []byte) (int, error) {
	buf := make([]byte, 0, len(p)+len(w.Indent))
	for _, c := range p {
		if !w.didIndent {
			buf = append(buf, w.Indent...)
			w.didIndent = true
		}
		buf = append(buf, c)
		if c == '\n' || c == '\r' {
			w.didIndent = false
		}
	}
	if _, err := w.W.Write(buf); err != nil {
		return 0, err
	}
	return len(p), nil
}
