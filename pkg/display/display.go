package display

import (
	"fmt"
	"io"
	"os"
	"sync"
)

const (
	HideCursorSeq  = "\033[?25l"
	ShowCursorSeq  = "\033[?25h"
	ClearToEOLSeq  = "\033[K"
	CarriageReturn = "\r"
	BoldSeq        = "\033[1m"
	NormalSeq      = "\033[0;39m"
)

var (
	Out io.Writer = os.Stdout
	Err io.Writer = os.Stderr

	mutex = &sync.Mutex{}
)

func SetOut(out io.Writer) {
	Out = out
}

func SetErr(err io.Writer) {
	Err = err
}

type LogLine struct {
	Timestamp string
	Message   string
}

func fWriteF(stream io.Writer, format string, args ...interface{}) (n int, err error) {
	mutex.Lock()
	defer mutex.Unlock()
	return fmt.Fprintf(stream, format, args...)
}

func ErrF(format string, args ...interface{}) (n int, err error) {
	return fWriteF(Err, format, args...)
}

func HideCursor(w io.Writer) {
	fWriteF(w, "%s", HideCursorSeq)
}

func ShowCursor(w io.Writer) {
	fWriteF(w, "%s", ShowCursorSeq)
}

// OverwriteLine prints the line over the current terminal line and returns
// the cursor to its beginning, so the next call replaces it.
func OverwriteLine(w io.Writer, prefix, line string) {
	fWriteF(w, "%s %s%s%s", prefix, line, ClearToEOLSeq, CarriageReturn)
}

// ClearLine moves to the line start and erases it.
func ClearLine(w io.Writer) {
	fWriteF(w, "%s%s", CarriageReturn, ClearToEOLSeq)
}

// Bold wraps s into bold markers when highlight is set.
func Bold(s string, highlight bool) string {
	if !highlight {
		return s
	}
	return BoldSeq + s + NormalSeq
}

// OutputLogLines prints the messages, prefixed by their timestamps when
// withTimestamps is set and the line has one.
func OutputLogLines(w io.Writer, logLines []LogLine, withTimestamps bool) {
	mutex.Lock()
	defer mutex.Unlock()

	for _, line := range logLines {
		if line.Timestamp != "" && withTimestamps {
			fmt.Fprintf(w, "%s %s\n", line.Timestamp, line.Message)
		} else {
			fmt.Fprintln(w, line.Message)
		}
	}
}
