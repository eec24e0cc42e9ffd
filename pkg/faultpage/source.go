package faultpage

import (
	"bufio"
	"os"
	"runtime"
	"strings"
)

// DefaultSnippetRadius is the number of lines shown on each side of the
// failing line.
const DefaultSnippetRadius = 5

// Frame is one resolved stack frame.
type Frame struct {
	Function string
	File     string
	Line     int
}

// SourceLine is one line of a Snippet.
type SourceLine struct {
	Text    string
	Number  int
	Current bool
}

// Snippet is the source code around a failing line.
type Snippet struct {
	File  string
	Lines []SourceLine
	Line  int
}

// Frames resolves program counters into frames, dropping Go runtime frames.
func Frames(pcs []uintptr) []Frame {
	if len(pcs) == 0 {
		return nil
	}

	frames := runtime.CallersFrames(pcs)
	var out []Frame
	for {
		f, more := frames.Next()
		if f.Function != "" && !strings.HasPrefix(f.Function, "runtime.") {
			out = append(out, Frame{Function: f.Function, File: f.File, Line: f.Line})
		}
		if !more {
			break
		}
	}
	return out
}

// ReadSnippet loads up to radius lines before and after line from file.
// It returns nil when the file cannot be read or line is out of range.
func ReadSnippet(file string, line, radius int) *Snippet {
	if file == "" || line <= 0 {
		return nil
	}
	if radius < 0 {
		radius = DefaultSnippetRadius
	}

	f, err := os.Open(file)
	if err != nil {
		return nil
	}
	defer f.Close()

	first, last := max(1, line-radius), line+radius
	snip := &Snippet{File: file, Line: line}

	sc := bufio.NewScanner(f)
	for n := 1; sc.Scan() && n <= last; n++ {
		if n < first {
			continue
		}
		snip.Lines = append(snip.Lines, SourceLine{
			Number:  n,
			Text:    strings.TrimRight(sc.Text(), "\r"),
			Current: n == line,
		})
	}
	if sc.Err() != nil || len(snip.Lines) == 0 || snip.Lines[len(snip.Lines)-1].Number < line {
		return nil
	}
	return snip
}
