package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"
)

type checkState int

const (
	checkPassed checkState = iota
	checkWarned
	checkFailed
)

const checkNameWidth = 18

func (s checkState) badge() string {
	switch s {
	case checkPassed:
		return "ok"
	case checkWarned:
		return "warn"
	default:
		return "fail"
	}
}

func (s checkState) colors() text.Colors {
	switch s {
	case checkPassed:
		return text.Colors{text.FgGreen}
	case checkWarned:
		return text.Colors{text.FgYellow}
	default:
		return text.Colors{text.FgRed, text.Bold}
	}
}

// renderCheck formats one preflight result as "  [ok  ] Name  detail".
func renderCheck(name string, state checkState, detail string, colorize bool) string {
	badge := fmt.Sprintf("[%-4s]", state.badge())
	if colorize {
		badge = state.colors().Sprint(badge)
	}
	line := fmt.Sprintf("  %s %-*s", badge, checkNameWidth, name)
	if detail != "" {
		line += " " + detail
	}
	return strings.TrimRight(line, " ")
}

func renderGroupTitle(title string, colorize bool) string {
	if colorize {
		return text.Colors{text.FgCyan, text.Bold}.Sprint(title)
	}
	return title
}

// renderTally summarises a status run, e.g. "6 checks: 5 ok, 1 warn, 0 fail".
func renderTally(counts map[checkState]int, colorize bool) string {
	total := counts[checkPassed] + counts[checkWarned] + counts[checkFailed]
	line := fmt.Sprintf("%d checks: %d ok, %d warn, %d fail",
		total, counts[checkPassed], counts[checkWarned], counts[checkFailed])
	if !colorize {
		return line
	}
	switch {
	case counts[checkFailed] > 0:
		return checkFailed.colors().Sprint(line)
	case counts[checkWarned] > 0:
		return checkWarned.colors().Sprint(line)
	default:
		return checkPassed.colors().Sprint(line)
	}
}

func useColor(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
