// Package sanitize cleans Jenkins console output before it is analyzed or shown.
// It removes ANSI escape sequences and the hidden console notes that the
// Jenkins AnsiColor and pipeline plugins embed in the raw log stream.
package sanitize

import (
	"regexp"
	"strings"

	"github.com/charmbracelet/x/ansi"
)

// Jenkins console notes: \x1b[8mha:////<base64>\x1b[0m
// They are written with the "conceal" SGR so browsers never show them.
var consoleNotePattern = regexp.MustCompile(`\x1b\[8mha:[^\x1b]*\x1b\[0m`)

// StripANSI removes ANSI escape sequences.
func StripANSI(s string) string {
	return ansi.Strip(s)
}

// StripConsoleNotes removes Jenkins hidden console annotations.
func StripConsoleNotes(s string) string {
	return consoleNotePattern.ReplaceAllString(s, "")
}

// Clean removes console notes and ANSI codes, normalizes line endings to \n,
// and trims trailing blank space from the whole text.
func Clean(s string) string {
	s = StripConsoleNotes(s)
	s = StripANSI(s)
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	return strings.TrimRight(s, " \t\n")
}
