// Package shell composes bash scripts as text.
//
// Nothing here runs a process. A Script is built completely in memory and
// handed to the elevate package as one string, which is what makes a single
// privilege prompt per operation possible.
package shell

import (
	"fmt"
	"strings"
)

// Header starts every script: bash, exit on the first failing command.
const Header = "#!/bin/bash\nset -e\n"

const heredocDelim = "SERVERMARK_EOF"

// Script accumulates lines of a bash script.
type Script struct {
	b strings.Builder
}

// New returns a script that already carries Header.
func New() *Script {
	s := &Script{}
	s.b.WriteString(Header)
	return s
}

// Line appends one command line verbatim.
func (s *Script) Line(line string) {
	s.b.WriteString(line)
	s.b.WriteByte('\n')
}

// Linef appends a formatted command line.
func (s *Script) Linef(format string, args ...interface{}) {
	s.Line(fmt.Sprintf(format, args...))
}

// Comment appends a "# text" line.
func (s *Script) Comment(text string) {
	s.b.WriteString("\n# ")
	s.b.WriteString(text)
	s.b.WriteByte('\n')
}

// Heredoc writes content to path without any shell expansion inside it.
func (s *Script) Heredoc(path, content string) {
	delim := heredocDelim
	for hasLine(content, delim) {
		delim += "_"
	}
	fmt.Fprintf(&s.b, "cat > %s << '%s'\n", Quote(path), delim)
	s.b.WriteString(content)
	if !strings.HasSuffix(content, "\n") {
		s.b.WriteByte('\n')
	}
	s.b.WriteString(delim)
	s.b.WriteByte('\n')
}

// String returns the script text.
func (s *Script) String() string {
	return s.b.String()
}

// Quote wraps v in single quotes for bash, escaping embedded quotes.
func Quote(v string) string {
	return "'" + strings.ReplaceAll(v, "'", `'\''`) + "'"
}

func hasLine(content, line string) bool {
	for _, l := range strings.Split(content, "\n") {
		if l == line {
			return true
		}
	}
	return false
}
