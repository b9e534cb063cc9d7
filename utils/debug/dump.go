// Package debug produces human readable dumps of reading session state.
package debug

import (
	"fmt"
	"strconv"
	"strings"

	"bookview/session"
)

type treeWriter struct {
	sb strings.Builder
}

func (tw *treeWriter) line(depth int, format string, args ...any) {
	tw.sb.WriteString(strings.Repeat("  ", depth))
	fmt.Fprintf(&tw.sb, format, args...)
	tw.sb.WriteByte('\n')
}

// field writes label with quoted value, empty values are left bare.
func (tw *treeWriter) field(depth int, label, value string) {
	if len(value) > 0 {
		value = strconv.Quote(value)
	}
	tw.line(depth, "%s: %s", label, value)
}

// Session returns indented dump of session: identity, layout, position and
// location index with current page marked.
func Session(s *session.Session) string {
	var tw treeWriter

	tw.line(0, "session %s", s.ID)
	tw.field(1, "name", s.Name)
	tw.field(1, "hash", s.Hash)
	tw.line(1, "state: %s", s.State())

	l := s.Layout()
	tw.line(1, "layout: %s, columns %d", l.Flow, l.Columns)
	tw.field(1, "position", string(s.Position()))
	tw.line(1, "page: %s", s.TopBar().Status())

	locs := s.Index().Locators()
	if len(locs) == 0 {
		tw.line(1, "index: not available")
		return tw.sb.String()
	}
	current, ok := s.Index().PageOf(s.Position())
	tw.line(1, "index: %d pages", len(locs))
	for i, loc := range locs {
		mark := ""
		if ok && i == current {
			mark = " *"
		}
		tw.line(2, "%d %s%s", i+1, strconv.Quote(string(loc)), mark)
	}
	return tw.sb.String()
}
