package tzdata

import (
	"fmt"
	"strings"
)

// splitLine splits a line into fields. It returns nil for blank and comment-only lines.
//
// zic(8) says:
//
//	Input lines are made up of fields.  Fields are separated from one
//	another by one or more white space characters.  The white space
//	characters are space, form feed, carriage return, newline, tab,
//	and vertical tab.  Leading and trailing white space on input
//	lines is ignored.  An unquoted sharp character (#) in the input
//	introduces a comment which extends to the end of the line the
//	sharp character appears on.  White space characters and sharp
//	characters may be enclosed in double quotes (") if they're to be
//	used as part of a field.  Any line that is blank (after comment
//	stripping) is ignored.
//
// Quotes are removed from the resulting field. A bracketed abbreviation
// such as <+0330> is always kept together as part of a single field.
func splitLine(line string) ([]string, error) {
	var (
		fields  []string
		field   strings.Builder
		inField bool
		quoted  bool
		angle   bool
	)
	flush := func() {
		if inField {
			fields = append(fields, field.String())
			field.Reset()
			inField = false
		}
	}
	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case quoted:
			if c == '"' {
				quoted = false
				continue
			}
			field.WriteByte(c)
		case angle:
			if c == '#' || isSpace(c) {
				return nil, fmt.Errorf("unterminated '<' at column %d", i+1)
			}
			if c == '>' {
				angle = false
			}
			field.WriteByte(c)
		case c == '#':
			flush()
			return fields, nil
		case isSpace(c):
			flush()
		case c == '"':
			quoted = true
			inField = true
		default:
			if c == '<' {
				angle = true
			}
			inField = true
			field.WriteByte(c)
		}
	}
	if quoted {
		return nil, fmt.Errorf("unterminated quote")
	}
	if angle {
		return nil, fmt.Errorf("unterminated '<'")
	}
	flush()
	for _, f := range fields {
		if f == "" {
			return nil, fmt.Errorf("empty quoted field")
		}
	}
	return fields, nil
}

func isSpace(c byte) bool {
	switch c {
	case ' ', '\f', '\r', '\n', '\t', '\v':
		return true
	}
	return false
}
