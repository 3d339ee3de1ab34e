// Package tzdata parses the tzdata source files distributed by IANA at
// https://www.iana.org/time-zones.
//
// Columns are kept exactly as written. Structured interpretations of rule
// and UNTIL columns are computed on demand by RuleLine.Spec and Until.Spec.
package tzdata

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

// maxLineLength bounds the length of a single source line.
const maxLineLength = 1 << 20

// File is the result of parsing one tzdata source file.
// Zones, rules and links are each in the order they appear in the file.
type File struct {
	Name  string
	Zones []Zone
	Rules []RuleLine
	Links []LinkLine
}

// Zone is a zone line together with its continuation lines, in source order.
// Lines[0] is the zone header.
type Zone struct {
	Name  string
	Lines []ZoneLine
}

// Pos returns the position of the zone header.
func (z Zone) Pos() Pos {
	return z.Lines[0].Pos
}

// Parse parses the tzdata file read from r. The name is used in error positions.
//
// A bad line does not stop parsing: Parse collects one *ParseError per bad
// line and returns them joined, together with everything that did parse.
// A non-nil error with an empty File means r could not be read.
func Parse(name string, r io.Reader) (File, error) {
	var (
		a       = assembler{file: File{Name: name}}
		errs    []error
		scanner = bufio.NewScanner(r)
		n       int
	)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineLength)
	for scanner.Scan() {
		n++
		text := scanner.Text()
		pos := Pos{File: name, Line: n}
		fields, err := splitLine(text)
		if err != nil {
			errs = append(errs, &ParseError{pos, text, fmt.Errorf("%w: %v", ErrMalformedRecord, err)})
			continue
		}
		if fields == nil {
			continue // comment or blank line
		}
		l, err := classify(pos, fields)
		if err != nil {
			if isAbbrev(strings.ToLower(fields[0]), "zone", "z") {
				a.reject()
			}
			errs = append(errs, &ParseError{pos, text, err})
			continue
		}
		if err := a.add(l); err != nil {
			errs = append(errs, &ParseError{pos, text, err})
		}
	}
	if err := scanner.Err(); err != nil {
		return File{Name: name}, fmt.Errorf("read %s: %w", name, err)
	}
	a.finish()
	return a.file, errors.Join(errs...)
}

// assembler turns classified lines into a File. It is either idle or
// inside a zone, in which case open holds the zone being assembled.
// After a zone header that failed to classify it is rejected until the
// next zone header, and continuation lines are reported instead of being
// attached to an earlier zone.
type assembler struct {
	file     File
	open     *Zone
	rejected bool
}

func (a *assembler) add(l Line) error {
	switch l := l.(type) {
	case *ZoneLine:
		if l.Continuation {
			return a.continuation(*l)
		}
		a.finish()
		a.rejected = false
		a.open = &Zone{Name: l.Name, Lines: []ZoneLine{*l}}
		a.closeIfFinal(*l)
	case *RuleLine:
		a.file.Rules = append(a.file.Rules, *l)
	case *LinkLine:
		a.file.Links = append(a.file.Links, *l)
	default:
		return fmt.Errorf("%w: unexpected record %T", ErrMalformedRecord, l)
	}
	return nil
}

func (a *assembler) continuation(l ZoneLine) error {
	if a.rejected {
		return fmt.Errorf("%w: the zone line this line continues was rejected", ErrOrphanContinuation)
	}
	if a.open == nil {
		return fmt.Errorf("%w: no zone line precedes this line or the previous zone line has no UNTIL column", ErrOrphanContinuation)
	}
	a.open.Lines = append(a.open.Lines, l)
	a.closeIfFinal(l)
	return nil
}

// closeIfFinal finishes the open zone after a line without UNTIL: such a
// line is in effect indefinitely and cannot be continued.
func (a *assembler) closeIfFinal(l ZoneLine) {
	if !l.Until.Defined() {
		a.finish()
	}
}

func (a *assembler) reject() {
	a.finish()
	a.rejected = true
}

func (a *assembler) finish() {
	if a.open != nil {
		a.file.Zones = append(a.file.Zones, *a.open)
		a.open = nil
	}
}
