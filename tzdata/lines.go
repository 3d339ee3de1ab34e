package tzdata

import (
	"errors"
	"fmt"
	"strings"
)

// Pos locates a line in a named source file.
type Pos struct {
	File string
	Line int
}

func (p Pos) String() string {
	if p.File == "" {
		return fmt.Sprintf("line %d", p.Line)
	}
	return fmt.Sprintf("%s:%d", p.File, p.Line)
}

// Line is a classified source record: a *ZoneLine (header or continuation),
// a *RuleLine or a *LinkLine. Consumers switch on the concrete type.
type Line interface {
	Position() Pos
	line()
}

// ZoneLine is a zone header or a zone continuation line. All columns are kept as written.
type ZoneLine struct {
	Pos          Pos
	Continuation bool   // true for continuation lines
	Name         string // NAME column; empty for continuation lines
	Offset       string // STDOFF column
	Rules        string // RULES column: "-", a rule set name or an amount of time
	Format       string // FORMAT column
	Until        Until  // UNTIL columns
}

// RulesSpec interprets the RULES column.
func (z ZoneLine) RulesSpec() ZoneRules {
	return parseZoneRULES(z.Rules)
}

// RuleLine is a rule line. All columns are kept as written.
type RuleLine struct {
	Pos    Pos
	Name   string
	From   string
	To     string
	Type   string
	In     string
	On     string
	At     string
	Save   string
	Letter string
}

// Spec returns the structured interpretation of r, or an error naming every
// column that does not match the zic grammar.
func (r RuleLine) Spec() (RuleSpec, error) {
	return parseRuleSpec(r)
}

// LinkLine is a link line: Name is an alternative name for Target.
type LinkLine struct {
	Pos    Pos
	Target string
	Name   string
}

func (l *ZoneLine) Position() Pos { return l.Pos }
func (l *RuleLine) Position() Pos { return l.Pos }
func (l *LinkLine) Position() Pos { return l.Pos }

func (*ZoneLine) line() {}
func (*RuleLine) line() {}
func (*LinkLine) line() {}

// classify turns the fields of one non-blank line into a record.
// Keywords may be abbreviated the way zic accepts them, so the compact
// tzdata.zi form (Z, R, L) is understood too.
func classify(pos Pos, fields []string) (Line, error) {
	switch kw := strings.ToLower(fields[0]); {
	case isAbbrev(kw, "zone", "z"):
		z, err := parseZoneHeader(pos, fields)
		if err != nil {
			return nil, err
		}
		return z, nil
	case isAbbrev(kw, "rule", "r"):
		r, err := parseRuleLine(pos, fields)
		if err != nil {
			return nil, err
		}
		return r, nil
	case isAbbrev(kw, "link", "l"):
		l, err := parseLinkLine(pos, fields)
		if err != nil {
			return nil, err
		}
		return l, nil
	case looksLikeOffset(fields[0]):
		z, err := parseContinuation(pos, fields)
		if err != nil {
			return nil, err
		}
		return z, nil
	}
	return nil, malformed("unknown record type %q", fields[0])
}

func looksLikeOffset(s string) bool {
	if s == "" || s == "-" {
		return false
	}
	_, err := parseDuration(s)
	return err == nil
}

// parseZoneHeader parses a zone line.
//
//	Zone  NAME        STDOFF  RULES   FORMAT  [UNTIL]
//	Zone  Asia/Amman  2:00    Jordan  EE%sT   2017 Oct 27 01:00
func parseZoneHeader(pos Pos, fields []string) (*ZoneLine, error) {
	if len(fields) < 5 || len(fields) > 9 {
		return nil, malformed("zone: expected 5 to 9 fields, got %d", len(fields))
	}
	z := &ZoneLine{Pos: pos}
	var errs []error
	if err := checkZoneNAME(fields[1]); err != nil {
		errs = append(errs, fmt.Errorf("NAME %q: %w", fields[1], err))
	}
	z.Name = fields[1]
	if err := fillZoneColumns(z, fields[2:]); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("%w: zone: %w", ErrMalformedRecord, errors.Join(errs...))
	}
	return z, nil
}

// parseContinuation parses a continuation line, which has the form of a zone
// line without the keyword and the name.
func parseContinuation(pos Pos, fields []string) (*ZoneLine, error) {
	if len(fields) < 3 || len(fields) > 7 {
		return nil, malformed("zone continuation: expected 3 to 7 fields, got %d", len(fields))
	}
	z := &ZoneLine{Pos: pos, Continuation: true}
	if err := fillZoneColumns(z, fields); err != nil {
		return nil, fmt.Errorf("%w: zone continuation: %w", ErrMalformedRecord, err)
	}
	return z, nil
}

// fillZoneColumns sets STDOFF, RULES, FORMAT and UNTIL from fields.
func fillZoneColumns(z *ZoneLine, fields []string) error {
	var errs []error
	if _, err := parseDuration(fields[0]); err != nil || fields[0] == "-" {
		errs = append(errs, fmt.Errorf("STDOFF %q: invalid offset", fields[0]))
	}
	z.Offset, z.Rules, z.Format = fields[0], fields[1], fields[2]
	until, err := composeUntil(fields[3:])
	if err != nil {
		errs = append(errs, fmt.Errorf("UNTIL %q: %w", strings.Join(fields[3:], " "), err))
	}
	z.Until = until
	return errors.Join(errs...)
}

// checkZoneNAME rejects names with "." or ".." file name components.
func checkZoneNAME(s string) error {
	for _, c := range strings.Split(s, "/") {
		if c == "" || c == "." || c == ".." {
			return fmt.Errorf("invalid file name component %q", c)
		}
	}
	return nil
}

// parseRuleLine parses a rule line. Only the shape is checked here;
// RuleLine.Spec validates the column grammar.
//
//	Rule  NAME  FROM  TO    -  IN   ON       AT     SAVE   LETTER/S
//	Rule  US    1967  1973  -  Apr  lastSun  2:00w  1:00d  D
func parseRuleLine(pos Pos, fields []string) (*RuleLine, error) {
	if len(fields) != 10 {
		return nil, malformed("rule: expected 10 fields, got %d", len(fields))
	}
	return &RuleLine{
		Pos:    pos,
		Name:   fields[1],
		From:   fields[2],
		To:     fields[3],
		Type:   fields[4],
		In:     fields[5],
		On:     fields[6],
		At:     fields[7],
		Save:   fields[8],
		Letter: fields[9],
	}, nil
}

// parseLinkLine parses a link line.
//
//	Link  TARGET           LINK-NAME
//	Link  Europe/Istanbul  Asia/Istanbul
func parseLinkLine(pos Pos, fields []string) (*LinkLine, error) {
	if len(fields) != 3 {
		return nil, malformed("link: expected 3 fields, got %d", len(fields))
	}
	if err := checkZoneNAME(fields[2]); err != nil {
		return nil, malformed("link: LINK-NAME %q: %v", fields[2], err)
	}
	return &LinkLine{Pos: pos, Target: fields[1], Name: fields[2]}, nil
}
