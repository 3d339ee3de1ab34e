package tzdata

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Until is the UNTIL column of a zone line exactly as written in the source,
// with its fields joined by single spaces. The empty Until means the line is
// in effect indefinitely.
type Until string

// Defined reports whether the UNTIL column is present.
func (u Until) Defined() bool {
	return u != ""
}

// Spec returns the structured interpretation of u.
// Omitted trailing fields are reported through UntilSpec.Parts; they are not filled in.
func (u Until) Spec() (UntilSpec, error) {
	return parseUntilFields(strings.Fields(string(u)))
}

// UntilPartsMask tracks which fields of an UntilSpec were written.
type UntilPartsMask uint8

// Has reports whether any of parts is set.
func (p UntilPartsMask) Has(parts UntilPartsMask) bool {
	return p&parts != 0
}

// Set sets parts in the mask.
func (p UntilPartsMask) Set(parts UntilPartsMask) UntilPartsMask {
	return p | parts
}

const (
	UntilYearOnly UntilPartsMask = 1 << iota
	UntilMonthOnly
	UntilDayOnly
	UntilTimeOnly

	// A set part implies all parts to its left: trailing fields can be
	// omitted, leading fields cannot.
	UntilYear  = UntilYearOnly
	UntilMonth = UntilYear | UntilMonthOnly
	UntilDay   = UntilMonth | UntilDayOnly
	UntilTime  = UntilDay | UntilTimeOnly
)

// UntilSpec is a structured UNTIL column.
//
// zic(8) says:
//
//	It takes the form of one to four fields YEAR
//	[MONTH [DAY [TIME]]]. [...] The
//	month, day, and time of day have the same format as the
//	IN, ON, and AT fields of a rule; trailing fields can be
//	omitted, and default to the earliest possible value for
//	the missing fields.
type UntilSpec struct {
	Parts UntilPartsMask
	Year  int
	Month time.Month // valid if Parts.Has(UntilMonthOnly)
	Day   Day        // valid if Parts.Has(UntilDayOnly)
	Time  Time       // valid if Parts.Has(UntilTimeOnly)
}

// Defined reports whether the spec carries at least a year.
func (s UntilSpec) Defined() bool {
	return s.Parts.Has(UntilYearOnly)
}

func parseUntilFields(fields []string) (UntilSpec, error) {
	var s UntilSpec
	if len(fields) == 0 {
		return s, nil
	}
	if len(fields) > 4 {
		return s, fmt.Errorf("expected at most 4 fields, got %d", len(fields))
	}
	year, err := strconv.Atoi(fields[0])
	if err != nil {
		return s, fmt.Errorf("year %q: invalid year", fields[0])
	}
	s.Year = year
	s.Parts = s.Parts.Set(UntilYearOnly)
	if len(fields) > 1 {
		if s.Month, err = parseMonth(fields[1]); err != nil {
			return s, fmt.Errorf("month %q: %w", fields[1], err)
		}
		s.Parts = s.Parts.Set(UntilMonthOnly)
	}
	if len(fields) > 2 {
		if s.Day, err = parseRuleON(fields[2]); err != nil {
			return s, fmt.Errorf("day %q: %w", fields[2], err)
		}
		s.Parts = s.Parts.Set(UntilDayOnly)
	}
	if len(fields) > 3 {
		if s.Time, err = parseRuleAT(fields[3]); err != nil {
			return s, fmt.Errorf("time %q: %w", fields[3], err)
		}
		s.Parts = s.Parts.Set(UntilTimeOnly)
	}
	return s, nil
}

// composeUntil validates the trailing UNTIL fields of a zone or continuation
// line and joins them as written.
func composeUntil(fields []string) (Until, error) {
	if _, err := parseUntilFields(fields); err != nil {
		return "", err
	}
	return Until(strings.Join(fields, " ")), nil
}
