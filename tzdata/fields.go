package tzdata

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Year represents a year in the proleptic Gregorian calendar.
type Year int

func (y Year) String() string {
	switch y {
	case MinYear:
		return "<indefinite past>"
	case MaxYear:
		return "<indefinite future>"
	}
	return strconv.Itoa(int(y))
}

const (
	// MinYear means the indefinite past.
	MinYear = Year(math.MinInt)
	// MaxYear means the indefinite future.
	MaxYear = Year(math.MaxInt)
)

// TimeForm is the reference frame of a time of day or the kind of a saved amount.
type TimeForm int

func (f TimeForm) String() string {
	switch f {
	case WallClock:
		return "WallClock"
	case StandardTime:
		return "StandardTime"
	case DaylightSavingTime:
		return "DaylightSavingTime"
	case UniversalTime:
		return "UniversalTime"
	default:
		return "<UNDEFINED>"
	}
}

const (
	WallClock TimeForm = iota
	StandardTime
	DaylightSavingTime
	UniversalTime
)

// Time is a duration since 00:00 together with its reference frame.
type Time struct {
	time.Duration
	Form TimeForm
}

// NewWallClock returns a wall clock Time.
func NewWallClock(d time.Duration) Time {
	return Time{Duration: d, Form: WallClock}
}

// DayForm is the shape of an ON column.
type DayForm int

func (f DayForm) String() string {
	switch f {
	case DayFormNum:
		return "Num"
	case DayFormLast:
		return "Last"
	case DayFormAfter:
		return "After"
	case DayFormBefore:
		return "Before"
	default:
		return "<UNDEFINED>"
	}
}

const (
	// DayFormNum is an exact day of month, e.g. "5".
	DayFormNum DayForm = iota
	// DayFormLast is the last weekday of the month, e.g. "lastSun".
	DayFormLast
	// DayFormAfter is the first weekday on or after Num, e.g. "Sun>=8".
	DayFormAfter
	// DayFormBefore is the last weekday on or before Num, e.g. "Sun<=25".
	DayFormBefore
)

// Day is a structured ON column.
type Day struct {
	Form DayForm
	Num  int
	Day  time.Weekday
}

func NewDayNum(n int) Day { return Day{Form: DayFormNum, Num: n} }
func NewDayLast(wd time.Weekday) Day { return Day{Form: DayFormLast, Day: wd} }
func NewDayAfter(n int, wd time.Weekday) Day { return Day{Form: DayFormAfter, Num: n, Day: wd} }
func NewDayBefore(n int, wd time.Weekday) Day { return Day{Form: DayFormBefore, Num: n, Day: wd} }

// RuleSpec is the structured interpretation of a rule line.
// It is computed on demand by RuleLine.Spec; the parser never stores it.
type RuleSpec struct {
	From   Year
	To     Year
	In     time.Month
	On     Day
	At     Time
	Save   Time
	Letter string
}

// ZoneRulesForm is the form of the RULES column of a zone line.
type ZoneRulesForm int

const (
	// ZoneRulesStandard means standard time always applies because the RULES column is "-".
	ZoneRulesStandard ZoneRulesForm = iota
	// ZoneRulesName means the RULES column references a rule set by name.
	ZoneRulesName
	// ZoneRulesTime means the RULES column is an amount of time in SAVE column format.
	ZoneRulesTime
)

// ZoneRules is the interpreted RULES column of a zone line.
type ZoneRules struct {
	Form ZoneRulesForm
	Name string // set for ZoneRulesName
	Time Time   // set for ZoneRulesTime
}

// parseZoneRULES interprets the RULES column.
//
// zic(8) says:
//
//	The name of the rules that apply in the timezone or,
//	alternatively, a field in the same format as a rule-line
//	SAVE column, giving the amount of time to be added to
//	local standard time and whether the resulting time is
//	standard or daylight saving.  If this field is - then
//	standard time always applies.
func parseZoneRULES(s string) ZoneRules {
	if s == "-" {
		return ZoneRules{Form: ZoneRulesStandard}
	}
	if t, err := parseRuleSAVE(s); err == nil {
		return ZoneRules{Form: ZoneRulesTime, Time: t}
	}
	return ZoneRules{Form: ZoneRulesName, Name: s}
}

// parseRuleSpec interprets the columns of a rule line.
// All columns are checked; errors are joined.
func parseRuleSpec(r RuleLine) (RuleSpec, error) {
	var (
		s    RuleSpec
		errs []error
		err  error
	)
	if s.From, err = parseRuleFROM(r.From); err != nil {
		errs = append(errs, fmt.Errorf("FROM %q: %w", r.From, err))
	}
	if s.To, err = parseRuleTO(r.To, s.From); err != nil {
		errs = append(errs, fmt.Errorf("TO %q: %w", r.To, err))
	}
	if s.In, err = parseMonth(r.In); err != nil {
		errs = append(errs, fmt.Errorf("IN %q: %w", r.In, err))
	}
	if s.On, err = parseRuleON(r.On); err != nil {
		errs = append(errs, fmt.Errorf("ON %q: %w", r.On, err))
	}
	if s.At, err = parseRuleAT(r.At); err != nil {
		errs = append(errs, fmt.Errorf("AT %q: %w", r.At, err))
	}
	if s.Save, err = parseRuleSAVE(r.Save); err != nil {
		errs = append(errs, fmt.Errorf("SAVE %q: %w", r.Save, err))
	}
	s.Letter = parseRuleLETTERS(r.Letter)
	return s, errors.Join(errs...)
}

// parseRuleFROM parses the FROM column.
// The words minimum and maximum (or abbreviations) mean the indefinite past and future.
func parseRuleFROM(s string) (Year, error) {
	l := strings.ToLower(s)
	if isAbbrev(l, "minimum", "mi") {
		return MinYear, nil
	}
	if isAbbrev(l, "maximum", "ma") {
		return MaxYear, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid year")
	}
	return Year(n), nil
}

// parseRuleTO parses the TO column. "only" repeats FROM.
func parseRuleTO(s string, from Year) (Year, error) {
	if isAbbrev(strings.ToLower(s), "only", "o") {
		return from, nil
	}
	return parseRuleFROM(s)
}

var months = [...]struct {
	long, min string
}{
	{"january", "ja"}, {"february", "f"}, {"march", "mar"}, {"april", "ap"},
	{"may", "may"}, {"june", "jun"}, {"july", "jul"}, {"august", "au"},
	{"september", "s"}, {"october", "o"}, {"november", "n"}, {"december", "d"},
}

// parseMonth parses a month name that may be abbreviated.
func parseMonth(s string) (time.Month, error) {
	l := strings.ToLower(s)
	for i, m := range months {
		if isAbbrev(l, m.long, m.min) {
			return time.Month(i + 1), nil
		}
	}
	return 0, fmt.Errorf("invalid month")
}

var weekdays = [...]struct {
	long, min string
}{
	{"sunday", "su"}, {"monday", "m"}, {"tuesday", "tu"}, {"wednesday", "w"},
	{"thursday", "th"}, {"friday", "f"}, {"saturday", "sa"},
}

func parseWeekday(s string) (time.Weekday, error) {
	l := strings.ToLower(s)
	for i, wd := range weekdays {
		if isAbbrev(l, wd.long, wd.min) {
			return time.Weekday(i), nil
		}
	}
	return 0, fmt.Errorf("invalid weekday %q", s)
}

// parseRuleON parses the ON column.
//
// zic(8) says:
//
//	     5        the fifth of the month
//	     lastSun  the last Sunday in the month
//	     lastMon  the last Monday in the month
//	     Sun>=8   first Sunday on or after the eighth
//	     Sun<=25  last Sunday on or before the 25th
func parseRuleON(s string) (Day, error) {
	if n, err := strconv.Atoi(s); err == nil {
		if n < 1 || n > 31 {
			return Day{}, fmt.Errorf("day of month out of range")
		}
		return NewDayNum(n), nil
	}
	if strings.HasPrefix(strings.ToLower(s), "last") {
		wd, err := parseWeekday(s[len("last"):])
		if err != nil {
			return Day{}, err
		}
		return NewDayLast(wd), nil
	}
	form := DayFormAfter
	wdStr, numStr, ok := strings.Cut(s, ">=")
	if !ok {
		form = DayFormBefore
		wdStr, numStr, ok = strings.Cut(s, "<=")
	}
	if !ok || wdStr == "" || numStr == "" {
		return Day{}, fmt.Errorf("expected day number, lastWeekday, weekday>=N or weekday<=N")
	}
	wd, err := parseWeekday(wdStr)
	if err != nil {
		return Day{}, err
	}
	n, err := strconv.Atoi(numStr)
	if err != nil || n < 1 || n > 31 {
		return Day{}, fmt.Errorf("invalid day of month %q", numStr)
	}
	return Day{Form: form, Day: wd, Num: n}, nil
}

// parseRuleAT parses the AT column: a time of day optionally suffixed with
// w (wall clock), s (standard) or u, g, z (universal).
func parseRuleAT(s string) (Time, error) {
	d, suffix, err := parseDurationWithSuffix(s, "wsugz")
	if err != nil {
		return Time{}, err
	}
	form := WallClock
	switch suffix {
	case 's':
		form = StandardTime
	case 'u', 'g', 'z':
		form = UniversalTime
	}
	return Time{Duration: d, Form: form}, nil
}

// parseRuleSAVE parses the SAVE column. The suffix s or d marks standard or
// daylight saving time; without it, zero is standard and anything else daylight.
func parseRuleSAVE(s string) (Time, error) {
	d, suffix, err := parseDurationWithSuffix(s, "sd")
	if err != nil {
		return Time{}, err
	}
	form := DaylightSavingTime
	switch {
	case suffix == 's':
		form = StandardTime
	case suffix == 0 && d == 0:
		form = StandardTime
	}
	return Time{Duration: d, Form: form}, nil
}

// parseRuleLETTERS returns the variable part of an abbreviation; "-" means none.
func parseRuleLETTERS(s string) string {
	if s == "-" {
		return ""
	}
	return s
}

func parseDurationWithSuffix(s string, suffixes string) (time.Duration, byte, error) {
	if s == "" {
		return 0, 0, fmt.Errorf("empty time")
	}
	var suffix byte
	if last := s[len(s)-1]; strings.IndexByte(suffixes, last) >= 0 {
		suffix = last
		s = s[:len(s)-1]
	}
	d, err := parseDuration(s)
	if err != nil {
		return 0, 0, err
	}
	return d, suffix, nil
}

// parseDuration parses a signed [-]h[:mm[:ss[.frac]]] value. "-" means zero.
// Fractional seconds are kept down to the nanosecond.
func parseDuration(s string) (time.Duration, error) {
	if s == "-" {
		return 0, nil
	}
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	if s == "" {
		return 0, fmt.Errorf("empty time")
	}
	parts := strings.Split(s, ":")
	if len(parts) > 3 {
		return 0, fmt.Errorf("too many colons")
	}
	var total time.Duration
	units := [...]time.Duration{time.Hour, time.Minute, time.Second}
	for i, p := range parts {
		frac := ""
		if i == 2 {
			p, frac, _ = strings.Cut(p, ".")
		}
		if p == "" || strings.Trim(p, "0123456789") != "" {
			return 0, fmt.Errorf("invalid time %q", s)
		}
		n, err := strconv.Atoi(p)
		if err != nil {
			return 0, fmt.Errorf("invalid time %q: %v", s, err)
		}
		if i > 0 && n > 59 {
			return 0, fmt.Errorf("invalid time %q: field out of range", s)
		}
		total += time.Duration(n) * units[i]
		if frac != "" {
			if strings.Trim(frac, "0123456789") != "" {
				return 0, fmt.Errorf("invalid fractional seconds %q", frac)
			}
			if len(frac) > 9 {
				frac = frac[:9]
			}
			frac += strings.Repeat("0", 9-len(frac))
			ns, _ := strconv.Atoi(frac)
			total += time.Duration(ns)
		}
	}
	if neg {
		total = -total
	}
	return total, nil
}

// isAbbrev reports whether s is an abbreviation of long that is at least as long as min.
func isAbbrev(s, long, min string) bool {
	return strings.HasPrefix(s, min) && strings.HasPrefix(long, s)
}
