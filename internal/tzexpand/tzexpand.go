// Package tzexpand fills in the parts of an UNTIL column that zic lets
// authors omit, for consumers that need full dates.
package tzexpand

import (
	"fmt"
	"time"

	"github.com/ngrash/tzbundle/tzdata"
)

// Moment is an UNTIL column with the year, month, day and time expanded.
// It is in the zone's own reckoning, as given by Time.Form.
type Moment struct {
	Year  int
	Month time.Month
	Day   int
	Time  tzdata.Time
}

func (m Moment) String() string {
	d := m.Time.Duration
	h, d := d/time.Hour, d%time.Hour
	mn, d := d/time.Minute, d%time.Minute
	s := d / time.Second
	var suffix string
	switch m.Time.Form {
	case tzdata.StandardTime:
		suffix = "s"
	case tzdata.UniversalTime:
		suffix = "u"
	}
	return fmt.Sprintf("%04d-%02d-%02d %02d:%02d:%02d%s", m.Year, int(m.Month), m.Day, h, mn, s, suffix)
}

// Date returns m as a time.Time in UTC, ignoring the reference frame.
// Times of day past 24:00 roll over into the next day.
func (m Moment) Date() time.Time {
	return time.Date(m.Year, m.Month, m.Day, 0, 0, 0, 0, time.UTC).Add(m.Time.Duration)
}

// Earliest returns the earliest moment described by u: a missing month is
// January, a missing day is the 1st, a missing time is 00:00 wall clock.
// Day forms such as lastSun are resolved to a day of month.
// It reports false if u is not defined.
func Earliest(u tzdata.UntilSpec) (Moment, bool) {
	if !u.Defined() {
		return Moment{}, false
	}
	m := Moment{Year: u.Year, Month: time.January, Day: 1, Time: tzdata.NewWallClock(0)}
	if u.Parts.Has(tzdata.UntilMonthOnly) {
		m.Month = u.Month
	}
	if u.Parts.Has(tzdata.UntilDayOnly) {
		m.Year, m.Month, m.Day = DayOfMonth(m.Year, m.Month, u.Day)
	}
	if u.Parts.Has(tzdata.UntilTimeOnly) {
		m.Time = u.Time
	}
	return m, true
}

// DayOfMonth resolves d in the given month. Weekday forms may move into the
// previous or next month, so the year and month are returned too.
func DayOfMonth(year int, month time.Month, d tzdata.Day) (y int, m time.Month, day int) {
	switch d.Form {
	case tzdata.DayFormNum:
		return year, month, d.Num
	case tzdata.DayFormLast:
		return year, month, lastWeekday(year, month, d)
	case tzdata.DayFormAfter:
		return weekdayOnOrAfter(year, month, d)
	case tzdata.DayFormBefore:
		return weekdayOnOrBefore(year, month, d)
	}
	panic(fmt.Errorf("invalid DayForm: %v", d.Form))
}
