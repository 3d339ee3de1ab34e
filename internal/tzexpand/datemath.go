package tzexpand

import (
	"time"

	"github.com/ngrash/tzbundle/tzdata"
)

func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// daysIn returns the number of days of month in year.
func daysIn(year int, month time.Month) int {
	return date(year, month+1, 0).Day()
}

// lastWeekday returns the day of the last d.Day in month.
func lastWeekday(year int, month time.Month, d tzdata.Day) int {
	last := daysIn(year, month)
	back := int(date(year, month, last).Weekday()-d.Day+7) % 7
	return last - back
}

// weekdayOnOrAfter returns the first d.Day on or after day d.Num of month.
// The result may fall into the next month or year.
func weekdayOnOrAfter(year int, month time.Month, d tzdata.Day) (int, time.Month, int) {
	fwd := int(d.Day-date(year, month, d.Num).Weekday()+7) % 7
	t := date(year, month, d.Num+fwd)
	return t.Year(), t.Month(), t.Day()
}

// weekdayOnOrBefore returns the last d.Day on or before day d.Num of month.
// The result may fall into the previous month or year.
func weekdayOnOrBefore(year int, month time.Month, d tzdata.Day) (int, time.Month, int) {
	back := int(date(year, month, d.Num).Weekday()-d.Day+7) % 7
	t := date(year, month, d.Num-back)
	return t.Year(), t.Month(), t.Day()
}
