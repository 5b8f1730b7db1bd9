// Package timeindex maps grid column indices to dates and back for each zoom
// granularity. Stored dates are absolute; only the mapping depends on granularity.
package timeindex

import (
	"fmt"
	"time"
)

type Granularity string

const (
	Hours  Granularity = "hours"
	Days   Granularity = "days"
	Weeks  Granularity = "weeks"
	Months Granularity = "months"
)

// All lists granularities from finest to coarsest.
var All = []Granularity{Hours, Days, Weeks, Months}

func (g Granularity) IsValid() bool {
	switch g {
	case Hours, Days, Weeks, Months:
		return true
	}
	return false
}

// Parse validates a granularity name.
func Parse(s string) (Granularity, error) {
	g := Granularity(s)
	if !g.IsValid() {
		return "", fmt.Errorf("invalid granularity %q (want hours, days, weeks or months)", s)
	}
	return g, nil
}

// IndexToDate advances epoch by index units of g and truncates to the start of the
// unit. Negative indices and unknown granularities report ok=false.
func IndexToDate(index int, epoch time.Time, g Granularity) (time.Time, bool) {
	if index < 0 || epoch.IsZero() {
		return time.Time{}, false
	}
	switch g {
	case Hours:
		d := epoch.Add(time.Duration(index) * time.Hour)
		return time.Date(d.Year(), d.Month(), d.Day(), d.Hour(), 0, 0, 0, d.Location()), true
	case Days:
		return midnight(epoch.AddDate(0, 0, index)), true
	case Weeks:
		return midnight(epoch.AddDate(0, 0, index*7)), true
	case Months:
		first := time.Date(epoch.Year(), epoch.Month(), 1, 0, 0, 0, 0, epoch.Location())
		return first.AddDate(0, index, 0), true
	}
	return time.Time{}, false
}

// DateToIndex is the truncating inverse of IndexToDate offset by one: whole units
// are counted from the start of the epoch's unit, so the epoch maps to column 1
// and column 0 is reserved. A zero date maps to 0.
func DateToIndex(date, epoch time.Time, g Granularity) int {
	if date.IsZero() || epoch.IsZero() || !g.IsValid() {
		return 0
	}
	return Units(Truncate(epoch, g), date, g) + 1
}

// ColumnDate returns the date at which column col begins, so that
// DateToIndex(ColumnDate(col)) == col for every col >= 1.
func ColumnDate(col int, epoch time.Time, g Granularity) (time.Time, bool) {
	if col < 1 {
		return time.Time{}, false
	}
	return IndexToDate(col-1, epoch, g)
}

// Units counts the whole units of g between from and to, truncated toward zero.
func Units(from, to time.Time, g Granularity) int {
	switch g {
	case Hours:
		return int(to.Sub(from) / time.Hour)
	case Days:
		return wholeDays(from, to)
	case Weeks:
		return wholeDays(from, to) / 7
	case Months:
		return wholeMonths(from, to)
	}
	return 0
}

// UnitsFloat converts a length in days to fractional units of g. Months count as
// 30 days.
func UnitsFloat(days float64, g Granularity) float64 {
	switch g {
	case Hours:
		return days * 24
	case Weeks:
		return days / 7
	case Months:
		return days / 30
	}
	return days
}

// DurationUnit is the duration token unit used when a resize is expressed at g.
func DurationUnit(g Granularity) byte {
	switch g {
	case Hours:
		return 'h'
	case Weeks:
		return 'w'
	}
	return 'd'
}

// Truncate snaps t to the start of its unit.
func Truncate(t time.Time, g Granularity) time.Time {
	switch g {
	case Hours:
		return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), 0, 0, 0, t.Location())
	case Months:
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	}
	return midnight(t)
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// wholeDays counts calendar days from a to b that are fully elapsed, so a DST
// shift does not lose a day.
func wholeDays(a, b time.Time) int {
	if b.Before(a) {
		return -wholeDays(b, a)
	}
	n := int(b.Sub(a).Hours() / 24)
	for a.AddDate(0, 0, n+1).Compare(b) <= 0 {
		n++
	}
	for n > 0 && a.AddDate(0, 0, n).After(b) {
		n--
	}
	return n
}

func wholeMonths(a, b time.Time) int {
	if b.Before(a) {
		return -wholeMonths(b, a)
	}
	n := (b.Year()-a.Year())*12 + int(b.Month()) - int(a.Month())
	for n > 0 && addMonthsClamped(a, n).After(b) {
		n--
	}
	return n
}

// addMonthsClamped adds n months to t, clamping the day to the target month's
// length instead of overflowing into the next month.
func addMonthsClamped(t time.Time, n int) time.Time {
	first := time.Date(t.Year(), t.Month(), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	target := first.AddDate(0, n, 0)
	last := target.AddDate(0, 1, -1).Day()
	day := t.Day()
	if day > last {
		day = last
	}
	return time.Date(target.Year(), target.Month(), day, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}
