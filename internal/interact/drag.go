package interact

import (
	"math"
	"time"

	"ganttline/internal/domain"
	"ganttline/internal/timeindex"
)

// UnitDelta converts a horizontal pointer delta into whole grid units, rounding
// half-way values up.
func UnitDelta(dx, colWidth float64) int {
	if colWidth <= 0 {
		return 0
	}
	return int(math.Floor(dx/colWidth + 0.5))
}

// Shift moves t by units of g and snaps the result to the hour (hours) or to
// midnight (every coarser granularity).
func Shift(t time.Time, units int, g timeindex.Granularity) time.Time {
	switch g {
	case timeindex.Hours:
		return timeindex.Truncate(t.Add(time.Duration(units)*time.Hour), timeindex.Hours)
	case timeindex.Weeks:
		return timeindex.Truncate(t.AddDate(0, 0, 7*units), timeindex.Days)
	case timeindex.Months:
		return timeindex.Truncate(t.AddDate(0, units, 0), timeindex.Days)
	}
	return timeindex.Truncate(t.AddDate(0, 0, units), timeindex.Days)
}

// deltaDays is the length in days of units steps of g starting at from.
func deltaDays(from time.Time, units int, g timeindex.Granularity) float64 {
	switch g {
	case timeindex.Hours:
		return float64(units) / 24
	case timeindex.Weeks:
		return float64(7 * units)
	case timeindex.Months:
		return float64(timeindex.Units(from, from.AddDate(0, units, 0), timeindex.Days))
	}
	return float64(units)
}

func clampStart(start, earliest time.Time) time.Time {
	if !earliest.IsZero() && start.Before(earliest) {
		return earliest
	}
	return start
}

// MoveStart is the new start date when a whole bar is dragged by units.
func MoveStart(initialStart, earliest time.Time, units int, g timeindex.Granularity) time.Time {
	return clampStart(Shift(initialStart, units, g), earliest)
}

// ResizeLeft returns the new start and duration when the left edge moves by
// units: the start follows the pointer (clamped to earliest) and the duration
// absorbs the negated delta, never dropping below one unit. ok is false when the
// initial duration is malformed.
func ResizeLeft(initialStart, earliest time.Time, initialDuration string, units int, g timeindex.Granularity) (time.Time, string, bool) {
	d, err := domain.ParseDuration(initialDuration)
	if err != nil {
		return time.Time{}, "", false
	}
	days := d.Days() - deltaDays(initialStart, units, g)
	start := clampStart(Shift(initialStart, units, g), earliest)
	return start, domain.FormatDuration(days, timeindex.DurationUnit(g)), true
}

// ResizeRight returns the new duration when the right edge moves by units.
func ResizeRight(initialStart time.Time, initialDuration string, units int, g timeindex.Granularity) (string, bool) {
	d, err := domain.ParseDuration(initialDuration)
	if err != nil {
		return "", false
	}
	days := d.Days() + deltaDays(initialStart, units, g)
	return domain.FormatDuration(days, timeindex.DurationUnit(g)), true
}

// NaturalWidth is the unfloored pixel width of a task bar at g.
func NaturalWidth(t domain.Task, g timeindex.Granularity, colWidth float64) float64 {
	days, ok := t.DurationDays()
	if !ok {
		return 0
	}
	return timeindex.UnitsFloat(days, g) * colWidth
}
