package domain

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"time"
)

var durationPattern = regexp.MustCompile(`^(\d+)([mhdw])$`)

// Duration is a parsed `<n><unit>` token.
type Duration struct {
	Count int
	Unit  byte
}

// ParseDuration parses tokens such as "90m", "7h", "2d" and "3w".
func ParseDuration(s string) (Duration, error) {
	m := durationPattern.FindStringSubmatch(s)
	if m == nil {
		return Duration{}, fmt.Errorf("malformed duration %q", s)
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return Duration{}, fmt.Errorf("malformed duration %q: %w", s, err)
	}
	return Duration{Count: n, Unit: m[2][0]}, nil
}

// ValidDuration reports whether s matches the duration grammar.
func ValidDuration(s string) bool {
	return durationPattern.MatchString(s)
}

// Days converts the duration to (possibly fractional) days.
func (d Duration) Days() float64 {
	n := float64(d.Count)
	switch d.Unit {
	case 'm':
		return n / (24 * 60)
	case 'h':
		return n / 24
	case 'w':
		return n * 7
	default:
		return n
	}
}

// Length converts the duration to wall-clock time.
func (d Duration) Length() time.Duration {
	n := time.Duration(d.Count)
	switch d.Unit {
	case 'm':
		return n * time.Minute
	case 'h':
		return n * time.Hour
	case 'w':
		return n * 7 * 24 * time.Hour
	default:
		return n * 24 * time.Hour
	}
}

func (d Duration) String() string {
	return strconv.Itoa(d.Count) + string(d.Unit)
}

// FormatDuration renders a length given in days using unit, never going below one
// unit. Unknown units fall back to days.
func FormatDuration(days float64, unit byte) string {
	var n float64
	switch unit {
	case 'h':
		n = days * 24
	case 'w':
		n = days / 7
	default:
		unit = 'd'
		n = days
	}
	return strconv.Itoa(int(math.Max(1, roundHalfUp(n)))) + string(unit)
}

// roundHalfUp rounds half-way values toward positive infinity.
func roundHalfUp(x float64) float64 {
	return math.Floor(x + 0.5)
}
