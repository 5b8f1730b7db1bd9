package domain_test

import (
	"testing"
	"time"

	"ganttline/internal/domain"
)

func day(d int) time.Time {
	return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC)
}

func TestParseDuration(t *testing.T) {
	cases := []struct {
		in   string
		days float64
		len  time.Duration
	}{
		{"90m", 90.0 / 1440, 90 * time.Minute},
		{"6h", 0.25, 6 * time.Hour},
		{"2d", 2, 48 * time.Hour},
		{"3w", 21, 21 * 24 * time.Hour},
	}
	for _, c := range cases {
		d, err := domain.ParseDuration(c.in)
		if err != nil {
			t.Fatalf("parse %q: %v", c.in, err)
		}
		if d.Days() != c.days || d.Length() != c.len || d.String() != c.in {
			t.Fatalf("%q: days %v length %v string %s", c.in, d.Days(), d.Length(), d)
		}
	}
	for _, bad := range []string{"", "d", "2", "2x", "-1d", "1.5d", " 2d", "2dd"} {
		if _, err := domain.ParseDuration(bad); err == nil {
			t.Fatalf("expected %q to be rejected", bad)
		}
		if domain.ValidDuration(bad) {
			t.Fatalf("ValidDuration(%q) should be false", bad)
		}
	}
}

func TestFormatDuration(t *testing.T) {
	cases := []struct {
		days float64
		unit byte
		want string
	}{
		{3, 'd', "3d"},
		{0.25, 'h', "6h"},
		{14, 'w', "2w"},
		{10, 'w', "1w"},
		{0.1, 'd', "1d"},
		{2.5, 'd', "3d"},
		{5, 'x', "5d"},
	}
	for _, c := range cases {
		if got := domain.FormatDuration(c.days, c.unit); got != c.want {
			t.Fatalf("FormatDuration(%v, %c): got %s want %s", c.days, c.unit, got, c.want)
		}
	}
}

func TestTaskDates(t *testing.T) {
	task := domain.Task{ID: "a", StartDate: day(10), Duration: "2d"}
	finish, ok := task.FinishDate()
	if !ok || !finish.Equal(day(11)) {
		t.Fatalf("finish: got %v %v", finish, ok)
	}
	end, ok := task.EndDate()
	if !ok || !end.Equal(day(12)) {
		t.Fatalf("end: got %v %v", end, ok)
	}

	// Sub-day durations finish on the start day.
	short := domain.Task{StartDate: day(10), Duration: "6h"}
	if finish, _ := short.FinishDate(); !finish.Equal(day(10)) {
		t.Fatalf("short finish: got %v", finish)
	}

	task.Validate()
	if !task.IsValid {
		t.Fatalf("expected valid task")
	}
	for _, bad := range []domain.Task{
		{StartDate: day(10), Duration: "soon"},
		{StartDate: day(10), Duration: "0d"},
		{Duration: "1d"},
	} {
		bad.Validate()
		if bad.IsValid {
			t.Fatalf("expected invalid: %+v", bad)
		}
	}
}

func TestCloneDoesNotShareEdges(t *testing.T) {
	task := domain.Task{ID: "a", Dependencies: []domain.Dependency{{FromID: "a", ToID: "b"}}}
	c := task.Clone()
	c.Dependencies[0].ToID = "c"
	if task.Dependencies[0].ToID != "b" {
		t.Fatalf("clone shares dependency storage")
	}
	if !task.Dependencies[0].Same(domain.Dependency{FromID: "a", ToID: "b", Direction: domain.DirectionBoth}) {
		t.Fatalf("Same should ignore sides and direction")
	}
}

func TestEnums(t *testing.T) {
	if !domain.SideLeft.IsValid() || domain.Side("up").IsValid() {
		t.Fatalf("side validation")
	}
	for _, d := range []domain.Direction{domain.DirectionForward, domain.DirectionBackward, domain.DirectionBoth} {
		if !d.IsValid() {
			t.Fatalf("%s should be valid", d)
		}
	}
	if domain.Direction("sideways").IsValid() {
		t.Fatalf("unknown direction accepted")
	}
}
