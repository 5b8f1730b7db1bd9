package layout

import (
	"math"
	"testing"
	"time"

	"ganttline/internal/domain"
	"ganttline/internal/engine"
	"ganttline/internal/timeindex"
	"ganttline/internal/window"
)

var testMetrics = Metrics{ColWidth: 48, RowHeight: 32, HeaderRows: 2, MinWidth: 32}

func day(d int) time.Time {
	return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC)
}

func newState(t *testing.T, g timeindex.Granularity) engine.State {
	t.Helper()
	return engine.Propagate(engine.State{
		Granularity: g,
		Now:         day(3),
		Workflows:   []domain.Workflow{{ID: "wf-1", Name: "Build"}},
		Tasks: []domain.Task{
			{ID: "a", WorkflowID: "wf-1", RowIndex: 0, StartDate: day(1), Duration: "2d", Dependencies: []domain.Dependency{
				{FromID: "a", ToID: "b", FromPosition: domain.SideRight, ToPosition: domain.SideLeft, Direction: domain.DirectionForward},
			}},
			{ID: "b", WorkflowID: "wf-1", RowIndex: 1, StartDate: day(5), Duration: "4h"},
		},
	})
}

func TestTotals(t *testing.T) {
	s := newState(t, timeindex.Days)
	rows, cols := Totals(s, 2, 10)
	if rows != 6 || cols != 14 {
		t.Fatalf("totals: got rows=%d cols=%d want 6, 14", rows, cols)
	}
	rows, cols = Totals(engine.State{Granularity: timeindex.Days}, 2, 10)
	if rows != 2 || cols != 10 {
		t.Fatalf("empty totals: got rows=%d cols=%d", rows, cols)
	}
}

func TestComputeFullWindow(t *testing.T) {
	s := newState(t, timeindex.Days)
	f := Compute(s, window.Range{StartRow: 0, EndRow: 6, StartCol: 0, EndCol: 14}, 6, 14, testMetrics)

	if len(f.Rows) != 4 {
		t.Fatalf("expected 4 rows, got %d: %+v", len(f.Rows), f.Items())
	}
	wf := f.Rows[2]
	if wf.Type != TypeWorkflow || wf.Rect.X != 48 || wf.Rect.Width != 240 {
		t.Fatalf("workflow row: %+v", wf)
	}
	a := f.Rows[3]
	if a.ID != "a" || a.Rect != (Rect{X: 48, Y: 96, Width: 96, Height: 32}) || !a.Interactive {
		t.Fatalf("task a: %+v", a)
	}
	b := f.Rows[4]
	if b.ID != "b" || b.Rect.X != 240 || b.Rect.Width != 32 || math.Abs(b.NaturalWidth-8) > 1e-9 || b.Interactive {
		t.Fatalf("task b should be floored and not interactive: %+v", b)
	}
	if f.Rows[5].Type != TypeBlank {
		t.Fatalf("row 5 should be the separator: %+v", f.Rows[5])
	}
	if f.NowX != 3*48 {
		t.Fatalf("now marker: got %v", f.NowX)
	}

	if len(f.Edges) != 1 {
		t.Fatalf("expected one edge, got %d", len(f.Edges))
	}
	want := []Point{{144, 112}, {192, 112}, {192, 144}, {240, 144}}
	for i, p := range f.Edges[0].Path {
		if p != want[i] {
			t.Fatalf("edge path: got %v want %v", f.Edges[0].Path, want)
		}
	}
	if !f.Edges[0].TargetArrow || f.Edges[0].SourceArrow {
		t.Fatalf("forward edge should mark only its target: %+v", f.Edges[0])
	}
}

func TestComputeWindowsRowsAndColumns(t *testing.T) {
	s := newState(t, timeindex.Days)
	f := Compute(s, window.Range{StartRow: 0, EndRow: 4, StartCol: 3, EndCol: 14}, 6, 14, testMetrics)

	if _, ok := f.Rows[3]; ok {
		t.Fatalf("task a ends before the column window and must be skipped")
	}
	if _, ok := f.Rows[4]; ok {
		t.Fatalf("task b is outside the row window")
	}
	wf, ok := f.Rows[2]
	if !ok || !wf.LeftHidden || wf.RightHidden {
		t.Fatalf("workflow should be emitted with its left side hidden: %+v", wf)
	}
	if _, ok := f.Geometry["b"]; !ok {
		t.Fatalf("geometry must cover tasks outside the window")
	}
}

func TestComputeHoursGranularity(t *testing.T) {
	s := newState(t, timeindex.Hours)
	m := testMetrics
	m.ColWidth = 24
	f := Compute(s, window.Range{EndRow: 6, EndCol: 200}, 6, 200, m)
	a := f.Rows[3]
	if a.Rect.Width != 48*24 || a.StartIndex != 1 || a.EndIndex != 48 {
		t.Fatalf("hours layout for a: %+v", a)
	}
	b := f.Rows[4]
	if math.Abs(b.NaturalWidth-4*24) > 1e-9 || !b.Interactive {
		t.Fatalf("4h bar should be wide enough at hours: %+v", b)
	}
}

func TestComputeMalformedTask(t *testing.T) {
	s := newState(t, timeindex.Days)
	s.Tasks[1].Duration = "soon"
	s = engine.Propagate(s)
	f := Compute(s, window.Range{EndRow: 6, EndCol: 14}, 6, 14, testMetrics)
	b := f.Rows[4]
	if b.IsValid || b.Interactive || b.Rect.Width != testMetrics.MinWidth {
		t.Fatalf("malformed task should be a dimmed minimum-width bar: %+v", b)
	}
}

func TestRouteEdgeArrows(t *testing.T) {
	src := Rect{X: 0, Y: 0, Width: 50, Height: 32}
	far := Rect{X: 100, Y: 64, Width: 50, Height: 32}
	near := Rect{X: 60, Y: 64, Width: 50, Height: 32}

	cases := []struct {
		dir        domain.Direction
		target     Rect
		wantSource bool
		wantTarget bool
	}{
		{domain.DirectionForward, far, false, true},
		{domain.DirectionBackward, far, true, false},
		{domain.DirectionBoth, far, true, true},
		{domain.DirectionBoth, near, false, false},
	}
	for _, tc := range cases {
		e := RouteEdge(domain.Dependency{FromPosition: domain.SideRight, ToPosition: domain.SideLeft, Direction: tc.dir}, src, tc.target)
		if e.SourceArrow != tc.wantSource || e.TargetArrow != tc.wantTarget {
			t.Fatalf("%s to %+v: got source=%v target=%v", tc.dir, tc.target, e.SourceArrow, e.TargetArrow)
		}
	}
}

func TestDistanceToPath(t *testing.T) {
	path := EdgePath(Point{0, 0}, Point{100, 50})
	if d := DistanceToPath(Point{25, 3}, path); d != 3 {
		t.Fatalf("distance to first leg: got %v", d)
	}
	if d := DistanceToPath(Point{54, 25}, path); d != 4 {
		t.Fatalf("distance to vertical leg: got %v", d)
	}
	if d := DistanceToPath(Point{-3, -4}, path); d != 5 {
		t.Fatalf("distance past the start: got %v", d)
	}
	if !math.IsInf(DistanceToPath(Point{}, nil), 1) {
		t.Fatalf("empty path should be infinitely far")
	}
}
