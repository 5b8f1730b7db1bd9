package interact_test

import (
	"testing"
	"time"

	"ganttline/internal/domain"
	"ganttline/internal/engine"
	"ganttline/internal/event"
	"ganttline/internal/interact"
	"ganttline/internal/layout"
	"ganttline/internal/window"
)

var metrics = layout.Metrics{ColWidth: 48, RowHeight: 32, HeaderRows: 2, MinWidth: 32}

func day(d int) time.Time {
	return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC)
}

type testEnv struct {
	Bus     *event.Bus
	Engine  *engine.Engine
	Machine *interact.Machine
}

// newTestEnv loads a (day 10, 2d) and b (day 15, 1d) into one workflow. With the
// reference at day 10, a sits at x=48..144 on row 3 and b at x=288..336 on row 4.
func newTestEnv(t *testing.T, linked bool) *testEnv {
	t.Helper()
	bus := event.NewBus()
	eng := engine.New(engine.Options{Bus: bus, Now: func() time.Time { return day(1) }})
	a := domain.Task{ID: "a", WorkflowID: "wf", RowIndex: 0, StartDate: day(10), Duration: "2d"}
	if linked {
		a.Dependencies = []domain.Dependency{{FromID: "a", ToID: "b", FromPosition: domain.SideRight, ToPosition: domain.SideLeft, Direction: domain.DirectionForward}}
	}
	tasks := []domain.Task{
		a,
		{ID: "b", WorkflowID: "wf", RowIndex: 1, StartDate: day(15), Duration: "1d"},
		{ID: "c", WorkflowID: "wf", RowIndex: 2, StartDate: day(20), Duration: "2h"},
	}
	if err := eng.Load([]domain.Workflow{{ID: "wf", Name: "Build"}}, tasks); err != nil {
		t.Fatalf("load: %v", err)
	}
	m := interact.New(eng, interact.Options{})
	m.Attach(bus)
	env := &testEnv{Bus: bus, Engine: eng, Machine: m}
	env.refresh()
	return env
}

func (env *testEnv) refresh() {
	s := env.Engine.State()
	rows, cols := layout.Totals(s, metrics.HeaderRows, 10)
	env.Machine.SetFrame(layout.Compute(s, window.Range{EndRow: rows, EndCol: cols}, rows, cols, metrics))
}

func (env *testEnv) task(t *testing.T, id string) domain.Task {
	t.Helper()
	got, ok := env.Engine.State().Task(id)
	if !ok {
		t.Fatalf("task %s missing", id)
	}
	return got
}

func (env *testEnv) pointer(typ string, x, y float64) {
	env.Bus.Publish(event.PointerEvent{Type: typ, X: x, Y: y})
}

func TestHitTest(t *testing.T) {
	env := newTestEnv(t, false)
	cases := []struct {
		x, y float64
		want interact.Target
	}{
		{100, 110, interact.Target{TaskID: "a", Part: interact.PartBody}},
		{50, 110, interact.Target{TaskID: "a", Part: interact.PartLeftEdge}},
		{142, 110, interact.Target{TaskID: "a", Part: interact.PartRightEdge}},
		{154, 112, interact.Target{TaskID: "a", Part: interact.PartRightNode}},
		{278, 144, interact.Target{TaskID: "b", Part: interact.PartLeftNode}},
	}
	for _, tc := range cases {
		got, ok := env.Machine.HitTest(layout.Point{X: tc.x, Y: tc.y})
		if !ok || got != tc.want {
			t.Fatalf("(%v,%v): got %+v want %+v", tc.x, tc.y, got, tc.want)
		}
	}
	if _, ok := env.Machine.HitTest(layout.Point{X: 600, Y: 10}); ok {
		t.Fatalf("empty space should not hit")
	}
}

func TestDragMoveCommitsEveryStep(t *testing.T) {
	env := newTestEnv(t, false)
	baseline := env.Bus.SubscriptionCount()

	env.pointer(event.PointerDown, 100, 110)
	if v := env.Machine.View(); v.Mode != interact.DraggingMove || v.Session.TaskID != "a" {
		t.Fatalf("expected a move drag on a, got %+v", v)
	}
	if env.Bus.Count(event.PointerMove) != 1 || env.Bus.Count(event.PointerUp) != 1 {
		t.Fatalf("drag listeners not registered")
	}

	env.pointer(event.PointerMove, 148, 110)
	if got := env.task(t, "a").StartDate; !got.Equal(day(11)) {
		t.Fatalf("after one column: got %v", got)
	}
	env.pointer(event.PointerMove, 196, 110)
	if got := env.task(t, "a").StartDate; !got.Equal(day(12)) {
		t.Fatalf("after two columns: got %v", got)
	}

	env.pointer(event.PointerUp, 196, 110)
	if v := env.Machine.View(); v.Mode != interact.Idle || v.Session != nil {
		t.Fatalf("expected idle after release, got %+v", v)
	}
	if env.Bus.SubscriptionCount() != baseline {
		t.Fatalf("drag listeners leaked: %d vs %d", env.Bus.SubscriptionCount(), baseline)
	}
	if got := env.task(t, "a").StartDate; !got.Equal(day(12)) {
		t.Fatalf("release must keep the last commit, got %v", got)
	}
}

func TestDragMoveClampsToPredecessor(t *testing.T) {
	env := newTestEnv(t, true)
	// b is bounded by a's finish on day 11.
	if !env.Machine.Begin(interact.Target{TaskID: "b", Part: interact.PartBody}, layout.Point{X: 310, Y: 144}) {
		t.Fatalf("begin failed")
	}
	if err := env.Machine.PointerMove(layout.Point{X: 310 - 10*48, Y: 144}); err != nil {
		t.Fatalf("move: %v", err)
	}
	b := env.task(t, "b")
	if !b.StartDate.After(b.EarliestAllowedStartDate) || !b.StartDate.Equal(day(12)) {
		t.Fatalf("b should settle just after its predecessor: start %v earliest %v", b.StartDate, b.EarliestAllowedStartDate)
	}
	if err := env.Machine.PointerUp(layout.Point{}); err != nil {
		t.Fatalf("up: %v", err)
	}
}

func TestResizeEdges(t *testing.T) {
	env := newTestEnv(t, false)
	if !env.Machine.Begin(interact.Target{TaskID: "a", Part: interact.PartRightEdge}, layout.Point{X: 142, Y: 110}) {
		t.Fatalf("begin right")
	}
	if err := env.Machine.PointerMove(layout.Point{X: 142 + 96, Y: 110}); err != nil {
		t.Fatalf("move: %v", err)
	}
	if a := env.task(t, "a"); a.Duration != "4d" || !a.StartDate.Equal(day(10)) {
		t.Fatalf("right resize: %+v", a)
	}
	if err := env.Machine.PointerMove(layout.Point{X: 142 - 5*48, Y: 110}); err != nil {
		t.Fatalf("move: %v", err)
	}
	if a := env.task(t, "a"); a.Duration != "1d" {
		t.Fatalf("right resize must floor at one unit, got %q", a.Duration)
	}
	if err := env.Machine.PointerUp(layout.Point{}); err != nil {
		t.Fatalf("up: %v", err)
	}

	env.refresh()
	if !env.Machine.Begin(interact.Target{TaskID: "b", Part: interact.PartLeftEdge}, layout.Point{X: 290, Y: 144}) {
		t.Fatalf("begin left")
	}
	if err := env.Machine.PointerMove(layout.Point{X: 290 - 2*48, Y: 144}); err != nil {
		t.Fatalf("move: %v", err)
	}
	b := env.task(t, "b")
	if b.Duration != "3d" || !b.StartDate.Equal(day(13)) {
		t.Fatalf("left resize: %+v", b)
	}
	if b.WorkflowID != "wf" || len(b.Dependencies) != 0 {
		t.Fatalf("resize must not touch membership or edges: %+v", b)
	}
	if err := env.Machine.PointerUp(layout.Point{}); err != nil {
		t.Fatalf("up: %v", err)
	}
}

func TestNarrowTaskIsNotDraggable(t *testing.T) {
	env := newTestEnv(t, false)
	if env.Machine.Begin(interact.Target{TaskID: "c", Part: interact.PartBody}, layout.Point{}) {
		t.Fatalf("a 2h bar at days granularity is too narrow to drag")
	}
	if env.Machine.View().Mode != interact.Idle {
		t.Fatalf("machine should stay idle")
	}
}

func TestDrawDependency(t *testing.T) {
	env := newTestEnv(t, false)
	baseline := env.Bus.SubscriptionCount()

	env.pointer(event.PointerDown, 154, 112)
	v := env.Machine.View()
	if v.Mode != interact.DrawingDependency || v.Line == nil || v.Line.Start != (layout.Point{X: 144, Y: 112}) {
		t.Fatalf("expected a draw from a's right anchor, got %+v", v)
	}
	env.pointer(event.PointerMove, 278, 144)
	v = env.Machine.View()
	if v.DropTarget == nil || v.DropTarget.TaskID != "b" || v.Line.End != (layout.Point{X: 278, Y: 144}) {
		t.Fatalf("drop target not tracked: %+v", v)
	}
	if len(env.task(t, "a").Dependencies) != 0 {
		t.Fatalf("drawing must not touch the store before release")
	}
	env.pointer(event.PointerUp, 278, 144)

	deps := env.task(t, "a").Dependencies
	if len(deps) != 1 || deps[0].ToID != "b" || deps[0].Direction != domain.DirectionForward {
		t.Fatalf("expected a forward edge a -> b, got %+v", deps)
	}
	if env.Bus.SubscriptionCount() != baseline {
		t.Fatalf("draw listeners leaked")
	}
}

func TestDrawDependencyDiscards(t *testing.T) {
	env := newTestEnv(t, false)
	// b's right node onto a's left node: a starts before b.
	env.pointer(event.PointerDown, 346, 144)
	env.pointer(event.PointerUp, 38, 112)
	// a's left node onto b's left node: wrong source side.
	env.pointer(event.PointerDown, 38, 112)
	env.pointer(event.PointerUp, 278, 144)
	// a's right node dropped on empty space.
	env.pointer(event.PointerDown, 154, 112)
	env.pointer(event.PointerUp, 600, 10)

	for _, id := range []string{"a", "b"} {
		if deps := env.task(t, id).Dependencies; len(deps) != 0 {
			t.Fatalf("%s should have no edges, got %+v", id, deps)
		}
	}
}

func TestHoverAndEdgeMenu(t *testing.T) {
	env := newTestEnv(t, true)
	// The a -> b edge runs (144,112) -> (216,112) -> (216,144) -> (288,144).
	if k, ok := env.Machine.Hover(layout.Point{X: 180, Y: 114}); !ok || k.ToID != "b" {
		t.Fatalf("hover near the edge should hit, got %+v %v", k, ok)
	}
	if _, ok := env.Machine.Hover(layout.Point{X: 180, Y: 130}); ok {
		t.Fatalf("hover 18px away should miss")
	}

	if env.Machine.Click(layout.Point{X: 146, Y: 112}) {
		t.Fatalf("clicks at the endpoint are ignored")
	}
	env.pointer(event.PointerClick, 180, 113)
	if menu := env.Machine.View().Menu; !menu.Open || menu.Edge.FromID != "a" {
		t.Fatalf("menu should open, got %+v", menu)
	}
	if env.Bus.Count(event.OutsideClick) != 1 {
		t.Fatalf("outside-click listener should be registered while open")
	}
	env.pointer(event.PointerClick, 216, 128)
	if env.Machine.View().Menu.Open || env.Bus.Count(event.OutsideClick) != 0 {
		t.Fatalf("clicking the same edge should toggle the menu closed")
	}

	env.Machine.Click(layout.Point{X: 180, Y: 113})
	if err := env.Machine.ApplyMenu(interact.MenuBoth); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if d, _ := env.Engine.State().Dependency("a", "b"); d.Direction != domain.DirectionBoth {
		t.Fatalf("direction not changed: %+v", d)
	}
	if env.Machine.View().Menu.Open {
		t.Fatalf("menu should close after an action")
	}

	env.Machine.Click(layout.Point{X: 180, Y: 113})
	env.Bus.Publish(event.PointerEvent{Type: event.OutsideClick})
	if env.Machine.View().Menu.Open {
		t.Fatalf("outside click should dismiss the menu")
	}

	env.Machine.Click(layout.Point{X: 180, Y: 113})
	if err := env.Machine.ApplyMenu(interact.MenuRemove); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if len(env.task(t, "a").Dependencies) != 0 {
		t.Fatalf("edge should be removed")
	}
	if err := env.Machine.ApplyMenu(interact.MenuRemove); err != interact.ErrMenuClosed {
		t.Fatalf("expected closed menu error, got %v", err)
	}
}

func TestLeaveEndsGesture(t *testing.T) {
	env := newTestEnv(t, false)
	baseline := env.Bus.SubscriptionCount()
	env.pointer(event.PointerDown, 100, 110)
	env.pointer(event.PointerMove, 148, 110)
	env.Bus.Publish(event.PointerEvent{Type: event.PointerLeave})
	if env.Machine.View().Mode != interact.Idle || env.Bus.SubscriptionCount() != baseline {
		t.Fatalf("leave should end the drag and drop its listeners")
	}
	if got := env.task(t, "a").StartDate; !got.Equal(day(11)) {
		t.Fatalf("committed step must survive leave, got %v", got)
	}
	env.Machine.Detach()
	if env.Bus.SubscriptionCount() != 0 {
		t.Fatalf("detach should remove every listener, %d left", env.Bus.SubscriptionCount())
	}
}

func TestHitTestPrefersEarlierRow(t *testing.T) {
	env := newTestEnv(t, false)
	frame := layout.Frame{Geometry: map[string]layout.Rect{
		"c": {X: 0, Y: 60, Width: 200, Height: 32},
		"b": {X: 0, Y: 40, Width: 200, Height: 32},
		"a": {X: 0, Y: 80, Width: 200, Height: 32},
	}}
	for i := 0; i < 20; i++ {
		env.Machine.SetFrame(frame)
		got, ok := env.Machine.HitTest(layout.Point{X: 100, Y: 70})
		if !ok || got != (interact.Target{TaskID: "b", Part: interact.PartBody}) {
			t.Fatalf("overlapping bars: got %+v %v", got, ok)
		}
	}
}
