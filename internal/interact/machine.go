// Package interact is the pointer state machine: dragging bars, resizing their
// edges, drawing dependency links and editing links through a menu. Every drag
// step is committed to the store immediately; there is no preview or rollback.
package interact

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"sync"
	"time"

	"ganttline/internal/domain"
	"ganttline/internal/engine"
	"ganttline/internal/event"
	"ganttline/internal/layout"
)

type Mode string

const (
	Idle                Mode = "idle"
	DraggingMove        Mode = "dragging_move"
	DraggingResizeLeft  Mode = "dragging_resize_left"
	DraggingResizeRight Mode = "dragging_resize_right"
	DrawingDependency   Mode = "drawing_dependency"
)

// Part is the region of a bar under the pointer.
type Part string

const (
	PartBody      Part = "body"
	PartLeftEdge  Part = "left_edge"
	PartRightEdge Part = "right_edge"
	PartLeftNode  Part = "left_node"
	PartRightNode Part = "right_node"
)

func (p Part) node() (domain.Side, bool) {
	switch p {
	case PartLeftNode:
		return domain.SideLeft, true
	case PartRightNode:
		return domain.SideRight, true
	}
	return "", false
}

type Target struct {
	TaskID string `json:"task_id"`
	Part   Part   `json:"part"`
}

// Session is the transient state of one gesture.
type Session struct {
	Mode            Mode         `json:"mode"`
	TaskID          string       `json:"task_id"`
	Side            domain.Side  `json:"side,omitempty"`
	Origin          layout.Point `json:"origin"`
	Current         layout.Point `json:"current"`
	InitialStart    time.Time    `json:"initial_start"`
	InitialDuration string       `json:"initial_duration"`
	// Units is the last whole-unit delta applied; DayDelta is the same delta in
	// whole days.
	Units    int `json:"units"`
	DayDelta int `json:"day_delta"`
}

type EdgeKey struct {
	FromID string `json:"from_id"`
	ToID   string `json:"to_id"`
}

type Menu struct {
	Open     bool         `json:"open"`
	Edge     EdgeKey      `json:"edge"`
	Position layout.Point `json:"position"`
}

type MenuAction string

const (
	MenuForward  MenuAction = "forward"
	MenuBackward MenuAction = "backward"
	MenuBoth     MenuAction = "both"
	MenuRemove   MenuAction = "remove"
)

// Line is the transient endpoint pair of a dependency being drawn.
type Line struct {
	Start layout.Point `json:"start"`
	End   layout.Point `json:"end"`
}

// View is a read-only snapshot of the machine for renderers.
type View struct {
	Mode        Mode     `json:"mode"`
	Session     *Session `json:"session,omitempty"`
	Line        *Line    `json:"line,omitempty"`
	DropTarget  *Target  `json:"drop_target,omitempty"`
	HoveredEdge *EdgeKey `json:"hovered_edge,omitempty"`
	Menu        Menu     `json:"menu"`
}

// Store is the subset of the engine the machine mutates.
type Store interface {
	State() engine.State
	UpdateTask(id string, patch engine.TaskPatch) (domain.Task, error)
	AddDependency(d domain.Dependency) (domain.Dependency, error)
	RemoveDependency(fromID, toID string) error
	ChangeDependencyDirection(fromID, toID string, dir domain.Direction) (domain.Dependency, error)
}

type Options struct {
	// MinWidth is the narrowest natural bar width that can be dragged.
	MinWidth float64
	// HoverThreshold is the maximum pointer distance to an edge that counts as a hit.
	HoverThreshold float64
	// EndpointMargin ignores edge clicks this close to either end.
	EndpointMargin float64
	// HandleWidth is the grab strip on each side of a bar for resizing.
	HandleWidth float64
	// NodeRadius and NodeOffset place the dependency handles outside each side.
	NodeRadius float64
	NodeOffset float64
	Logger     *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.MinWidth == 0 {
		o.MinWidth = 32
	}
	if o.HoverThreshold == 0 {
		o.HoverThreshold = 5
	}
	if o.EndpointMargin == 0 {
		o.EndpointMargin = 5
	}
	if o.HandleWidth == 0 {
		o.HandleWidth = 6
	}
	if o.NodeRadius == 0 {
		o.NodeRadius = 6
	}
	if o.NodeOffset == 0 {
		o.NodeOffset = 10
	}
	return o
}

// Machine is safe for concurrent use. Listeners for pointer moves and releases
// are only registered on the bus while a gesture is active, and the outside-click
// listener only while the edge menu is open.
type Machine struct {
	store Store
	opts  Options

	mu         sync.Mutex
	bus        *event.Bus
	baseSubs   []string
	dragSubs   []string
	menuSub    string
	frame      layout.Frame
	order      []string
	session    *Session
	dropTarget *Target
	hoverEdge  *EdgeKey
	menu       Menu
}

func New(store Store, opts Options) *Machine {
	return &Machine{store: store, opts: opts.withDefaults()}
}

func (m *Machine) logger() *slog.Logger {
	if m.opts.Logger != nil {
		return m.opts.Logger
	}
	return slog.Default()
}

// SetFrame hands the machine the geometry it hit-tests against. Where hit areas
// overlap, the task on the earlier display row wins.
func (m *Machine) SetFrame(f layout.Frame) {
	order := make([]string, 0, len(f.Geometry))
	for id := range f.Geometry {
		order = append(order, id)
	}
	sort.Slice(order, func(i, j int) bool {
		a, b := f.Geometry[order[i]], f.Geometry[order[j]]
		if a.Y != b.Y {
			return a.Y < b.Y
		}
		if a.X != b.X {
			return a.X < b.X
		}
		return order[i] < order[j]
	})
	m.mu.Lock()
	defer m.mu.Unlock()
	m.frame = f
	m.order = order
}

// Attach subscribes the idle-state listeners (pointer down, hover and click).
func (m *Machine) Attach(bus *event.Bus) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bus = bus
	m.baseSubs = []string{
		bus.Subscribe(event.PointerDown, func(e event.Event) {
			if pe, ok := e.(event.PointerEvent); ok {
				m.PointerDown(layout.Point{X: pe.X, Y: pe.Y})
			}
		}),
		bus.Subscribe(event.PointerHover, func(e event.Event) {
			if pe, ok := e.(event.PointerEvent); ok {
				m.Hover(layout.Point{X: pe.X, Y: pe.Y})
			}
		}),
		bus.Subscribe(event.PointerClick, func(e event.Event) {
			if pe, ok := e.(event.PointerEvent); ok {
				m.Click(layout.Point{X: pe.X, Y: pe.Y})
			}
		}),
	}
}

// Detach ends any gesture and removes every listener the machine registered.
func (m *Machine) Detach() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.endLocked()
	m.closeMenuLocked()
	if m.bus != nil {
		for _, id := range m.baseSubs {
			m.bus.Unsubscribe(id)
		}
	}
	m.baseSubs = nil
	m.bus = nil
}

func (m *Machine) View() View {
	m.mu.Lock()
	defer m.mu.Unlock()
	v := View{Mode: Idle, Menu: m.menu}
	if m.session != nil {
		s := *m.session
		v.Mode = s.Mode
		v.Session = &s
		if s.Mode == DrawingDependency {
			v.Line = &Line{Start: s.Origin, End: s.Current}
		}
	}
	if m.dropTarget != nil {
		t := *m.dropTarget
		v.DropTarget = &t
	}
	if m.hoverEdge != nil {
		k := *m.hoverEdge
		v.HoveredEdge = &k
	}
	return v
}

// HitTest finds the bar part under p. Dependency nodes win over edge handles,
// which win over the body.
func (m *Machine) HitTest(p layout.Point) (Target, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.hitTestLocked(p)
}

func (m *Machine) hitTestLocked(p layout.Point) (Target, bool) {
	o := m.opts
	for _, id := range m.order {
		r := m.frame.Geometry[id]
		left := r.Anchor(domain.SideLeft)
		right := r.Anchor(domain.SideRight)
		if math.Hypot(p.X-(left.X-o.NodeOffset), p.Y-left.Y) <= o.NodeRadius {
			return Target{TaskID: id, Part: PartLeftNode}, true
		}
		if math.Hypot(p.X-(right.X+o.NodeOffset), p.Y-right.Y) <= o.NodeRadius {
			return Target{TaskID: id, Part: PartRightNode}, true
		}
	}
	for _, id := range m.order {
		r := m.frame.Geometry[id]
		if !r.Contains(p) {
			continue
		}
		switch {
		case p.X <= r.X+o.HandleWidth:
			return Target{TaskID: id, Part: PartLeftEdge}, true
		case p.X >= r.X+r.Width-o.HandleWidth:
			return Target{TaskID: id, Part: PartRightEdge}, true
		}
		return Target{TaskID: id, Part: PartBody}, true
	}
	return Target{}, false
}

// PointerDown starts a gesture on whatever is under p.
func (m *Machine) PointerDown(p layout.Point) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.hitTestLocked(p)
	if !ok {
		return false
	}
	return m.beginLocked(t, p)
}

// Begin starts a gesture on an explicit target. It is a no-op unless idle.
func (m *Machine) Begin(t Target, p layout.Point) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.beginLocked(t, p)
}

func (m *Machine) beginLocked(t Target, p layout.Point) bool {
	if m.session != nil {
		return false
	}
	st := m.store.State()
	task, ok := st.Task(t.TaskID)
	if !ok {
		return false
	}
	s := &Session{
		TaskID:          task.ID,
		Origin:          p,
		Current:         p,
		InitialStart:    task.StartDate,
		InitialDuration: task.Duration,
	}
	if side, isNode := t.Part.node(); isNode {
		s.Mode = DrawingDependency
		s.Side = side
		if r, ok := m.frame.Geometry[task.ID]; ok {
			s.Origin = r.Anchor(side)
		}
	} else {
		if NaturalWidth(task, st.Granularity, m.frame.ColWidth) < m.opts.MinWidth {
			return false
		}
		switch t.Part {
		case PartLeftEdge:
			s.Mode = DraggingResizeLeft
		case PartRightEdge:
			s.Mode = DraggingResizeRight
		default:
			s.Mode = DraggingMove
		}
	}
	m.session = s
	m.hoverEdge = nil
	m.listenDragLocked()
	m.logger().Debug("gesture started", "mode", string(s.Mode), "task", task.ID)
	return true
}

func (m *Machine) listenDragLocked() {
	if m.bus == nil {
		return
	}
	point := func(e event.Event) (layout.Point, bool) {
		pe, ok := e.(event.PointerEvent)
		return layout.Point{X: pe.X, Y: pe.Y}, ok
	}
	m.dragSubs = []string{
		m.bus.Subscribe(event.PointerMove, func(e event.Event) {
			if p, ok := point(e); ok {
				if err := m.PointerMove(p); err != nil {
					m.logger().Debug("drag step failed", "error", err)
				}
			}
		}),
		m.bus.Subscribe(event.PointerUp, func(e event.Event) {
			if p, ok := point(e); ok {
				if err := m.PointerUp(p); err != nil {
					m.logger().Debug("drop failed", "error", err)
				}
			}
		}),
		m.bus.Subscribe(event.PointerLeave, func(event.Event) { m.Leave() }),
	}
}

// PointerMove advances the active gesture. Drags commit to the store on every
// call; drawing only moves the transient line. The store is called without the
// machine's lock held, so change listeners may call back into the machine.
func (m *Machine) PointerMove(p layout.Point) error {
	id, patch, ok, err := m.step(p)
	if !ok || err != nil {
		return err
	}
	_, err = m.store.UpdateTask(id, patch)
	return err
}

// step records p on the session and works out the drag patch, if any.
func (m *Machine) step(p layout.Point) (string, engine.TaskPatch, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var patch engine.TaskPatch
	s := m.session
	if s == nil {
		return "", patch, false, nil
	}
	s.Current = p
	if s.Mode == DrawingDependency {
		m.dropTarget = nil
		if t, ok := m.hitTestLocked(p); ok {
			if _, isNode := t.Part.node(); isNode {
				m.dropTarget = &t
			}
		}
		return "", patch, false, nil
	}

	st := m.store.State()
	task, ok := st.Task(s.TaskID)
	if !ok {
		id := s.TaskID
		m.endLocked()
		return "", patch, false, fmt.Errorf("task %s: %w", id, engine.ErrNotFound)
	}
	g := st.Granularity
	s.Units = UnitDelta(p.X-s.Origin.X, m.frame.ColWidth)
	s.DayDelta = int(math.Floor(deltaDays(s.InitialStart, s.Units, g)))

	switch s.Mode {
	case DraggingMove:
		start := MoveStart(s.InitialStart, task.EarliestAllowedStartDate, s.Units, g)
		patch.StartDate = &start
	case DraggingResizeLeft:
		start, dur, ok := ResizeLeft(s.InitialStart, task.EarliestAllowedStartDate, s.InitialDuration, s.Units, g)
		if !ok {
			return "", patch, false, nil
		}
		patch.StartDate = &start
		patch.Duration = &dur
	case DraggingResizeRight:
		dur, ok := ResizeRight(s.InitialStart, s.InitialDuration, s.Units, g)
		if !ok {
			return "", patch, false, nil
		}
		patch.Duration = &dur
	}
	return s.TaskID, patch, true, nil
}

// PointerUp ends the gesture. A dependency draw commits only when dropped from a
// right node onto the left node of a different task that does not start before
// the source; otherwise it is discarded. Store rejections are returned.
func (m *Machine) PointerUp(p layout.Point) error {
	m.mu.Lock()
	s := m.session
	if s == nil {
		m.mu.Unlock()
		return nil
	}
	ended := *s
	target := m.dropTarget
	if t, ok := m.hitTestLocked(p); ok {
		if _, isNode := t.Part.node(); isNode {
			target = &t
		}
	}
	m.endLocked()
	m.mu.Unlock()

	if ended.Mode != DrawingDependency || target == nil {
		return nil
	}
	return m.drop(ended, *target)
}

func (m *Machine) drop(s Session, target Target) error {
	side, _ := target.Part.node()
	if s.Side != domain.SideRight || side != domain.SideLeft || s.TaskID == target.TaskID {
		return nil
	}
	st := m.store.State()
	src, ok1 := st.Task(s.TaskID)
	dst, ok2 := st.Task(target.TaskID)
	if !ok1 || !ok2 || dst.StartDate.Before(src.StartDate) {
		return nil
	}
	_, err := m.store.AddDependency(domain.Dependency{
		FromID:       src.ID,
		ToID:         dst.ID,
		FromPosition: domain.SideRight,
		ToPosition:   domain.SideLeft,
		Direction:    domain.DirectionForward,
	})
	return err
}

// Leave abandons the gesture when the pointer leaves the chart. Committed drag
// steps stay; an unfinished link is discarded.
func (m *Machine) Leave() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.endLocked()
}

func (m *Machine) endLocked() {
	if m.bus != nil {
		for _, id := range m.dragSubs {
			m.bus.Unsubscribe(id)
		}
	}
	m.dragSubs = nil
	m.session = nil
	m.dropTarget = nil
}

// Hover tracks the dependency edge nearest to p while idle.
func (m *Machine) Hover(p layout.Point) (EdgeKey, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hoverEdge = nil
	if m.session != nil {
		return EdgeKey{}, false
	}
	e, ok := m.nearestEdgeLocked(p)
	if !ok {
		return EdgeKey{}, false
	}
	k := keyOf(e)
	m.hoverEdge = &k
	return k, true
}

func keyOf(e layout.Edge) EdgeKey {
	return EdgeKey{FromID: e.Dependency.FromID, ToID: e.Dependency.ToID}
}

func (m *Machine) nearestEdgeLocked(p layout.Point) (layout.Edge, bool) {
	best := math.Inf(1)
	var hit layout.Edge
	for _, e := range m.frame.Edges {
		if d := layout.DistanceToPath(p, e.Path); d < m.opts.HoverThreshold && d < best {
			best = d
			hit = e
		}
	}
	return hit, !math.IsInf(best, 1)
}

// Click opens the edit menu for the edge under p. Clicking the edge whose menu is
// already open closes it; clicking off any edge dismisses the menu. Clicks near
// an edge's endpoints are ignored.
func (m *Machine) Click(p layout.Point) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session != nil {
		return false
	}
	e, ok := m.nearestEdgeLocked(p)
	if !ok {
		m.closeMenuLocked()
		return false
	}
	near := func(q layout.Point) bool { return math.Hypot(p.X-q.X, p.Y-q.Y) < m.opts.EndpointMargin }
	if near(e.From()) || near(e.To()) {
		return false
	}
	k := keyOf(e)
	if m.menu.Open && m.menu.Edge == k {
		m.closeMenuLocked()
		return false
	}
	m.menu = Menu{Open: true, Edge: k, Position: p}
	if m.bus != nil && m.menuSub == "" {
		m.menuSub = m.bus.Subscribe(event.OutsideClick, func(event.Event) { m.CloseMenu() })
	}
	return true
}

func (m *Machine) CloseMenu() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closeMenuLocked()
}

func (m *Machine) closeMenuLocked() {
	if m.menuSub != "" && m.bus != nil {
		m.bus.Unsubscribe(m.menuSub)
	}
	m.menuSub = ""
	m.menu = Menu{}
}

var ErrMenuClosed = errors.New("edge menu is not open")

// ApplyMenu runs a menu action on the selected edge and closes the menu.
func (m *Machine) ApplyMenu(a MenuAction) error {
	m.mu.Lock()
	if !m.menu.Open {
		m.mu.Unlock()
		return ErrMenuClosed
	}
	k := m.menu.Edge
	m.closeMenuLocked()
	m.mu.Unlock()

	switch a {
	case MenuRemove:
		return m.store.RemoveDependency(k.FromID, k.ToID)
	case MenuForward, MenuBackward, MenuBoth:
		_, err := m.store.ChangeDependencyDirection(k.FromID, k.ToID, domain.Direction(a))
		return err
	}
	return fmt.Errorf("%w: %q", engine.ErrInvalidDirection, a)
}
