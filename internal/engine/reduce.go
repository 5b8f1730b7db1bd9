package engine

import (
	"errors"
	"fmt"
	"time"

	"ganttline/internal/domain"
	"ganttline/internal/timeindex"
)

// Action is one store transition. Reduce is the only interpreter of actions.
type Action interface {
	Kind() string
}

// Load replaces the schedule with bootstrap data and runs a propagation pass.
type Load struct {
	Workflows []domain.Workflow
	Tasks     []domain.Task
}

type AddWorkflow struct {
	ID   string
	Name string
}

type AddTask struct {
	ID         string
	WorkflowID string
	Title      string
	Team       string
}

// TaskPatch holds the fields UpdateTask may change; nil fields are left alone.
// Workflow membership and edges are not patchable.
type TaskPatch struct {
	Title     *string
	Team      *string
	RowIndex  *int
	StartDate *time.Time
	Duration  *string
}

type UpdateTask struct {
	ID    string
	Patch TaskPatch
}

type WorkflowPatch struct {
	Name     *string
	RowIndex *int
}

type UpdateWorkflow struct {
	ID    string
	Patch WorkflowPatch
}

// AddDependency adds Dependency to its source task. Empty sides default to
// right -> left and an empty direction to forward.
type AddDependency struct {
	Dependency domain.Dependency
}

type RemoveDependency struct {
	FromID string
	ToID   string
}

type ChangeDependencyDirection struct {
	FromID    string
	ToID      string
	Direction domain.Direction
}

type SetGranularity struct {
	Granularity timeindex.Granularity
}

type SetVisibleIndex struct {
	Index int
}

// Tick advances the current-time marker.
type Tick struct {
	Now time.Time
}

func (Load) Kind() string                      { return "load" }
func (AddWorkflow) Kind() string               { return "workflow.add" }
func (AddTask) Kind() string                   { return "task.add" }
func (UpdateTask) Kind() string                { return "task.update" }
func (UpdateWorkflow) Kind() string            { return "workflow.update" }
func (AddDependency) Kind() string             { return "dependency.add" }
func (RemoveDependency) Kind() string          { return "dependency.remove" }
func (ChangeDependencyDirection) Kind() string { return "dependency.direction" }
func (SetGranularity) Kind() string            { return "granularity.set" }
func (SetVisibleIndex) Kind() string           { return "visible_index.set" }
func (Tick) Kind() string                      { return "tick" }

// Reduce applies a to s and returns the next state. On error the returned state
// is s, untouched. Every mutation that can move a date ends with Propagate.
func Reduce(s State, a Action) (State, error) {
	switch a := a.(type) {
	case Load:
		return reduceLoad(s, a)
	case AddWorkflow:
		return reduceAddWorkflow(s, a)
	case AddTask:
		return reduceAddTask(s, a)
	case UpdateTask:
		return reduceUpdateTask(s, a)
	case UpdateWorkflow:
		return reduceUpdateWorkflow(s, a)
	case AddDependency:
		return reduceAddDependency(s, a)
	case RemoveDependency:
		return reduceRemoveDependency(s, a)
	case ChangeDependencyDirection:
		return reduceChangeDirection(s, a)
	case SetGranularity:
		if !a.Granularity.IsValid() {
			return s, fmt.Errorf("%w: %q", ErrInvalidGranularity, a.Granularity)
		}
		next := s.Clone()
		next.Granularity = a.Granularity
		return next, nil
	case SetVisibleIndex:
		if a.Index < 0 {
			return s, fmt.Errorf("visible index %d is negative", a.Index)
		}
		next := s.Clone()
		next.CurrentVisibleIndex = a.Index
		return next, nil
	case Tick:
		next := s.Clone()
		next.Now = a.Now
		return Retime(next), nil
	case nil:
		return s, errors.New("nil action")
	}
	return s, fmt.Errorf("unknown action %T", a)
}

func reduceLoad(s State, a Load) (State, error) {
	workflows := make(map[string]bool, len(a.Workflows))
	for _, w := range a.Workflows {
		if w.ID == "" {
			return s, errors.New("workflow id is required")
		}
		if workflows[w.ID] {
			return s, fmt.Errorf("workflow %s: %w", w.ID, ErrDuplicateIdentifier)
		}
		workflows[w.ID] = true
	}
	tasks := make(map[string]bool, len(a.Tasks))
	for _, t := range a.Tasks {
		if t.ID == "" {
			return s, errors.New("task id is required")
		}
		if tasks[t.ID] {
			return s, fmt.Errorf("task %s: %w", t.ID, ErrDuplicateIdentifier)
		}
		tasks[t.ID] = true
		if !workflows[t.WorkflowID] {
			return s, fmt.Errorf("task %s references workflow %q: %w", t.ID, t.WorkflowID, ErrUnknownWorkflow)
		}
	}

	next := s.Clone()
	next.Workflows = append([]domain.Workflow(nil), a.Workflows...)
	next.Tasks = make([]domain.Task, len(a.Tasks))
	for i, t := range a.Tasks {
		next.Tasks[i] = t.Clone()
		if next.Tasks[i].Dependencies == nil {
			next.Tasks[i].Dependencies = []domain.Dependency{}
		}
		deps := next.Tasks[i].Dependencies
		for j := range deps {
			deps[j] = withEdgeDefaults(deps[j])
			if err := checkLoadedEdge(t.ID, deps[:j], deps[j], tasks); err != nil {
				return s, err
			}
		}
	}
	return Propagate(next), nil
}

func withEdgeDefaults(d domain.Dependency) domain.Dependency {
	if d.FromPosition == "" {
		d.FromPosition = domain.SideRight
	}
	if d.ToPosition == "" {
		d.ToPosition = domain.SideLeft
	}
	if d.Direction == "" {
		d.Direction = domain.DirectionForward
	}
	return d
}

// checkLoadedEdge applies the AddDependency rules to a bootstrap edge, except the
// start-date ordering: loaded schedules keep their authored dates and let
// propagation push targets later.
func checkLoadedEdge(owner string, earlier []domain.Dependency, d domain.Dependency, tasks map[string]bool) error {
	edge := fmt.Sprintf("task %s edge %s -> %s", owner, d.FromID, d.ToID)
	switch {
	case d.FromID != owner:
		return fmt.Errorf("%s: %w", edge, ErrForeignDependency)
	case !d.FromPosition.IsValid() || !d.ToPosition.IsValid():
		return fmt.Errorf("%s: %w: %q/%q", edge, ErrInvalidSide, d.FromPosition, d.ToPosition)
	case !d.Direction.IsValid():
		return fmt.Errorf("%s: %w: %q", edge, ErrInvalidDirection, d.Direction)
	case !tasks[d.ToID]:
		return fmt.Errorf("%s: %w: unknown target", edge, ErrInvalidEdge)
	case d.ToID == owner:
		return fmt.Errorf("%s: %w: self-loop", edge, ErrInvalidEdge)
	}
	for _, e := range earlier {
		if e.Same(d) {
			return fmt.Errorf("%s: %w: duplicate", edge, ErrInvalidEdge)
		}
	}
	return nil
}

// visibleDate is the date under the current visible index, falling back to Now
// when the chart has no reference date yet.
func visibleDate(s State) time.Time {
	if d, ok := timeindex.IndexToDate(s.CurrentVisibleIndex, referenceDate(s), s.Granularity); ok {
		return d
	}
	return s.Now
}

func reduceAddWorkflow(s State, a AddWorkflow) (State, error) {
	if a.ID == "" {
		return s, errors.New("workflow id is required")
	}
	if s.workflowIndex(a.ID) >= 0 {
		return s, fmt.Errorf("workflow %s: %w", a.ID, ErrDuplicateIdentifier)
	}
	row := 0
	for _, w := range s.Workflows {
		if w.RowIndex >= row {
			row = w.RowIndex + 1
		}
	}
	start := visibleDate(s)
	next := s.Clone()
	next.Workflows = append(next.Workflows, domain.Workflow{
		ID:         a.ID,
		Name:       a.Name,
		RowIndex:   row,
		StartDate:  start,
		FinishDate: start,
	})
	return Propagate(next), nil
}

func reduceAddTask(s State, a AddTask) (State, error) {
	if a.ID == "" {
		return s, errors.New("task id is required")
	}
	if s.taskIndex(a.ID) >= 0 {
		return s, fmt.Errorf("task %s: %w", a.ID, ErrDuplicateIdentifier)
	}
	wi := s.workflowIndex(a.WorkflowID)
	if wi < 0 {
		return s, fmt.Errorf("workflow %s: %w", a.WorkflowID, ErrUnknownWorkflow)
	}
	row := 0
	for _, t := range s.Tasks {
		if t.WorkflowID == a.WorkflowID && t.RowIndex >= row {
			row = t.RowIndex + 1
		}
	}
	start := visibleDate(s)
	if ws := s.Workflows[wi].StartDate; ws.After(start) {
		start = ws
	}
	duration := "1d"
	if s.Granularity == timeindex.Hours {
		duration = "1h"
	}
	next := s.Clone()
	next.Tasks = append(next.Tasks, domain.Task{
		ID:           a.ID,
		WorkflowID:   a.WorkflowID,
		Title:        a.Title,
		Team:         a.Team,
		RowIndex:     row,
		StartDate:    start,
		Duration:     duration,
		Dependencies: []domain.Dependency{},
	})
	return Propagate(next), nil
}

func reduceUpdateTask(s State, a UpdateTask) (State, error) {
	i := s.taskIndex(a.ID)
	if i < 0 {
		return s, notFound("task", a.ID)
	}
	next := s.Clone()
	t := &next.Tasks[i]
	p := a.Patch
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Team != nil {
		t.Team = *p.Team
	}
	if p.RowIndex != nil {
		t.RowIndex = *p.RowIndex
	}
	if p.StartDate != nil {
		t.StartDate = *p.StartDate
	}
	if p.Duration != nil {
		// Malformed tokens are stored as-is and surface as IsValid=false.
		t.Duration = *p.Duration
	}
	t.Validate()
	return Propagate(next), nil
}

func reduceUpdateWorkflow(s State, a UpdateWorkflow) (State, error) {
	i := s.workflowIndex(a.ID)
	if i < 0 {
		return s, notFound("workflow", a.ID)
	}
	next := s.Clone()
	w := &next.Workflows[i]
	if a.Patch.Name != nil {
		w.Name = *a.Patch.Name
	}
	if a.Patch.RowIndex != nil {
		w.RowIndex = *a.Patch.RowIndex
	}
	return Propagate(next), nil
}

func reduceAddDependency(s State, a AddDependency) (State, error) {
	d := withEdgeDefaults(a.Dependency)
	if !d.FromPosition.IsValid() || !d.ToPosition.IsValid() {
		return s, fmt.Errorf("%w: %q/%q", ErrInvalidSide, d.FromPosition, d.ToPosition)
	}
	if !d.Direction.IsValid() {
		return s, fmt.Errorf("%w: %q", ErrInvalidDirection, d.Direction)
	}

	reject := func(r RejectReason) (State, error) {
		return s, &RejectedError{Reason: r, FromID: d.FromID, ToID: d.ToID}
	}
	fi, ti := s.taskIndex(d.FromID), s.taskIndex(d.ToID)
	if fi < 0 || ti < 0 {
		return reject(ReasonUnknownTask)
	}
	if d.FromID == d.ToID {
		return reject(ReasonSelfLoop)
	}
	for _, existing := range s.Tasks[fi].Dependencies {
		if existing.Same(d) {
			return reject(ReasonDuplicate)
		}
	}
	if s.Tasks[ti].StartDate.Before(s.Tasks[fi].StartDate) {
		return reject(ReasonTargetBeforeSource)
	}

	next := s.Clone()
	next.Tasks[fi].Dependencies = append(next.Tasks[fi].Dependencies, d)
	return Propagate(next), nil
}

func reduceRemoveDependency(s State, a RemoveDependency) (State, error) {
	fi := s.taskIndex(a.FromID)
	if fi < 0 {
		return s, notFound("task", a.FromID)
	}
	next := s.Clone()
	deps := next.Tasks[fi].Dependencies
	for j, d := range deps {
		if d.ToID == a.ToID {
			next.Tasks[fi].Dependencies = append(deps[:j:j], deps[j+1:]...)
			return Propagate(next), nil
		}
	}
	return s, notFound("dependency", a.FromID+"->"+a.ToID)
}

func reduceChangeDirection(s State, a ChangeDependencyDirection) (State, error) {
	if !a.Direction.IsValid() {
		return s, fmt.Errorf("%w: %q", ErrInvalidDirection, a.Direction)
	}
	fi := s.taskIndex(a.FromID)
	if fi < 0 {
		return s, notFound("task", a.FromID)
	}
	next := s.Clone()
	for j := range next.Tasks[fi].Dependencies {
		if next.Tasks[fi].Dependencies[j].ToID == a.ToID {
			next.Tasks[fi].Dependencies[j].Direction = a.Direction
			return next, nil
		}
	}
	return s, notFound("dependency", a.FromID+"->"+a.ToID)
}
