package engine

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"ganttline/internal/domain"
	"ganttline/internal/event"
	"ganttline/internal/timeindex"
)

// Engine owns the schedule state and serializes mutations on it. Every committed
// mutation is published on Bus as change events after the lock is released.
//
// The current-time marker is read from Now once at construction and afterwards
// only moves through Tick.
type Engine struct {
	Bus    *event.Bus
	Logger *slog.Logger
	Now    func() time.Time
	NewID  func() string

	mu    sync.Mutex
	state State
}

type Options struct {
	Granularity timeindex.Granularity
	NewSchedule bool
	Bus         *event.Bus
	Logger      *slog.Logger
	Now         func() time.Time
}

func New(opts Options) *Engine {
	e := &Engine{
		Bus:    opts.Bus,
		Logger: opts.Logger,
		Now:    opts.Now,
		NewID:  uuid.NewString,
	}
	if e.Bus == nil {
		e.Bus = event.NewBus()
	}
	g := opts.Granularity
	if g == "" {
		g = timeindex.Days
	}
	e.state = Propagate(State{
		Granularity: g,
		NewSchedule: opts.NewSchedule,
		Now:         e.now(),
		Workflows:   []domain.Workflow{},
		Tasks:       []domain.Task{},
	})
	return e
}

func (e *Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e *Engine) newID() string {
	if e.NewID != nil {
		return e.NewID()
	}
	return uuid.NewString()
}

func (e *Engine) logger() *slog.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return slog.Default()
}

// State returns a snapshot of the current schedule.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.Clone()
}

// Dispatch reduces a against the current state, stores the result and publishes
// the resulting change events. Rejected dependencies publish DependencyRejected.
func (e *Engine) Dispatch(a Action) (State, error) {
	e.mu.Lock()
	prev := e.state
	next, err := Reduce(prev, a)
	if err == nil {
		e.state = next
	}
	e.mu.Unlock()

	if err != nil {
		if reason, ok := ReasonOf(err); ok {
			e.logger().Debug("dependency rejected", "reason", string(reason), "error", err)
			if add, ok := a.(AddDependency); ok {
				e.Bus.Publish(event.DependencyEvent{Type: event.DependencyRejected, Dependency: add.Dependency, Reason: string(reason)})
			}
		}
		return prev.Clone(), err
	}
	e.logger().Debug("store updated", "action", a.Kind())
	for _, ev := range changeEvents(prev, next, a) {
		e.Bus.Publish(ev)
	}
	return next.Clone(), nil
}

// Load replaces the schedule with bootstrap data.
func (e *Engine) Load(workflows []domain.Workflow, tasks []domain.Task) error {
	_, err := e.Dispatch(Load{Workflows: workflows, Tasks: tasks})
	return err
}

type WorkflowCreateOptions struct {
	ID   string
	Name string
}

func (e *Engine) AddWorkflow(opts WorkflowCreateOptions) (domain.Workflow, error) {
	if opts.ID == "" {
		opts.ID = e.newID()
	}
	s, err := e.Dispatch(AddWorkflow{ID: opts.ID, Name: opts.Name})
	if err != nil {
		return domain.Workflow{}, err
	}
	w, _ := s.Workflow(opts.ID)
	return w, nil
}

type TaskCreateOptions struct {
	ID         string
	WorkflowID string
	Title      string
	Team       string
}

func (e *Engine) AddTask(opts TaskCreateOptions) (domain.Task, error) {
	if opts.ID == "" {
		opts.ID = e.newID()
	}
	s, err := e.Dispatch(AddTask{ID: opts.ID, WorkflowID: opts.WorkflowID, Title: opts.Title, Team: opts.Team})
	if err != nil {
		return domain.Task{}, err
	}
	t, _ := s.Task(opts.ID)
	return t, nil
}

func (e *Engine) UpdateTask(id string, patch TaskPatch) (domain.Task, error) {
	s, err := e.Dispatch(UpdateTask{ID: id, Patch: patch})
	if err != nil {
		return domain.Task{}, err
	}
	t, _ := s.Task(id)
	return t, nil
}

func (e *Engine) UpdateWorkflow(id string, patch WorkflowPatch) (domain.Workflow, error) {
	s, err := e.Dispatch(UpdateWorkflow{ID: id, Patch: patch})
	if err != nil {
		return domain.Workflow{}, err
	}
	w, _ := s.Workflow(id)
	return w, nil
}

// AddDependency returns the stored edge, or a *RejectedError when the store refused it.
func (e *Engine) AddDependency(d domain.Dependency) (domain.Dependency, error) {
	s, err := e.Dispatch(AddDependency{Dependency: d})
	if err != nil {
		return domain.Dependency{}, err
	}
	stored, _ := s.Dependency(d.FromID, d.ToID)
	return stored, nil
}

func (e *Engine) RemoveDependency(fromID, toID string) error {
	_, err := e.Dispatch(RemoveDependency{FromID: fromID, ToID: toID})
	return err
}

func (e *Engine) ChangeDependencyDirection(fromID, toID string, dir domain.Direction) (domain.Dependency, error) {
	s, err := e.Dispatch(ChangeDependencyDirection{FromID: fromID, ToID: toID, Direction: dir})
	if err != nil {
		return domain.Dependency{}, err
	}
	d, _ := s.Dependency(fromID, toID)
	return d, nil
}

func (e *Engine) SetGranularity(g timeindex.Granularity) error {
	_, err := e.Dispatch(SetGranularity{Granularity: g})
	return err
}

func (e *Engine) SetVisibleIndex(index int) error {
	_, err := e.Dispatch(SetVisibleIndex{Index: index})
	return err
}

func (e *Engine) Tick(now time.Time) {
	if _, err := e.Dispatch(Tick{Now: now}); err != nil {
		e.logger().Warn("tick failed", "error", err)
	}
}

// changeEvents lists what a committed action changed: the action's own event
// first, then every task or workflow whose fields moved as a side effect.
func changeEvents(prev, next State, a Action) []event.Event {
	var out []event.Event
	skipTask, skipWorkflow := "", ""
	switch a := a.(type) {
	case Load:
		return []event.Event{event.LoadedEvent{Workflows: len(next.Workflows), Tasks: len(next.Tasks)}}
	case Tick, SetVisibleIndex:
		// Only derived fields move; hosts read them from the next frame.
		return nil
	case AddWorkflow:
		w, _ := next.Workflow(a.ID)
		out = append(out, event.WorkflowEvent{Type: event.WorkflowCreated, Workflow: w})
		skipWorkflow = a.ID
	case AddTask:
		t, _ := next.Task(a.ID)
		out = append(out, event.TaskEvent{Type: event.TaskCreated, Task: t})
		skipTask = a.ID
	case AddDependency:
		d, _ := next.Dependency(a.Dependency.FromID, a.Dependency.ToID)
		out = append(out, event.DependencyEvent{Type: event.DependencyAdded, Dependency: d})
	case RemoveDependency:
		d, _ := prev.Dependency(a.FromID, a.ToID)
		out = append(out, event.DependencyEvent{Type: event.DependencyRemoved, Dependency: d})
	case ChangeDependencyDirection:
		d, _ := next.Dependency(a.FromID, a.ToID)
		out = append(out, event.DependencyEvent{Type: event.DependencyDirectionChanged, Dependency: d})
	case SetGranularity:
		if prev.Granularity != next.Granularity {
			out = append(out, event.GranularityEvent{From: string(prev.Granularity), To: string(next.Granularity)})
		}
	case UpdateTask:
		// An explicit update is always reported, even when propagation undid it.
		if t, ok := next.Task(a.ID); ok {
			out = append(out, event.TaskEvent{Type: event.TaskUpdated, Task: t})
			skipTask = a.ID
		}
	case UpdateWorkflow:
		if w, ok := next.Workflow(a.ID); ok {
			out = append(out, event.WorkflowEvent{Type: event.WorkflowUpdated, Workflow: w})
			skipWorkflow = a.ID
		}
	}

	for _, t := range next.Tasks {
		if t.ID == skipTask {
			continue
		}
		old, ok := prev.Task(t.ID)
		if ok && taskChanged(old, t) {
			out = append(out, event.TaskEvent{Type: event.TaskUpdated, Task: t.Clone()})
		}
	}
	for _, w := range next.Workflows {
		if w.ID == skipWorkflow {
			continue
		}
		old, ok := prev.Workflow(w.ID)
		if ok && workflowChanged(old, w) {
			out = append(out, event.WorkflowEvent{Type: event.WorkflowUpdated, Workflow: w})
		}
	}
	return out
}

func taskChanged(a, b domain.Task) bool {
	return !a.StartDate.Equal(b.StartDate) ||
		!a.EarliestAllowedStartDate.Equal(b.EarliestAllowedStartDate) ||
		a.Duration != b.Duration ||
		a.IsValid != b.IsValid ||
		a.Title != b.Title ||
		a.Team != b.Team ||
		a.RowIndex != b.RowIndex
}

func workflowChanged(a, b domain.Workflow) bool {
	return a.Name != b.Name ||
		a.RowIndex != b.RowIndex ||
		!a.StartDate.Equal(b.StartDate) ||
		!a.FinishDate.Equal(b.FinishDate) ||
		a.Duration != b.Duration
}

// IsRejected reports whether err is a dependency rejection.
func IsRejected(err error) bool {
	return errors.Is(err, ErrDependencyRejected)
}
