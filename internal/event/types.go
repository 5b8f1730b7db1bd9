package event

import (
	"time"

	"ganttline/internal/domain"
)

// Event is anything that can travel over a Bus.
type Event interface {
	EventType() string
}

// Change events published by the engine after a committed mutation.
const (
	TaskCreated                = "task.created"
	TaskUpdated                = "task.updated"
	WorkflowCreated            = "workflow.created"
	WorkflowUpdated            = "workflow.updated"
	DependencyAdded            = "dependency.added"
	DependencyRemoved          = "dependency.removed"
	DependencyDirectionChanged = "dependency.direction_changed"
	DependencyRejected         = "dependency.rejected"
	GranularityChanged         = "granularity.changed"
	ScheduleLoaded             = "schedule.loaded"
)

// Input events published by the host that owns the pointer, scroll containers
// and clock.
const (
	PointerDown  = "pointer.down"
	PointerMove  = "pointer.move"
	PointerUp    = "pointer.up"
	PointerLeave = "pointer.leave"
	PointerHover = "pointer.hover"
	PointerClick = "pointer.click"
	OutsideClick = "pointer.outside_click"
	Scroll       = "viewport.scroll"
	Resize       = "viewport.resize"
	ClockTick    = "clock.tick"
)

type TaskEvent struct {
	Type string
	Task domain.Task
}

func (e TaskEvent) EventType() string { return e.Type }

type WorkflowEvent struct {
	Type     string
	Workflow domain.Workflow
}

func (e WorkflowEvent) EventType() string { return e.Type }

type DependencyEvent struct {
	Type       string
	Dependency domain.Dependency
	// Reason is set on DependencyRejected.
	Reason string
}

func (e DependencyEvent) EventType() string { return e.Type }

type GranularityEvent struct {
	From string
	To   string
}

func (GranularityEvent) EventType() string { return GranularityChanged }

type LoadedEvent struct {
	Workflows int
	Tasks     int
}

func (LoadedEvent) EventType() string { return ScheduleLoaded }

// PointerEvent coordinates are in timeline content space, the space of
// layout.Frame geometry: x is measured from the left of column 0 and y from the
// top of the header rows. Hosts add the timeline scroll offsets to viewport
// coordinates before publishing.
type PointerEvent struct {
	Type string
	X    float64
	Y    float64
}

func (e PointerEvent) EventType() string { return e.Type }

type ScrollEvent struct {
	Surface string
	Left    float64
	Top     float64
}

func (ScrollEvent) EventType() string { return Scroll }

type ResizeEvent struct {
	Width  float64
	Height float64
}

func (ResizeEvent) EventType() string { return Resize }

type TickEvent struct {
	Now time.Time
}

func (TickEvent) EventType() string { return ClockTick }
