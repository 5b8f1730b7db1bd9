package domain

import "time"

// Side is the edge of a task bar a dependency attaches to.
type Side string

const (
	SideLeft  Side = "left"
	SideRight Side = "right"
)

func (s Side) IsValid() bool {
	return s == SideLeft || s == SideRight
}

// Direction controls how a dependency edge is drawn. It never changes propagation:
// every edge constrains its target by its source.
type Direction string

const (
	DirectionForward  Direction = "forward"
	DirectionBackward Direction = "backward"
	DirectionBoth     Direction = "both"
)

func (d Direction) IsValid() bool {
	switch d {
	case DirectionForward, DirectionBackward, DirectionBoth:
		return true
	}
	return false
}

type Workflow struct {
	ID         string    `json:"id" yaml:"id"`
	Name       string    `json:"name" yaml:"name"`
	RowIndex   int       `json:"row_index" yaml:"rowIndex"`
	StartDate  time.Time `json:"start_date,omitempty" yaml:"-"`
	FinishDate time.Time `json:"finish_date,omitempty" yaml:"-"`
	// Duration is the day span between StartDate and FinishDate.
	Duration int `json:"duration" yaml:"-"`
}

// Dependency is an edge owned by the task named in FromID.
type Dependency struct {
	FromID       string    `json:"from_id" yaml:"fromId"`
	ToID         string    `json:"to_id" yaml:"toId"`
	FromPosition Side      `json:"from_position" yaml:"fromPosition"`
	ToPosition   Side      `json:"to_position" yaml:"toPosition"`
	Direction    Direction `json:"direction" yaml:"direction"`
}

// Same reports whether d and o connect the same pair of tasks.
func (d Dependency) Same(o Dependency) bool {
	return d.FromID == o.FromID && d.ToID == o.ToID
}

type Task struct {
	ID           string       `json:"id" yaml:"id"`
	WorkflowID   string       `json:"workflow_id" yaml:"workflowId"`
	Title        string       `json:"title" yaml:"title"`
	Team         string       `json:"team" yaml:"team"`
	RowIndex     int          `json:"row_index" yaml:"rowIndex"`
	StartDate    time.Time    `json:"start_date" yaml:"startDate"`
	Duration     string       `json:"duration" yaml:"duration"`
	Dependencies []Dependency `json:"dependencies" yaml:"dependencies"`

	EarliestAllowedStartDate time.Time `json:"earliest_allowed_start_date" yaml:"-"`
	IsValid                  bool      `json:"is_valid" yaml:"-"`
}

// Clone returns a copy of t that shares no edge storage with it.
func (t Task) Clone() Task {
	c := t
	if t.Dependencies != nil {
		c.Dependencies = make([]Dependency, len(t.Dependencies))
		copy(c.Dependencies, t.Dependencies)
	}
	return c
}

// DurationDays returns the task duration in days, or ok=false for malformed tokens.
func (t Task) DurationDays() (float64, bool) {
	d, err := ParseDuration(t.Duration)
	if err != nil {
		return 0, false
	}
	return d.Days(), true
}

// FinishDate is the last day the task occupies: start + days - 1, with the day
// offset truncated toward zero.
func (t Task) FinishDate() (time.Time, bool) {
	days, ok := t.DurationDays()
	if !ok || t.StartDate.IsZero() {
		return time.Time{}, false
	}
	return AddDays(t.StartDate, days-1), true
}

// EndDate is the exclusive end of the bar: start plus the full duration.
func (t Task) EndDate() (time.Time, bool) {
	d, err := ParseDuration(t.Duration)
	if err != nil || t.StartDate.IsZero() {
		return time.Time{}, false
	}
	return t.StartDate.Add(d.Length()), true
}

// Validate recomputes IsValid: the duration must parse to a positive length and a
// start date must be present.
func (t *Task) Validate() {
	days, ok := t.DurationDays()
	t.IsValid = ok && days > 0 && !t.StartDate.IsZero()
}

// AddDays shifts t by whole calendar days; fractional offsets are truncated
// toward zero.
func AddDays(t time.Time, days float64) time.Time {
	return t.AddDate(0, 0, int(days))
}
