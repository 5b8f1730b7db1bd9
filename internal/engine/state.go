package engine

import (
	"sort"
	"time"

	"ganttline/internal/domain"
	"ganttline/internal/timeindex"
)

// State is the whole schedule. It is a value: Reduce never mutates the State it is
// given, so callers may keep old snapshots around.
type State struct {
	Workflows []domain.Workflow `json:"workflows"`
	Tasks     []domain.Task     `json:"tasks"`

	Granularity timeindex.Granularity `json:"granularity"`
	// NewSchedule anchors the reference date at Now instead of the earliest task.
	NewSchedule         bool      `json:"new_schedule"`
	Now                 time.Time `json:"now"`
	CurrentVisibleIndex int       `json:"current_visible_index"`

	ReferenceDate     time.Time `json:"reference_date"`
	EarliestStartDate time.Time `json:"earliest_start_date,omitempty"`
	LatestFinishDate  time.Time `json:"latest_finish_date,omitempty"`
}

// Clone deep-copies the workflow and task slices.
func (s State) Clone() State {
	c := s
	c.Workflows = append([]domain.Workflow(nil), s.Workflows...)
	c.Tasks = make([]domain.Task, len(s.Tasks))
	for i, t := range s.Tasks {
		c.Tasks[i] = t.Clone()
	}
	return c
}

func (s State) taskIndex(id string) int {
	for i := range s.Tasks {
		if s.Tasks[i].ID == id {
			return i
		}
	}
	return -1
}

func (s State) workflowIndex(id string) int {
	for i := range s.Workflows {
		if s.Workflows[i].ID == id {
			return i
		}
	}
	return -1
}

// Task looks up a task by id.
func (s State) Task(id string) (domain.Task, bool) {
	i := s.taskIndex(id)
	if i < 0 {
		return domain.Task{}, false
	}
	return s.Tasks[i].Clone(), true
}

// Workflow looks up a workflow by id.
func (s State) Workflow(id string) (domain.Workflow, bool) {
	i := s.workflowIndex(id)
	if i < 0 {
		return domain.Workflow{}, false
	}
	return s.Workflows[i], true
}

// Dependency finds the edge from -> to on the source task.
func (s State) Dependency(fromID, toID string) (domain.Dependency, bool) {
	i := s.taskIndex(fromID)
	if i < 0 {
		return domain.Dependency{}, false
	}
	for _, d := range s.Tasks[i].Dependencies {
		if d.ToID == toID {
			return d, true
		}
	}
	return domain.Dependency{}, false
}

// Predecessors returns the tasks that own an edge pointing at id, in store order.
func (s State) Predecessors(id string) []domain.Task {
	var out []domain.Task
	for _, t := range s.Tasks {
		for _, d := range t.Dependencies {
			if d.ToID == id {
				out = append(out, t.Clone())
				break
			}
		}
	}
	return out
}

// SortedWorkflows returns workflows in display order.
func (s State) SortedWorkflows() []domain.Workflow {
	out := append([]domain.Workflow(nil), s.Workflows...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].RowIndex < out[j].RowIndex })
	return out
}

// WorkflowTasks returns the tasks of one workflow in display order.
func (s State) WorkflowTasks(workflowID string) []domain.Task {
	var out []domain.Task
	for _, t := range s.Tasks {
		if t.WorkflowID == workflowID {
			out = append(out, t.Clone())
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].RowIndex < out[j].RowIndex })
	return out
}

// DateAtIndex maps a grid index to a date using the state's reference date and
// granularity.
func (s State) DateAtIndex(index int) (time.Time, bool) {
	return timeindex.IndexToDate(index, s.ReferenceDate, s.Granularity)
}

// IndexOf maps a date to its grid column.
func (s State) IndexOf(date time.Time) int {
	return timeindex.DateToIndex(date, s.ReferenceDate, s.Granularity)
}
