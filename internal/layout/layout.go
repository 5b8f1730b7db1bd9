// Package layout turns a schedule snapshot and a visible window into the
// geometry of one frame. It holds no state: every call derives the frame afresh.
package layout

import (
	"math"
	"sort"
	"time"

	"ganttline/internal/domain"
	"ganttline/internal/engine"
	"ganttline/internal/timeindex"
	"ganttline/internal/window"
)

type ItemType string

const (
	TypeWorkflow ItemType = "workflow"
	TypeTask     ItemType = "task"
	TypeBlank    ItemType = "blank"
)

// Metrics are the pixel constants of the grid.
type Metrics struct {
	ColWidth   float64
	RowHeight  float64
	HeaderRows int
	// MinWidth is the smallest bar width a pointer can grab.
	MinWidth float64
}

// Item is one display row of the frame.
type Item struct {
	Row        int      `json:"row"`
	Type       ItemType `json:"type"`
	ID         string   `json:"id,omitempty"`
	WorkflowID string   `json:"workflow_id,omitempty"`
	Title      string   `json:"title,omitempty"`
	Team       string   `json:"team,omitempty"`
	Duration   string   `json:"duration,omitempty"`

	Rect         Rect    `json:"rect"`
	NaturalWidth float64 `json:"natural_width"`
	StartIndex   int     `json:"start_index"`
	EndIndex     int     `json:"end_index"`
	LeftHidden   bool    `json:"left_hidden"`
	RightHidden  bool    `json:"right_hidden"`
	// Interactive is false when the natural width is below the grab threshold.
	Interactive bool `json:"interactive"`
	IsValid     bool `json:"is_valid"`
}

// Frame is the visible geometry for one window.
type Frame struct {
	Granularity timeindex.Granularity `json:"granularity"`
	Window      window.Range          `json:"window"`
	TotalRows   int                   `json:"total_rows"`
	TotalCols   int                   `json:"total_cols"`
	ColWidth    float64               `json:"col_width"`
	RowHeight   float64               `json:"row_height"`
	// NowX is the x position of the current-time marker.
	NowX float64 `json:"now_x"`

	Rows     map[int]Item    `json:"rows"`
	Geometry map[string]Rect `json:"geometry"`
	Edges    []Edge          `json:"edges"`
}

// Items returns the emitted rows sorted by row index.
func (f Frame) Items() []Item {
	out := make([]Item, 0, len(f.Rows))
	for _, it := range f.Rows {
		out = append(out, it)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Row < out[j].Row })
	return out
}

// Totals returns the grid size for s: one row per task, a row plus a trailing
// blank per workflow, the header rows; and the columns up to the latest finish
// plus buffer.
func Totals(s engine.State, headerRows, buffer int) (rows, cols int) {
	rows = len(s.Tasks) + 2*len(s.Workflows) + headerRows
	if !s.LatestFinishDate.IsZero() && !s.ReferenceDate.IsZero() {
		cols = timeindex.Units(s.ReferenceDate, s.LatestFinishDate, s.Granularity)
	}
	if cols < 0 {
		cols = 0
	}
	return rows, cols + buffer
}

type row struct {
	index    int
	typ      ItemType
	workflow domain.Workflow
	task     domain.Task
}

// flatten lays out workflows in rowIndex order, each followed by its tasks and a
// blank separator. Display rows start after the header rows.
func flatten(s engine.State, headerRows int) []row {
	var out []row
	n := headerRows
	for _, w := range s.SortedWorkflows() {
		out = append(out, row{index: n, typ: TypeWorkflow, workflow: w})
		n++
		for _, t := range s.WorkflowTasks(w.ID) {
			out = append(out, row{index: n, typ: TypeTask, task: t, workflow: w})
			n++
		}
		out = append(out, row{index: n, typ: TypeBlank, workflow: w})
		n++
	}
	return out
}

// Compute derives the frame for window r.
func Compute(s engine.State, r window.Range, totalRows, totalCols int, m Metrics) Frame {
	f := Frame{
		Granularity: s.Granularity,
		Window:      r,
		TotalRows:   totalRows,
		TotalCols:   totalCols,
		ColWidth:    m.ColWidth,
		RowHeight:   m.RowHeight,
		Rows:        map[int]Item{},
		Geometry:    map[string]Rect{},
		Edges:       []Edge{},
	}
	if !s.Now.IsZero() {
		f.NowX = float64(s.IndexOf(s.Now)) * m.ColWidth
	}

	for _, rw := range flatten(s, m.HeaderRows) {
		var it Item
		var ok bool
		switch rw.typ {
		case TypeTask:
			it, ok = taskItem(s, rw.task, m)
		case TypeWorkflow:
			it, ok = workflowItem(s, rw.workflow, m)
		case TypeBlank:
			it, ok = Item{Type: TypeBlank, WorkflowID: rw.workflow.ID}, true
		}
		if !ok {
			continue
		}
		it.Row = rw.index
		it.Rect.Y = float64(rw.index) * m.RowHeight
		it.Rect.Height = m.RowHeight
		if rw.typ == TypeTask {
			f.Geometry[rw.task.ID] = it.Rect
		}
		if !r.ContainsRow(rw.index) {
			continue
		}
		if rw.typ != TypeBlank {
			if !(it.StartIndex < r.EndCol && it.EndIndex >= r.StartCol) {
				continue
			}
			it.LeftHidden = it.StartIndex < r.StartCol
			it.RightHidden = it.EndIndex >= r.EndCol
		}
		f.Rows[rw.index] = it
	}

	for _, t := range s.Tasks {
		src, ok := f.Geometry[t.ID]
		if !ok {
			continue
		}
		for _, d := range t.Dependencies {
			dst, ok := f.Geometry[d.ToID]
			if !ok {
				continue
			}
			f.Edges = append(f.Edges, RouteEdge(d, src, dst))
		}
	}
	return f
}

func taskItem(s engine.State, t domain.Task, m Metrics) (Item, bool) {
	if t.StartDate.IsZero() {
		return Item{}, false
	}
	days, ok := t.DurationDays()
	if !ok {
		days = 0
	}
	it := bar(s, t.StartDate, days, m)
	it.Type = TypeTask
	it.ID = t.ID
	it.WorkflowID = t.WorkflowID
	it.Title = t.Title
	it.Team = t.Team
	it.Duration = t.Duration
	it.IsValid = t.IsValid
	if !t.IsValid {
		it.Interactive = false
	}
	return it, true
}

// workflowItem spans from the workflow start through the end of its finish day.
func workflowItem(s engine.State, w domain.Workflow, m Metrics) (Item, bool) {
	if w.StartDate.IsZero() {
		return Item{}, false
	}
	days := float64(timeindex.Units(w.StartDate, w.FinishDate, timeindex.Days) + 1)
	it := bar(s, w.StartDate, days, m)
	it.Type = TypeWorkflow
	it.ID = w.ID
	it.WorkflowID = w.ID
	it.Title = w.Name
	it.IsValid = true
	return it, true
}

func bar(s engine.State, start time.Time, days float64, m Metrics) Item {
	units := timeindex.UnitsFloat(days, s.Granularity)
	natural := units * m.ColWidth
	startIdx := s.IndexOf(start)
	span := int(math.Ceil(units))
	if span < 1 {
		span = 1
	}
	return Item{
		Rect: Rect{
			X:     float64(startIdx) * m.ColWidth,
			Width: math.Max(natural, m.MinWidth),
		},
		NaturalWidth: natural,
		StartIndex:   startIdx,
		EndIndex:     startIdx + span - 1,
		Interactive:  natural >= m.MinWidth,
	}
}
