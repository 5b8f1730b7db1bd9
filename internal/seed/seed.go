// Package seed reads bootstrap schedules: workflow and task records in YAML or
// JSON, with dates as RFC 3339 timestamps or plain YYYY-MM-DD days.
package seed

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"ganttline/internal/domain"
	"ganttline/internal/engine"
)

var (
	ErrUnknownWorkflow   = engine.ErrUnknownWorkflow
	ErrForeignDependency = engine.ErrForeignDependency
	ErrBadDate           = errors.New("invalid date")
)

type WorkflowRecord struct {
	ID       string `yaml:"id" json:"id"`
	Name     string `yaml:"name" json:"name,omitempty"`
	RowIndex int    `yaml:"rowIndex" json:"rowIndex,omitempty"`
}

type DependencyRecord struct {
	FromID       string `yaml:"fromId" json:"fromId,omitempty"`
	ToID         string `yaml:"toId" json:"toId"`
	FromPosition string `yaml:"fromPosition,omitempty" json:"fromPosition,omitempty"`
	ToPosition   string `yaml:"toPosition,omitempty" json:"toPosition,omitempty"`
	Direction    string `yaml:"direction,omitempty" json:"direction,omitempty"`
}

type TaskRecord struct {
	ID           string             `yaml:"id" json:"id"`
	WorkflowID   string             `yaml:"workflowId" json:"workflowId"`
	RowIndex     int                `yaml:"rowIndex" json:"rowIndex,omitempty"`
	Title        string             `yaml:"title" json:"title,omitempty"`
	Team         string             `yaml:"team" json:"team,omitempty"`
	StartDate    string             `yaml:"startDate" json:"startDate,omitempty"`
	Duration     string             `yaml:"duration" json:"duration,omitempty"`
	Dependencies []DependencyRecord `yaml:"dependencies" json:"dependencies,omitempty"`
}

// File is the on-disk bootstrap shape.
type File struct {
	Workflows []WorkflowRecord `yaml:"workflows" json:"workflows"`
	Tasks     []TaskRecord     `yaml:"tasks" json:"tasks"`
}

// Schedule is a decoded bootstrap ready for engine.Engine.Load.
type Schedule struct {
	Workflows []domain.Workflow
	Tasks     []domain.Task
}

var dateLayouts = []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02T15:04", "2006-01-02"}

// Load reads a bootstrap file. Dates without a zone are read in loc.
func Load(path string, loc *time.Location) (Schedule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Schedule{}, fmt.Errorf("read seed: %w", err)
	}
	s, err := Parse(data, loc)
	if err != nil {
		return Schedule{}, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// Parse decodes YAML or JSON bootstrap data and checks its references.
func Parse(data []byte, loc *time.Location) (Schedule, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return Schedule{}, fmt.Errorf("invalid seed: %w", err)
	}
	return f.Schedule(loc)
}

// Schedule converts the records into domain values. Missing edge sides and
// directions default to right, left and forward; an empty fromId means the
// owning task.
func (f File) Schedule(loc *time.Location) (Schedule, error) {
	if loc == nil {
		loc = time.UTC
	}
	var out Schedule
	known := make(map[string]bool, len(f.Workflows))
	for _, w := range f.Workflows {
		known[w.ID] = true
		out.Workflows = append(out.Workflows, domain.Workflow{ID: w.ID, Name: w.Name, RowIndex: w.RowIndex})
	}
	for _, r := range f.Tasks {
		if !known[r.WorkflowID] {
			return Schedule{}, fmt.Errorf("task %s references workflow %q: %w", r.ID, r.WorkflowID, ErrUnknownWorkflow)
		}
		start, err := parseDate(r.StartDate, loc)
		if err != nil {
			return Schedule{}, fmt.Errorf("task %s startDate: %w", r.ID, err)
		}
		t := domain.Task{
			ID:           r.ID,
			WorkflowID:   r.WorkflowID,
			Title:        r.Title,
			Team:         r.Team,
			RowIndex:     r.RowIndex,
			StartDate:    start,
			Duration:     r.Duration,
			Dependencies: []domain.Dependency{},
		}
		for _, d := range r.Dependencies {
			if d.FromID == "" {
				d.FromID = r.ID
			}
			if d.FromID != r.ID {
				return Schedule{}, fmt.Errorf("task %s edge %s -> %s: %w", r.ID, d.FromID, d.ToID, ErrForeignDependency)
			}
			t.Dependencies = append(t.Dependencies, dependency(d))
		}
		out.Tasks = append(out.Tasks, t)
	}
	return out, nil
}

func dependency(d DependencyRecord) domain.Dependency {
	dep := domain.Dependency{
		FromID:       d.FromID,
		ToID:         d.ToID,
		FromPosition: domain.Side(d.FromPosition),
		ToPosition:   domain.Side(d.ToPosition),
		Direction:    domain.Direction(d.Direction),
	}
	if dep.FromPosition == "" {
		dep.FromPosition = domain.SideRight
	}
	if dep.ToPosition == "" {
		dep.ToPosition = domain.SideLeft
	}
	if dep.Direction == "" {
		dep.Direction = domain.DirectionForward
	}
	return dep
}

// parseDate returns the zero time for an empty value; such tasks load as invalid.
func parseDate(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%q: %w", s, ErrBadDate)
}

// FromState converts a schedule back into bootstrap records, the inverse of
// Schedule for every authored field.
func FromState(workflows []domain.Workflow, tasks []domain.Task) File {
	f := File{Workflows: []WorkflowRecord{}, Tasks: []TaskRecord{}}
	for _, w := range workflows {
		f.Workflows = append(f.Workflows, WorkflowRecord{ID: w.ID, Name: w.Name, RowIndex: w.RowIndex})
	}
	for _, t := range tasks {
		r := TaskRecord{
			ID:           t.ID,
			WorkflowID:   t.WorkflowID,
			RowIndex:     t.RowIndex,
			Title:        t.Title,
			Team:         t.Team,
			Duration:     t.Duration,
			Dependencies: []DependencyRecord{},
		}
		if !t.StartDate.IsZero() {
			r.StartDate = t.StartDate.Format(time.RFC3339)
		}
		for _, d := range t.Dependencies {
			r.Dependencies = append(r.Dependencies, DependencyRecord{
				FromID:       d.FromID,
				ToID:         d.ToID,
				FromPosition: string(d.FromPosition),
				ToPosition:   string(d.ToPosition),
				Direction:    string(d.Direction),
			})
		}
		f.Tasks = append(f.Tasks, r)
	}
	return f
}

// Marshal renders f as YAML.
func (f File) Marshal() ([]byte, error) {
	return yaml.Marshal(f)
}
