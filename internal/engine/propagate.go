package engine

import (
	"time"

	"ganttline/internal/domain"
	"ganttline/internal/timeindex"
)

// Propagate recomputes every derived field of s: earliest allowed start dates,
// validity, workflow spans, and the chart-wide reference, earliest and latest dates.
//
// Tasks are visited once each, in store order. A task constrained by predecessors
// that are visited later sees their pre-pass dates, so a chain of depth n can need
// n calls to settle.
func Propagate(s State) State {
	s = s.Clone()
	s.ReferenceDate = referenceDate(s)

	incoming := make(map[string][]int, len(s.Tasks))
	for i, t := range s.Tasks {
		for _, d := range t.Dependencies {
			incoming[d.ToID] = append(incoming[d.ToID], i)
		}
	}

	for i := range s.Tasks {
		t := &s.Tasks[i]
		bound, constrained := latestFinish(s.Tasks, incoming[t.ID])
		if !constrained {
			t.EarliestAllowedStartDate = s.ReferenceDate
			t.Validate()
			continue
		}
		t.EarliestAllowedStartDate = bound
		if !t.StartDate.IsZero() && !t.StartDate.After(bound) {
			t.StartDate = domain.AddDays(bound, 1)
		}
		t.Validate()
	}

	for i := range s.Workflows {
		updateSpan(&s.Workflows[i], s.Tasks)
	}

	s.EarliestStartDate, s.LatestFinishDate = chartSpan(s.Tasks)
	return s
}

// Retime refreshes the fields that depend on Now: the reference date and the
// earliest allowed start of tasks without predecessors. Start dates never move.
func Retime(s State) State {
	s = s.Clone()
	s.ReferenceDate = referenceDate(s)
	constrained := make(map[string]bool, len(s.Tasks))
	for _, t := range s.Tasks {
		for _, d := range t.Dependencies {
			constrained[d.ToID] = true
		}
	}
	for i := range s.Tasks {
		if !constrained[s.Tasks[i].ID] {
			s.Tasks[i].EarliestAllowedStartDate = s.ReferenceDate
		}
	}
	return s
}

// latestFinish is the max finish date among the predecessor tasks at idx. Tasks
// without a usable finish date are skipped.
func latestFinish(tasks []domain.Task, idx []int) (time.Time, bool) {
	var bound time.Time
	found := false
	for _, j := range idx {
		fin, ok := tasks[j].FinishDate()
		if !ok {
			continue
		}
		if !found || fin.After(bound) {
			bound = fin
			found = true
		}
	}
	return bound, found
}

func referenceDate(s State) time.Time {
	if s.NewSchedule {
		return s.Now
	}
	earliest, _ := chartSpan(s.Tasks)
	if earliest.IsZero() {
		return s.Now
	}
	return earliest
}

func chartSpan(tasks []domain.Task) (earliest, latest time.Time) {
	for _, t := range tasks {
		if t.StartDate.IsZero() {
			continue
		}
		if earliest.IsZero() || t.StartDate.Before(earliest) {
			earliest = t.StartDate
		}
		if fin, ok := t.FinishDate(); ok && (latest.IsZero() || fin.After(latest)) {
			latest = fin
		}
	}
	return earliest, latest
}

// updateSpan recomputes a workflow's span from its tasks. With no dated tasks the
// previous span is kept.
func updateSpan(w *domain.Workflow, tasks []domain.Task) {
	var start, finish time.Time
	for _, t := range tasks {
		if t.WorkflowID != w.ID || t.StartDate.IsZero() {
			continue
		}
		if start.IsZero() || t.StartDate.Before(start) {
			start = t.StartDate
		}
		days, ok := t.DurationDays()
		if !ok || days <= 0 {
			continue
		}
		if fin := domain.AddDays(t.StartDate, days-1); finish.IsZero() || fin.After(finish) {
			finish = fin
		}
	}
	if start.IsZero() || finish.IsZero() {
		return
	}
	w.StartDate = start
	w.FinishDate = finish
	w.Duration = timeindex.Units(start, finish, timeindex.Days)
}
