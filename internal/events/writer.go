// Package events journals the engine's change events into the session database.
package events

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"ganttline/internal/event"
)

type Writer struct {
	DB        *sql.DB
	SessionID string
	Now       func() time.Time
	Logger    *slog.Logger
}

type EventPayload map[string]any

// Journaled lists the event types the writer records.
var Journaled = []string{
	event.TaskCreated,
	event.TaskUpdated,
	event.WorkflowCreated,
	event.WorkflowUpdated,
	event.DependencyAdded,
	event.DependencyRemoved,
	event.DependencyDirectionChanged,
	event.DependencyRejected,
	event.GranularityChanged,
	event.ScheduleLoaded,
}

func (w Writer) now() time.Time {
	if w.Now == nil {
		return time.Now()
	}
	return w.Now()
}

func (w Writer) logger() *slog.Logger {
	if w.Logger != nil {
		return w.Logger
	}
	return slog.Default()
}

// StartSession records the session row every journaled event points at.
func (w Writer) StartSession(ctx context.Context, granularity string) error {
	_, err := w.DB.ExecContext(ctx, `INSERT INTO sessions(id,started_at,granularity) VALUES (?,?,?)`,
		w.SessionID, w.now().UTC().Format(time.RFC3339), granularity)
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	return nil
}

// Append stores one event. Events the writer does not know are skipped.
func (w Writer) Append(ctx context.Context, e event.Event) error {
	kind, id, payload, ok := describe(e)
	if !ok {
		return nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal event payload: %w", err)
	}
	ts := w.now().UTC().Format(time.RFC3339Nano)
	_, err = w.DB.ExecContext(ctx, `INSERT INTO events(session_id,ts,type,entity_kind,entity_id,payload_json) VALUES (?,?,?,?,?,?)`,
		w.SessionID, ts, e.EventType(), kind, nullable(id), string(data))
	if err != nil {
		return fmt.Errorf("append %s: %w", e.EventType(), err)
	}
	return nil
}

// Subscribe journals every change event published on bus and returns the
// subscription ids. Write failures are logged; they never reach the publisher.
func (w Writer) Subscribe(bus *event.Bus) []string {
	ids := make([]string, 0, len(Journaled))
	for _, typ := range Journaled {
		ids = append(ids, bus.Subscribe(typ, func(e event.Event) {
			if err := w.Append(context.Background(), e); err != nil {
				w.logger().Warn("journal write failed", "event", e.EventType(), "error", err)
			}
		}))
	}
	return ids
}

func describe(e event.Event) (kind, id string, payload EventPayload, ok bool) {
	switch v := e.(type) {
	case event.TaskEvent:
		return "task", v.Task.ID, EventPayload{"task": v.Task}, true
	case event.WorkflowEvent:
		return "workflow", v.Workflow.ID, EventPayload{"workflow": v.Workflow}, true
	case event.DependencyEvent:
		p := EventPayload{"dependency": v.Dependency}
		if v.Reason != "" {
			p["reason"] = v.Reason
		}
		return "dependency", v.Dependency.FromID + "->" + v.Dependency.ToID, p, true
	case event.GranularityEvent:
		return "chart", "", EventPayload{"from": v.From, "to": v.To}, true
	case event.LoadedEvent:
		return "chart", "", EventPayload{"workflows": v.Workflows, "tasks": v.Tasks}, true
	}
	return "", "", nil, false
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}
