package server

import (
	"encoding/json"
	"time"

	"ganttline/internal/domain"
	"ganttline/internal/engine"
	"ganttline/internal/interact"
	"ganttline/internal/layout"
	"ganttline/internal/repo"
	"ganttline/internal/window"
)

// Request payloads

type CreateWorkflowRequest struct {
	ID   *string `json:"id,omitempty"`
	Name string  `json:"name"`
}

type UpdateWorkflowRequest struct {
	Name     *string `json:"name,omitempty"`
	RowIndex *int    `json:"row_index,omitempty"`
}

type CreateTaskRequest struct {
	ID    *string `json:"id,omitempty"`
	Title string  `json:"title,omitempty"`
	Team  string  `json:"team,omitempty"`
}

type UpdateTaskRequest struct {
	Title     *string    `json:"title,omitempty"`
	Team      *string    `json:"team,omitempty"`
	RowIndex  *int       `json:"row_index,omitempty"`
	StartDate *time.Time `json:"start_date,omitempty"`
	// Duration is stored as sent; a token outside <n>[mhdw] marks the task invalid.
	Duration *string `json:"duration,omitempty"`
}

func (r UpdateTaskRequest) patch() engine.TaskPatch {
	return engine.TaskPatch{
		Title:     r.Title,
		Team:      r.Team,
		RowIndex:  r.RowIndex,
		StartDate: r.StartDate,
		Duration:  r.Duration,
	}
}

type AddDependencyRequest struct {
	FromID       string `json:"from_id"`
	ToID         string `json:"to_id"`
	FromPosition string `json:"from_position,omitempty" enum:"left,right"`
	ToPosition   string `json:"to_position,omitempty" enum:"left,right"`
	Direction    string `json:"direction,omitempty" enum:"forward,backward,both"`
}

func (r AddDependencyRequest) dependency() domain.Dependency {
	return domain.Dependency{
		FromID:       r.FromID,
		ToID:         r.ToID,
		FromPosition: domain.Side(r.FromPosition),
		ToPosition:   domain.Side(r.ToPosition),
		Direction:    domain.Direction(r.Direction),
	}
}

type ChangeDirectionRequest struct {
	Direction string `json:"direction" enum:"forward,backward,both"`
}

type ViewportRequest struct {
	Surface string   `json:"surface,omitempty" enum:"timeline,details"`
	Left    float64  `json:"left"`
	Top     float64  `json:"top"`
	Width   *float64 `json:"width,omitempty"`
	Height  *float64 `json:"height,omitempty"`
}

type GranularityRequest struct {
	Granularity string `json:"granularity" enum:"hours,days,weeks,months"`
}

// PointerRequest coordinates are in the same content space as the frame
// geometry, so clients add the timeline scroll offsets to viewport positions.
type PointerRequest struct {
	Type string  `json:"type" enum:"down,move,up,leave,hover,click,outside_click"`
	X    float64 `json:"x" doc:"Content-space x: viewport x plus timeline scroll left"`
	Y    float64 `json:"y" doc:"Content-space y: viewport y plus timeline scroll top"`
}

type MenuRequest struct {
	Action string `json:"action" enum:"forward,backward,both,remove,close"`
}

// Response payloads

type OffsetResponse struct {
	Left float64 `json:"left"`
	Top  float64 `json:"top"`
}

type ChartResponse struct {
	SessionID           string            `json:"session_id"`
	Granularity         string            `json:"granularity"`
	Now                 time.Time         `json:"now"`
	ReferenceDate       time.Time         `json:"reference_date"`
	EarliestStartDate   time.Time         `json:"earliest_start_date"`
	LatestFinishDate    time.Time         `json:"latest_finish_date"`
	CurrentVisibleIndex int               `json:"current_visible_index"`
	Window              window.Range      `json:"window"`
	Timeline            OffsetResponse    `json:"timeline"`
	Details             OffsetResponse    `json:"details"`
	ViewportWidth       float64           `json:"viewport_width"`
	ViewportHeight      float64           `json:"viewport_height"`
	Workflows           []domain.Workflow `json:"workflows"`
	TaskCount           int               `json:"task_count"`
}

type FrameResponse struct {
	Granularity string                 `json:"granularity"`
	Window      window.Range           `json:"window"`
	TotalRows   int                    `json:"total_rows"`
	TotalCols   int                    `json:"total_cols"`
	ColWidth    float64                `json:"col_width"`
	RowHeight   float64                `json:"row_height"`
	NowX        float64                `json:"now_x"`
	Items       []layout.Item          `json:"items"`
	Geometry    map[string]layout.Rect `json:"geometry"`
	Edges       []layout.Edge          `json:"edges"`
	Interaction interact.View          `json:"interaction"`
}

func frameResponse(f layout.Frame, v interact.View) FrameResponse {
	return FrameResponse{
		Granularity: string(f.Granularity),
		Window:      f.Window,
		TotalRows:   f.TotalRows,
		TotalCols:   f.TotalCols,
		ColWidth:    f.ColWidth,
		RowHeight:   f.RowHeight,
		NowX:        f.NowX,
		Items:       f.Items(),
		Geometry:    f.Geometry,
		Edges:       f.Edges,
		Interaction: v,
	}
}

type paginatedEvents struct {
	Items      []EventResponse `json:"items"`
	NextCursor string          `json:"next_cursor,omitempty"`
}

type EventResponse struct {
	ID         int64          `json:"id"`
	TS         time.Time      `json:"ts"`
	Type       string         `json:"type"`
	EntityKind string         `json:"entity_kind"`
	EntityID   string         `json:"entity_id,omitempty"`
	Payload    map[string]any `json:"payload"`
}

func eventResponse(e repo.Event) EventResponse {
	payload := map[string]any{}
	if len(e.Payload) > 0 {
		_ = json.Unmarshal(e.Payload, &payload)
	}
	return EventResponse{
		ID:         e.ID,
		TS:         e.TS,
		Type:       e.Type,
		EntityKind: e.EntityKind,
		EntityID:   e.EntityID,
		Payload:    payload,
	}
}
