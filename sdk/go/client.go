package ganttlinesdk

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client is a minimal Ganttline HTTP API client.
type Client struct {
	// BaseURL includes the server base path, e.g. http://localhost:8080/v0.
	BaseURL     string
	BearerToken string
	HTTPClient  *http.Client
	Timeout     time.Duration
}

// New creates a client with sane defaults.
func New(baseURL string) *Client {
	return &Client{
		BaseURL: baseURL,
		Timeout: 10 * time.Second,
	}
}

type Workflow struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	RowIndex   int       `json:"row_index"`
	StartDate  time.Time `json:"start_date"`
	FinishDate time.Time `json:"finish_date"`
	Duration   int       `json:"duration"`
}

type Dependency struct {
	FromID       string `json:"from_id"`
	ToID         string `json:"to_id"`
	FromPosition string `json:"from_position,omitempty"`
	ToPosition   string `json:"to_position,omitempty"`
	Direction    string `json:"direction,omitempty"`
}

// Task represents the API task model including derived fields.
type Task struct {
	ID                       string       `json:"id"`
	WorkflowID               string       `json:"workflow_id"`
	Title                    string       `json:"title"`
	Team                     string       `json:"team"`
	RowIndex                 int          `json:"row_index"`
	StartDate                time.Time    `json:"start_date"`
	Duration                 string       `json:"duration"`
	Dependencies             []Dependency `json:"dependencies"`
	EarliestAllowedStartDate time.Time    `json:"earliest_allowed_start_date"`
	IsValid                  bool         `json:"is_valid"`
}

// TaskUpdate carries the fields to change; nil fields are left alone.
type TaskUpdate struct {
	Title     *string    `json:"title,omitempty"`
	Team      *string    `json:"team,omitempty"`
	RowIndex  *int       `json:"row_index,omitempty"`
	StartDate *time.Time `json:"start_date,omitempty"`
	Duration  *string    `json:"duration,omitempty"`
}

type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

type Item struct {
	Row        int    `json:"row"`
	Type       string `json:"type"`
	ID         string `json:"id"`
	WorkflowID string `json:"workflow_id"`
	Title      string `json:"title"`
	Rect       Rect   `json:"rect"`
	StartIndex int    `json:"start_index"`
	EndIndex   int    `json:"end_index"`
}

type Range struct {
	StartRow int `json:"start_row"`
	EndRow   int `json:"end_row"`
	StartCol int `json:"start_col"`
	EndCol   int `json:"end_col"`
}

type Offset struct {
	Left float64 `json:"left"`
	Top  float64 `json:"top"`
}

// Chart summarises the session (partial).
type Chart struct {
	SessionID           string    `json:"session_id"`
	Granularity         string    `json:"granularity"`
	Now                 time.Time `json:"now"`
	ReferenceDate       time.Time `json:"reference_date"`
	CurrentVisibleIndex int       `json:"current_visible_index"`
	Window              Range     `json:"window"`
	Timeline            Offset    `json:"timeline"`
	Details             Offset    `json:"details"`
	TaskCount           int       `json:"task_count"`
}

// Frame is the visible slice of the chart (partial).
type Frame struct {
	Granularity string          `json:"granularity"`
	Window      Range           `json:"window"`
	TotalRows   int             `json:"total_rows"`
	TotalCols   int             `json:"total_cols"`
	ColWidth    float64         `json:"col_width"`
	RowHeight   float64         `json:"row_height"`
	Items       []Item          `json:"items"`
	Geometry    map[string]Rect `json:"geometry"`
	Interaction map[string]any  `json:"interaction"`
}

// Event represents a journal entry.
type Event struct {
	ID         int64          `json:"id"`
	TS         string         `json:"ts"`
	Type       string         `json:"type"`
	EntityKind string         `json:"entity_kind"`
	EntityID   string         `json:"entity_id"`
	Payload    map[string]any `json:"payload"`
}

// PaginatedEvents wraps list responses with cursors.
type PaginatedEvents struct {
	Items      []Event `json:"items"`
	NextCursor string  `json:"next_cursor"`
}

// APIError wraps non-2xx responses.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	Details    map[string]any
	Body       string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("api error: status=%d code=%s message=%s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

// IsRejected reports whether err is a dependency rejection and returns its reason.
func IsRejected(err error) (string, bool) {
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Code != "dependency_rejected" {
		return "", false
	}
	reason, _ := apiErr.Details["reason"].(string)
	return reason, true
}

func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "health", nil, nil)
}

// Frame returns the visible frame for the server's current viewport.
func (c *Client) Frame(ctx context.Context) (Frame, error) {
	var resp Frame
	err := c.do(ctx, http.MethodGet, "chart/frame", nil, &resp)
	return resp, err
}

func (c *Client) Chart(ctx context.Context) (Chart, error) {
	var resp Chart
	err := c.do(ctx, http.MethodGet, "chart", nil, &resp)
	return resp, err
}

// Scroll moves the timeline (or details) pane.
func (c *Client) Scroll(ctx context.Context, surface string, left, top float64) (Chart, error) {
	body := map[string]any{"surface": surface, "left": left, "top": top}
	var resp Chart
	err := c.do(ctx, http.MethodPut, "chart/viewport", body, &resp)
	return resp, err
}

func (c *Client) SetGranularity(ctx context.Context, granularity string) (Chart, error) {
	var resp Chart
	err := c.do(ctx, http.MethodPut, "chart/granularity", map[string]any{"granularity": granularity}, &resp)
	return resp, err
}

func (c *Client) Workflows(ctx context.Context) ([]Workflow, error) {
	var resp []Workflow
	err := c.do(ctx, http.MethodGet, "workflows", nil, &resp)
	return resp, err
}

// CreateWorkflow creates a workflow. An empty id lets the server assign one.
func (c *Client) CreateWorkflow(ctx context.Context, id, name string) (Workflow, error) {
	body := map[string]any{"name": name}
	if id != "" {
		body["id"] = id
	}
	var resp Workflow
	err := c.do(ctx, http.MethodPost, "workflows", body, &resp)
	return resp, err
}

// CreateTask appends a task to a workflow.
func (c *Client) CreateTask(ctx context.Context, workflowID, id, title string) (Task, error) {
	body := map[string]any{"title": title}
	if id != "" {
		body["id"] = id
	}
	var resp Task
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("workflows/%s/tasks", url.PathEscape(workflowID)), body, &resp)
	return resp, err
}

func (c *Client) Task(ctx context.Context, id string) (Task, error) {
	var resp Task
	err := c.do(ctx, http.MethodGet, "tasks/"+url.PathEscape(id), nil, &resp)
	return resp, err
}

// Tasks lists tasks, optionally limited to one workflow.
func (c *Client) Tasks(ctx context.Context, workflowID string) ([]Task, error) {
	endpoint := "tasks"
	if workflowID != "" {
		endpoint += "?workflow_id=" + url.QueryEscape(workflowID)
	}
	var resp []Task
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

func (c *Client) UpdateTask(ctx context.Context, id string, update TaskUpdate) (Task, error) {
	var resp Task
	err := c.do(ctx, http.MethodPatch, "tasks/"+url.PathEscape(id), update, &resp)
	return resp, err
}

// AddDependency adds an edge. A rejection comes back as an *APIError; see IsRejected.
func (c *Client) AddDependency(ctx context.Context, d Dependency) (Dependency, error) {
	var resp Dependency
	err := c.do(ctx, http.MethodPost, "dependencies", d, &resp)
	return resp, err
}

func (c *Client) ChangeDirection(ctx context.Context, fromID, toID, direction string) (Dependency, error) {
	var resp Dependency
	err := c.do(ctx, http.MethodPatch, dependencyPath(fromID, toID), map[string]any{"direction": direction}, &resp)
	return resp, err
}

func (c *Client) RemoveDependency(ctx context.Context, fromID, toID string) error {
	return c.do(ctx, http.MethodDelete, dependencyPath(fromID, toID), nil, nil)
}

// Pointer sends one pointer event and returns the interaction state. x and y are
// content-space coordinates: viewport position plus the timeline scroll offsets.
func (c *Client) Pointer(ctx context.Context, typ string, x, y float64) (map[string]any, error) {
	var resp map[string]any
	err := c.do(ctx, http.MethodPost, "pointer", map[string]any{"type": typ, "x": x, "y": y}, &resp)
	return resp, err
}

// Events returns journal entries from the start of the session.
func (c *Client) Events(ctx context.Context, limit int) ([]Event, error) {
	page, err := c.EventsPage(ctx, limit, "")
	return page.Items, err
}

// EventsPage returns a paginated event listing.
func (c *Client) EventsPage(ctx context.Context, limit int, cursor string) (PaginatedEvents, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", fmt.Sprint(limit))
	}
	if cursor != "" {
		q.Set("cursor", cursor)
	}
	endpoint := "events"
	if len(q) > 0 {
		endpoint += "?" + q.Encode()
	}
	var resp PaginatedEvents
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

func dependencyPath(fromID, toID string) string {
	return fmt.Sprintf("dependencies/%s/%s", url.PathEscape(fromID), url.PathEscape(toID))
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	target := c.base() + "/" + strings.TrimLeft(endpoint, "/")
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, target, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.BearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.BearerToken)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		apiErr := &APIError{StatusCode: resp.StatusCode, Body: string(b)}
		var envelope struct {
			Error struct {
				Code    string         `json:"code"`
				Message string         `json:"message"`
				Details map[string]any `json:"details"`
			} `json:"error"`
		}
		if json.Unmarshal(b, &envelope) == nil {
			apiErr.Code = envelope.Error.Code
			apiErr.Message = envelope.Error.Message
			apiErr.Details = envelope.Error.Details
		}
		return apiErr
	}
	if out != nil && resp.StatusCode != http.StatusNoContent {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *Client) base() string {
	return strings.TrimRight(c.BaseURL, "/")
}
