package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"ganttline/internal/app"
	"ganttline/internal/config"
	"ganttline/internal/domain"
	"ganttline/internal/interact"
)

var testNow = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func day(d int) time.Time {
	return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC)
}

type testEnv struct {
	URL     string
	Session *app.Session
	client  *http.Client
}

func newTestEnv(t *testing.T, auth AuthConfig) *testEnv {
	t.Helper()
	s, err := app.OpenWithConfig(context.Background(), config.Default(), app.Options{Now: func() time.Time { return testNow }})
	if err != nil {
		t.Fatalf("open session: %v", err)
	}
	handler, err := New(Config{Session: s, BasePath: "/v0", Auth: auth})
	if err != nil {
		t.Fatalf("build handler: %v", err)
	}
	srv := httptest.NewServer(handler)
	t.Cleanup(func() {
		srv.Close()
		s.Close()
	})
	return &testEnv{URL: srv.URL, Session: s, client: srv.Client()}
}

func doJSON(t *testing.T, client *http.Client, method, url string, body any, headers map[string]string) (*http.Response, []byte) {
	t.Helper()
	var reader io.Reader = bytes.NewReader(nil)
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	res, err := client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer res.Body.Close()
	data, err := io.ReadAll(res.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return res, data
}

func (env *testEnv) do(t *testing.T, method, path string, body any, wantStatus int) []byte {
	t.Helper()
	res, data := doJSON(t, env.client, method, env.URL+"/v0"+path, body, nil)
	if res.StatusCode != wantStatus {
		t.Fatalf("%s %s: status %d want %d: %s", method, path, res.StatusCode, wantStatus, string(data))
	}
	return data
}

// loadSchedule puts a (day 10, 2d) and b (day 15, 1d) into one workflow. With
// the default geometry a sits at x=48..144 on row 3 and b at x=288..336 on row 4.
func (env *testEnv) loadSchedule(t *testing.T) {
	t.Helper()
	env.do(t, http.MethodPut, "/schedule", map[string]any{
		"workflows": []map[string]any{{"id": "wf", "name": "Build"}},
		"tasks": []map[string]any{
			{"id": "a", "workflowId": "wf", "rowIndex": 0, "title": "A", "startDate": "2024-01-10", "duration": "2d"},
			{"id": "b", "workflowId": "wf", "rowIndex": 1, "title": "B", "startDate": "2024-01-15", "duration": "1d"},
		},
	}, http.StatusOK)
}

func TestHealthAndAuth(t *testing.T) {
	env := newTestEnv(t, AuthConfig{JWTSecret: "s3cret"})
	env.do(t, http.MethodGet, "/health", nil, http.StatusOK)

	res, data := doJSON(t, env.client, http.MethodGet, env.URL+"/v0/chart", nil, nil)
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d %s", res.StatusCode, string(data))
	}
	var envelope struct {
		Error apiErrorBody `json:"error"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil || envelope.Error.Code != "unauthorized" {
		t.Fatalf("error envelope: %s %v", string(data), err)
	}

	res, _ = doJSON(t, env.client, http.MethodGet, env.URL+"/v0/chart", nil, map[string]string{"Authorization": "Bearer nope"})
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("bad token: got %d", res.StatusCode)
	}

	token, err := IssueToken("s3cret", "planner", time.Hour, time.Now())
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	res, data = doJSON(t, env.client, http.MethodGet, env.URL+"/v0/chart", nil, map[string]string{"Authorization": "Bearer " + token})
	if res.StatusCode != http.StatusOK {
		t.Fatalf("authorized request: %d %s", res.StatusCode, string(data))
	}
}

func TestCreateAndPropagate(t *testing.T) {
	env := newTestEnv(t, AuthConfig{})
	var wf domain.Workflow
	if err := json.Unmarshal(env.do(t, http.MethodPost, "/workflows", map[string]any{"id": "wf", "name": "Build"}, http.StatusCreated), &wf); err != nil {
		t.Fatalf("decode workflow: %v", err)
	}
	if wf.RowIndex != 0 || !wf.StartDate.Equal(testNow) {
		t.Fatalf("workflow defaults: %+v", wf)
	}
	env.do(t, http.MethodPost, "/workflows", map[string]any{"id": "wf", "name": "Again"}, http.StatusConflict)

	for _, id := range []string{"x", "y"} {
		var task domain.Task
		if err := json.Unmarshal(env.do(t, http.MethodPost, "/workflows/wf/tasks", map[string]any{"id": id, "title": id}, http.StatusCreated), &task); err != nil {
			t.Fatalf("decode task: %v", err)
		}
		if task.Duration != "1d" || !task.StartDate.Equal(testNow) {
			t.Fatalf("task defaults: %+v", task)
		}
	}
	env.do(t, http.MethodPost, "/workflows/missing/tasks", map[string]any{"title": "z"}, http.StatusNotFound)

	env.do(t, http.MethodPatch, "/tasks/x", map[string]any{"start_date": day(10), "duration": "2d"}, http.StatusOK)
	env.do(t, http.MethodPatch, "/tasks/y", map[string]any{"start_date": day(10)}, http.StatusOK)
	env.do(t, http.MethodPost, "/dependencies", map[string]any{"from_id": "x", "to_id": "y"}, http.StatusCreated)

	var y domain.Task
	if err := json.Unmarshal(env.do(t, http.MethodGet, "/tasks/y", nil, http.StatusOK), &y); err != nil {
		t.Fatalf("decode y: %v", err)
	}
	if !y.EarliestAllowedStartDate.Equal(day(11)) || !y.StartDate.Equal(day(12)) {
		t.Fatalf("propagation: earliest %v start %v", y.EarliestAllowedStartDate, y.StartDate)
	}

	env.do(t, http.MethodPatch, "/tasks/y", map[string]any{"duration": "two days"}, http.StatusOK)
	var invalid []domain.Task
	if err := json.Unmarshal(env.do(t, http.MethodGet, "/tasks?invalid=true", nil, http.StatusOK), &invalid); err != nil {
		t.Fatalf("decode tasks: %v", err)
	}
	if len(invalid) != 1 || invalid[0].ID != "y" || invalid[0].Duration != "two days" {
		t.Fatalf("invalid tasks: %+v", invalid)
	}
	env.do(t, http.MethodPatch, "/tasks/nope", map[string]any{"title": "n"}, http.StatusNotFound)
}

func TestDependencyLifecycle(t *testing.T) {
	env := newTestEnv(t, AuthConfig{})
	env.loadSchedule(t)

	data := env.do(t, http.MethodPost, "/dependencies", map[string]any{"from_id": "b", "to_id": "a"}, http.StatusConflict)
	var envelope struct {
		Error apiErrorBody `json:"error"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if envelope.Error.Code != "dependency_rejected" || envelope.Error.Details["reason"] != "target-before-source" {
		t.Fatalf("rejection envelope: %+v", envelope.Error)
	}
	env.do(t, http.MethodPost, "/dependencies", map[string]any{"from_id": "a", "to_id": "a"}, http.StatusConflict)

	var dep domain.Dependency
	if err := json.Unmarshal(env.do(t, http.MethodPost, "/dependencies", map[string]any{"from_id": "a", "to_id": "b"}, http.StatusCreated), &dep); err != nil {
		t.Fatalf("decode dependency: %v", err)
	}
	if dep.FromPosition != domain.SideRight || dep.ToPosition != domain.SideLeft || dep.Direction != domain.DirectionForward {
		t.Fatalf("defaults: %+v", dep)
	}
	if err := json.Unmarshal(env.do(t, http.MethodPatch, "/dependencies/a/b", map[string]any{"direction": "both"}, http.StatusOK), &dep); err != nil || dep.Direction != domain.DirectionBoth {
		t.Fatalf("direction: %+v %v", dep, err)
	}
	env.do(t, http.MethodDelete, "/dependencies/a/b", nil, http.StatusNoContent)
	env.do(t, http.MethodDelete, "/dependencies/a/b", nil, http.StatusNotFound)

	var page paginatedEvents
	if err := json.Unmarshal(env.do(t, http.MethodGet, "/events?type=dependency.rejected", nil, http.StatusOK), &page); err != nil {
		t.Fatalf("decode events: %v", err)
	}
	if len(page.Items) != 2 || page.Items[0].Payload["reason"] != "target-before-source" {
		t.Fatalf("rejections journaled: %+v", page.Items)
	}
	if err := json.Unmarshal(env.do(t, http.MethodGet, "/events?limit=1", nil, http.StatusOK), &page); err != nil {
		t.Fatalf("decode events: %v", err)
	}
	if len(page.Items) != 1 || page.NextCursor == "" {
		t.Fatalf("pagination: %+v", page)
	}
	env.do(t, http.MethodGet, "/events?cursor=abc", nil, http.StatusBadRequest)
}

func TestPointerDragAndEdgeMenu(t *testing.T) {
	env := newTestEnv(t, AuthConfig{})
	env.loadSchedule(t)

	var frame FrameResponse
	if err := json.Unmarshal(env.do(t, http.MethodGet, "/chart/frame", nil, http.StatusOK), &frame); err != nil {
		t.Fatalf("decode frame: %v", err)
	}
	if r := frame.Geometry["a"]; r.X != 48 || r.Y != 96 || r.Width != 96 {
		t.Fatalf("a geometry: %+v", r)
	}

	var view interact.View
	if err := json.Unmarshal(env.do(t, http.MethodPost, "/pointer", map[string]any{"type": "down", "x": 100, "y": 110}, http.StatusOK), &view); err != nil {
		t.Fatalf("decode view: %v", err)
	}
	if view.Mode != interact.DraggingMove {
		t.Fatalf("mode after down: %s", view.Mode)
	}
	env.do(t, http.MethodPost, "/pointer", map[string]any{"type": "move", "x": 148, "y": 110}, http.StatusOK)
	if err := json.Unmarshal(env.do(t, http.MethodPost, "/pointer", map[string]any{"type": "up", "x": 148, "y": 110}, http.StatusOK), &view); err != nil {
		t.Fatalf("decode view: %v", err)
	}
	if view.Mode != interact.Idle {
		t.Fatalf("mode after up: %s", view.Mode)
	}
	a, _ := env.Session.Engine.State().Task("a")
	if !a.StartDate.Equal(day(11)) {
		t.Fatalf("a start: got %v", a.StartDate)
	}

	env.do(t, http.MethodPost, "/pointer", map[string]any{"type": "wiggle", "x": 0, "y": 0}, http.StatusBadRequest)
	env.do(t, http.MethodPost, "/chart/menu", map[string]any{"action": "remove"}, http.StatusConflict)
}

func TestViewportAndGranularity(t *testing.T) {
	env := newTestEnv(t, AuthConfig{})
	env.loadSchedule(t)

	var chart ChartResponse
	if err := json.Unmarshal(env.do(t, http.MethodPut, "/chart/viewport", map[string]any{"left": 100, "top": 0, "width": 640}, http.StatusOK), &chart); err != nil {
		t.Fatalf("decode chart: %v", err)
	}
	if chart.CurrentVisibleIndex != 3 || chart.ViewportWidth != 640 || chart.Timeline.Left != 100 {
		t.Fatalf("viewport: %+v", chart)
	}
	if err := json.Unmarshal(env.do(t, http.MethodPut, "/chart/granularity", map[string]any{"granularity": "hours"}, http.StatusOK), &chart); err != nil {
		t.Fatalf("decode chart: %v", err)
	}
	if chart.Granularity != "hours" || chart.Timeline.Left != 2400 {
		t.Fatalf("granularity: %+v", chart)
	}
	env.do(t, http.MethodPut, "/chart/granularity", map[string]any{"granularity": "fortnights"}, http.StatusBadRequest)
}

func TestScheduleExportAndRejectedLoad(t *testing.T) {
	env := newTestEnv(t, AuthConfig{})
	env.loadSchedule(t)
	var exported struct {
		Tasks []struct {
			ID        string `json:"id"`
			StartDate string `json:"startDate"`
		} `json:"tasks"`
	}
	if err := json.Unmarshal(env.do(t, http.MethodGet, "/schedule", nil, http.StatusOK), &exported); err != nil {
		t.Fatalf("decode schedule: %v", err)
	}
	if len(exported.Tasks) != 2 || exported.Tasks[0].StartDate != "2024-01-10T00:00:00Z" {
		t.Fatalf("export: %+v", exported)
	}
	env.do(t, http.MethodPut, "/schedule", map[string]any{
		"workflows": []map[string]any{{"id": "wf"}},
		"tasks":     []map[string]any{{"id": "a", "workflowId": "ghost"}},
	}, http.StatusBadRequest)
	env.do(t, http.MethodPut, "/schedule", map[string]any{
		"workflows": []map[string]any{{"id": "wf"}},
		"tasks": []map[string]any{{
			"id": "a", "workflowId": "wf", "startDate": "2024-01-05", "duration": "1d",
			"dependencies": []map[string]any{{"toId": "a"}},
		}},
	}, http.StatusBadRequest)
	if n := len(env.Session.Engine.State().Tasks); n != 2 {
		t.Fatalf("rejected load must not change the store, got %d tasks", n)
	}
}

func TestWebhookDelivery(t *testing.T) {
	env := newTestEnv(t, AuthConfig{})
	var (
		mu       sync.Mutex
		received []webhookEvent
		headers  []string
	)
	hook := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var evt webhookEvent
		_ = json.NewDecoder(r.Body).Decode(&evt)
		mu.Lock()
		received = append(received, evt)
		headers = append(headers, r.Header.Get("X-Ganttline-Secret"))
		mu.Unlock()
	}))
	defer hook.Close()

	d := &WebhookDispatcher{
		Repo:      env.Session.Repo,
		SessionID: env.Session.ID,
		Hooks:     []config.WebhookConfig{{URL: hook.URL, Events: []string{"workflow.created"}, Secret: "k"}},
	}
	ctx := context.Background()
	d.cursorFor(ctx, 0)
	env.do(t, http.MethodPost, "/workflows", map[string]any{"id": "wf", "name": "Build"}, http.StatusCreated)
	env.do(t, http.MethodPost, "/workflows/wf/tasks", map[string]any{"id": "t1"}, http.StatusCreated)
	d.DispatchAll(ctx)

	mu.Lock()
	defer mu.Unlock()
	if len(received) != 1 || received[0].Type != "workflow.created" || received[0].EntityID != "wf" {
		t.Fatalf("deliveries: %+v", received)
	}
	if headers[0] != "k" || received[0].SessionID != env.Session.ID {
		t.Fatalf("delivery metadata: %v %+v", headers, received[0])
	}
}

func TestStartClockTicks(t *testing.T) {
	env := newTestEnv(t, AuthConfig{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	later := day(3)
	StartClock(ctx, env.Session.Bus, 5*time.Millisecond, func() time.Time { return later })
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if env.Session.Engine.State().Now.Equal(later) {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("clock tick never reached the engine")
}
