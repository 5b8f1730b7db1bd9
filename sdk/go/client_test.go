package ganttlinesdk_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"ganttline/internal/app"
	"ganttline/internal/config"
	"ganttline/internal/server"
	ganttlinesdk "ganttline/sdk/go"
)

var now = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func newClient(t *testing.T) *ganttlinesdk.Client {
	t.Helper()
	s, err := app.OpenWithConfig(context.Background(), config.Default(), app.Options{Now: func() time.Time { return now }})
	if err != nil {
		t.Fatalf("open session: %v", err)
	}
	handler, err := server.New(server.Config{Session: s, BasePath: "/v0"})
	if err != nil {
		t.Fatalf("build handler: %v", err)
	}
	srv := httptest.NewServer(handler)
	t.Cleanup(func() {
		srv.Close()
		s.Close()
	})
	c := ganttlinesdk.New(srv.URL + "/v0")
	c.HTTPClient = srv.Client()
	return c
}

func TestClientRoundTrip(t *testing.T) {
	ctx := context.Background()
	c := newClient(t)
	if err := c.Health(ctx); err != nil {
		t.Fatalf("health: %v", err)
	}
	if _, err := c.CreateWorkflow(ctx, "wf", "Build"); err != nil {
		t.Fatalf("create workflow: %v", err)
	}
	for _, id := range []string{"x", "y"} {
		if _, err := c.CreateTask(ctx, "wf", id, id); err != nil {
			t.Fatalf("create task %s: %v", id, err)
		}
	}
	start := now.AddDate(0, 0, 9)
	dur := "2d"
	if _, err := c.UpdateTask(ctx, "x", ganttlinesdk.TaskUpdate{StartDate: &start, Duration: &dur}); err != nil {
		t.Fatalf("update x: %v", err)
	}
	later := now.AddDate(0, 0, 14)
	if _, err := c.UpdateTask(ctx, "y", ganttlinesdk.TaskUpdate{StartDate: &later}); err != nil {
		t.Fatalf("update y: %v", err)
	}
	if _, err := c.AddDependency(ctx, ganttlinesdk.Dependency{FromID: "x", ToID: "y"}); err != nil {
		t.Fatalf("add dependency: %v", err)
	}
	y, err := c.Task(ctx, "y")
	if err != nil {
		t.Fatalf("get y: %v", err)
	}
	if want := now.AddDate(0, 0, 10); !y.EarliestAllowedStartDate.Equal(want) {
		t.Fatalf("earliest allowed: got %v want %v", y.EarliestAllowedStartDate, want)
	}

	_, err = c.AddDependency(ctx, ganttlinesdk.Dependency{FromID: "x", ToID: "y"})
	if reason, ok := ganttlinesdk.IsRejected(err); !ok || reason != "duplicate" {
		t.Fatalf("duplicate edge: %v", err)
	}

	f, err := c.Frame(ctx)
	if err != nil {
		t.Fatalf("frame: %v", err)
	}
	if _, ok := f.Geometry["x"]; !ok || f.ColWidth != 48 {
		t.Fatalf("frame: %+v", f)
	}

	if err := c.RemoveDependency(ctx, "x", "y"); err != nil {
		t.Fatalf("remove dependency: %v", err)
	}
	events, err := c.Events(ctx, 100)
	if err != nil {
		t.Fatalf("events: %v", err)
	}
	// The removal is journaled first, then y's earliest date falling back to the
	// reference date.
	removed := -1
	for i, e := range events {
		if e.Type == "dependency.removed" && e.EntityID == "x->y" {
			removed = i
		}
	}
	if removed < 0 {
		t.Fatalf("dependency.removed not journaled: %+v", events)
	}
	followUp := false
	for _, e := range events[removed+1:] {
		followUp = followUp || (e.Type == "task.updated" && e.EntityID == "y")
	}
	if !followUp {
		t.Fatalf("expected task.updated for y after the removal: %+v", events[removed:])
	}
}

func TestClientErrors(t *testing.T) {
	ctx := context.Background()
	c := newClient(t)
	_, err := c.Task(ctx, "missing")
	apiErr, ok := err.(*ganttlinesdk.APIError)
	if !ok || apiErr.StatusCode != http.StatusNotFound || apiErr.Code != "not_found" {
		t.Fatalf("expected not_found, got %v", err)
	}
	if _, ok := ganttlinesdk.IsRejected(err); ok {
		t.Fatalf("not found is not a rejection")
	}
	ch, err := c.SetGranularity(ctx, "weeks")
	if err != nil || ch.Granularity != "weeks" {
		t.Fatalf("granularity: %+v %v", ch, err)
	}
}
