package app_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"ganttline/internal/app"
	"ganttline/internal/event"
	"ganttline/internal/repo"
)

var testNow = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

const seedDoc = `workflows:
  - {id: wf, name: Build, rowIndex: 0}
tasks:
  - {id: a, workflowId: wf, rowIndex: 0, title: A, startDate: 2024-01-10, duration: 2d, dependencies: [{fromId: a, toId: b}]}
  - {id: b, workflowId: wf, rowIndex: 1, title: B, startDate: 2024-01-10, duration: 1d}
`

func TestOpenLoadsSeedAndJournals(t *testing.T) {
	dir := t.TempDir()
	seedPath := filepath.Join(dir, "seed.yml")
	if err := os.WriteFile(seedPath, []byte(seedDoc), 0o644); err != nil {
		t.Fatalf("write seed: %v", err)
	}
	ctx := context.Background()
	s, err := app.Open(ctx, app.Options{Workspace: dir, SeedPath: seedPath, Now: func() time.Time { return testNow }})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()

	b, ok := s.Engine.State().Task("b")
	if !ok || !b.StartDate.Equal(time.Date(2024, 1, 12, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("b: %+v", b)
	}
	evts, err := s.Repo.ListEvents(ctx, repo.EventFilter{})
	if err != nil {
		t.Fatalf("events: %v", err)
	}
	if len(evts) != 1 || evts[0].Type != event.ScheduleLoaded {
		t.Fatalf("expected one load event, got %+v", evts)
	}
	if _, err := s.Repo.GetSession(ctx, s.ID); err != nil {
		t.Fatalf("session row: %v", err)
	}
}

func TestOpenWithoutConfigUsesDefaults(t *testing.T) {
	s, err := app.Open(context.Background(), app.Options{Workspace: t.TempDir()})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()
	if s.Config.Server.Addr != "127.0.0.1:8080" || len(s.Engine.State().Tasks) != 0 {
		t.Fatalf("unexpected session: %+v", s.Config)
	}
	if _, err := app.Open(context.Background(), app.Options{ConfigPath: filepath.Join(t.TempDir(), "none.yml")}); err == nil {
		t.Fatalf("explicit missing config should fail")
	}
}
