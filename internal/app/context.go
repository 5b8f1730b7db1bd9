// Package app assembles a chart session: config, engine, chart façade, and the
// in-memory journal.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"ganttline/internal/chart"
	"ganttline/internal/config"
	"ganttline/internal/db"
	"ganttline/internal/engine"
	"ganttline/internal/event"
	"ganttline/internal/events"
	"ganttline/internal/migrate"
	"ganttline/internal/repo"
	"ganttline/internal/seed"
)

type Options struct {
	Workspace string
	// ConfigPath overrides <workspace>/ganttline.yml.
	ConfigPath string
	// SeedPath overrides chart.seed from the config.
	SeedPath string
	Now      func() time.Time
	Logger   *slog.Logger
}

// Session is one running chart and its journal.
type Session struct {
	ID     string
	Config *config.Config
	Bus    *event.Bus
	Engine *engine.Engine
	Chart  *chart.Chart
	DB     *sql.DB
	Repo   repo.Repo
	Logger *slog.Logger
}

// ResolveConfig prefers an explicit path, then the workspace file, then the
// built-in defaults.
func ResolveConfig(workspace, path string) (*config.Config, error) {
	if path != "" {
		return config.FromFile(path)
	}
	cfg, err := config.LoadOptional(workspace)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		cfg = config.Default()
	}
	return cfg, nil
}

// Open builds a session, loads the seed schedule if one is configured, and
// attaches the chart's listeners.
func Open(ctx context.Context, opts Options) (*Session, error) {
	cfg, err := ResolveConfig(opts.Workspace, opts.ConfigPath)
	if err != nil {
		return nil, err
	}
	return OpenWithConfig(ctx, cfg, opts)
}

func OpenWithConfig(ctx context.Context, cfg *config.Config, opts Options) (*Session, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	clock := func() time.Time { return now().In(loc) }

	id := uuid.NewString()
	conn, err := db.Open(db.Config{Name: "ganttline-" + id})
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	if err := migrate.Migrate(ctx, conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate journal: %w", err)
	}

	bus := event.NewBus()
	bus.Logger = logger
	writer := events.Writer{DB: conn, SessionID: id, Now: clock, Logger: logger}
	if err := writer.StartSession(ctx, string(cfg.Granularity())); err != nil {
		conn.Close()
		return nil, err
	}
	writer.Subscribe(bus)

	eng := engine.New(engine.Options{
		Granularity: cfg.Granularity(),
		NewSchedule: cfg.Chart.NewSchedule,
		Bus:         bus,
		Logger:      logger,
		Now:         clock,
	})

	seedPath := opts.SeedPath
	if seedPath == "" {
		seedPath = cfg.Chart.Seed
	}
	if seedPath != "" {
		sched, err := seed.Load(seedPath, loc)
		if err != nil {
			conn.Close()
			return nil, err
		}
		if err := eng.Load(sched.Workflows, sched.Tasks); err != nil {
			conn.Close()
			return nil, fmt.Errorf("load seed: %w", err)
		}
		logger.Info("seed loaded", "path", seedPath, "workflows", len(sched.Workflows), "tasks", len(sched.Tasks))
	}

	c := chart.New(cfg, eng, chart.Options{Logger: logger})
	c.Attach()
	return &Session{
		ID:     id,
		Config: cfg,
		Bus:    bus,
		Engine: eng,
		Chart:  c,
		DB:     conn,
		Repo:   repo.Repo{DB: conn},
		Logger: logger,
	}, nil
}

// Close detaches the chart and drops the journal.
func (s *Session) Close() error {
	s.Chart.Detach()
	return s.DB.Close()
}
