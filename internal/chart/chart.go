// Package chart ties the schedule engine, the viewport, the layout calculator and
// the interaction machine together behind one object a host can drive with input
// events.
package chart

import (
	"log/slog"
	"math"
	"sync"

	"ganttline/internal/config"
	"ganttline/internal/engine"
	"ganttline/internal/event"
	"ganttline/internal/interact"
	"ganttline/internal/layout"
	"ganttline/internal/timeindex"
	"ganttline/internal/window"
)

type Chart struct {
	Engine  *engine.Engine
	Machine *interact.Machine
	Bus     *event.Bus
	Logger  *slog.Logger

	cfg *config.Config

	mu       sync.Mutex
	viewport window.Viewport
	subs     []string
}

type Options struct {
	Logger *slog.Logger
}

// New builds a chart over eng using the geometry in cfg. Input listeners are not
// registered until Attach.
func New(cfg *config.Config, eng *engine.Engine, opts Options) *Chart {
	c := &Chart{
		Engine: eng,
		Bus:    eng.Bus,
		Logger: opts.Logger,
		cfg:    cfg,
	}
	c.viewport.Resize(cfg.Viewport.Width, cfg.Viewport.Height)
	c.Machine = interact.New(eng, interact.Options{
		MinWidth:       cfg.Interaction.MinInteractiveWidth,
		HoverThreshold: cfg.Interaction.HoverThreshold,
		EndpointMargin: cfg.Interaction.EndpointMargin,
		Logger:         opts.Logger,
	})
	c.refresh()
	return c
}

func (c *Chart) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}

var changeTypes = []string{
	event.TaskCreated,
	event.TaskUpdated,
	event.WorkflowCreated,
	event.WorkflowUpdated,
	event.DependencyAdded,
	event.DependencyRemoved,
	event.DependencyDirectionChanged,
	event.GranularityChanged,
	event.ScheduleLoaded,
}

// Attach registers the chart's scroll, resize and clock listeners, keeps the
// machine's geometry current on every store change, and attaches the machine.
func (c *Chart) Attach() {
	c.mu.Lock()
	if c.subs != nil {
		c.mu.Unlock()
		return
	}
	c.subs = []string{
		c.Bus.Subscribe(event.Scroll, func(e event.Event) {
			if se, ok := e.(event.ScrollEvent); ok {
				c.Scroll(window.Surface(se.Surface), se.Left, se.Top)
			}
		}),
		c.Bus.Subscribe(event.Resize, func(e event.Event) {
			if re, ok := e.(event.ResizeEvent); ok {
				c.Resize(re.Width, re.Height)
			}
		}),
		c.Bus.Subscribe(event.ClockTick, func(e event.Event) {
			if te, ok := e.(event.TickEvent); ok {
				c.Engine.Tick(te.Now)
				c.refresh()
			}
		}),
	}
	for _, typ := range changeTypes {
		c.subs = append(c.subs, c.Bus.Subscribe(typ, func(event.Event) { c.refresh() }))
	}
	c.mu.Unlock()
	c.Machine.Attach(c.Bus)
}

// Detach removes every listener registered by Attach.
func (c *Chart) Detach() {
	c.Machine.Detach()
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, id := range c.subs {
		c.Bus.Unsubscribe(id)
	}
	c.subs = nil
}

// Metrics returns the grid constants for the active granularity.
func (c *Chart) Metrics() layout.Metrics {
	g := c.Engine.State().Granularity
	return c.metrics(g)
}

func (c *Chart) metrics(g timeindex.Granularity) layout.Metrics {
	return layout.Metrics{
		ColWidth:   c.cfg.Column(g).Width,
		RowHeight:  c.cfg.Viewport.RowHeight,
		HeaderRows: c.cfg.Viewport.HeaderRows,
		MinWidth:   c.cfg.Interaction.MinInteractiveWidth,
	}
}

// Viewport returns the timeline and detail pane offsets and the viewport size.
func (c *Chart) Viewport() (timeline, details window.Offset, width, height float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewport.Timeline(), c.viewport.Details(), c.viewport.Width, c.viewport.Height
}

// Scroll applies a scroll event and updates the engine's visible index when the
// timeline moved.
func (c *Chart) Scroll(s window.Surface, left, top float64) {
	c.mu.Lock()
	changed := c.viewport.Scroll(s, left, top)
	c.mu.Unlock()
	if changed {
		c.syncVisibleIndex()
	}
	c.refresh()
}

func (c *Chart) Resize(width, height float64) {
	c.mu.Lock()
	changed := c.viewport.Resize(width, height)
	c.mu.Unlock()
	if changed {
		c.syncVisibleIndex()
		c.refresh()
	}
}

// SetGranularity switches the zoom level and rescales the horizontal offset by
// the ratio of the configured column scales. The result is approximate: the
// date under the left edge is not preserved exactly.
func (c *Chart) SetGranularity(g timeindex.Granularity) error {
	old := c.Engine.State().Granularity
	if err := c.Engine.SetGranularity(g); err != nil {
		return err
	}
	if old != g {
		factor := c.cfg.Column(g).Scale / c.cfg.Column(old).Scale
		c.mu.Lock()
		c.viewport.RescaleLeft(factor)
		c.mu.Unlock()
		c.logger().Debug("granularity changed", "from", string(old), "to", string(g), "factor", factor)
	}
	c.syncVisibleIndex()
	c.refresh()
	return nil
}

// VisibleIndex is the grid index under the left edge of the timeline: 0 while
// the timeline is scrolled fully left, else floor(scrollLeft/colWidth)+1.
func (c *Chart) VisibleIndex() int {
	st := c.Engine.State()
	r, p := c.window(st)
	if r.StartCol == 0 && p.ScrollLeft == 0 {
		return 0
	}
	return int(math.Floor(p.ScrollLeft/p.ColWidth)) + 1
}

func (c *Chart) syncVisibleIndex() {
	if err := c.Engine.SetVisibleIndex(c.VisibleIndex()); err != nil {
		c.logger().Warn("set visible index", "error", err)
	}
}

func (c *Chart) window(st engine.State) (window.Range, window.Params) {
	m := c.metrics(st.Granularity)
	col := c.cfg.Column(st.Granularity)
	rows, cols := layout.Totals(st, m.HeaderRows, col.Buffer)
	c.mu.Lock()
	p := c.viewport.Params(window.Params{
		TotalRows: rows,
		TotalCols: cols,
		RowHeight: m.RowHeight,
		ColWidth:  m.ColWidth,
		Buffer:    col.Buffer,
	})
	c.mu.Unlock()
	return window.Compute(p), p
}

// Window returns the visible row and column ranges.
func (c *Chart) Window() window.Range {
	r, _ := c.window(c.Engine.State())
	return r
}

// Frame derives the visible geometry for the current state and viewport.
func (c *Chart) Frame() layout.Frame {
	st := c.Engine.State()
	r, p := c.window(st)
	return layout.Compute(st, r, p.TotalRows, p.TotalCols, c.metrics(st.Granularity))
}

func (c *Chart) refresh() {
	c.Machine.SetFrame(c.Frame())
}
