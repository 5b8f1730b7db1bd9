// Package replay drives a chart session from a YAML script of input events, the
// same events a host would publish for pointer, scroll, resize and clock input.
package replay

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"ganttline/internal/chart"
	"ganttline/internal/event"
	"ganttline/internal/interact"
	"ganttline/internal/timeindex"
	"ganttline/internal/window"
)

// Step is one input. Exactly one field should be set.
type Step struct {
	Pointer     *Pointer `yaml:"pointer,omitempty"`
	Scroll      *Scroll  `yaml:"scroll,omitempty"`
	Resize      *Resize  `yaml:"resize,omitempty"`
	Granularity string   `yaml:"granularity,omitempty"`
	Menu        string   `yaml:"menu,omitempty"`
	Tick        string   `yaml:"tick,omitempty"`
}

// Pointer coordinates are in content space, like event.PointerEvent.
type Pointer struct {
	Type string  `yaml:"type"`
	X    float64 `yaml:"x"`
	Y    float64 `yaml:"y"`
}

type Scroll struct {
	Surface string  `yaml:"surface"`
	Left    float64 `yaml:"left"`
	Top     float64 `yaml:"top"`
}

type Resize struct {
	Width  float64 `yaml:"width"`
	Height float64 `yaml:"height"`
}

type Script struct {
	Steps []Step `yaml:"steps"`
}

var ErrBadStep = errors.New("invalid replay step")

var pointerTypes = map[string]string{
	"down":          event.PointerDown,
	"move":          event.PointerMove,
	"up":            event.PointerUp,
	"leave":         event.PointerLeave,
	"hover":         event.PointerHover,
	"click":         event.PointerClick,
	"outside_click": event.OutsideClick,
}

func Parse(data []byte) (Script, error) {
	var s Script
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Script{}, fmt.Errorf("invalid replay script: %w", err)
	}
	for i, st := range s.Steps {
		if err := st.validate(); err != nil {
			return Script{}, fmt.Errorf("step %d: %w", i+1, err)
		}
	}
	return s, nil
}

func Load(path string) (Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Script{}, err
	}
	return Parse(data)
}

func (st Step) validate() error {
	n := 0
	if st.Pointer != nil {
		n++
		if _, ok := pointerTypes[st.Pointer.Type]; !ok {
			return fmt.Errorf("%w: pointer type %q", ErrBadStep, st.Pointer.Type)
		}
	}
	if st.Scroll != nil {
		n++
	}
	if st.Resize != nil {
		n++
	}
	if st.Granularity != "" {
		n++
		if _, err := timeindex.Parse(st.Granularity); err != nil {
			return fmt.Errorf("%w: %v", ErrBadStep, err)
		}
	}
	if st.Menu != "" {
		n++
		switch interact.MenuAction(st.Menu) {
		case interact.MenuForward, interact.MenuBackward, interact.MenuBoth, interact.MenuRemove, "close":
		default:
			return fmt.Errorf("%w: menu action %q", ErrBadStep, st.Menu)
		}
	}
	if st.Tick != "" {
		n++
		if _, err := time.Parse(time.RFC3339, st.Tick); err != nil {
			return fmt.Errorf("%w: tick %q", ErrBadStep, st.Tick)
		}
	}
	if n != 1 {
		return fmt.Errorf("%w: want exactly one action, got %d", ErrBadStep, n)
	}
	return nil
}

// Run feeds every step to c. Input events go through the bus so the attached
// chart and machine see them exactly as live input. Granularity and menu steps
// call the chart directly and stop the run on error.
func Run(c *chart.Chart, s Script) error {
	for i, st := range s.Steps {
		if err := apply(c, st); err != nil {
			return fmt.Errorf("step %d: %w", i+1, err)
		}
	}
	return nil
}

func apply(c *chart.Chart, st Step) error {
	switch {
	case st.Pointer != nil:
		c.Bus.Publish(event.PointerEvent{Type: pointerTypes[st.Pointer.Type], X: st.Pointer.X, Y: st.Pointer.Y})
	case st.Scroll != nil:
		surface := st.Scroll.Surface
		if surface == "" {
			surface = string(window.Timeline)
		}
		c.Bus.Publish(event.ScrollEvent{Surface: surface, Left: st.Scroll.Left, Top: st.Scroll.Top})
	case st.Resize != nil:
		c.Bus.Publish(event.ResizeEvent{Width: st.Resize.Width, Height: st.Resize.Height})
	case st.Granularity != "":
		return c.SetGranularity(timeindex.Granularity(st.Granularity))
	case st.Menu == "close":
		c.Machine.CloseMenu()
	case st.Menu != "":
		return c.Machine.ApplyMenu(interact.MenuAction(st.Menu))
	case st.Tick != "":
		at, err := time.Parse(time.RFC3339, st.Tick)
		if err != nil {
			return err
		}
		c.Bus.Publish(event.TickEvent{Now: at})
	}
	return nil
}
