package window

// Surface identifies one of the two scroll containers that share a vertical
// offset.
type Surface string

const (
	// Timeline is the scrolling chart grid.
	Timeline Surface = "timeline"
	// Details is the fixed label/detail pane beside the grid.
	Details Surface = "details"
)

type Offset struct {
	Left float64 `json:"left"`
	Top  float64 `json:"top"`
}

// Viewport tracks the scroll offsets of both surfaces and the viewport size.
// Vertical offsets are always kept equal; horizontal offsets are independent.
type Viewport struct {
	Width  float64
	Height float64

	timeline Offset
	details  Offset
}

// Timeline returns the timeline surface offset, which drives windowing.
func (v *Viewport) Timeline() Offset { return v.timeline }

// Details returns the detail pane offset.
func (v *Viewport) Details() Offset { return v.details }

// Scroll applies a scroll event from surface s and mirrors the vertical offset
// onto the other surface. It reports whether the timeline offset changed.
func (v *Viewport) Scroll(s Surface, left, top float64) bool {
	before := v.timeline
	left, top = clampOffset(left), clampOffset(top)
	switch s {
	case Details:
		v.details = Offset{Left: left, Top: top}
		v.timeline.Top = top
	default:
		v.timeline = Offset{Left: left, Top: top}
		v.details.Top = top
	}
	return v.timeline != before
}

// Resize updates the viewport size and reports whether it changed.
func (v *Viewport) Resize(width, height float64) bool {
	width, height = clampOffset(width), clampOffset(height)
	if width == v.Width && height == v.Height {
		return false
	}
	v.Width, v.Height = width, height
	return true
}

// RescaleLeft multiplies the timeline's horizontal offset by factor. Zoom changes
// use it to keep roughly the same date under the left edge.
func (v *Viewport) RescaleLeft(factor float64) {
	if factor <= 0 {
		return
	}
	v.timeline.Left *= factor
}

// Params fills the scroll and size fields of p from the timeline surface.
func (v *Viewport) Params(p Params) Params {
	p.ScrollLeft = v.timeline.Left
	p.ScrollTop = v.timeline.Top
	p.ViewportWidth = v.Width
	p.ViewportHeight = v.Height
	return p
}

func clampOffset(x float64) float64 {
	if x < 0 {
		return 0
	}
	return x
}
