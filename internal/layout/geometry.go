package layout

import (
	"math"

	"ganttline/internal/domain"
)

// ArrowMinSpan is the horizontal edge span below which arrowheads are omitted.
const ArrowMinSpan = 20.0

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Contains reports whether p lies inside r, edges included.
func (r Rect) Contains(p Point) bool {
	return p.X >= r.X && p.X <= r.X+r.Width && p.Y >= r.Y && p.Y <= r.Y+r.Height
}

// Anchor is the point a dependency attaches to on side s: the vertical centre of
// the left or right edge.
func (r Rect) Anchor(s domain.Side) Point {
	y := r.Y + r.Height/2
	if s == domain.SideRight {
		return Point{X: r.X + r.Width, Y: y}
	}
	return Point{X: r.X, Y: y}
}

// Edge is a routed dependency.
type Edge struct {
	Dependency  domain.Dependency `json:"dependency"`
	Path        []Point           `json:"path"`
	SourceArrow bool              `json:"source_arrow"`
	TargetArrow bool              `json:"target_arrow"`
}

// From is the source anchor.
func (e Edge) From() Point { return e.Path[0] }

// To is the target anchor.
func (e Edge) To() Point { return e.Path[len(e.Path)-1] }

// EdgePath routes a dependency between two anchors as an elbow: horizontal to
// the midpoint X, vertical to the target row, horizontal into the target.
func EdgePath(from, to Point) []Point {
	midX := (from.X + to.X) / 2
	return []Point{
		from,
		{X: midX, Y: from.Y},
		{X: midX, Y: to.Y},
		to,
	}
}

// RouteEdge builds the Edge for d between the source and target rectangles.
func RouteEdge(d domain.Dependency, source, target Rect) Edge {
	from := source.Anchor(d.FromPosition)
	to := target.Anchor(d.ToPosition)
	e := Edge{Dependency: d, Path: EdgePath(from, to)}
	if math.Abs(to.X-from.X) >= ArrowMinSpan {
		switch d.Direction {
		case domain.DirectionBackward:
			e.SourceArrow = true
		case domain.DirectionBoth:
			e.SourceArrow = true
			e.TargetArrow = true
		default:
			e.TargetArrow = true
		}
	}
	return e
}

// DistanceToPath is the shortest distance from p to any segment of path.
func DistanceToPath(p Point, path []Point) float64 {
	if len(path) == 0 {
		return math.Inf(1)
	}
	if len(path) == 1 {
		return math.Hypot(p.X-path[0].X, p.Y-path[0].Y)
	}
	best := math.Inf(1)
	for i := 1; i < len(path); i++ {
		if d := distanceToSegment(p, path[i-1], path[i]); d < best {
			best = d
		}
	}
	return best
}

func distanceToSegment(p, a, b Point) float64 {
	dx, dy := b.X-a.X, b.Y-a.Y
	lenSq := dx*dx + dy*dy
	t := -1.0
	if lenSq != 0 {
		t = ((p.X-a.X)*dx + (p.Y-a.Y)*dy) / lenSq
	}
	var x, y float64
	switch {
	case t < 0:
		x, y = a.X, a.Y
	case t > 1:
		x, y = b.X, b.Y
	default:
		x, y = a.X+t*dx, a.Y+t*dy
	}
	return math.Hypot(p.X-x, p.Y-y)
}
