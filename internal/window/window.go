// Package window computes the row and column index ranges that intersect a
// scrollable viewport, plus a lookahead buffer on each side.
package window

import "math"

// Params is a snapshot of everything the visible range depends on.
type Params struct {
	TotalRows      int
	TotalCols      int
	RowHeight      float64
	ColWidth       float64
	Buffer         int
	ViewportWidth  float64
	ViewportHeight float64
	ScrollLeft     float64
	ScrollTop      float64
}

// Range holds half-open index ranges [StartRow,EndRow) and [StartCol,EndCol).
type Range struct {
	StartRow int `json:"start_row"`
	EndRow   int `json:"end_row"`
	StartCol int `json:"start_col"`
	EndCol   int `json:"end_col"`
}

// ContainsRow reports whether row falls inside the row window.
func (r Range) ContainsRow(row int) bool {
	return row >= r.StartRow && row < r.EndRow
}

// Compute returns the visible window for p. It is pure: identical inputs always
// yield identical ranges.
func Compute(p Params) Range {
	startCol, endCol := axis(p.ScrollLeft, p.ViewportWidth, p.ColWidth, p.Buffer, p.TotalCols)
	startRow, endRow := axis(p.ScrollTop, p.ViewportHeight, p.RowHeight, p.Buffer, p.TotalRows)
	return Range{StartRow: startRow, EndRow: endRow, StartCol: startCol, EndCol: endCol}
}

func axis(scroll, viewport, size float64, buffer, total int) (int, int) {
	if total <= 0 || size <= 0 {
		return 0, 0
	}
	if buffer < 0 {
		buffer = 0
	}
	if scroll < 0 {
		scroll = 0
	}
	if viewport < 0 {
		viewport = 0
	}
	start := int(math.Floor(scroll/size)) - buffer
	if start < 0 {
		start = 0
	}
	if start > total {
		start = total
	}
	end := start + int(math.Ceil(viewport/size)) + 2*buffer
	if end > total {
		end = total
	}
	return start, end
}
